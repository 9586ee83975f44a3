// AngelaMos | 2026
// client.go

// Package apiclient sends requests to the forum API on behalf of the
// signed-in principal and turns a rejected token into a forced sign-out.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type Session interface {
	CurrentPrincipal() *forum.Principal
	SignOut(ctx context.Context)
}

// Navigator moves the user to another view.
type Navigator interface {
	Redirect(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Redirect(path string) {
	f(path)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	SignInPath string
	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	baseURL    string
	http       *http.Client
	session    Session
	tokens     TokenSource
	nav        Navigator
	signInPath string
	logger     *slog.Logger
}

func New(cfg Config, session Session, tokens TokenSource, nav Navigator) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api client: invalid base url %q", cfg.BaseURL)
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient(cfg.Timeout)
	}
	if cfg.SignInPath == "" {
		cfg.SignInPath = "/login"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       cfg.HTTPClient,
		session:    session,
		tokens:     tokens,
		nav:        nav,
		signInPath: cfg.SignInPath,
		logger:     cfg.Logger,
	}, nil
}

// NewHTTPClient returns a client whose transport propagates trace context.
// It never retries.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// Do sends one request. When a principal is signed in it asks the token
// source for a token on every call. A 401 or 403 signs the session out,
// redirects to sign-in and fails with forum.ErrTokenRejected; the request
// is not retried.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.session.CurrentPrincipal() != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			if errors.Is(err, forum.ErrTokenRejected) || errors.Is(err, forum.ErrUnauthenticated) {
				return c.reject(ctx, method, path)
			}
			return fmt.Errorf("%s %s: get token: %w", method, path, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for reuse
		return c.reject(ctx, method, path)
	}

	if err := DecodeResponse(resp, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	return nil
}

func (c *Client) reject(ctx context.Context, method, path string) error {
	c.logger.Warn("token rejected, signing out",
		"method", method,
		"path", path,
	)

	c.session.SignOut(ctx)
	c.nav.Redirect(c.signInPath)

	return fmt.Errorf("%s %s: %w", method, path, forum.ErrTokenRejected)
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}
