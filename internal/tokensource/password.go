// AngelaMos | 2026
// password.go

// Package tokensource signs a principal in against the forum API and keeps
// its access token fresh.
package tokensource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/carterperez-dev/templates/forum/internal/apiclient"
	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type Config struct {
	BaseURL     string
	HTTPClient  *http.Client
	RefreshSkew time.Duration
	Logger      *slog.Logger
}

type credentials struct {
	principal    *forum.Principal
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// PasswordSource holds one principal's token pair. Refreshes are collapsed
// into a single request because the API treats a reused refresh token as
// theft and revokes the whole family.
type PasswordSource struct {
	baseURL string
	http    *http.Client
	skew    time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	creds   *credentials
	subs    map[uint64]func(*forum.Principal)
	nextSub uint64

	refreshes singleflight.Group
}

func NewPasswordSource(cfg Config) *PasswordSource {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = apiclient.NewHTTPClient(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &PasswordSource{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		skew:    cfg.RefreshSkew,
		logger:  cfg.Logger,
		now:     time.Now,
		subs:    make(map[uint64]func(*forum.Principal)),
	}
}

type authUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
}

type authTokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type authResponse struct {
	User   authUser   `json:"user"`
	Tokens authTokens `json:"tokens"`
}

func (r *authResponse) credentials() *credentials {
	return &credentials{
		principal: &forum.Principal{
			ID:          r.User.ID,
			DisplayName: r.User.Name,
			AvatarURL:   r.User.AvatarURL,
			Email:       r.User.Email,
		},
		accessToken:  r.Tokens.AccessToken,
		refreshToken: r.Tokens.RefreshToken,
		expiresAt:    r.Tokens.ExpiresAt,
	}
}

func (s *PasswordSource) SignIn(ctx context.Context, email, password string) (*forum.Principal, error) {
	var resp authResponse
	err := s.post(ctx, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	creds := resp.credentials()
	s.set(creds)
	return creds.principal, nil
}

func (s *PasswordSource) SignUp(
	ctx context.Context,
	email, password, name string,
) (*forum.Principal, error) {
	var resp authResponse
	err := s.post(ctx, "/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	creds := resp.credentials()
	s.set(creds)
	return creds.principal, nil
}

// Token returns an access token that is valid for at least the refresh
// skew, refreshing it first if needed.
func (s *PasswordSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	creds := s.creds
	s.mu.Unlock()

	if creds == nil {
		return "", forum.ErrUnauthenticated
	}

	if s.now().Add(s.skew).Before(creds.expiresAt) {
		return creds.accessToken, nil
	}

	// The flight outlives any one waiter, so it must not inherit the first
	// caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	token, err, _ := s.refreshes.Do(creds.refreshToken, func() (any, error) {
		return s.refresh(flightCtx, creds)
	})
	if err != nil {
		return "", err
	}

	return token.(string), nil
}

func (s *PasswordSource) refresh(ctx context.Context, prev *credentials) (string, error) {
	var resp authResponse
	err := s.post(ctx, "/auth/refresh", "", map[string]string{
		"refreshToken": prev.refreshToken,
	}, &resp)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			s.logger.Info("refresh token rejected", "principal_id", prev.principal.ID)
			s.clear(prev)
			return "", fmt.Errorf("refresh token: %w", forum.ErrTokenRejected)
		}
		return "", fmt.Errorf("refresh token: %w", err)
	}

	next := resp.credentials()

	s.mu.Lock()
	if s.creds != prev {
		s.mu.Unlock()
		return "", fmt.Errorf("refresh token: %w", forum.ErrUnauthenticated)
	}
	s.creds = next
	s.mu.Unlock()

	return next.accessToken, nil
}

// Revoke forgets the local tokens, tells subscribers, then asks the API to
// revoke them. Local state is cleared even if the API call fails.
func (s *PasswordSource) Revoke(ctx context.Context) error {
	s.mu.Lock()
	creds := s.creds
	s.mu.Unlock()

	if creds == nil {
		return nil
	}

	s.clear(creds)

	err := s.post(ctx, "/auth/logout", creds.accessToken, map[string]string{
		"refreshToken": creds.refreshToken,
	}, nil)
	if err != nil {
		return fmt.Errorf("revoke: %w", err)
	}

	return nil
}

func (s *PasswordSource) Principal() *forum.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds == nil {
		return nil
	}
	return s.creds.principal
}

// Subscribe calls fn with the current principal right away and again on
// every sign-in or sign-out.
func (s *PasswordSource) Subscribe(fn func(*forum.Principal)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	var current *forum.Principal
	if s.creds != nil {
		current = s.creds.principal
	}
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *PasswordSource) set(creds *credentials) {
	s.mu.Lock()
	s.creds = creds
	subs := s.subscribers()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(creds.principal)
	}
}

// clear drops creds if they are still current.
func (s *PasswordSource) clear(creds *credentials) {
	s.mu.Lock()
	if s.creds != creds {
		s.mu.Unlock()
		return
	}
	s.creds = nil
	subs := s.subscribers()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(nil)
	}
}

func (s *PasswordSource) subscribers() []func(*forum.Principal) {
	subs := make([]func(*forum.Principal), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

func (s *PasswordSource) post(ctx context.Context, path, bearer string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	return apiclient.DecodeResponse(resp, out)
}
