// AngelaMos | 2026
// app.go

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/carterperez-dev/templates/forum/internal/apiclient"
	"github.com/carterperez-dev/templates/forum/internal/config"
	"github.com/carterperez-dev/templates/forum/internal/guard"
	"github.com/carterperez-dev/templates/forum/internal/moderation"
	"github.com/carterperez-dev/templates/forum/internal/quota"
	"github.com/carterperez-dev/templates/forum/internal/roles"
	"github.com/carterperez-dev/templates/forum/internal/session"
	"github.com/carterperez-dev/templates/forum/internal/tokensource"
	"github.com/carterperez-dev/templates/forum/internal/voting"
)

// views are the protected screens of the web client; forumctl checks them
// before running the matching command.
var views = map[string]guard.Route{
	"/":              {Path: "/"},
	"/posts/new":     {Path: "/posts/new", RequireAuth: true},
	"/membership":    {Path: "/membership", RequireAuth: true},
	"/admin/reports": {Path: "/admin/reports", RequireAdmin: true},
	"/admin/users":   {Path: "/admin/users", RequireAdmin: true},
}

type app struct {
	cfg        *config.ClientConfig
	logger     *slog.Logger
	source     *tokensource.PasswordSource
	session    *session.Store
	api        *apiclient.Client
	roles      *roles.Resolver
	guard      *guard.Guard
	quota      *quota.Enforcer
	voting     *voting.Engine
	moderation *moderation.Pipeline
}

func newApp(cctx *cli.Context) (*app, error) {
	cfg, err := config.LoadClient(cctx.String("config"))
	if err != nil {
		return nil, err
	}

	logger := config.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	httpClient := apiclient.NewHTTPClient(cfg.API.Timeout)

	source := tokensource.NewPasswordSource(tokensource.Config{
		BaseURL:     cfg.API.BaseURL,
		HTTPClient:  httpClient,
		RefreshSkew: cfg.Auth.RefreshSkew,
		Logger:      logger,
	})

	store := session.Init(source, session.Options{
		Logger:        logger,
		RevokeTimeout: cfg.Auth.RevokeTimeout,
	})

	nav := apiclient.NavigatorFunc(func(path string) {
		fmt.Fprintf(os.Stderr, "-> %s\n", path)
	})

	api, err := apiclient.New(apiclient.Config{
		BaseURL:    cfg.API.BaseURL,
		SignInPath: cfg.Auth.SignInPath,
		HTTPClient: httpClient,
		Logger:     logger,
	}, store, source, nav)
	if err != nil {
		return nil, err
	}

	resolver := roles.NewResolver(api, store, cfg.Roles.CacheSize, cfg.Roles.CacheTTL)

	return &app{
		cfg:     cfg,
		logger:  logger,
		source:  source,
		session: store,
		api:     api,
		roles:   resolver,
		guard: guard.New(store, resolver, nav, guard.Paths{
			SignIn: cfg.Auth.SignInPath,
			Home:   cfg.Auth.HomePath,
		}),
		quota:  quota.New(api, resolver, cfg.Quota.PostLimit),
		voting: voting.New(api, store),
		moderation: moderation.New(api, store, resolver, moderation.Policy{
			ReReportAfterDismissal: cfg.Moderation.AllowReReportAfterDismissal,
		}),
	}, nil
}

// signIn signs in with the flag or config credentials, if any.
func (a *app) signIn(ctx context.Context, cctx *cli.Context) error {
	email := cctx.String("email")
	if email == "" {
		email = a.cfg.Auth.Email
	}
	password := cctx.String("password")
	if password == "" {
		password = a.cfg.Auth.Password
	}

	if email != "" && password != "" {
		if _, err := a.source.SignIn(ctx, email, password); err != nil {
			return err
		}
	}

	return a.session.Wait(ctx)
}

// withApp builds the app, signs in and runs fn.
func withApp(fn func(ctx context.Context, a *app, cctx *cli.Context) error) cli.ActionFunc {
	return func(cctx *cli.Context) error {
		ctx := cctx.Context

		a, err := newApp(cctx)
		if err != nil {
			return err
		}
		defer a.session.Close()

		if err := a.signIn(ctx, cctx); err != nil {
			return err
		}

		return fn(ctx, a, cctx)
	}
}

// enter runs the route guard for view and fails unless it allows.
func (a *app) enter(ctx context.Context, view string) error {
	d := a.guard.Navigate(ctx, views[view])
	switch {
	case d.State == guard.Allowed:
		return nil
	case d.Reason != nil:
		return fmt.Errorf("%s: %s: %w", view, d.State, d.Reason)
	default:
		return fmt.Errorf("%s: %s", view, d.State)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
