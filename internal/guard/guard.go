// AngelaMos | 2026
// guard.go

// Package guard decides whether a protected view may be shown.
package guard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type State int

const (
	Pending State = iota
	Allowed
	Denied
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Route struct {
	Path         string
	RequireAuth  bool
	RequireAdmin bool
}

type Decision struct {
	State    State
	Redirect string
	Reason   error
}

type Session interface {
	CurrentPrincipal() *forum.Principal
	IsResolving() bool
}

type RoleSource interface {
	RoleOf(ctx context.Context, p *forum.Principal) (forum.RoleRecord, error)
}

type Navigator interface {
	Redirect(path string)
}

type Paths struct {
	SignIn string
	Home   string
}

type Guard struct {
	session Session
	roles   RoleSource
	nav     Navigator
	paths   Paths
}

func New(session Session, roles RoleSource, nav Navigator, paths Paths) *Guard {
	if paths.SignIn == "" {
		paths.SignIn = "/login"
	}
	if paths.Home == "" {
		paths.Home = "/"
	}
	return &Guard{session: session, roles: roles, nav: nav, paths: paths}
}

// Evaluate never allows a route before the session has resolved, and a
// failed role lookup denies.
func (g *Guard) Evaluate(ctx context.Context, route Route) Decision {
	if g.session.IsResolving() {
		return Decision{State: Pending}
	}

	needsAuth := route.RequireAuth || route.RequireAdmin
	principal := g.session.CurrentPrincipal()

	if needsAuth && principal == nil {
		return Decision{
			State:    Denied,
			Redirect: g.signInRedirect(route.Path),
			Reason:   forum.ErrUnauthenticated,
		}
	}

	if route.RequireAdmin {
		rec, err := g.roles.RoleOf(ctx, principal)
		if err != nil {
			return Decision{
				State:    Denied,
				Redirect: g.paths.Home,
				Reason:   fmt.Errorf("role lookup: %w", errors.Join(forum.ErrUnauthorized, err)),
			}
		}
		if !rec.IsAdmin() {
			return Decision{
				State:    Denied,
				Redirect: g.paths.Home,
				Reason:   forum.ErrUnauthorized,
			}
		}
	}

	return Decision{State: Allowed}
}

// Navigate evaluates route and follows the redirect when denied.
func (g *Guard) Navigate(ctx context.Context, route Route) Decision {
	d := g.Evaluate(ctx, route)
	if d.State == Denied && g.nav != nil {
		g.nav.Redirect(d.Redirect)
	}
	return d
}

func (g *Guard) signInRedirect(path string) string {
	if path == "" || path == g.paths.SignIn {
		return g.paths.SignIn
	}
	return g.paths.SignIn + "?next=" + url.QueryEscape(path)
}

// NextFromSignIn returns where to go after signing in, given the sign-in
// redirect. Only local paths are honoured.
func (g *Guard) NextFromSignIn(redirect string) string {
	u, err := url.Parse(redirect)
	if err != nil {
		return g.paths.Home
	}

	next := u.Query().Get("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return g.paths.Home
	}

	return next
}
