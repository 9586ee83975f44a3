// AngelaMos | 2026
// fakes.go

// Package forumtest provides in-memory stand-ins for the API client, the
// session store and the role resolver.
package forumtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

// Call is one request seen by API.
type Call struct {
	Method string
	Path   string
	Body   any
}

type reply struct {
	data any
	err  error
}

// API answers requests from canned replies keyed by "METHOD path". A
// request with no reply fails with forum.ErrNotFound.
type API struct {
	mu      sync.Mutex
	replies map[string]reply
	calls   []Call
}

func NewAPI() *API {
	return &API{replies: make(map[string]reply)}
}

// On sets the reply for method and path. data is round-tripped through
// JSON into the caller's out value.
func (a *API) On(method, path string, data any, err error) *API {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.replies[method+" "+path] = reply{data: data, err: err}
	return a
}

func (a *API) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Call(nil), a.calls...)
}

// Count returns how many requests matched method and path.
func (a *API) Count(method, path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, c := range a.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (a *API) do(method, path string, body, out any) error {
	a.mu.Lock()
	a.calls = append(a.calls, Call{Method: method, Path: path, Body: body})
	r, ok := a.replies[method+" "+path]
	a.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s %s: %w", method, path, forum.ErrNotFound)
	}
	if r.err != nil {
		return r.err
	}
	if out == nil || r.data == nil {
		return nil
	}

	raw, err := json.Marshal(r.data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (a *API) Get(ctx context.Context, path string, out any) error {
	return a.do(http.MethodGet, path, nil, out)
}

func (a *API) Post(ctx context.Context, path string, body, out any) error {
	return a.do(http.MethodPost, path, body, out)
}

func (a *API) Patch(ctx context.Context, path string, body, out any) error {
	return a.do(http.MethodPatch, path, body, out)
}

func (a *API) Delete(ctx context.Context, path string, out any) error {
	return a.do(http.MethodDelete, path, nil, out)
}

// Session is a session store whose state tests set directly.
type Session struct {
	mu        sync.Mutex
	principal *forum.Principal
	resolving bool
	signOuts  int
}

func NewSession(p *forum.Principal) *Session {
	return &Session{principal: p}
}

// Resolving returns a session that has not heard from the identity
// provider yet.
func Resolving() *Session {
	return &Session{resolving: true}
}

func (s *Session) CurrentPrincipal() *forum.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principal
}

func (s *Session) IsResolving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolving
}

func (s *Session) SignOut(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = nil
	s.resolving = false
	s.signOuts++
}

// Set replaces the principal and marks the session resolved.
func (s *Session) Set(p *forum.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = p
	s.resolving = false
}

func (s *Session) SignOuts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signOuts
}

// Roles maps principal IDs to role records. Unknown principals fail with
// Err, or forum.ErrNotFound when Err is nil.
type Roles struct {
	Records map[string]forum.RoleRecord
	Err     error
}

func (r *Roles) RoleOf(ctx context.Context, p *forum.Principal) (forum.RoleRecord, error) {
	if p == nil {
		return forum.RoleRecord{}, forum.ErrUnauthenticated
	}
	if r.Err != nil {
		return forum.RoleRecord{}, r.Err
	}
	rec, ok := r.Records[p.ID]
	if !ok {
		return forum.RoleRecord{}, fmt.Errorf("role of %s: %w", p.ID, forum.ErrNotFound)
	}
	return rec, nil
}

// Navigator records redirects.
type Navigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *Navigator) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *Navigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

var (
	Member = &forum.Principal{ID: "u-member", DisplayName: "Member", Email: "member@example.com"}
	Admin  = &forum.Principal{ID: "u-admin", DisplayName: "Admin", Email: "admin@example.com"}
)

// StandardRoles knows Member as a standard member and Admin as an admin.
func StandardRoles() *Roles {
	return &Roles{Records: map[string]forum.RoleRecord{
		Member.ID: {PrincipalID: Member.ID, Role: forum.RoleMember, Tier: forum.TierStandard},
		Admin.ID:  {PrincipalID: Admin.ID, Role: forum.RoleAdmin, Tier: forum.TierStandard},
	}}
}
