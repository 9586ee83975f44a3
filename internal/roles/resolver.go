// AngelaMos | 2026
// resolver.go

package roles

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type Getter interface {
	Get(ctx context.Context, path string, out any) error
}

type Session interface {
	CurrentPrincipal() *forum.Principal
	IsResolving() bool
}

// Resolver answers role and tier questions with one backend lookup per
// principal. Entries stay cached until they expire or are invalidated, so
// callers must Invalidate after a promotion, a demotion or make-member.
type Resolver struct {
	api     Getter
	session Session
	cache   *expirable.LRU[string, forum.RoleRecord]
}

func NewResolver(api Getter, session Session, size int, ttl time.Duration) *Resolver {
	return &Resolver{
		api:     api,
		session: session,
		cache:   expirable.NewLRU[string, forum.RoleRecord](size, nil, ttl),
	}
}

func (r *Resolver) RoleOf(ctx context.Context, p *forum.Principal) (forum.RoleRecord, error) {
	if p == nil {
		return forum.RoleRecord{}, forum.ErrUnauthenticated
	}

	if rec, ok := r.cache.Get(p.ID); ok {
		return rec, nil
	}

	var rec forum.RoleRecord
	if err := r.api.Get(ctx, "/users/"+url.PathEscape(p.Email), &rec); err != nil {
		return forum.RoleRecord{}, fmt.Errorf("role of %s: %w", p.ID, err)
	}

	if rec.PrincipalID == "" {
		rec.PrincipalID = p.ID
	}
	if rec.PrincipalID != p.ID {
		return forum.RoleRecord{}, fmt.Errorf("role of %s: backend answered for %s", p.ID, rec.PrincipalID)
	}
	if !forum.ValidRole(rec.Role) || !forum.ValidTier(rec.Tier) {
		return forum.RoleRecord{}, fmt.Errorf("role of %s: unexpected role %q tier %q", p.ID, rec.Role, rec.Tier)
	}

	r.cache.Add(p.ID, rec)
	return rec, nil
}

// Current resolves the signed-in principal. It refuses while the session is
// still resolving so no lookup runs before identity is known.
func (r *Resolver) Current(ctx context.Context) (forum.RoleRecord, error) {
	if r.session.IsResolving() {
		return forum.RoleRecord{}, forum.ErrUnauthenticated
	}
	return r.RoleOf(ctx, r.session.CurrentPrincipal())
}

func (r *Resolver) Invalidate(principalID string) {
	r.cache.Remove(principalID)
}

func (r *Resolver) Purge() {
	r.cache.Purge()
}
