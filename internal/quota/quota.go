// AngelaMos | 2026
// quota.go

package quota

import (
	"context"
	"fmt"
	"net/url"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

const DefaultPostLimit = 5

type Getter interface {
	Get(ctx context.Context, path string, out any) error
}

type RoleSource interface {
	RoleOf(ctx context.Context, p *forum.Principal) (forum.RoleRecord, error)
}

// Enforcer answers whether a principal may create another post. The answer
// is read-then-decide: two creations racing past it can both succeed, and
// the API may still reject late with QUOTA_EXCEEDED.
type Enforcer struct {
	api   Getter
	roles RoleSource
	limit int
}

func New(api Getter, roles RoleSource, limit int) *Enforcer {
	if limit < 1 {
		limit = DefaultPostLimit
	}
	return &Enforcer{api: api, roles: roles, limit: limit}
}

func (e *Enforcer) CanPost(ctx context.Context, p *forum.Principal) (bool, error) {
	if p == nil {
		return false, forum.ErrUnauthenticated
	}

	rec, err := e.roles.RoleOf(ctx, p)
	if err != nil {
		return false, err
	}
	if rec.IsElevated() {
		return true, nil
	}

	count, err := e.PostCount(ctx, p)
	if err != nil {
		return false, err
	}

	return count < e.limit, nil
}

func (e *Enforcer) PostCount(ctx context.Context, p *forum.Principal) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := e.api.Get(ctx, "/posts/count/"+url.PathEscape(p.Email), &resp); err != nil {
		return 0, fmt.Errorf("post count: %w", err)
	}
	return resp.Count, nil
}

// Check is CanPost as an error, for surfacing the quota before submission.
func (e *Enforcer) Check(ctx context.Context, p *forum.Principal) error {
	ok, err := e.CanPost(ctx, p)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: limit is %d", forum.ErrQuotaExceeded, e.limit)
	}
	return nil
}

func (e *Enforcer) Limit() int {
	return e.limit
}
