// AngelaMos | 2026
// voting.go

package voting

import (
	"context"
	"fmt"
	"net/url"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type Patcher interface {
	Patch(ctx context.Context, path string, body, out any) error
}

type Session interface {
	CurrentPrincipal() *forum.Principal
}

type Engine struct {
	api     Patcher
	session Session
}

func New(api Patcher, session Session) *Engine {
	return &Engine{api: api, session: session}
}

// Vote toggles the signed-in principal's vote. The API applies the same
// forum.ApplyVote rule under a row lock and returns the post as stored.
func (e *Engine) Vote(ctx context.Context, postID string, dir forum.Direction) (*forum.Post, error) {
	if e.session.CurrentPrincipal() == nil {
		return nil, forum.ErrUnauthenticated
	}

	dir, err := forum.ParseDirection(string(dir))
	if err != nil {
		return nil, err
	}

	var post forum.Post
	body := map[string]string{"voteType": string(dir)}
	if err := e.api.Patch(ctx, "/posts/vote/"+url.PathEscape(postID), body, &post); err != nil {
		return nil, fmt.Errorf("vote on %s: %w", postID, err)
	}

	return &post, nil
}
