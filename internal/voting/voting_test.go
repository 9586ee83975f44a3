// AngelaMos | 2026
// voting_test.go

package voting

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/forum/internal/forum"
	"github.com/carterperez-dev/templates/forum/internal/forumtest"
)

func TestVoteSendsDirection(t *testing.T) {
	stored := forum.Post{ID: "p1", Upvoters: []string{forumtest.Member.ID}, Downvoters: []string{}}
	api := forumtest.NewAPI().On(http.MethodPatch, "/posts/vote/p1", stored, nil)
	e := New(api, forumtest.NewSession(forumtest.Member))

	post, err := e.Vote(context.Background(), "p1", "up")
	require.NoError(t, err)

	assert.Equal(t, 1, post.Score())
	calls := api.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, map[string]string{"voteType": "upVote"}, calls[0].Body)
}

func TestVoteUnauthenticated(t *testing.T) {
	api := forumtest.NewAPI()
	e := New(api, forumtest.NewSession(nil))

	_, err := e.Vote(context.Background(), "p1", forum.VoteUp)
	assert.ErrorIs(t, err, forum.ErrUnauthenticated)
	assert.Empty(t, api.Calls())
}

func TestVoteRejectsUnknownDirection(t *testing.T) {
	api := forumtest.NewAPI()
	e := New(api, forumtest.NewSession(forumtest.Member))

	_, err := e.Vote(context.Background(), "p1", "sideways")
	assert.ErrorIs(t, err, forum.ErrInvalidInput)
	assert.Empty(t, api.Calls())
}

func TestVotePropagatesRejection(t *testing.T) {
	api := forumtest.NewAPI().On(http.MethodPatch, "/posts/vote/p1", nil, forum.ErrTokenRejected)
	e := New(api, forumtest.NewSession(forumtest.Member))

	_, err := e.Vote(context.Background(), "p1", forum.VoteDown)
	assert.ErrorIs(t, err, forum.ErrTokenRejected)
}

func TestApplyVoteToggles(t *testing.T) {
	p := &forum.Post{}

	require.NoError(t, forum.ApplyVote(p, "a", forum.VoteUp))
	assert.Equal(t, forum.VoteUp, forum.VoteOf(p, "a"))

	require.NoError(t, forum.ApplyVote(p, "a", forum.VoteDown))
	assert.Equal(t, forum.VoteDown, forum.VoteOf(p, "a"))
	assert.Empty(t, p.Upvoters)

	require.NoError(t, forum.ApplyVote(p, "a", forum.VoteDown))
	assert.Equal(t, forum.Direction(""), forum.VoteOf(p, "a"))
	assert.Zero(t, p.Score())

	assert.ErrorIs(t, forum.ApplyVote(p, "", forum.VoteUp), forum.ErrUnauthenticated)
}
