// AngelaMos | 2026
// handler_test.go

package post

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
	"github.com/carterperez-dev/templates/forum/internal/middleware"
)

// headerAuth trusts X-User-ID so routes can be exercised without tokens.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User-ID")
		if id == "" {
			core.Unauthorized(w, "missing authorization token")
			return
		}
		role := forum.RoleMember
		if id == adminID {
			role = forum.RoleAdmin
		}
		ctx := middleware.WithPrincipal(r.Context(), id, role, forum.TierStandard)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newRouter(repo *memRepo) http.Handler {
	r := chi.NewRouter()
	NewHandler(newTestService(repo)).RegisterRoutes(r, headerAuth)
	return r
}

func send(t *testing.T, h http.Handler, method, path, userID, body string) (*httptest.ResponseRecorder, core.Response) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp core.Response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestCreateRouteQuotaIs422(t *testing.T) {
	repo := newMemRepo()
	seed(repo, authorID, 5)
	h := newRouter(repo)

	rec, resp := send(t, h, http.MethodPost, "/posts", authorID, `{"title":"t","body":"b"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "QUOTA_EXCEEDED", resp.Error.Code)
}

func TestCreateRouteRequiresToken(t *testing.T) {
	h := newRouter(newMemRepo())

	rec, _ := send(t, h, http.MethodPost, "/posts", "", `{"title":"t","body":"b"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateRouteValidates(t *testing.T) {
	h := newRouter(newMemRepo())

	rec, resp := send(t, h, http.MethodPost, "/posts", authorID, `{"title":"","body":"b"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
}

func TestDeleteRouteNotAuthorIsNot403(t *testing.T) {
	repo := newMemRepo()
	repo.add(forum.Post{ID: "p1", AuthorID: authorID})
	h := newRouter(repo)

	rec, resp := send(t, h, http.MethodDelete, "/posts/p1", otherID, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_AUTHOR", resp.Error.Code)

	rec, _ = send(t, h, http.MethodDelete, "/posts/p1", adminID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = send(t, h, http.MethodDelete, "/posts/p1", adminID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVoteRoute(t *testing.T) {
	repo := newMemRepo()
	repo.add(forum.Post{ID: "p1", AuthorID: otherID})
	h := newRouter(repo)

	rec, resp := send(t, h, http.MethodPatch, "/posts/vote/p1", authorID, `{"voteType":"upVote"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var p forum.Post
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, []string{authorID}, p.Upvoters)

	rec, _ = send(t, h, http.MethodPatch, "/posts/vote/p1", authorID, `{"voteType":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCountRoute(t *testing.T) {
	repo := newMemRepo()
	repo.emails["member@example.com"] = authorID
	seed(repo, authorID, 2)
	h := newRouter(repo)

	rec, resp := send(t, h, http.MethodGet, "/posts/count/member@example.com", authorID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"count": float64(2)}, resp.Data)

	rec, _ = send(t, h, http.MethodGet, "/posts/count/ghost@example.com", authorID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
