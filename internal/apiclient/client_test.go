// AngelaMos | 2026
// client_test.go

package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/forum/internal/forum"
	"github.com/carterperez-dev/templates/forum/internal/session"
)

type fakeSource struct {
	mu        sync.Mutex
	principal *forum.Principal
	calls     atomic.Int32
	tokenErr  error
}

func (f *fakeSource) Subscribe(fn func(*forum.Principal)) func() {
	f.mu.Lock()
	p := f.principal
	f.mu.Unlock()
	fn(p)
	return func() {}
}

func (f *fakeSource) Revoke(ctx context.Context) error { return nil }

func (f *fakeSource) Token(ctx context.Context) (string, error) {
	n := f.calls.Add(1)
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return fmt.Sprintf("token-%d", n), nil
}

type recordingNav struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNav) Redirect(path string) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.mu.Unlock()
}

var member = &forum.Principal{ID: "u-1", Email: "member@example.com"}

func newTestClient(
	t *testing.T,
	handler http.HandlerFunc,
	signedIn *forum.Principal,
) (*Client, *session.Store, *fakeSource, *recordingNav) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src := &fakeSource{principal: signedIn}
	store := session.New(src, session.Options{})
	store.Start()
	t.Cleanup(store.Close)

	nav := &recordingNav{}
	c, err := New(Config{BaseURL: srv.URL + "/v1", HTTPClient: srv.Client()}, store, src, nav)
	require.NoError(t, err)

	return c, store, src, nav
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeErrorEnvelope(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

func TestDoAttachesFreshTokenPerCall(t *testing.T) {
	var seen []string
	var mu sync.Mutex

	c, _, src, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		writeEnvelope(w, http.StatusOK, map[string]int{"count": 2})
	}, member)

	var out struct {
		Count int `json:"count"`
	}
	require.NoError(t, c.Get(context.Background(), "/posts/count/x", &out))
	require.NoError(t, c.Get(context.Background(), "/posts/count/x", &out))

	assert.Equal(t, 2, out.Count)
	assert.Equal(t, int32(2), src.calls.Load())
	assert.Equal(t, []string{"Bearer token-1", "Bearer token-2"}, seen)
}

func TestDoWithoutPrincipalSendsNoToken(t *testing.T) {
	c, _, src, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "/v1/posts", r.URL.Path)
		writeEnvelope(w, http.StatusOK, []any{})
	}, nil)

	var posts []forum.Post
	require.NoError(t, c.Get(context.Background(), "/posts", &posts))
	assert.Zero(t, src.calls.Load())
}

func TestDoSignsOutOnRejectedToken(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var hits atomic.Int32
			c, store, _, nav := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				writeErrorEnvelope(w, status, "TOKEN_INVALID", "token is invalid")
			}, member)

			require.NotNil(t, store.CurrentPrincipal())

			err := c.Patch(context.Background(), "/posts/vote/p1", map[string]string{"voteType": "upVote"}, nil)

			assert.ErrorIs(t, err, forum.ErrTokenRejected)
			assert.Nil(t, store.CurrentPrincipal())
			assert.Equal(t, []string{"/login"}, nav.paths)
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestDoSurfacesOtherErrors(t *testing.T) {
	c, store, _, nav := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeErrorEnvelope(w, http.StatusConflict, "DUPLICATE_REPORT", "an open report for this target already exists")
	}, member)

	err := c.Post(context.Background(), "/reports", map[string]string{}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, forum.ErrDuplicateReport)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "DUPLICATE_REPORT", apiErr.Code)

	assert.NotNil(t, store.CurrentPrincipal())
	assert.Empty(t, nav.paths)
}

func TestDoTreatsRejectedRefreshAsTokenRejection(t *testing.T) {
	var hits atomic.Int32
	c, store, src, nav := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeEnvelope(w, http.StatusOK, nil)
	}, member)
	src.tokenErr = fmt.Errorf("refresh: %w", forum.ErrTokenRejected)

	err := c.Get(context.Background(), "/auth/me", nil)

	assert.ErrorIs(t, err, forum.ErrTokenRejected)
	assert.Nil(t, store.CurrentPrincipal())
	assert.Equal(t, []string{"/login"}, nav.paths)
	assert.Zero(t, hits.Load())
}

func TestDoHandlesNoContent(t *testing.T) {
	c, _, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, member)

	var out map[string]any
	require.NoError(t, c.Delete(context.Background(), "/comments/c1", &out))
	assert.Nil(t, out)
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "/v1"}, nil, nil, nil)
	assert.Error(t, err)
}

func TestAPIErrorMatchesTaxonomy(t *testing.T) {
	cases := []struct {
		err    *APIError
		target error
	}{
		{&APIError{StatusCode: 422, Code: "QUOTA_EXCEEDED"}, forum.ErrQuotaExceeded},
		{&APIError{StatusCode: 409, Code: "REPORT_CLOSED"}, forum.ErrReportClosed},
		{&APIError{StatusCode: 404, Code: "NOT_FOUND"}, forum.ErrNotFound},
		{&APIError{StatusCode: 400, Code: "BAD_REQUEST"}, forum.ErrInvalidInput},
		{&APIError{StatusCode: 422, Code: "NOT_AUTHOR"}, forum.ErrUnauthorized},
	}

	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.target, tc.err.Code)
	}

	assert.NotErrorIs(t, &APIError{StatusCode: 409, Code: "DUPLICATE"}, forum.ErrDuplicateReport)
}
