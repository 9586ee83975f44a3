// AngelaMos | 2026
// password_test.go

package tokensource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type authServer struct {
	refreshes   atomic.Int32
	logouts     atomic.Int32
	rejectNext  atomic.Bool
	gate        chan struct{}
	lastLogout  map[string]string
	logoutToken string
	mu          sync.Mutex
}

func (a *authServer) handler(expiresAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		switch r.URL.Path {
		case "/v1/auth/login":
			if body["password"] != "correct-horse" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"success": false,
					"error":   map[string]string{"code": "INVALID_CREDENTIALS", "message": "invalid email or password"},
				})
				return
			}
			writeAuth(w, "access-1", "refresh-1", expiresAt)

		case "/v1/auth/refresh":
			if body["refreshToken"] == "" {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"success": false,
					"error":   map[string]string{"code": "VALIDATION_ERROR", "message": "refreshToken is required"},
				})
				return
			}
			n := a.refreshes.Add(1)
			if a.gate != nil {
				<-a.gate
			}
			if a.rejectNext.Load() {
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"success": false,
					"error":   map[string]string{"code": "TOKEN_REUSED", "message": "refresh token reuse detected"},
				})
				return
			}
			writeAuth(w, "access-"+string(rune('1'+n)), "refresh-next", time.Now().Add(time.Hour))

		case "/v1/auth/logout":
			a.logouts.Add(1)
			a.mu.Lock()
			a.lastLogout = body
			a.logoutToken = r.Header.Get("Authorization")
			a.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func writeAuth(w http.ResponseWriter, access, refresh string, expiresAt time.Time) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"user": map[string]string{
				"id":        "u-1",
				"email":     "member@example.com",
				"name":      "Member",
				"avatarUrl": "https://cdn.example.com/u-1.png",
			},
			"tokens": map[string]any{
				"accessToken":  access,
				"refreshToken": refresh,
				"expiresAt":    expiresAt,
			},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newSource(t *testing.T, srv *authServer, expiresAt time.Time) *PasswordSource {
	t.Helper()

	ts := httptest.NewServer(srv.handler(expiresAt))
	t.Cleanup(ts.Close)

	return NewPasswordSource(Config{
		BaseURL:     ts.URL + "/v1",
		HTTPClient:  ts.Client(),
		RefreshSkew: 30 * time.Second,
	})
}

func TestSignInNotifiesSubscribers(t *testing.T) {
	src := newSource(t, &authServer{}, time.Now().Add(time.Hour))

	var events []*forum.Principal
	unsubscribe := src.Subscribe(func(p *forum.Principal) {
		events = append(events, p)
	})
	defer unsubscribe()

	p, err := src.SignIn(context.Background(), "member@example.com", "correct-horse")
	require.NoError(t, err)

	assert.Equal(t, "u-1", p.ID)
	assert.Equal(t, "Member", p.DisplayName)
	assert.Equal(t, "https://cdn.example.com/u-1.png", p.AvatarURL)
	require.Len(t, events, 2)
	assert.Nil(t, events[0])
	assert.Equal(t, p, events[1])
	assert.Equal(t, p, src.Principal())
}

func TestSignInBadPassword(t *testing.T) {
	src := newSource(t, &authServer{}, time.Now().Add(time.Hour))

	_, err := src.SignIn(context.Background(), "member@example.com", "wrong")
	require.Error(t, err)
	assert.Nil(t, src.Principal())
}

func TestTokenWithoutSignIn(t *testing.T) {
	src := newSource(t, &authServer{}, time.Now().Add(time.Hour))

	_, err := src.Token(context.Background())
	assert.ErrorIs(t, err, forum.ErrUnauthenticated)
}

func TestTokenReturnsCachedWhileFresh(t *testing.T) {
	srv := &authServer{}
	src := newSource(t, srv, time.Now().Add(time.Hour))

	_, err := src.SignIn(context.Background(), "member@example.com", "correct-horse")
	require.NoError(t, err)

	token, err := src.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "access-1", token)
	assert.Zero(t, srv.refreshes.Load())
}

func TestTokenRefreshesInsideSkew(t *testing.T) {
	srv := &authServer{}
	src := newSource(t, srv, time.Now().Add(10*time.Second))

	_, err := src.SignIn(context.Background(), "member@example.com", "correct-horse")
	require.NoError(t, err)

	token, err := src.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "access-2", token)
	assert.Equal(t, int32(1), srv.refreshes.Load())

	token, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, int32(1), srv.refreshes.Load())
}

func TestConcurrentTokenCallsShareOneRefresh(t *testing.T) {
	srv := &authServer{gate: make(chan struct{})}
	src := newSource(t, srv, time.Now().Add(-time.Minute))

	_, err := src.SignIn(context.Background(), "member@example.com", "correct-horse")
	require.NoError(t, err)

	const callers = 8
	var started, done sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)

	started.Add(callers)
	done.Add(callers)
	for i := range callers {
		go func() {
			defer done.Done()
			started.Done()
			tokens[i], errs[i] = src.Token(context.Background())
		}()
	}

	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(srv.gate)
	done.Wait()

	assert.Equal(t, int32(1), srv.refreshes.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, "access-2", tokens[i])
	}
}

func TestCancelledCallerDoesNotFailSharedRefresh(t *testing.T) {
	srv := &authServer{gate: make(chan struct{})}
	src := newSource(t, srv, time.Now().Add(-time.Minute))

	_, err := src.SignIn(context.Background(), "member@example.com", "correct-horse")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var firstToken, secondToken string
	var firstErr, secondErr error
	var done sync.WaitGroup

	done.Add(1)
	go func() {
		defer done.Done()
		firstToken, firstErr = src.Token(ctx)
	}()
	require.Eventually(t, func() bool { return srv.refreshes.Load() == 1 }, time.Second, 5*time.Millisecond)

	done.Add(1)
	go func() {
		defer done.Done()
		secondToken, secondErr = src.Token(context.Background())
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(srv.gate)
	done.Wait()

	require.NoError(t, secondErr)
	assert.Equal(t, "access-2", secondToken)
	require.NoError(t, firstErr)
	assert.Equal(t, "access-2", firstToken)
	assert.Equal(t, int32(1), srv.refreshes.Load())
	assert.NotNil(t, src.Principal())
}

func TestRejectedRefreshSignsOut(t *testing.T) {
	srv := &authServer{}
	srv.rejectNext.Store(true)
	src := newSource(t, srv, time.Now().Add(-time.Minute))

	_, err := src.SignIn(context.Background(), "member@example.com", "correct-horse")
	require.NoError(t, err)

	var last *forum.Principal
	notified := false
	unsubscribe := src.Subscribe(func(p *forum.Principal) {
		last = p
		notified = true
	})
	defer unsubscribe()

	_, err = src.Token(context.Background())

	assert.ErrorIs(t, err, forum.ErrTokenRejected)
	assert.True(t, notified)
	assert.Nil(t, last)
	assert.Nil(t, src.Principal())
}

func TestRevokeClearsAndLogsOut(t *testing.T) {
	srv := &authServer{}
	src := newSource(t, srv, time.Now().Add(time.Hour))

	_, err := src.SignIn(context.Background(), "member@example.com", "correct-horse")
	require.NoError(t, err)

	var last *forum.Principal
	unsubscribe := src.Subscribe(func(p *forum.Principal) { last = p })
	defer unsubscribe()

	require.NoError(t, src.Revoke(context.Background()))

	assert.Nil(t, last)
	assert.Nil(t, src.Principal())
	assert.Equal(t, int32(1), srv.logouts.Load())
	assert.Equal(t, "Bearer access-1", srv.logoutToken)
	assert.Equal(t, "refresh-1", srv.lastLogout["refreshToken"])

	require.NoError(t, src.Revoke(context.Background()))
	assert.Equal(t, int32(1), srv.logouts.Load())
}
