// AngelaMos | 2026
// store_test.go

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

type stubSource struct {
	mu           sync.Mutex
	fn           func(*forum.Principal)
	initial      *forum.Principal
	deferInitial bool
	revokes      chan struct{}
	revokeErr    error
	unsubscribed bool
}

func newStubSource(initial *forum.Principal) *stubSource {
	return &stubSource{initial: initial, revokes: make(chan struct{}, 4)}
}

func (s *stubSource) Subscribe(fn func(*forum.Principal)) func() {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()

	if !s.deferInitial {
		fn(s.initial)
	}

	return func() {
		s.mu.Lock()
		s.unsubscribed = true
		s.fn = nil
		s.mu.Unlock()
	}
}

func (s *stubSource) emit(p *forum.Principal) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

func (s *stubSource) Revoke(ctx context.Context) error {
	s.revokes <- struct{}{}
	return s.revokeErr
}

var alice = &forum.Principal{ID: "u-alice", DisplayName: "Alice", Email: "alice@example.com"}

func TestStoreResolvesOnFirstEvent(t *testing.T) {
	src := newStubSource(nil)
	src.deferInitial = true

	s := New(src, Options{})
	s.Start()

	assert.True(t, s.IsResolving())
	assert.Nil(t, s.CurrentPrincipal())

	src.emit(alice)

	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("store never became ready")
	}

	assert.False(t, s.IsResolving())
	assert.Equal(t, alice, s.CurrentPrincipal())
}

func TestStoreResolvesToNil(t *testing.T) {
	s := New(newStubSource(nil), Options{})
	s.Start()

	require.NoError(t, s.Wait(context.Background()))
	assert.False(t, s.IsResolving())
	assert.Nil(t, s.CurrentPrincipal())
}

func TestStoreTracksLaterEvents(t *testing.T) {
	src := newStubSource(nil)
	s := New(src, Options{})
	s.Start()

	src.emit(alice)
	assert.Equal(t, alice, s.CurrentPrincipal())

	src.emit(nil)
	assert.Nil(t, s.CurrentPrincipal())
}

func TestSignOutClearsBeforeReturning(t *testing.T) {
	src := newStubSource(alice)
	s := New(src, Options{})
	s.Start()
	require.Equal(t, alice, s.CurrentPrincipal())

	s.SignOut(context.Background())

	assert.Nil(t, s.CurrentPrincipal())

	select {
	case <-src.revokes:
	case <-time.After(time.Second):
		t.Fatal("revoke was not called")
	}
}

func TestSignOutIgnoresLateEventForSamePrincipal(t *testing.T) {
	src := newStubSource(alice)
	s := New(src, Options{})
	s.Start()

	s.SignOut(context.Background())
	src.emit(alice)
	assert.Nil(t, s.CurrentPrincipal())

	src.emit(nil)
	src.emit(alice)
	assert.Equal(t, alice, s.CurrentPrincipal())
}

func TestSignOutAcceptsDifferentPrincipal(t *testing.T) {
	src := newStubSource(alice)
	s := New(src, Options{})
	s.Start()

	s.SignOut(context.Background())

	bob := &forum.Principal{ID: "u-bob", Email: "bob@example.com"}
	src.emit(bob)
	assert.Equal(t, bob, s.CurrentPrincipal())
}

func TestSignOutRevokeFailureIsNotFatal(t *testing.T) {
	src := newStubSource(alice)
	src.revokeErr = errors.New("network down")
	s := New(src, Options{})
	s.Start()

	s.SignOut(context.Background())
	s.Close()

	assert.Nil(t, s.CurrentPrincipal())
	assert.Len(t, src.revokes, 1)
}

func TestSignOutWithoutPrincipalSkipsRevoke(t *testing.T) {
	src := newStubSource(nil)
	s := New(src, Options{})
	s.Start()

	s.SignOut(context.Background())
	s.Close()

	assert.Empty(t, src.revokes)
}

func TestCloseUnsubscribes(t *testing.T) {
	src := newStubSource(alice)
	s := New(src, Options{})
	s.Start()
	s.Close()

	assert.True(t, src.unsubscribed)

	src.emit(nil)
	assert.Equal(t, alice, s.CurrentPrincipal())
}

func TestWaitHonoursContext(t *testing.T) {
	src := newStubSource(nil)
	src.deferInitial = true
	s := New(src, Options{})
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}

func TestInitReturnsSingleton(t *testing.T) {
	first := Init(newStubSource(alice), Options{})
	second := Init(newStubSource(nil), Options{})

	assert.Same(t, first, second)
	assert.Same(t, first, Get())
	assert.Equal(t, alice, Get().CurrentPrincipal())
}
