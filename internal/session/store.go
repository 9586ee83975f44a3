// AngelaMos | 2026
// store.go

// Package session holds the process-wide record of who is signed in. Only
// the token source subscription and SignOut write to it; every other
// component reads snapshots through CurrentPrincipal.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/carterperez-dev/templates/forum/internal/forum"
)

// Source is the external identity provider as the store sees it.
type Source interface {
	// Subscribe delivers the current principal immediately and every change
	// after that. A nil principal means signed out.
	Subscribe(fn func(*forum.Principal)) (unsubscribe func())
	Revoke(ctx context.Context) error
}

type Options struct {
	Logger        *slog.Logger
	RevokeTimeout time.Duration
}

type Store struct {
	source Source
	logger *slog.Logger

	revokeTimeout time.Duration

	mu          sync.RWMutex
	principal   *forum.Principal
	resolving   bool
	suppressed  string
	started     bool
	unsubscribe func()

	ready     chan struct{}
	readyOnce sync.Once
	revokes   sync.WaitGroup
}

func New(source Source, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RevokeTimeout <= 0 {
		opts.RevokeTimeout = 5 * time.Second
	}

	return &Store{
		source:        source,
		logger:        opts.Logger,
		revokeTimeout: opts.RevokeTimeout,
		resolving:     true,
		ready:         make(chan struct{}),
	}
}

// Start subscribes to the source. Calling it on a started store is a no-op.
func (s *Store) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	unsubscribe := s.source.Subscribe(s.handle)

	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()
}

// Close unsubscribes and waits for pending revocations.
func (s *Store) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	s.revokes.Wait()
}

func (s *Store) handle(p *forum.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case p == nil:
		s.principal = nil
		s.suppressed = ""
	case p.ID == s.suppressed:
		// late event for the principal that just signed out
	default:
		s.principal = p
		s.suppressed = ""
	}

	s.resolving = false
	s.readyOnce.Do(func() { close(s.ready) })
}

// CurrentPrincipal returns the signed-in principal, or nil.
func (s *Store) CurrentPrincipal() *forum.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

func (s *Store) IsResolving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolving
}

// Ready is closed once the first auth state has been delivered.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until the store has resolved or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SignOut clears the principal before returning. Revoking the token with
// the source happens in the background.
func (s *Store) SignOut(ctx context.Context) {
	s.mu.Lock()
	prev := s.principal
	s.principal = nil
	if prev != nil {
		s.suppressed = prev.ID
	}
	s.resolving = false
	s.readyOnce.Do(func() { close(s.ready) })
	s.mu.Unlock()

	if prev == nil {
		return
	}

	s.revokes.Add(1)
	go func() {
		defer s.revokes.Done()

		revokeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.revokeTimeout)
		defer cancel()

		if err := s.source.Revoke(revokeCtx); err != nil {
			s.logger.Warn("token revocation failed",
				"principal_id", prev.ID,
				"error", err,
			)
		}
	}()
}

var (
	defaultStore *Store
	initOnce     sync.Once
)

// Init builds and starts the process-wide store. Later calls return the
// first store and ignore their arguments.
func Init(source Source, opts Options) *Store {
	initOnce.Do(func() {
		defaultStore = New(source, opts)
		defaultStore.Start()
	})
	return defaultStore
}

func Get() *Store {
	if defaultStore == nil {
		panic("session not initialized: call Init() first")
	}
	return defaultStore
}
