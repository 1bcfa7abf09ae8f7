// Package session owns the live social state and is the only place it changes.
//
// HOW A TRANSITION WORKS:
// Every write method follows the same four steps inside ONE critical section:
//
//  1. Lock the session (so no other request can interleave)
//  2. Ask the engine for the next state (pure: nothing has changed yet)
//  3. Write the changed records through to the store, if there is one
//  4. Swap the new state in
//
// If step 2 or 3 fails, the old state is simply kept. Callers never see a
// half-applied change, and a duplicate-check-then-insert (connections) or a
// capacity-check-then-append (event joins) can never race with another one.
//
// WHERE DOES "NOW" COME FROM?
// The engine never reads the clock or makes IDs. The session does, through
// two injectable functions, so tests can pin both (see WithClock, WithIDs).
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/common-ground/internal/apperror"
	"github.com/sakif/common-ground/internal/engine"
	"github.com/sakif/common-ground/internal/model"
	"github.com/sakif/common-ground/internal/repository"
)

// Session holds the canonical users, connections, messages and events.
//
// The zero value is not usable; call New.
type Session struct {
	mu    sync.RWMutex
	state engine.State

	store  repository.StateRepository // nil means memory only
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option customises a Session at construction.
type Option func(*Session)

// WithClock replaces time.Now as the session's source of "now".
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithIDs replaces xid as the session's source of new record IDs.
func WithIDs(newID func() string) Option {
	return func(s *Session) { s.newID = newID }
}

// New creates an empty session. store may be nil, in which case nothing is
// persisted and state lives only as long as the process.
func New(store repository.StateRepository, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return xid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with what the store holds. It is meant
// to run once at start-up, before the session serves any request.
func (s *Session) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	snap, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = engine.State{
		Users:       snap.Users,
		Connections: snap.Connections,
		Messages:    snap.Messages,
		Events:      snap.Events,
	}

	s.logger.Info("social state loaded",
		slog.Int("users", len(snap.Users)),
		slog.Int("connections", len(snap.Connections)),
		slog.Int("messages", len(snap.Messages)),
		slog.Int("events", len(snap.Events)),
	)
	return nil
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() engine.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// commit persists and then installs next. Must be called with s.mu held.
// persist may be nil when there is nothing to write.
func (s *Session) commit(next engine.State, what string, persist func(repository.StateRepository) error) error {
	if s.store != nil && persist != nil {
		if err := persist(s.store); err != nil {
			s.logger.Error("failed to persist "+what, slog.String("error", err.Error()))
			return fmt.Errorf("persisting %s: %w", what, err)
		}
	}
	s.state = next
	return nil
}

// user looks up a profile. Must be called with s.mu held.
func (s *Session) user(id string) (model.User, error) {
	u, ok := engine.FindUser(s.state.Users, id)
	if !ok {
		return model.User{}, apperror.NotFound("user", id)
	}
	return u, nil
}

// User returns the profile with the given ID.
func (s *Session) User(id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user(id)
}
