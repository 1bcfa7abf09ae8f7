package session

import (
	"context"
	"log/slog"

	"github.com/sakif/common-ground/internal/engine"
	"github.com/sakif/common-ground/internal/model"
	"github.com/sakif/common-ground/internal/repository"
)

// Matches returns the users the viewer could play with.
func (s *Session) Matches(userID string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	viewer, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	return engine.FindMatches(viewer, s.state.Users), nil
}

// RequestConnection sends a connection request from fromID to toID.
// Both users must have a profile.
func (s *Session) RequestConnection(ctx context.Context, fromID, toID string) (model.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.user(fromID); err != nil {
		return model.Connection{}, err
	}
	if fromID != toID {
		if _, err := s.user(toID); err != nil {
			return model.Connection{}, err
		}
	}

	conns, conn, err := engine.RequestConnection(s.state.Connections, fromID, toID, s.newID(), s.now())
	if err != nil {
		s.logger.Debug("connection request refused",
			slog.String("from", fromID),
			slog.String("to", toID),
			slog.String("reason", err.Error()),
		)
		return model.Connection{}, err
	}

	next := s.state
	next.Connections = conns
	if err := s.commit(next, "connection", func(store repository.StateRepository) error {
		return store.SaveConnection(ctx, conn)
	}); err != nil {
		return model.Connection{}, err
	}

	s.logger.Info("connection requested",
		slog.String("id", conn.ID),
		slog.String("from", fromID),
		slog.String("to", toID),
	)
	return conn, nil
}

// Respond accepts or rejects a pending request addressed to actorID.
func (s *Session) Respond(ctx context.Context, connectionID, actorID string, decision model.Decision) (model.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, conn, err := engine.Respond(s.state.Connections, connectionID, decision, actorID)
	if err != nil {
		s.logger.Debug("connection response refused",
			slog.String("id", connectionID),
			slog.String("actor", actorID),
			slog.String("reason", err.Error()),
		)
		return model.Connection{}, err
	}

	next := s.state
	next.Connections = conns
	if err := s.commit(next, "connection", func(store repository.StateRepository) error {
		return store.SaveConnection(ctx, conn)
	}); err != nil {
		return model.Connection{}, err
	}

	s.logger.Info("connection resolved",
		slog.String("id", conn.ID),
		slog.String("status", string(conn.Status)),
	)
	return conn, nil
}

// Connections returns the user's accepted, incoming and outgoing connections.
func (s *Session) Connections(userID string) engine.ConnectionLists {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return engine.ListFor(s.state.Connections, userID)
}

// Notifications is the badge count shown next to the user's name: unread
// messages plus connection requests waiting for an answer.
type Notifications struct {
	UnreadMessages  int `json:"unreadMessages"`
	PendingRequests int `json:"pendingRequests"`
	Total           int `json:"total"`
}

func (s *Session) Notifications(userID string) Notifications {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := Notifications{
		UnreadMessages:  engine.UnreadCount(s.state.Messages, userID),
		PendingRequests: len(engine.ListFor(s.state.Connections, userID).IncomingPending),
	}
	n.Total = n.UnreadMessages + n.PendingRequests
	return n
}
