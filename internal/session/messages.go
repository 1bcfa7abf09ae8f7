package session

import (
	"context"
	"log/slog"

	"github.com/sakif/common-ground/internal/apperror"
	"github.com/sakif/common-ground/internal/engine"
	"github.com/sakif/common-ground/internal/model"
	"github.com/sakif/common-ground/internal/repository"
)

// Threads returns the user's inbox, newest conversation first.
func (s *Session) Threads(userID string) []model.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return engine.ThreadsFor(userID, s.state.Messages, s.state.Users)
}

// Conversation returns the messages between two users, oldest first.
func (s *Session) Conversation(userID, counterpartID string) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return engine.Conversation(userID, counterpartID, s.state.Messages)
}

// SendMessage appends a message from fromID to toID.
//
// Messaging does not need an accepted connection. Blank content returns
// (nil, nil) and nothing is stored.
func (s *Session) SendMessage(ctx context.Context, fromID, toID, content string) (*model.Message, error) {
	if fromID == toID {
		return nil, apperror.ValidationFailed("toUserId", "cannot send a message to yourself")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.user(fromID); err != nil {
		return nil, err
	}
	if _, err := s.user(toID); err != nil {
		return nil, err
	}

	messages, msg := engine.Send(s.state.Messages, fromID, toID, content, s.newID(), s.now())
	if msg == nil {
		return nil, nil
	}

	next := s.state
	next.Messages = messages
	if err := s.commit(next, "message", func(store repository.StateRepository) error {
		return store.SaveMessages(ctx, []model.Message{*msg})
	}); err != nil {
		return nil, err
	}

	s.logger.Info("message sent",
		slog.String("id", msg.ID),
		slog.String("from", fromID),
		slog.String("to", toID),
	)
	return msg, nil
}

// MarkRead marks the listed messages read for readerID and returns how many
// changed. IDs that are not addressed to the reader are ignored.
func (s *Session) MarkRead(ctx context.Context, readerID string, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markRead(ctx, readerID, ids)
}

// MarkConversationRead marks everything counterpartID sent to readerID as read.
func (s *Session) MarkConversationRead(ctx context.Context, readerID, counterpartID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markRead(ctx, readerID, engine.UnreadIDs(s.state.Messages, readerID, counterpartID))
}

// markRead must be called with s.mu held.
func (s *Session) markRead(ctx context.Context, readerID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	messages, changed := engine.MarkRead(s.state.Messages, ids, readerID)
	if changed == 0 {
		return 0, nil
	}

	// Only write the messages whose flag actually flipped.
	flipped := make([]model.Message, 0, changed)
	for i, m := range messages {
		if m.Read && !s.state.Messages[i].Read {
			flipped = append(flipped, m)
		}
	}

	next := s.state
	next.Messages = messages
	if err := s.commit(next, "read receipts", func(store repository.StateRepository) error {
		return store.SaveMessages(ctx, flipped)
	}); err != nil {
		return 0, err
	}

	s.logger.Debug("messages marked read",
		slog.String("reader", readerID),
		slog.Int("count", changed),
	)
	return changed, nil
}
