package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/common-ground/internal/apperror"
	"github.com/sakif/common-ground/internal/engine"
	"github.com/sakif/common-ground/internal/model"
	"github.com/sakif/common-ground/internal/repository"
)

// compile-time check that *DB implements repository.StateRepository
var _ repository.StateRepository = (*DB)(nil)

// LoadSnapshot reads all four collections back.
//
// ORDER BY rowid:
// An upsert (INSERT ... ON CONFLICT DO UPDATE) keeps the original rowid, so
// rowid order is the order records were FIRST saved. That is the order the
// session appended them in, which is what the engine's stable orderings
// (match order, tie-breaks between messages) depend on.
func (db *DB) LoadSnapshot(ctx context.Context) (*repository.Snapshot, error) {
	snap := &repository.Snapshot{}
	var err error

	if snap.Users, err = db.loadUsers(ctx); err != nil {
		return nil, err
	}
	if snap.Connections, err = db.loadConnections(ctx); err != nil {
		return nil, err
	}
	if snap.Messages, err = db.loadMessages(ctx); err != nil {
		return nil, err
	}
	if snap.Events, err = db.loadEvents(ctx); err != nil {
		return nil, err
	}

	return snap, nil
}

// === USERS ===

func (db *DB) SaveUser(ctx context.Context, u model.User) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, avatar, city, latitude, longitude, sports, level, role, bio, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			avatar = excluded.avatar,
			city = excluded.city,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			sports = excluded.sports,
			level = excluded.level,
			role = excluded.role,
			bio = excluded.bio`,
		u.ID, u.Name, u.Email, u.Avatar,
		u.Location.City, u.Location.Latitude, u.Location.Longitude,
		joinSports(u.Sports), string(u.Level), string(u.Role), u.Bio,
		toNanos(u.Joined),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving user %s: %w", u.ID, err)
	}
	return nil
}

func (db *DB) loadUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, email, avatar, city, latitude, longitude, sports, level, role, bio, joined_at
		 FROM users ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var (
			u             model.User
			sports        string
			level, role   string
			joinedAtNanos int64
		)
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Avatar,
			&u.Location.City, &u.Location.Latitude, &u.Location.Longitude,
			&sports, &level, &role, &u.Bio, &joinedAtNanos,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user: %w", err)
		}
		u.Sports = splitSports(sports)
		u.Level = model.ExperienceLevel(level)
		u.Role = model.Role(role)
		u.Joined = fromNanos(joinedAtNanos)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

func joinSports(sports []model.Sport) string {
	parts := make([]string, len(sports))
	for i, s := range sports {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func splitSports(s string) []model.Sport {
	if s == "" {
		return []model.Sport{}
	}
	parts := strings.Split(s, ",")
	sports := make([]model.Sport, len(parts))
	for i, p := range parts {
		sports[i] = model.Sport(p)
	}
	return sports
}

// === CONNECTIONS ===

// SaveConnection upserts a connection. Only the status can change after the
// first save. pair_key carries a UNIQUE index, so the database refuses a
// second record for the same two users just as the engine does.
func (db *DB) SaveConnection(ctx context.Context, c model.Connection) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO connections (id, from_user_id, to_user_id, pair_key, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		c.ID, c.FromUserID, c.ToUserID,
		engine.PairKey(c.FromUserID, c.ToUserID),
		string(c.Status), toNanos(c.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.DuplicateConnection(c.FromUserID, c.ToUserID)
		}
		return fmt.Errorf("sqlite: saving connection %s: %w", c.ID, err)
	}
	return nil
}

func (db *DB) loadConnections(ctx context.Context) ([]model.Connection, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, from_user_id, to_user_id, status, created_at
		 FROM connections ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading connections: %w", err)
	}
	defer rows.Close()

	conns := []model.Connection{}
	for rows.Next() {
		var (
			c       model.Connection
			status  string
			created int64
		)
		if err := rows.Scan(&c.ID, &c.FromUserID, &c.ToUserID, &status, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scanning connection: %w", err)
		}
		c.Status = model.ConnectionStatus(status)
		c.CreatedAt = fromNanos(created)
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating connections: %w", err)
	}
	return conns, nil
}

// === MESSAGES ===

// SaveMessages upserts a batch of messages in one transaction. Sending
// saves one message; marking a conversation read saves every message whose
// read flag flipped.
func (db *DB) SaveMessages(ctx context.Context, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning message batch: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (id, from_user_id, to_user_id, content, sent_at, is_read)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET is_read = excluded.is_read`)
	if err != nil {
		return fmt.Errorf("sqlite: preparing message upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range messages {
		if _, err := stmt.ExecContext(ctx,
			m.ID, m.FromUserID, m.ToUserID, m.Content, toNanos(m.Timestamp), boolToInt(m.Read),
		); err != nil {
			return fmt.Errorf("sqlite: saving message %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing message batch: %w", err)
	}
	return nil
}

func (db *DB) loadMessages(ctx context.Context) ([]model.Message, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, from_user_id, to_user_id, content, sent_at, is_read
		 FROM messages ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading messages: %w", err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var (
			m    model.Message
			sent int64
			read int
		)
		if err := rows.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Content, &sent, &read); err != nil {
			return nil, fmt.Errorf("sqlite: scanning message: %w", err)
		}
		m.Timestamp = fromNanos(sent)
		m.Read = read != 0
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating messages: %w", err)
	}
	return messages, nil
}

// === EVENTS ===

// SaveEvent upserts the event row and rewrites its participant list in the
// same transaction, keeping join order in the position column.
func (db *DB) SaveEvent(ctx context.Context, e model.Event) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning event save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, title, sport, description, creator_id, location_name, latitude, longitude, scheduled_at, capacity, min_level)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			sport = excluded.sport,
			description = excluded.description,
			location_name = excluded.location_name,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			scheduled_at = excluded.scheduled_at,
			capacity = excluded.capacity,
			min_level = excluded.min_level`,
		e.ID, e.Title, string(e.Sport), e.Description, e.CreatorID,
		e.Location.Name, e.Location.Latitude, e.Location.Longitude,
		toNanos(e.ScheduledAt), e.Capacity, string(e.MinLevel),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving event %s: %w", e.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_participants WHERE event_id = ?`, e.ID); err != nil {
		return fmt.Errorf("sqlite: clearing participants of %s: %w", e.ID, err)
	}
	for pos, userID := range e.Participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_participants (event_id, user_id, position) VALUES (?, ?, ?)`,
			e.ID, userID, pos,
		); err != nil {
			return fmt.Errorf("sqlite: saving participant %s of %s: %w", userID, e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing event %s: %w", e.ID, err)
	}
	return nil
}

func (db *DB) loadEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, sport, description, creator_id, location_name, latitude, longitude, scheduled_at, capacity, min_level
		 FROM events ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading events: %w", err)
	}

	events := []model.Event{}
	index := map[string]int{}
	for rows.Next() {
		var (
			e              model.Event
			sport, level   string
			scheduledNanos int64
		)
		if err := rows.Scan(
			&e.ID, &e.Title, &sport, &e.Description, &e.CreatorID,
			&e.Location.Name, &e.Location.Latitude, &e.Location.Longitude,
			&scheduledNanos, &e.Capacity, &level,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning event: %w", err)
		}
		e.Sport = model.Sport(sport)
		e.MinLevel = model.ExperienceLevel(level)
		e.ScheduledAt = fromNanos(scheduledNanos)
		e.Participants = []string{}
		index[e.ID] = len(events)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating events: %w", err)
	}
	// The pool holds a single connection, so this result set must be closed
	// before the participants query can run.
	rows.Close()

	prows, err := db.conn.QueryContext(ctx,
		`SELECT event_id, user_id FROM event_participants ORDER BY event_id, position`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading participants: %w", err)
	}
	defer prows.Close()

	for prows.Next() {
		var eventID, userID string
		if err := prows.Scan(&eventID, &userID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning participant: %w", err)
		}
		if i, ok := index[eventID]; ok {
			events[i].Participants = append(events[i].Participants, userID)
		}
	}
	if err := prows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating participants: %w", err)
	}
	return events, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
