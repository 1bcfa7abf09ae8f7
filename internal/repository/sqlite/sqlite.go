// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHAT IS STORED HERE?
// The social engine itself runs entirely in memory (see internal/engine).
// This package is only the place the session writes its records to, so a
// restart can rebuild the exact same state: same IDs, same timestamps, same
// participant order.
//
// DRIVER:
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary
// builds without CGo and cross-compiles like any other Go program.
//
// TIMESTAMPS:
// Times are stored as INTEGER unix nanoseconds in UTC. Storing the number
// instead of a formatted string means a time.Time comes back exactly as it
// went in, which the engine relies on for ordering threads and events.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DB wraps a sql.DB connection pool and provides repository methods.
//
// It implements both repository.StateRepository (social records) and
// repository.AccountRepository (login records).
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and applies pending migrations.
//
// dbPath examples:
//   - "data/common-ground.db" → file-based database (persistent)
//   - ":memory:"              → in-memory database (great for tests, lost on close)
//
// IN-MEMORY AND THE CONNECTION POOL:
// Every new connection to ":memory:" gets its OWN empty database. database/sql
// may open several connections, so the pool is capped at one; otherwise a
// query could land on a connection that never saw the migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. event_participants relies on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := applyMigrations(conn, migrationFS, "migrations"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
