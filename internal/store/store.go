// Package store persists jobs and steering messages in a single SQLite
// database. All job status transitions go through delete-then-recreate so
// the (project_key, status) index can never hold a stale entry for a live
// record.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection with orchestrator-specific operations.
type DB struct {
	conn *sql.DB
}

// Open creates or opens the database at the given path, enables WAL mode and
// runs migrations. Use ":memory:" for tests.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps the in-memory database coherent and
	// serializes writers, which is what Pop atomicity relies on.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
-- Jobs table: queued and running work. Completed jobs are deleted.
CREATE TABLE IF NOT EXISTS jobs (
    id                  TEXT PRIMARY KEY,
    project_key         TEXT NOT NULL,
    status              TEXT NOT NULL,
    priority            TEXT NOT NULL,
    created_at          REAL NOT NULL,
    started_at          REAL,
    session_id          TEXT NOT NULL,
    working_dir         TEXT NOT NULL,
    message_text        TEXT NOT NULL,
    sender_name         TEXT NOT NULL DEFAULT '',
    chat_id             INTEGER NOT NULL DEFAULT 0,
    message_id          INTEGER NOT NULL DEFAULT 0,
    chat_title          TEXT NOT NULL DEFAULT '',
    revival_context     TEXT NOT NULL DEFAULT '',
    auto_continue_count INTEGER NOT NULL DEFAULT 0,
    extra_json          TEXT
);

-- Steering messages: per-session FIFO, ordered by insertion.
CREATE TABLE IF NOT EXISTS steering_messages (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    text       TEXT NOT NULL,
    sender     TEXT NOT NULL DEFAULT '',
    timestamp  REAL NOT NULL,
    is_abort   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_jobs_project_status ON jobs(project_key, status);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_steering_session ON steering_messages(session_id);
`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}
