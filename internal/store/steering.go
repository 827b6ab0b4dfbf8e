package store

import (
	"fmt"

	"github.com/stewardhq/steward/internal/steering"
)

// AppendSteering adds a message to the tail of a session's steering queue.
func (db *DB) AppendSteering(sessionID string, m steering.Message) error {
	_, err := db.conn.Exec(`
		INSERT INTO steering_messages (session_id, text, sender, timestamp, is_abort)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, m.Text, m.Sender, m.Timestamp, m.IsAbort,
	)
	if err != nil {
		return fmt.Errorf("failed to append steering message: %w", err)
	}
	return nil
}

// PopSteering removes and returns up to limit messages from the head of a
// session's queue in FIFO order. limit <= 0 drains the whole queue.
func (db *DB) PopSteering(sessionID string, limit int) ([]steering.Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin steering pop: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT seq, text, sender, timestamp, is_abort
		FROM steering_messages WHERE session_id = ? ORDER BY seq`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select steering messages: %w", err)
	}

	var msgs []steering.Message
	var seqs []int64
	for rows.Next() {
		var seq int64
		var m steering.Message
		if err := rows.Scan(&seq, &m.Text, &m.Sender, &m.Timestamp, &m.IsAbort); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan steering message: %w", err)
		}
		msgs = append(msgs, m)
		seqs = append(seqs, seq)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, seq := range seqs {
		if _, err := tx.Exec(`DELETE FROM steering_messages WHERE seq = ?`, seq); err != nil {
			return nil, fmt.Errorf("failed to delete steering message: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit steering pop: %w", err)
	}
	return msgs, nil
}

// ClearSteering removes all messages for a session and returns the count.
func (db *DB) ClearSteering(sessionID string) (int, error) {
	res, err := db.conn.Exec(`DELETE FROM steering_messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear steering queue: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// HasSteering reports whether a session has pending steering messages.
func (db *DB) HasSteering(sessionID string) (bool, error) {
	var n int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM steering_messages WHERE session_id = ?`,
		sessionID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to count steering messages: %w", err)
	}
	return n > 0, nil
}
