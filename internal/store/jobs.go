package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/stewardhq/steward/internal/job"
)

const jobColumns = `id, project_key, status, priority, created_at, started_at,
	session_id, working_dir, message_text, sender_name, chat_id, message_id,
	chat_title, revival_context, auto_continue_count, extra_json`

// CreateJob inserts a new pending job and returns its assigned ID.
func (db *DB) CreateJob(f job.Fields) (string, error) {
	if f.ProjectKey == "" {
		return "", fmt.Errorf("create job: empty project key")
	}
	if f.Status == "" {
		f.Status = job.StatusPending
	}
	if f.Priority == "" {
		f.Priority = job.PriorityHigh
	}
	if f.CreatedAt == 0 {
		f.CreatedAt = job.Now()
	}
	id := ulid.Make().String()
	if err := db.insertJob(db.conn, id, f); err != nil {
		return "", err
	}
	return id, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (db *DB) insertJob(ex execer, id string, f job.Fields) error {
	var extra any
	if f.Extra != nil {
		data, err := json.Marshal(f.Extra)
		if err != nil {
			return fmt.Errorf("marshal extra fields: %w", err)
		}
		extra = string(data)
	}

	_, err := ex.Exec(`
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, f.ProjectKey, f.Status, f.Priority, f.CreatedAt, f.StartedAt,
		f.SessionID, f.WorkingDir, f.MessageText, f.SenderName, f.ChatID,
		f.MessageID, f.ChatTitle, f.RevivalContext, f.AutoContinueCount, extra,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*job.Job, error) {
	var j job.Job
	var startedAt sql.NullFloat64
	var extra sql.NullString
	err := row.Scan(
		&j.ID, &j.ProjectKey, &j.Status, &j.Priority, &j.CreatedAt, &startedAt,
		&j.SessionID, &j.WorkingDir, &j.MessageText, &j.SenderName, &j.ChatID,
		&j.MessageID, &j.ChatTitle, &j.RevivalContext, &j.AutoContinueCount,
		&extra,
	)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		j.StartedAt = &startedAt.Float64
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &j.Extra); err != nil {
			return nil, fmt.Errorf("unmarshal extra fields: %w", err)
		}
	}
	return &j, nil
}

// GetJob retrieves a job by ID. Returns nil, nil when not found.
func (db *DB) GetJob(id string) (*job.Job, error) {
	row := db.conn.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// ListJobs returns jobs for a project with the given status in pop order:
// high priority first, then newest created_at first.
func (db *DB) ListJobs(projectKey string, status job.Status) ([]*job.Job, error) {
	rows, err := db.conn.Query(`
		SELECT `+jobColumns+` FROM jobs
		WHERE project_key = ? AND status = ?
		ORDER BY CASE priority WHEN 'high' THEN 0 ELSE 1 END, created_at DESC`,
		projectKey, status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ListProjects returns every project key that currently has persisted jobs.
func (db *DB) ListProjects() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT project_key FROM jobs ORDER BY project_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// QueueDepth returns the number of pending jobs for a project.
func (db *DB) QueueDepth(projectKey string) (int, error) {
	var n int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM jobs WHERE project_key = ? AND status = 'pending'`,
		projectKey,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending jobs: %w", err)
	}
	return n, nil
}

// PopJob atomically selects the highest-priority pending job for a project,
// deletes its pending record and recreates it as running with started_at set
// and a fresh ID. Returns nil, nil when the queue is empty.
func (db *DB) PopJob(projectKey string) (*job.Job, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin pop: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT `+jobColumns+` FROM jobs
		WHERE project_key = ? AND status = 'pending'
		ORDER BY CASE priority WHEN 'high' THEN 0 ELSE 1 END, created_at DESC
		LIMIT 1`,
		projectKey,
	)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select pending job: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM jobs WHERE id = ?`, j.ID); err != nil {
		return nil, fmt.Errorf("failed to delete pending record: %w", err)
	}

	f := job.Extract(j)
	f.Status = job.StatusRunning
	now := job.Now()
	f.StartedAt = &now

	newID := ulid.Make().String()
	if err := db.insertJob(tx, newID, f); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit pop: %w", err)
	}
	return f.Build(newID), nil
}

// DeleteJob removes a job record. Deleting an unknown ID is not an error.
func (db *DB) DeleteJob(id string) error {
	if _, err := db.conn.Exec(`DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// ResetRunning demotes every running job of a project back to pending with
// priority bumped to high and started_at cleared. Each job gets a fresh ID.
// Returns the number of jobs recovered. Used on startup.
func (db *DB) ResetRunning(projectKey string) (int, error) {
	return db.recoverRunning(projectKey)
}

// RecoverInterrupted has the same semantics as ResetRunning and is invoked
// when a worker goroutine exits unexpectedly or the health monitor finds a
// stuck job.
func (db *DB) RecoverInterrupted(projectKey string) (int, error) {
	return db.recoverRunning(projectKey)
}

func (db *DB) recoverRunning(projectKey string) (int, error) {
	running, err := db.ListJobs(projectKey, job.StatusRunning)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, j := range running {
		if err := db.RequeueJob(j); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// RequeueJob transitions a single running job back to pending/high via
// delete-then-recreate.
func (db *DB) RequeueJob(j *job.Job) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin requeue: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM jobs WHERE id = ?`, j.ID)
	if err != nil {
		return fmt.Errorf("failed to delete running record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already recovered by a concurrent sweep.
		return nil
	}

	f := job.Extract(j)
	f.Status = job.StatusPending
	f.Priority = job.PriorityHigh
	f.StartedAt = nil

	if err := db.insertJob(tx, ulid.Make().String(), f); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit requeue: %w", err)
	}
	return nil
}
