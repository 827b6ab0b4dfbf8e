// Package job defines the queued unit of work and its lifecycle vocabulary.
package job

import "time"

// Status is the lifecycle state of a job. Only Pending and Running are ever
// persisted; completed jobs are deleted from the store.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Priority orders jobs within a project queue. High sorts before Low; within
// the same priority the newest job is popped first so fresh user context
// preempts stale backlog.
type Priority string

const (
	PriorityHigh Priority = "high"
	PriorityLow  Priority = "low"
)

// Rank returns the sort rank for a priority. Lower pops first.
func (p Priority) Rank() int {
	if p == PriorityHigh {
		return 0
	}
	return 1
}

// Job is a single unit of scheduled work tied to one user message or one
// system-generated continuation.
type Job struct {
	// ID is assigned by the store and is never reused within a process
	// lifetime. Every status transition mints a fresh ID.
	ID string

	ProjectKey string
	Status     Status
	Priority   Priority

	// CreatedAt and StartedAt are unix seconds. StartedAt is nil until the
	// job transitions pending -> running.
	CreatedAt float64
	StartedAt *float64

	// SessionID identifies the long-lived conversation. It maps to a git
	// branch name and a steering queue key.
	SessionID  string
	WorkingDir string

	MessageText string
	SenderName  string

	// Delivery routing keys for the bridge.
	ChatID    int64
	MessageID int64
	ChatTitle string

	// RevivalContext marks the job as a continuation of an unfinished
	// branch found after restart.
	RevivalContext string

	AutoContinueCount int

	// Extra carries enrichment fields (media descriptors, URL lists,
	// workflow identifiers). Opaque to the orchestrator, stored as JSON.
	Extra map[string]any
}

// Fields holds every non-auto attribute of a Job. The store reconstructs
// jobs from Fields on every status transition, so this MUST cover everything
// except ID: a field dropped here is a field silently lost on recovery.
type Fields struct {
	ProjectKey        string
	Status            Status
	Priority          Priority
	CreatedAt         float64
	StartedAt         *float64
	SessionID         string
	WorkingDir        string
	MessageText       string
	SenderName        string
	ChatID            int64
	MessageID         int64
	ChatTitle         string
	RevivalContext    string
	AutoContinueCount int
	Extra             map[string]any
}

// Extract returns all non-auto fields of j for reconstruction.
func Extract(j *Job) Fields {
	return Fields{
		ProjectKey:        j.ProjectKey,
		Status:            j.Status,
		Priority:          j.Priority,
		CreatedAt:         j.CreatedAt,
		StartedAt:         j.StartedAt,
		SessionID:         j.SessionID,
		WorkingDir:        j.WorkingDir,
		MessageText:       j.MessageText,
		SenderName:        j.SenderName,
		ChatID:            j.ChatID,
		MessageID:         j.MessageID,
		ChatTitle:         j.ChatTitle,
		RevivalContext:    j.RevivalContext,
		AutoContinueCount: j.AutoContinueCount,
		Extra:             j.Extra,
	}
}

// Build creates a Job with the given ID from extracted fields.
func (f Fields) Build(id string) *Job {
	return &Job{
		ID:                id,
		ProjectKey:        f.ProjectKey,
		Status:            f.Status,
		Priority:          f.Priority,
		CreatedAt:         f.CreatedAt,
		StartedAt:         f.StartedAt,
		SessionID:         f.SessionID,
		WorkingDir:        f.WorkingDir,
		MessageText:       f.MessageText,
		SenderName:        f.SenderName,
		ChatID:            f.ChatID,
		MessageID:         f.MessageID,
		ChatTitle:         f.ChatTitle,
		RevivalContext:    f.RevivalContext,
		AutoContinueCount: f.AutoContinueCount,
		Extra:             f.Extra,
	}
}

// Age returns how long the job has been running, and false when StartedAt is
// not set (legacy records).
func (j *Job) Age(now time.Time) (time.Duration, bool) {
	if j.StartedAt == nil {
		return 0, false
	}
	secs := float64(now.UnixNano())/1e9 - *j.StartedAt
	return time.Duration(secs * float64(time.Second)), true
}

// Now returns the current time as unix seconds.
func Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
