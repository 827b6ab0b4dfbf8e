// Package steering carries out-of-band supervisor messages into a running
// agent session. Messages are strict FIFO per session and persist until
// drained.
package steering

import (
	"strings"
	"time"
)

// Message is a single steering entry.
type Message struct {
	Text      string
	Sender    string
	Timestamp float64
	IsAbort   bool
}

// abortKeywords terminate the session when received as a whole message.
var abortKeywords = map[string]bool{
	"stop":      true,
	"cancel":    true,
	"abort":     true,
	"nevermind": true,
}

// IsAbortText reports whether text, trimmed and lowercased, matches an abort
// keyword.
func IsAbortText(text string) bool {
	return abortKeywords[strings.ToLower(strings.TrimSpace(text))]
}

// Backend is the persistence surface the queue runs on.
type Backend interface {
	AppendSteering(sessionID string, m Message) error
	PopSteering(sessionID string, limit int) ([]Message, error)
	ClearSteering(sessionID string) (int, error)
	HasSteering(sessionID string) (bool, error)
}

// Queue provides per-session FIFO steering semantics over a Backend.
type Queue struct {
	backend Backend
}

// NewQueue creates a steering queue.
func NewQueue(backend Backend) *Queue {
	return &Queue{backend: backend}
}

// Push appends a message to the tail of the session queue. When isAbort is
// false the abort flag is inferred from the text.
func (q *Queue) Push(sessionID, text, sender string, isAbort bool) error {
	if !isAbort && IsAbortText(text) {
		isAbort = true
	}
	return q.backend.AppendSteering(sessionID, Message{
		Text:      text,
		Sender:    sender,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		IsAbort:   isAbort,
	})
}

// PopOne removes and returns the head message, or nil when the queue is
// empty.
func (q *Queue) PopOne(sessionID string) (*Message, error) {
	msgs, err := q.backend.PopSteering(sessionID, 1)
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return &msgs[0], nil
}

// PopAll drains the session queue in FIFO order.
func (q *Queue) PopAll(sessionID string) ([]Message, error) {
	return q.backend.PopSteering(sessionID, 0)
}

// Clear discards all messages for a session and returns how many were
// dropped.
func (q *Queue) Clear(sessionID string) (int, error) {
	return q.backend.ClearSteering(sessionID)
}

// HasMessages reports whether the session has pending steering messages.
func (q *Queue) HasMessages(sessionID string) (bool, error) {
	return q.backend.HasSteering(sessionID)
}
