package agent

import "sync"

// Registry maps session IDs to live runner handles so the PostToolUse hook
// can reach a session from outside the worker goroutine. Lookup is
// read-mostly.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register records a live session handle.
func (r *Registry) Register(sessionID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = s
}

// Unregister removes a session handle.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Lookup returns the live session for an ID, or nil.
func (r *Registry) Lookup(sessionID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[sessionID]
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
