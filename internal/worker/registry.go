package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Registry tracks the running worker per project and lazily starts one when
// work arrives for a project with no live loop.
type Registry struct {
	mu      sync.Mutex
	workers map[string]*Worker
	deps    func(projectKey string) (Deps, bool)
}

// NewRegistry creates a registry. depsFor resolves per-project dependencies;
// it returns false for unregistered projects.
func NewRegistry(depsFor func(projectKey string) (Deps, bool)) *Registry {
	return &Registry{
		workers: make(map[string]*Worker),
		deps:    depsFor,
	}
}

// Ensure guarantees a live worker for the project, starting one if the slot
// is empty or its previous occupant has exited. Returns false when the
// project is not registered.
func (r *Registry) Ensure(ctx context.Context, projectKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.workers[projectKey]; ok && w.Alive() {
		return true
	}
	deps, ok := r.deps(projectKey)
	if !ok {
		slog.Warn("no configuration for project, worker not started", "project", projectKey)
		return false
	}

	w := New(projectKey, deps)
	w.onExit = func() {
		r.mu.Lock()
		if r.workers[projectKey] == w {
			delete(r.workers, projectKey)
		}
		r.mu.Unlock()
	}
	r.workers[projectKey] = w
	w.Start(ctx)
	slog.Info("worker started", "project", projectKey)
	return true
}

// Alive reports whether the project currently has a live worker.
func (r *Registry) Alive(projectKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[projectKey]
	return ok && w.Alive()
}

// Len returns the number of tracked workers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

// Wait blocks until every tracked worker has exited or the context is done.
func (r *Registry) Wait(ctx context.Context) {
	for {
		r.mu.Lock()
		var w *Worker
		for _, cand := range r.workers {
			w = cand
			break
		}
		r.mu.Unlock()
		if w == nil {
			return
		}
		select {
		case <-w.Done():
		case <-ctx.Done():
			return
		}
	}
}
