// Package orchestrator wires the job store, per-project workers, steering,
// agent sessions, the output pipeline, health monitoring, and revival into
// one process-wide coordinator.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stewardhq/steward/internal/agent"
	"github.com/stewardhq/steward/internal/bridge"
	"github.com/stewardhq/steward/internal/config"
	"github.com/stewardhq/steward/internal/gitops"
	"github.com/stewardhq/steward/internal/health"
	"github.com/stewardhq/steward/internal/job"
	"github.com/stewardhq/steward/internal/llm"
	"github.com/stewardhq/steward/internal/pipeline"
	"github.com/stewardhq/steward/internal/revival"
	"github.com/stewardhq/steward/internal/steering"
	"github.com/stewardhq/steward/internal/store"
	"github.com/stewardhq/steward/internal/worker"
)

// Orchestrator owns all shared state: the store, the worker and agent
// registries, the steering queue, and the per-project bridge registrations.
// Constructed once at startup.
type Orchestrator struct {
	cfg *config.Config

	store    *store.DB
	steering *steering.Queue
	agents   *agent.Registry
	hook     *agent.HealthHook
	llm      llm.Caller
	git      *gitops.Coordinator
	workers  *worker.Registry
	monitor  *health.Monitor
	revival  *revival.Detector

	mu       sync.Mutex
	bridges  map[string]bridge.Callbacks
	projects map[string]bridge.ProjectConfig
}

// New builds a fully wired orchestrator from configuration. The store is
// opened here; call Close when done.
func New(ctx context.Context, cfg *config.Config) (*Orchestrator, error) {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	llmTimeout, err := cfg.LLMTimeoutDuration()
	if err != nil {
		db.Close()
		return nil, err
	}
	caller := llm.New(ctx, llm.Config{
		Provider:         cfg.LLM.Provider,
		Model:            cfg.LLM.Model,
		FallbackProvider: cfg.LLM.FallbackProvider,
		FallbackModel:    cfg.LLM.FallbackModel,
		Timeout:          llmTimeout,
	})

	queue := steering.NewQueue(db)
	agents := agent.NewRegistry()
	git := gitops.NewCoordinator()

	o := &Orchestrator{
		cfg:      cfg,
		store:    db,
		steering: queue,
		agents:   agents,
		hook:     agent.NewHealthHook(queue, agents, caller),
		llm:      caller,
		git:      git,
		revival:  revival.NewDetector(git),
		bridges:  make(map[string]bridge.Callbacks),
		projects: make(map[string]bridge.ProjectConfig),
	}
	o.workers = worker.NewRegistry(o.workerDeps)
	o.monitor = health.New(db, o.workers)
	if interval, err := cfg.IntervalDuration(); err == nil {
		o.monitor.Interval = interval
	}
	if d, err := time.ParseDuration(cfg.Health.TimeoutDefault); err == nil {
		o.monitor.TimeoutDefault = d
	}
	if d, err := time.ParseDuration(cfg.Health.TimeoutBuild); err == nil {
		o.monitor.TimeoutBuild = d
	}

	for key, p := range cfg.Projects {
		o.projects[key] = bridge.ProjectConfig{
			WorkingDirectory: p.WorkingDir,
			AutoMerge:        p.AutoMerge,
			SystemPromptFile: p.SystemPromptFile,
		}
	}
	return o, nil
}

// RegisterProject installs the bridge callbacks and configuration for a
// project. Must be called before Enqueue for that project.
func (o *Orchestrator) RegisterProject(projectKey string, cfg bridge.ProjectConfig, cb bridge.Callbacks) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.projects[projectKey] = cfg
	o.bridges[projectKey] = cb
}

// workerDeps resolves the dependency bundle for one project's worker.
func (o *Orchestrator) workerDeps(projectKey string) (worker.Deps, bool) {
	o.mu.Lock()
	pcfg, ok := o.projects[projectKey]
	cb := o.bridges[projectKey]
	o.mu.Unlock()
	if !ok {
		return worker.Deps{}, false
	}
	return worker.Deps{
		Store:      o.store,
		Steering:   o.steering,
		Git:        o.git,
		Agent:      &invoker{o: o},
		Classifier: &pipeline.Classifier{LLM: o.llm},
		Summarizer: &pipeline.Summarizer{LLM: o.llm},
		Bridge:     cb,
		Config:     pcfg,
	}, true
}

// EnqueueParams carries one enqueue call. Priority defaults to high.
type EnqueueParams struct {
	ProjectKey  string
	SessionID   string
	WorkingDir  string
	MessageText string
	SenderName  string
	ChatID      int64
	MessageID   int64
	ChatTitle   string

	Priority       job.Priority
	RevivalContext string
	Extra          map[string]any
}

// Enqueue persists a job and guarantees a live worker for its project.
// Returns the queue depth after insertion.
func (o *Orchestrator) Enqueue(ctx context.Context, p EnqueueParams) (int, error) {
	priority := p.Priority
	if priority == "" {
		priority = job.PriorityHigh
	}
	id, err := o.store.CreateJob(job.Fields{
		ProjectKey:     p.ProjectKey,
		Status:         job.StatusPending,
		Priority:       priority,
		SessionID:      p.SessionID,
		WorkingDir:     p.WorkingDir,
		MessageText:    p.MessageText,
		SenderName:     p.SenderName,
		ChatID:         p.ChatID,
		MessageID:      p.MessageID,
		ChatTitle:      p.ChatTitle,
		RevivalContext: p.RevivalContext,
		Extra:          p.Extra,
	})
	if err != nil {
		return 0, fmt.Errorf("enqueue: %w", err)
	}
	slog.Info("job enqueued",
		"project", p.ProjectKey, "job", id,
		"session", p.SessionID, "priority", priority)

	o.workers.Ensure(ctx, p.ProjectKey)
	return o.store.QueueDepth(p.ProjectKey)
}

// Steer appends a supervisor message to a running session's steering queue.
func (o *Orchestrator) Steer(sessionID, text, sender string) error {
	return o.steering.Push(sessionID, text, sender, false)
}

// Start performs startup recovery, launches the health monitor, and spins
// up workers for any projects with surviving backlog.
func (o *Orchestrator) Start(ctx context.Context) error {
	projects, err := o.store.ListProjects()
	if err != nil {
		return fmt.Errorf("startup project scan: %w", err)
	}
	for _, key := range projects {
		n, err := o.store.ResetRunning(key)
		if err != nil {
			return fmt.Errorf("startup reset %s: %w", key, err)
		}
		if n > 0 {
			slog.Info("reset interrupted jobs", "project", key, "count", n)
		}
		o.workers.Ensure(ctx, key)
	}

	go o.monitor.Run(ctx)
	return nil
}

// CheckRevival scans a project for unfinished session work, respecting the
// notification cooldown.
func (o *Orchestrator) CheckRevival(ctx context.Context, projectKey string, chatID int64) (*revival.Info, error) {
	o.mu.Lock()
	pcfg, ok := o.projects[projectKey]
	o.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown project %q", projectKey)
	}
	return o.revival.Check(ctx, projectKey, pcfg.WorkingDirectory, chatID)
}

// RecordRevivalNotification remembers which work a sent revival prompt
// described so ReviveFromNotification can resolve the user's reply.
func (o *Orchestrator) RecordRevivalNotification(chatID, msgID int64, n revival.Notification) {
	o.revival.RecordNotification(chatID, msgID, n)
}

// ReviveFromNotification enqueues a low-priority continuation for the work a
// revival prompt described. ok is false when the message is unknown.
func (o *Orchestrator) ReviveFromNotification(ctx context.Context, chatID, msgID int64, senderName string) (int, bool, error) {
	n, ok := o.revival.ResolveNotification(chatID, msgID)
	if !ok {
		return 0, false, nil
	}
	depth, err := o.Enqueue(ctx, EnqueueParams{
		ProjectKey:  n.ProjectKey,
		SessionID:   n.SessionID,
		WorkingDir:  n.WorkingDir,
		MessageText: "Resume the unfinished work on branch " + n.Branch + ".",
		SenderName:  senderName,
		ChatID:      chatID,
		MessageID:   msgID,
		Priority:    job.PriorityLow,
		RevivalContext: fmt.Sprintf("Reviving branch %s in %s after restart.",
			n.Branch, n.WorkingDir),
	})
	return depth, true, err
}

// Store exposes the job store for read-only admin surfaces.
func (o *Orchestrator) Store() *store.DB {
	return o.store
}

// Workers exposes worker liveness for admin surfaces.
func (o *Orchestrator) Workers() *worker.Registry {
	return o.workers
}

// Close waits briefly for workers to drain and closes the store.
func (o *Orchestrator) Close(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	o.workers.Wait(waitCtx)
	return o.store.Close()
}
