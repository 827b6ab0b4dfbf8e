// Package worker runs the per-project serial execution loop: pop a job,
// drive the session branch, the agent, and the output pipeline, finalize
// the branch, repeat until the queue drains.
package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/stewardhq/steward/internal/bridge"
	"github.com/stewardhq/steward/internal/gitops"
	"github.com/stewardhq/steward/internal/job"
	"github.com/stewardhq/steward/internal/pipeline"
	"github.com/stewardhq/steward/internal/steering"
	"github.com/stewardhq/steward/internal/store"
)

// MaxAutoContinues is the hard upper bound on silent continuation of a
// single user-originated job.
const MaxAutoContinues = 3

// Git is the branch coordination surface the worker drives.
type Git interface {
	State(ctx context.Context, dir string) (gitops.BranchState, error)
	CheckoutSessionBranch(ctx context.Context, dir, branch string) bool
	FinishBranch(ctx context.Context, dir, branch string, autoMerge bool, projectKey string) bool
}

// RunResult is the terminal state of one agent run. Stopped is set when the
// run was halted from outside (steering abort or watchdog); Output then
// carries whatever partial text the agent produced before the stop.
type RunResult struct {
	Output     string
	IsError    bool
	Stopped    bool
	StopReason string
}

// Agent invokes one agent run for a job and returns its terminal state.
type Agent interface {
	Run(ctx context.Context, j *job.Job, cfg bridge.ProjectConfig) (RunResult, error)
}

// Classifier labels terminal agent output.
type Classifier interface {
	Classify(ctx context.Context, text string) pipeline.ClassificationResult
}

// Summarizer condenses output for delivery.
type Summarizer interface {
	Summarize(ctx context.Context, raw string) pipeline.Summary
}

// Deps bundles worker dependencies for injection.
type Deps struct {
	Store      *store.DB
	Steering   *steering.Queue
	Git        Git
	Agent      Agent
	Classifier Classifier
	Summarizer Summarizer
	Bridge     bridge.Callbacks
	Config     bridge.ProjectConfig
}

// Worker executes jobs for a single project, strictly serially.
type Worker struct {
	projectKey string
	deps       Deps

	// PopInterval is the pause between jobs; DrainWait is the grace
	// period before exiting an empty queue. Shortened in tests.
	PopInterval time.Duration
	DrainWait   time.Duration

	alive  atomic.Bool
	done   chan struct{}
	onExit func()
}

// New creates a worker for a project. Call Start to launch its loop.
func New(projectKey string, deps Deps) *Worker {
	return &Worker{
		projectKey:  projectKey,
		deps:        deps,
		PopInterval: time.Second,
		DrainWait:   time.Second,
		done:        make(chan struct{}),
	}
}

// Start launches the worker loop in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.alive.Store(true)
	go w.run(ctx)
}

// Alive reports whether the worker loop is still running.
func (w *Worker) Alive() bool {
	return w.alive.Load()
}

// Done is closed when the worker loop has exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker panicked", "project", w.projectKey, "panic", r)
			// Demote whatever job was running so it is not stranded.
			if n, err := w.deps.Store.RecoverInterrupted(w.projectKey); err != nil {
				slog.Error("recover after panic failed", "project", w.projectKey, "err", err)
			} else if n > 0 {
				slog.Info("recovered interrupted jobs", "project", w.projectKey, "count", n)
			}
		}
		w.alive.Store(false)
		close(w.done)
		if w.onExit != nil {
			w.onExit()
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}
		j, err := w.deps.Store.PopJob(w.projectKey)
		if err != nil {
			// Store failures are invariant violations; do not spin.
			slog.Error("job pop failed", "project", w.projectKey, "err", err)
			return
		}
		if j == nil {
			// Drain guard: one more look after a pause catches jobs
			// enqueued while we were finishing up.
			if !sleepCtx(ctx, w.DrainWait) {
				return
			}
			j, err = w.deps.Store.PopJob(w.projectKey)
			if err != nil {
				slog.Error("job pop failed", "project", w.projectKey, "err", err)
				return
			}
			if j == nil {
				slog.Debug("queue drained, worker exiting", "project", w.projectKey)
				return
			}
		}

		w.execute(ctx, j)

		if err := w.deps.Store.DeleteJob(j.ID); err != nil {
			slog.Error("job delete failed", "project", w.projectKey, "job", j.ID, "err", err)
		}
		if !sleepCtx(ctx, w.PopInterval) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
