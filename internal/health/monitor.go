// Package health periodically sweeps running jobs and recovers the two
// failure modes a serial worker model can leave behind: a dead worker loop
// with its job stranded in running, and a live agent run that has exceeded
// its wall-clock budget.
package health

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/stewardhq/steward/internal/job"
	"github.com/stewardhq/steward/internal/store"
)

const (
	// SweepInterval is the monitor cadence.
	SweepInterval = 300 * time.Second

	// MinRunningAge guards against racing a worker that popped a job
	// moments ago: jobs younger than this are never touched.
	MinRunningAge = 300 * time.Second

	// DefaultTimeout bounds an ordinary agent run. BuildTimeout applies to
	// build-workflow jobs, which legitimately run much longer.
	DefaultTimeout = 2700 * time.Second
	BuildTimeout   = 9000 * time.Second

	buildMarker = "/do-build"
)

// Workers is the liveness surface the monitor checks against.
type Workers interface {
	Alive(projectKey string) bool
}

// Monitor owns the sweep loop.
type Monitor struct {
	Store   *store.DB
	Workers Workers

	// Interval overrides SweepInterval; used by tests.
	Interval time.Duration

	// TimeoutDefault and TimeoutBuild override the package defaults.
	TimeoutDefault time.Duration
	TimeoutBuild   time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// New creates a monitor over the store and worker registry.
func New(db *store.DB, workers Workers) *Monitor {
	return &Monitor{
		Store:          db,
		Workers:        workers,
		Interval:       SweepInterval,
		TimeoutDefault: DefaultTimeout,
		TimeoutBuild:   BuildTimeout,
		now:            time.Now,
	}
}

// Run sweeps at the configured interval until the context is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := m.Sweep(); err != nil {
				slog.Error("health sweep failed", "err", err)
			} else if n > 0 {
				slog.Info("health sweep recovered jobs", "count", n)
			}
		}
	}
}

// Sweep examines every running job across all projects and requeues the
// recoverable ones. Returns the number of jobs requeued.
func (m *Monitor) Sweep() (int, error) {
	projects, err := m.Store.ListProjects()
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, project := range projects {
		running, err := m.Store.ListJobs(project, job.StatusRunning)
		if err != nil {
			slog.Error("health sweep list failed", "project", project, "err", err)
			continue
		}
		for _, j := range running {
			if m.examine(project, j) {
				recovered++
			}
		}
	}
	return recovered, nil
}

// examine decides whether one running job is stranded or timed out, and
// requeues it if so.
func (m *Monitor) examine(project string, j *job.Job) bool {
	age, hasStart := j.Age(m.now())
	workerAlive := m.Workers.Alive(project)

	if !hasStart {
		// Legacy record without a start time. Its age is unknowable; only
		// recover it when the worker loop is provably gone.
		if workerAlive {
			return false
		}
		slog.Warn("running job has no start time and no worker, requeueing",
			"project", project, "job", j.ID)
		return m.requeue(j)
	}

	if age < MinRunningAge {
		return false
	}

	if !workerAlive {
		slog.Warn("worker dead with job still running, requeueing",
			"project", project, "job", j.ID, "age", age.Round(time.Second))
		return m.requeue(j)
	}

	limit := timeoutFor(j.MessageText, m.TimeoutDefault, m.TimeoutBuild)
	if age > limit {
		slog.Warn("running job exceeded timeout, requeueing",
			"project", project, "job", j.ID,
			"age", age.Round(time.Second), "limit", limit)
		return m.requeue(j)
	}
	return false
}

func (m *Monitor) requeue(j *job.Job) bool {
	if err := m.Store.RequeueJob(j); err != nil {
		slog.Error("health requeue failed", "job", j.ID, "err", err)
		return false
	}
	return true
}

// TimeoutFor returns the wall-clock budget for a job given its originating
// message. The build marker match is case-sensitive.
func TimeoutFor(messageText string) time.Duration {
	return timeoutFor(messageText, DefaultTimeout, BuildTimeout)
}

func timeoutFor(messageText string, def, build time.Duration) time.Duration {
	if strings.Contains(messageText, buildMarker) {
		return build
	}
	return def
}
