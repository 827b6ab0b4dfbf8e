package health

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stewardhq/steward/internal/job"
	"github.com/stewardhq/steward/internal/store"
)

type fakeWorkers struct {
	alive map[string]bool
}

func (f *fakeWorkers) Alive(projectKey string) bool {
	return f.alive[projectKey]
}

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// insertRunning creates a running job whose started_at lies age in the past.
func insertRunning(t *testing.T, db *store.DB, project, message string, age time.Duration) {
	t.Helper()
	started := job.Now() - age.Seconds()
	_, err := db.CreateJob(job.Fields{
		ProjectKey:  project,
		Status:      job.StatusRunning,
		Priority:    job.PriorityLow,
		StartedAt:   &started,
		MessageText: message,
	})
	require.NoError(t, err)
}

func pendingCount(t *testing.T, db *store.DB, project string) int {
	t.Helper()
	jobs, err := db.ListJobs(project, job.StatusPending)
	require.NoError(t, err)
	return len(jobs)
}

func TestTimeoutFor(t *testing.T) {
	assert.Equal(t, BuildTimeout, TimeoutFor("please /do-build the release"))
	assert.Equal(t, DefaultTimeout, TimeoutFor("fix the login bug"))
	// The marker is case-sensitive.
	assert.Equal(t, DefaultTimeout, TimeoutFor("please /DO-BUILD it"))
}

func TestSweep_DeadWorkerRecovered(t *testing.T) {
	db := openTestDB(t)
	insertRunning(t, db, "api", "stranded work", MinRunningAge+time.Minute)

	m := New(db, &fakeWorkers{alive: map[string]bool{}})
	n, err := m.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := db.ListJobs("api", job.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, job.PriorityHigh, pending[0].Priority)
	assert.Nil(t, pending[0].StartedAt)
}

func TestSweep_YoungJobRaceGuard(t *testing.T) {
	db := openTestDB(t)
	// The worker just popped this job; even with no registered worker the
	// sweep must not race the handoff.
	insertRunning(t, db, "api", "fresh work", time.Minute)

	m := New(db, &fakeWorkers{alive: map[string]bool{}})
	n, err := m.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, pendingCount(t, db, "api"))
}

func TestSweep_AliveWorkerWithinTimeout(t *testing.T) {
	db := openTestDB(t)
	insertRunning(t, db, "api", "long but fine", MinRunningAge+time.Minute)

	m := New(db, &fakeWorkers{alive: map[string]bool{"api": true}})
	n, err := m.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSweep_TimeoutExceeded(t *testing.T) {
	db := openTestDB(t)
	insertRunning(t, db, "api", "stuck work", DefaultTimeout+time.Minute)

	m := New(db, &fakeWorkers{alive: map[string]bool{"api": true}})
	n, err := m.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, pendingCount(t, db, "api"))
}

func TestSweep_BuildJobGetsLongerBudget(t *testing.T) {
	db := openTestDB(t)
	age := DefaultTimeout + time.Minute
	require.Less(t, age, BuildTimeout)
	insertRunning(t, db, "api", "/do-build the release", age)

	m := New(db, &fakeWorkers{alive: map[string]bool{"api": true}})
	n, err := m.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSweep_LegacyNoStartTime(t *testing.T) {
	db := openTestDB(t)
	_, err := db.CreateJob(job.Fields{
		ProjectKey:  "api",
		Status:      job.StatusRunning,
		MessageText: "legacy record",
	})
	require.NoError(t, err)

	// Worker alive: age unknowable, leave it alone.
	m := New(db, &fakeWorkers{alive: map[string]bool{"api": true}})
	n, err := m.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// Worker gone: recover it.
	m = New(db, &fakeWorkers{alive: map[string]bool{}})
	n, err = m.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, pendingCount(t, db, "api"))
}

func TestSweep_MultipleProjects(t *testing.T) {
	db := openTestDB(t)
	insertRunning(t, db, "api", "stranded", MinRunningAge+time.Minute)
	insertRunning(t, db, "web", "also stranded", MinRunningAge+time.Minute)

	m := New(db, &fakeWorkers{alive: map[string]bool{"web": true}})
	n, err := m.Sweep()
	require.NoError(t, err)
	// Only the dead project's job is recovered; web's is within timeout.
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, pendingCount(t, db, "api"))
	assert.Equal(t, 0, pendingCount(t, db, "web"))
}
