package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stewardhq/steward/internal/job"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGetJob(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateJob(job.Fields{
		ProjectKey:  "api",
		SessionID:   "sess-1",
		WorkingDir:  "/srv/api",
		MessageText: "fix the login bug",
		SenderName:  "alice",
		ChatID:      42,
		MessageID:   7,
		ChatTitle:   "api team",
		Extra:       map[string]any{"workflow": "bugfix"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	j, err := db.GetJob(id)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, "api", j.ProjectKey)
	assert.Equal(t, job.StatusPending, j.Status)
	assert.Equal(t, job.PriorityHigh, j.Priority)
	assert.Equal(t, "fix the login bug", j.MessageText)
	assert.Equal(t, int64(42), j.ChatID)
	assert.Equal(t, "bugfix", j.Extra["workflow"])
	assert.Nil(t, j.StartedAt)
	assert.NotZero(t, j.CreatedAt)
}

func TestGetJob_NotFound(t *testing.T) {
	db := openTestDB(t)

	j, err := db.GetJob("01ARZ3NDEKTSV4RRFFQ69G5FAV")
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestCreateJob_EmptyProjectKey(t *testing.T) {
	db := openTestDB(t)

	_, err := db.CreateJob(job.Fields{MessageText: "orphan"})
	require.Error(t, err)
}

func TestPopJob_PriorityThenNewest(t *testing.T) {
	db := openTestDB(t)

	// Three jobs: an old low, a newer low, and the oldest high.
	_, err := db.CreateJob(job.Fields{
		ProjectKey: "api", Priority: job.PriorityLow,
		CreatedAt: 100, MessageText: "old-low",
	})
	require.NoError(t, err)
	_, err = db.CreateJob(job.Fields{
		ProjectKey: "api", Priority: job.PriorityLow,
		CreatedAt: 200, MessageText: "new-low",
	})
	require.NoError(t, err)
	_, err = db.CreateJob(job.Fields{
		ProjectKey: "api", Priority: job.PriorityHigh,
		CreatedAt: 50, MessageText: "high",
	})
	require.NoError(t, err)

	var order []string
	for {
		j, err := db.PopJob("api")
		require.NoError(t, err)
		if j == nil {
			break
		}
		order = append(order, j.MessageText)
		require.NoError(t, db.DeleteJob(j.ID))
	}
	// High first, then newest low before older low.
	assert.Equal(t, []string{"high", "new-low", "old-low"}, order)
}

func TestPopJob_MintsFreshID(t *testing.T) {
	db := openTestDB(t)

	pendingID, err := db.CreateJob(job.Fields{
		ProjectKey: "api", SessionID: "sess-1", MessageText: "work",
	})
	require.NoError(t, err)

	j, err := db.PopJob("api")
	require.NoError(t, err)
	require.NotNil(t, j)

	assert.NotEqual(t, pendingID, j.ID)
	assert.Equal(t, job.StatusRunning, j.Status)
	require.NotNil(t, j.StartedAt)

	// The pending record is gone; only the running record exists.
	old, err := db.GetJob(pendingID)
	require.NoError(t, err)
	assert.Nil(t, old)

	current, err := db.GetJob(j.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, job.StatusRunning, current.Status)
}

func TestPopJob_Empty(t *testing.T) {
	db := openTestDB(t)

	j, err := db.PopJob("nothing-here")
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestPopJob_IsolatedPerProject(t *testing.T) {
	db := openTestDB(t)

	_, err := db.CreateJob(job.Fields{ProjectKey: "api", MessageText: "api work"})
	require.NoError(t, err)

	j, err := db.PopJob("web")
	require.NoError(t, err)
	assert.Nil(t, j)

	j, err = db.PopJob("api")
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, "api work", j.MessageText)
}

func TestQueueDepth(t *testing.T) {
	db := openTestDB(t)

	depth, err := db.QueueDepth("api")
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	for i := 0; i < 3; i++ {
		_, err := db.CreateJob(job.Fields{ProjectKey: "api", MessageText: "w"})
		require.NoError(t, err)
	}
	_, err = db.PopJob("api")
	require.NoError(t, err)

	// Running jobs do not count toward depth.
	depth, err = db.QueueDepth("api")
	require.NoError(t, err)
	assert.Equal(t, 2, depth)
}

func TestResetRunning_RoundTrip(t *testing.T) {
	db := openTestDB(t)

	_, err := db.CreateJob(job.Fields{
		ProjectKey: "api", SessionID: "sess-1", Priority: job.PriorityLow,
		MessageText: "interrupted work", AutoContinueCount: 2,
		Extra: map[string]any{"url": "https://example.com"},
	})
	require.NoError(t, err)

	popped, err := db.PopJob("api")
	require.NoError(t, err)
	require.NotNil(t, popped)

	n, err := db.ResetRunning("api")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := db.ListJobs("api", job.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	j := pending[0]
	// Recovery bumps priority, clears started_at, mints a fresh ID, and
	// preserves every other field.
	assert.NotEqual(t, popped.ID, j.ID)
	assert.Equal(t, job.PriorityHigh, j.Priority)
	assert.Nil(t, j.StartedAt)
	assert.Equal(t, "interrupted work", j.MessageText)
	assert.Equal(t, 2, j.AutoContinueCount)
	assert.Equal(t, "https://example.com", j.Extra["url"])

	running, err := db.ListJobs("api", job.StatusRunning)
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestRequeueJob_AlreadyGoneIsNoop(t *testing.T) {
	db := openTestDB(t)

	_, err := db.CreateJob(job.Fields{ProjectKey: "api", MessageText: "w"})
	require.NoError(t, err)
	j, err := db.PopJob("api")
	require.NoError(t, err)

	require.NoError(t, db.DeleteJob(j.ID))
	// A concurrent sweep already removed the record; requeue must not
	// resurrect it.
	require.NoError(t, db.RequeueJob(j))

	pending, err := db.ListJobs("api", job.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestListProjects(t *testing.T) {
	db := openTestDB(t)

	for _, key := range []string{"web", "api", "api"} {
		_, err := db.CreateJob(job.Fields{ProjectKey: key, MessageText: "w"})
		require.NoError(t, err)
	}

	projects, err := db.ListProjects()
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "web"}, projects)
}
