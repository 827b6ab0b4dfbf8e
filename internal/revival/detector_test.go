package revival

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stewardhq/steward/internal/gitops"
)

type fakeGit struct {
	branches []string
	state    gitops.BranchState
}

func (g *fakeGit) State(ctx context.Context, dir string) (gitops.BranchState, error) {
	return g.state, nil
}

func (g *fakeGit) ListSessionBranches(ctx context.Context, dir string) ([]string, error) {
	return g.branches, nil
}

func TestCheck_NothingToRevive(t *testing.T) {
	d := NewDetector(&fakeGit{
		state: gitops.BranchState{WorkStatus: gitops.WorkStatusClean},
	})

	info, err := d.Check(context.Background(), "api", "/repo", 1)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestCheck_SessionBranchesFound(t *testing.T) {
	d := NewDetector(&fakeGit{
		branches: []string{"session/fix-login", "session/add-metrics"},
		state: gitops.BranchState{
			WorkStatus:            gitops.WorkStatusClean,
			HasUncommittedChanges: false,
		},
	})

	info, err := d.Check(context.Background(), "api", "/repo", 1)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "session/fix-login", info.Branch)
	assert.Len(t, info.Branches, 2)
	assert.Equal(t, "api", info.ProjectKey)
}

func TestCheck_InProgressWithoutBranches(t *testing.T) {
	d := NewDetector(&fakeGit{
		state: gitops.BranchState{
			WorkStatus:            gitops.WorkStatusInProgress,
			HasUncommittedChanges: true,
		},
	})

	info, err := d.Check(context.Background(), "api", "/repo", 1)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Empty(t, info.Branch)
	assert.True(t, info.HasUncommittedChanges)
}

func TestCheck_PlanPreview(t *testing.T) {
	dir := t.TempDir()
	plan := filepath.Join(dir, "ACTIVE-feature.md")
	long := ""
	for i := 0; i < 50; i++ {
		long += "plan line\n"
	}
	require.NoError(t, os.WriteFile(plan, []byte(long), 0o644))

	d := NewDetector(&fakeGit{
		branches: []string{"session/x"},
		state:    gitops.BranchState{ActivePlan: plan},
	})

	info, err := d.Check(context.Background(), "api", dir, 1)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.NotEmpty(t, info.PlanPreview)
	assert.LessOrEqual(t, len(info.PlanPreview), 200)
}

func TestCheck_CooldownSuppressesRePrompt(t *testing.T) {
	d := NewDetector(&fakeGit{branches: []string{"session/x"}})

	info, err := d.Check(context.Background(), "api", "/repo", 7)
	require.NoError(t, err)
	require.NotNil(t, info)

	d.RecordNotification(7, 100, Notification{
		SessionID: "sess-1", Branch: "session/x",
		ProjectKey: "api", WorkingDir: "/repo",
	})

	info, err = d.Check(context.Background(), "api", "/repo", 7)
	require.NoError(t, err)
	assert.Nil(t, info)

	// A different chat is not affected.
	info, err = d.Check(context.Background(), "api", "/repo", 8)
	require.NoError(t, err)
	assert.NotNil(t, info)
}

func TestCheck_CooldownExpires(t *testing.T) {
	d := NewDetector(&fakeGit{branches: []string{"session/x"}})
	d.RecordNotification(7, 100, Notification{Branch: "session/x"})

	// Advance the clock past the cooldown window.
	d.now = func() time.Time { return time.Now().Add(Cooldown + time.Hour) }

	info, err := d.Check(context.Background(), "api", "/repo", 7)
	require.NoError(t, err)
	assert.NotNil(t, info)
}

func TestResolveNotification(t *testing.T) {
	d := NewDetector(&fakeGit{})
	d.RecordNotification(7, 100, Notification{
		SessionID: "sess-1", Branch: "session/x",
		ProjectKey: "api", WorkingDir: "/repo",
	})

	n, ok := d.ResolveNotification(7, 100)
	require.True(t, ok)
	assert.Equal(t, "sess-1", n.SessionID)
	assert.Equal(t, "session/x", n.Branch)

	_, ok = d.ResolveNotification(7, 999)
	assert.False(t, ok)
}
