package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContinuePrompt_RejectedCompletion(t *testing.T) {
	class := ClassificationResult{
		OutputType:            OutputCompletion,
		WasRejectedCompletion: true,
	}
	got := ContinuePrompt(class, "", "/do-build the feature")
	assert.Contains(t, got, "verification evidence")
	assert.Contains(t, got, "commit hashes")
}

func TestContinuePrompt_PlanCriteria(t *testing.T) {
	dir := t.TempDir()
	plan := filepath.Join(dir, "ACTIVE-feature.md")
	content := `# Plan

## Success Criteria
- all tests green
- endpoint returns 200

## Steps
- do things
`
	require.NoError(t, os.WriteFile(plan, []byte(content), 0o644))

	got := ContinuePrompt(ClassificationResult{OutputType: OutputStatusUpdate}, plan, "work on it")
	assert.Contains(t, got, "all tests green")
	assert.Contains(t, got, "endpoint returns 200")
	assert.NotContains(t, got, "do things")
}

func TestContinuePrompt_PlanWithoutCriteriaSection(t *testing.T) {
	dir := t.TempDir()
	plan := filepath.Join(dir, "ACTIVE-feature.md")
	require.NoError(t, os.WriteFile(plan, []byte("# Plan\njust notes\n"), 0o644))

	got := ContinuePrompt(ClassificationResult{OutputType: OutputStatusUpdate}, plan, "work on it")
	assert.Contains(t, got, plan)
}

func TestContinuePrompt_UnreadablePlanStillPointsAtIt(t *testing.T) {
	got := ContinuePrompt(ClassificationResult{OutputType: OutputStatusUpdate},
		"/nonexistent/ACTIVE-x.md", "work on it")
	assert.Contains(t, got, "/nonexistent/ACTIVE-x.md")
}

func TestContinuePrompt_SkillHint(t *testing.T) {
	got := ContinuePrompt(ClassificationResult{OutputType: OutputStatusUpdate},
		"", "/do-test the auth package")
	assert.Contains(t, got, "pass/fail counts")
}

func TestContinuePrompt_DefaultLiteral(t *testing.T) {
	got := ContinuePrompt(ClassificationResult{OutputType: OutputStatusUpdate},
		"", "please fix the login bug")
	assert.Equal(t, "continue", got)
}

func TestParseSuccessCriteria_Caps(t *testing.T) {
	dir := t.TempDir()
	plan := filepath.Join(dir, "ACTIVE-big.md")
	long := "## Success Criteria\n"
	for i := 0; i < 100; i++ {
		long += "- a fairly long criterion line for padding purposes\n"
	}
	require.NoError(t, os.WriteFile(plan, []byte(long), 0o644))

	criteria, ok := parseSuccessCriteria(plan)
	require.True(t, ok)
	assert.LessOrEqual(t, len(criteria), 500)
}
