package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_CommitHashes(t *testing.T) {
	text := "Committed as a1b2c3d and pushed. Earlier commit deadbeefcafe0123 still stands."
	a := Extract(text)
	assert.Contains(t, a.CommitHashes, "a1b2c3d")
	assert.Contains(t, a.CommitHashes, "deadbeefcafe0123")
}

func TestExtract_URLsAndPaths(t *testing.T) {
	text := "See https://github.com/org/repo/pull/12 and the change in internal/store/jobs.go."
	a := Extract(text)
	assert.Equal(t, []string{"https://github.com/org/repo/pull/12"}, a.URLs)
	assert.Contains(t, a.FilePaths, "internal/store/jobs.go")
}

func TestExtract_TestResults(t *testing.T) {
	a := Extract("Ran the suite: 42 passed, 1 failed.")
	assert.Contains(t, a.TestResults, "42 passed")
	assert.Contains(t, a.TestResults, "1 failed")
}

func TestExtract_ErrorLines(t *testing.T) {
	a := Extract("building...\nerror: undefined symbol foo\nall other lines fine")
	assert.Len(t, a.ErrorLines, 1)
	assert.Contains(t, a.ErrorLines[0], "undefined symbol")
}

func TestExtract_Dedupes(t *testing.T) {
	a := Extract("commit a1b2c3d then a1b2c3d again")
	assert.Equal(t, []string{"a1b2c3d"}, a.CommitHashes)
}

func TestArtifacts_Empty(t *testing.T) {
	assert.True(t, Extract("I rewrote the function and it reads better now.").Empty())
	assert.False(t, Extract("pushed a1b2c3d").Empty())
}

func TestArtifacts_List(t *testing.T) {
	a := Artifacts{
		CommitHashes: []string{"a1b2c3d"},
		TestResults:  []string{"10 passed"},
	}
	list := a.List()
	assert.Contains(t, list, "commit: a1b2c3d")
	assert.Contains(t, list, "tests: 10 passed")
}
