// Package gitops wraps the git CLI for session branch management: checkout,
// auto-commit, merge-or-park, and working tree inspection. Merge conflicts
// are reported, never resolved; the branch is left intact for human review.
package gitops

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
)

// WorkStatus summarizes the working directory state.
type WorkStatus string

const (
	WorkStatusClean      WorkStatus = "CLEAN"
	WorkStatusInProgress WorkStatus = "IN_PROGRESS"
	WorkStatusBlocked    WorkStatus = "BLOCKED"
)

// BranchState is a snapshot of a git working directory.
type BranchState struct {
	CurrentBranch         string
	IsMain                bool
	HasUncommittedChanges bool
	// ActivePlan is the first file matching docs/plans/ACTIVE-*.md, empty
	// when none exists.
	ActivePlan string
	WorkStatus WorkStatus
}

// Coordinator performs git operations for session branches. All operations
// take the working directory explicitly so one coordinator serves every
// project.
type Coordinator struct {
	runner Runner
	// MainBranch is the integration branch, "main" unless configured.
	MainBranch string
}

// NewCoordinator creates a coordinator using the default runner.
func NewCoordinator() *Coordinator {
	return &Coordinator{runner: DefaultRunner(), MainBranch: "main"}
}

// NewCoordinatorWithRunner creates a coordinator with an injected runner.
// Intended for tests.
func NewCoordinatorWithRunner(runner Runner) *Coordinator {
	return &Coordinator{runner: runner, MainBranch: "main"}
}

func (c *Coordinator) exec(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return c.runner.Exec(ctx, dir, args...)
}

// State returns the current branch state of dir.
func (c *Coordinator) State(ctx context.Context, dir string) (BranchState, error) {
	out, err := c.exec(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return BranchState{}, fmt.Errorf("read current branch: %w", err)
	}
	branch := strings.TrimSpace(out)

	status, err := c.exec(ctx, dir, "status", "--porcelain")
	if err != nil {
		return BranchState{}, fmt.Errorf("read status: %w", err)
	}

	state := BranchState{
		CurrentBranch:         branch,
		IsMain:                branch == c.MainBranch || branch == "master",
		HasUncommittedChanges: strings.TrimSpace(status) != "",
		ActivePlan:            findActivePlan(dir),
	}
	state.WorkStatus = deriveWorkStatus(state)
	return state, nil
}

func findActivePlan(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, "docs", "plans", "ACTIVE-*.md"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

func deriveWorkStatus(s BranchState) WorkStatus {
	if s.IsMain && !s.HasUncommittedChanges && s.ActivePlan == "" {
		return WorkStatusClean
	}
	if !s.IsMain || s.ActivePlan != "" {
		return WorkStatusInProgress
	}
	return WorkStatusBlocked
}

// CheckoutSessionBranch switches dir to the named branch, creating it from
// main when it does not exist yet. Returns false when neither checkout path
// succeeded.
func (c *Coordinator) CheckoutSessionBranch(ctx context.Context, dir, branch string) bool {
	if _, err := c.exec(ctx, dir, "checkout", branch); err == nil {
		return true
	}
	if _, err := c.exec(ctx, dir, "checkout", c.MainBranch); err != nil {
		slog.Warn("checkout main failed", "dir", dir, "err", err)
		return false
	}
	if _, err := c.exec(ctx, dir, "checkout", "-b", branch); err != nil {
		slog.Warn("create session branch failed", "dir", dir, "branch", branch, "err", err)
		return false
	}
	return true
}

// FinishBranch finalizes a session branch: commits leftover work, then either
// merges it into main (deleting the branch and pushing) or parks it on the
// remote for review. A merge conflict leaves the branch untouched and
// returns false. Push failures are logged but non-fatal since local history
// is authoritative.
func (c *Coordinator) FinishBranch(ctx context.Context, dir, branch string, autoMerge bool, projectKey string) bool {
	state, err := c.State(ctx, dir)
	if err != nil {
		slog.Error("finish branch: state read failed", "project", projectKey, "err", err)
		c.returnToMain(ctx, dir)
		return false
	}

	if state.HasUncommittedChanges {
		if _, err := c.exec(ctx, dir, "add", "-A"); err != nil {
			slog.Error("finish branch: add failed", "project", projectKey, "err", err)
			c.returnToMain(ctx, dir)
			return false
		}
		msg := fmt.Sprintf("Auto-commit session work: %s", branch)
		if _, err := c.exec(ctx, dir, "commit", "-m", msg); err != nil {
			slog.Error("finish branch: commit failed", "project", projectKey, "err", err)
			c.returnToMain(ctx, dir)
			return false
		}
	}

	if autoMerge {
		if _, err := c.exec(ctx, dir, "checkout", c.MainBranch); err != nil {
			slog.Error("finish branch: checkout main failed", "project", projectKey, "err", err)
			return false
		}
		if _, err := c.exec(ctx, dir, "merge", "--no-ff", branch); err != nil {
			// Conflict: abort and leave the branch for manual resolution.
			slog.Warn("merge conflict, branch left for review",
				"project", projectKey, "branch", branch, "err", err)
			if _, abortErr := c.exec(ctx, dir, "merge", "--abort"); abortErr != nil {
				slog.Warn("merge abort failed", "project", projectKey, "err", abortErr)
			}
			return false
		}
		if _, err := c.exec(ctx, dir, "branch", "-d", branch); err != nil {
			slog.Warn("branch delete failed", "project", projectKey, "branch", branch, "err", err)
		}
		if _, err := c.exec(ctx, dir, "push"); err != nil {
			slog.Warn("push failed, local history is authoritative", "project", projectKey, "err", err)
		}
		return true
	}

	// Park for review.
	if _, err := c.exec(ctx, dir, "push", "-u", "origin", branch); err != nil {
		slog.Warn("park push failed", "project", projectKey, "branch", branch, "err", err)
	}
	c.returnToMain(ctx, dir)
	return true
}

func (c *Coordinator) returnToMain(ctx context.Context, dir string) {
	if _, err := c.exec(ctx, dir, "checkout", c.MainBranch); err != nil {
		slog.Warn("return to main failed", "dir", dir, "err", err)
	}
}

// ListSessionBranches returns local branches under session/.
func (c *Coordinator) ListSessionBranches(ctx context.Context, dir string) ([]string, error) {
	out, err := c.exec(ctx, dir, "branch", "--list", "session/*")
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		if line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

var (
	branchInvalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
	branchHyphenRuns   = regexp.MustCompile(`-+`)
)

// SanitizeBranchName converts a free-form description into a branch-safe
// slug: lowercase, [a-z0-9-] only, hyphen runs collapsed, at most 50 chars.
// Idempotent.
func SanitizeBranchName(description string) string {
	s := strings.ToLower(description)
	s = branchInvalidChars.ReplaceAllString(s, "-")
	s = branchHyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.Trim(s[:50], "-")
	}
	return s
}

// SessionBranchName returns the branch name for a session.
func SessionBranchName(sessionID string) string {
	return "session/" + SanitizeBranchName(sessionID)
}
