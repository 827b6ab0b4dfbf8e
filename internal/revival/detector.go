// Package revival detects unfinished session work after a restart or idle
// period and correlates user responses back to a resumable job.
package revival

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/stewardhq/steward/internal/gitops"
)

// Cooldown is how long a chat is left alone after a revival prompt.
const Cooldown = 24 * time.Hour

// planPreviewChars caps the plan excerpt included in a revival prompt.
const planPreviewChars = 200

// Info describes unfinished work found in a project's working directory.
type Info struct {
	ProjectKey string
	WorkingDir string

	// Branch is the first session branch found; Branches lists all of them.
	Branch   string
	Branches []string

	HasUncommittedChanges bool

	// PlanPreview is the first part of the active plan file, empty when no
	// plan exists.
	PlanPreview string
}

// Notification ties a sent revival prompt back to the work it described, so
// a user reply or reaction can be resolved to a revival enqueue.
type Notification struct {
	SessionID  string
	Branch     string
	ProjectKey string
	WorkingDir string
}

type notificationKey struct {
	ChatID int64
	MsgID  int64
}

// Git is the branch inspection surface the detector needs.
type Git interface {
	State(ctx context.Context, dir string) (gitops.BranchState, error)
	ListSessionBranches(ctx context.Context, dir string) ([]string, error)
}

// Detector scans project checkouts for abandoned session branches. All maps
// are process-wide and mutex-guarded.
type Detector struct {
	Git Git

	mu            sync.Mutex
	cooldowns     map[int64]time.Time
	notifications map[notificationKey]Notification

	now func() time.Time
}

// NewDetector creates a detector over the given git coordinator.
func NewDetector(git Git) *Detector {
	return &Detector{
		Git:           git,
		cooldowns:     make(map[int64]time.Time),
		notifications: make(map[notificationKey]Notification),
		now:           time.Now,
	}
}

// Check inspects a project's working directory for unfinished work. It
// returns nil when there is nothing to revive or the chat was prompted
// within the cooldown window.
func (d *Detector) Check(ctx context.Context, projectKey, workingDir string, chatID int64) (*Info, error) {
	if d.onCooldown(chatID) {
		return nil, nil
	}

	branches, err := d.Git.ListSessionBranches(ctx, workingDir)
	if err != nil {
		return nil, err
	}
	state, err := d.Git.State(ctx, workingDir)
	if err != nil {
		return nil, err
	}

	if len(branches) == 0 && state.WorkStatus != gitops.WorkStatusInProgress {
		return nil, nil
	}

	info := &Info{
		ProjectKey:            projectKey,
		WorkingDir:            workingDir,
		Branches:              branches,
		HasUncommittedChanges: state.HasUncommittedChanges,
		PlanPreview:           planPreview(state.ActivePlan),
	}
	if len(branches) > 0 {
		info.Branch = branches[0]
	}
	return info, nil
}

// RecordNotification marks a chat as prompted and remembers which work the
// prompt described, keyed by the sent message.
func (d *Detector) RecordNotification(chatID, msgID int64, n Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cooldowns[chatID] = d.now()
	d.notifications[notificationKey{ChatID: chatID, MsgID: msgID}] = n
}

// ResolveNotification returns the work behind a previously sent revival
// prompt, if the message is known.
func (d *Detector) ResolveNotification(chatID, msgID int64) (Notification, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.notifications[notificationKey{ChatID: chatID, MsgID: msgID}]
	return n, ok
}

func (d *Detector) onCooldown(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.cooldowns[chatID]
	return ok && d.now().Sub(last) < Cooldown
}

// planPreview reads the first planPreviewChars of a plan file. A missing or
// unreadable plan yields an empty preview, never an error.
func planPreview(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(string(data))
	if len(text) > planPreviewChars {
		text = text[:planPreviewChars]
	}
	return text
}
