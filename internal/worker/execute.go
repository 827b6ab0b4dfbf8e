package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stewardhq/steward/internal/bridge"
	"github.com/stewardhq/steward/internal/gitops"
	"github.com/stewardhq/steward/internal/job"
	"github.com/stewardhq/steward/internal/pipeline"
)

// execute runs a single job end to end. Pipeline and git failures are
// recorded but never unwind the worker: the run always reaches the steering
// drain and branch finalization.
func (w *Worker) execute(ctx context.Context, j *job.Job) {
	branch := gitops.SessionBranchName(j.SessionID)

	if !w.deps.Git.CheckoutSessionBranch(ctx, j.WorkingDir, branch) {
		slog.Warn("session branch checkout failed, continuing on current branch",
			"project", w.projectKey, "branch", branch)
	}

	outcome := w.runAgentTask(ctx, j)

	// Capture steering messages that raced with agent completion; they
	// would otherwise be lost silently.
	leftovers, err := w.deps.Steering.PopAll(j.SessionID)
	if err != nil {
		slog.Error("steering drain failed", "session", j.SessionID, "err", err)
	}
	for _, m := range leftovers {
		slog.Warn("steering message arrived after agent completion, dropped",
			"session", j.SessionID, "sender", m.Sender, "text", m.Text)
	}

	if !outcome.reactionDeferred {
		emoji := bridge.EmojiSuccess
		if outcome.failed {
			emoji = bridge.EmojiError
		}
		w.setReaction(j, emoji)
	}

	if !w.deps.Git.FinishBranch(ctx, j.WorkingDir, branch, w.deps.Config.AutoMerge, w.projectKey) {
		slog.Warn("branch finalization incomplete", "project", w.projectKey, "branch", branch)
	}
}

// taskOutcome summarizes what the agent task decided.
type taskOutcome struct {
	failed bool
	// reactionDeferred is set on auto-continue: the chain's final
	// delivery owns the reaction.
	reactionDeferred bool
}

// runAgentTask invokes the agent and routes its terminal output. The worker
// blocks here; per-project serialization is exactly this call.
func (w *Worker) runAgentTask(ctx context.Context, j *job.Job) taskOutcome {
	res, err := w.deps.Agent.Run(ctx, j, w.deps.Config)
	if err != nil {
		slog.Error("agent run failed", "project", w.projectKey, "session", j.SessionID, "err", err)
		w.send(j, fmt.Sprintf("I encountered an error: %v", err))
		return taskOutcome{failed: true}
	}

	// A stopped run terminates the chain: the user (or the watchdog) ended
	// it, so the stop reason and any partial output are delivered as-is and
	// nothing is queued behind them.
	if res.Stopped {
		slog.Info("agent run stopped",
			"project", w.projectKey, "session", j.SessionID, "reason", res.StopReason)
		text := res.StopReason
		if res.Output != "" {
			text += "\n\n" + res.Output
		}
		w.deliver(ctx, j, text)
		return taskOutcome{}
	}

	output := res.Output
	class := w.deps.Classifier.Classify(ctx, output)
	if res.IsError && class.OutputType != pipeline.OutputError {
		class.OutputType = pipeline.OutputError
		class.Reason = "agent reported error result"
	}
	slog.Info("agent output classified",
		"project", w.projectKey, "session", j.SessionID,
		"type", class.OutputType, "confidence", class.Confidence)

	// ERROR never auto-continues: the user always sees it.
	if class.OutputType == pipeline.OutputError {
		w.deliver(ctx, j, output)
		return taskOutcome{failed: true}
	}

	if class.OutputType == pipeline.OutputStatusUpdate && j.AutoContinueCount < MaxAutoContinues {
		if w.enqueueContinuation(ctx, j, class) {
			// The continuation owns the final send and reaction.
			return taskOutcome{reactionDeferred: true}
		}
		// Fall through to delivery when the continuation could not be
		// queued; silence would strand the user.
	}

	w.deliver(ctx, j, output)
	return taskOutcome{}
}

// enqueueContinuation pushes a low-priority continuation job for the same
// session with a coached prompt. Returns false on store failure.
func (w *Worker) enqueueContinuation(ctx context.Context, j *job.Job, class pipeline.ClassificationResult) bool {
	activePlan := ""
	if state, err := w.deps.Git.State(ctx, j.WorkingDir); err == nil {
		activePlan = state.ActivePlan
	}
	prompt := pipeline.ContinuePrompt(class, activePlan, j.MessageText)

	f := job.Extract(j)
	f.Status = job.StatusPending
	f.Priority = job.PriorityLow
	f.CreatedAt = job.Now()
	f.StartedAt = nil
	f.MessageText = prompt
	f.AutoContinueCount = j.AutoContinueCount + 1

	id, err := w.deps.Store.CreateJob(f)
	if err != nil {
		slog.Error("continuation enqueue failed", "project", w.projectKey, "err", err)
		return false
	}
	slog.Info("auto-continue queued",
		"project", w.projectKey, "session", j.SessionID,
		"job", id, "count", f.AutoContinueCount)
	return true
}

// deliver summarizes output and sends it to the originating chat, attaching
// the full text when it exceeded the attach threshold.
func (w *Worker) deliver(ctx context.Context, j *job.Job, output string) {
	summary := w.deps.Summarizer.Summarize(ctx, output)

	if summary.AttachmentPath != "" && w.deps.Bridge.Responder != nil {
		err := w.deps.Bridge.Responder.RespondWithFiles(
			j.ChatID, j.MessageID, summary.Text, []string{summary.AttachmentPath})
		if err == nil {
			return
		}
		slog.Warn("file delivery failed, falling back to text",
			"project", w.projectKey, "err", err)
	}
	w.send(j, summary.Text)
}

func (w *Worker) send(j *job.Job, text string) {
	if w.deps.Bridge.Sender == nil {
		slog.Warn("no sender registered, dropping message", "project", w.projectKey)
		return
	}
	if err := w.deps.Bridge.Sender.Send(j.ChatID, pipeline.Truncate(text, pipeline.PlatformMessageLimit), j.MessageID); err != nil {
		slog.Error("send failed", "project", w.projectKey, "chat", j.ChatID, "err", err)
	}
}

func (w *Worker) setReaction(j *job.Job, emoji string) {
	if w.deps.Bridge.Reactor == nil {
		return
	}
	if !bridge.ValidEmoji(emoji) {
		slog.Warn("invalid reaction emoji filtered", "emoji", emoji)
		return
	}
	if err := w.deps.Bridge.Reactor.SetReaction(j.ChatID, j.MessageID, emoji); err != nil {
		slog.Warn("reaction failed", "project", w.projectKey, "chat", j.ChatID, "err", err)
	}
}
