package orchestrator

import (
	"context"
	"fmt"
	"os"

	"github.com/stewardhq/steward/internal/agent"
	"github.com/stewardhq/steward/internal/bridge"
	"github.com/stewardhq/steward/internal/health"
	"github.com/stewardhq/steward/internal/job"
	"github.com/stewardhq/steward/internal/worker"
)

// invoker adapts agent sessions to the worker's Agent surface. One agent run
// per call: launch, register, query, wait, unregister.
type invoker struct {
	o *Orchestrator
}

func (iv *invoker) Run(ctx context.Context, j *job.Job, cfg bridge.ProjectConfig) (worker.RunResult, error) {
	o := iv.o

	sysPrompt := cfg.SystemPromptFile
	if sysPrompt == "" {
		sysPrompt = o.cfg.Agent.SystemPromptFile
	}

	// The run is bounded by the same wall-clock budget the health monitor
	// enforces, so a hung agent dies before the sweep would requeue it.
	runCtx, cancel := context.WithTimeout(ctx, health.TimeoutFor(j.MessageText))
	defer cancel()

	resume := j.AutoContinueCount > 0 || j.RevivalContext != ""
	sess, err := agent.Start(runCtx, agent.Options{
		Command:          o.cfg.Agent.Command,
		SystemPromptFile: sysPrompt,
		SessionID:        j.SessionID,
		WorkingDir:       j.WorkingDir,
		APIKey:           os.Getenv("ANTHROPIC_API_KEY"),
		LogDir:           o.cfg.Agent.LogDir,
		Hook:             o.hook,
		Resume:           resume,
	})
	if err != nil {
		return worker.RunResult{}, fmt.Errorf("agent session: %w", err)
	}

	o.agents.Register(j.SessionID, sess)
	o.hook.ResetCounter(j.SessionID)
	defer o.agents.Unregister(j.SessionID)

	prompt := j.MessageText
	if j.RevivalContext != "" {
		prompt = j.RevivalContext + "\n\n" + prompt
	}
	if err := sess.Query(prompt); err != nil {
		sess.Close()
		<-sess.Done()
		return worker.RunResult{}, fmt.Errorf("agent query: %w", err)
	}

	// Stdin stays open: the hook needs it for steering injection and
	// interrupts. The read loop closes it when the result event arrives.
	res, text, err := sess.Wait()
	if err != nil {
		return worker.RunResult{Output: text}, err
	}

	// A hook-blocked run keeps its partial text as output; the stop reason
	// travels separately so the worker never mistakes it for agent output.
	if res.Blocked() {
		return worker.RunResult{Output: text, Stopped: true, StopReason: res.Result}, nil
	}

	output := res.Result
	if output == "" {
		output = text
	}
	return worker.RunResult{Output: output, IsError: res.IsError}, nil
}
