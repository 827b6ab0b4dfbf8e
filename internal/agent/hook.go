package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/stewardhq/steward/internal/llm"
	"github.com/stewardhq/steward/internal/steering"
)

const (
	// watchdogInterval is how many tool calls pass between health
	// judgments.
	watchdogInterval = 20
	// watchdogTailEntries is how many trailing tool-use summaries are fed
	// to the judge.
	watchdogTailEntries = 30
)

const watchdogSystemPrompt = `You judge whether a coding agent is making progress.
Given the agent's recent tool calls, answer with JSON only:
{"healthy": true|false, "reason": "brief explanation"}
An agent repeating the same commands, editing the same file back and forth,
or cycling without new output is unhealthy.`

// HealthHook implements the PostToolUse hook: steering injection with abort
// semantics, and a periodic watchdog judgment by a fast model. Watchdog
// errors never block the agent.
type HealthHook struct {
	Steering *steering.Queue
	Registry *Registry
	// Judge is the fast model consulted by the watchdog. Nil disables the
	// watchdog.
	Judge llm.Caller

	mu       sync.Mutex
	counters map[string]int
}

// NewHealthHook creates the hook shared by all sessions.
func NewHealthHook(q *steering.Queue, reg *Registry, judge llm.Caller) *HealthHook {
	return &HealthHook{
		Steering: q,
		Registry: reg,
		Judge:    judge,
		counters: make(map[string]int),
	}
}

// PostToolUse runs after every tool call of every registered session.
func (h *HealthHook) PostToolUse(sessionID, toolName string, input json.RawMessage) Decision {
	if d := h.injectSteering(sessionID); !d.Continue {
		return d
	}
	return h.watchdog(sessionID)
}

// injectSteering drains pending steering messages and forwards them to the
// running session. Messages that cannot be delivered are re-pushed so they
// are not lost.
func (h *HealthHook) injectSteering(sessionID string) Decision {
	msgs, err := h.Steering.PopAll(sessionID)
	if err != nil {
		slog.Warn("steering pop failed", "session", sessionID, "err", err)
		return ContinueDecision()
	}
	if len(msgs) == 0 {
		return ContinueDecision()
	}

	for _, m := range msgs {
		if !m.IsAbort {
			continue
		}
		slog.Info("steering abort received", "session", sessionID, "sender", m.Sender)
		// Non-abort messages popped in the same batch go back on the
		// queue so the worker's terminal drain reports them.
		h.repush(sessionID, remaining(msgs))
		return BlockDecision(fmt.Sprintf("Aborted: %s", strings.TrimSpace(m.Text)))
	}

	sess := h.Registry.Lookup(sessionID)
	if sess == nil {
		// Session not registered yet (or already gone): keep the
		// messages queued for the next opportunity.
		h.repush(sessionID, msgs)
		return ContinueDecision()
	}

	prompt := formatSteeringPrompt(msgs)
	if err := sess.Interrupt(); err != nil {
		slog.Warn("steering interrupt failed", "session", sessionID, "err", err)
		h.repush(sessionID, msgs)
		return ContinueDecision()
	}
	if err := sess.Query(prompt); err != nil {
		slog.Warn("steering query failed", "session", sessionID, "err", err)
		h.repush(sessionID, msgs)
		return ContinueDecision()
	}
	slog.Info("steering injected", "session", sessionID, "messages", len(msgs))
	return ContinueDecision()
}

// remaining filters out the abort messages from a popped batch.
func remaining(msgs []steering.Message) []steering.Message {
	var rest []steering.Message
	for _, m := range msgs {
		if !m.IsAbort {
			rest = append(rest, m)
		}
	}
	return rest
}

func (h *HealthHook) repush(sessionID string, msgs []steering.Message) {
	for _, m := range msgs {
		if err := h.Steering.Push(sessionID, m.Text, m.Sender, m.IsAbort); err != nil {
			slog.Error("steering re-push failed, message lost",
				"session", sessionID, "text", m.Text, "err", err)
		}
	}
}

func formatSteeringPrompt(msgs []steering.Message) string {
	var b strings.Builder
	b.WriteString("STEERING MESSAGE")
	if len(msgs) > 1 {
		fmt.Fprintf(&b, " (%d queued)", len(msgs))
	}
	b.WriteString(":\n")
	for _, m := range msgs {
		if m.Sender != "" {
			fmt.Fprintf(&b, "[%s] ", m.Sender)
		}
		b.WriteString(m.Text)
		b.WriteByte('\n')
	}
	b.WriteString("\nIncorporate this guidance and continue the current task.")
	return b.String()
}

// watchdog asks the judge model every watchdogInterval tool calls whether
// the agent is progressing or looping. Fails open on every error path.
func (h *HealthHook) watchdog(sessionID string) Decision {
	if h.Judge == nil {
		return ContinueDecision()
	}

	h.mu.Lock()
	h.counters[sessionID]++
	count := h.counters[sessionID]
	h.mu.Unlock()
	if count%watchdogInterval != 0 {
		return ContinueDecision()
	}

	sess := h.Registry.Lookup(sessionID)
	if sess == nil || sess.LogPath() == "" {
		return ContinueDecision()
	}
	tail, err := TailToolUses(sess.LogPath(), watchdogTailEntries)
	if err != nil || len(tail) == 0 {
		return ContinueDecision()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	out, err := h.Judge.Generate(ctx, watchdogSystemPrompt,
		"Recent tool calls, oldest first:\n"+strings.Join(tail, "\n"), 200)
	if err != nil {
		slog.Warn("watchdog judgment failed, continuing", "session", sessionID, "err", err)
		return ContinueDecision()
	}

	var verdict struct {
		Healthy bool   `json:"healthy"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(extractJSON(out)), &verdict); err != nil {
		slog.Warn("watchdog verdict unparseable, continuing", "session", sessionID, "raw", out)
		return ContinueDecision()
	}
	if !verdict.Healthy {
		slog.Warn("watchdog flagged session", "session", sessionID, "reason", verdict.Reason)
		return BlockDecision("Watchdog: " + verdict.Reason)
	}
	return ContinueDecision()
}

// ResetCounter clears the per-session tool-call counter when a run ends.
func (h *HealthHook) ResetCounter(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.counters, sessionID)
}

// extractJSON pulls the first JSON object out of a model reply that may be
// wrapped in prose or code fences.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}
