// Package agent launches the coding-agent CLI as a child process with
// JSON-lines framing on stdin/stdout and exposes query/interrupt handles for
// the lifetime of the run.
package agent

import "encoding/json"

// ContentBlock is one entry of an assistant message's content array.
type ContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// AssistantMessage is a single assistant turn.
type AssistantMessage struct {
	Model   string         `json:"model"`
	Content []ContentBlock `json:"content"`
}

// ResultSubtypeBlocked marks a synthetic result minted when a hook stopped
// the run instead of the agent finishing on its own.
const ResultSubtypeBlocked = "blocked"

// ResultMessage terminates a run and carries its accounting.
type ResultMessage struct {
	Subtype       string  `json:"subtype"`
	DurationMs    int64   `json:"duration_ms"`
	DurationAPIMs int64   `json:"duration_api_ms"`
	NumTurns      int     `json:"num_turns"`
	SessionID     string  `json:"session_id"`
	TotalCostUSD  float64 `json:"total_cost_usd"`
	IsError       bool    `json:"is_error"`
	Result        string  `json:"result"`
}

// Blocked reports whether a hook terminated the run; Result then holds the
// stop reason rather than agent output.
func (r *ResultMessage) Blocked() bool {
	return r.Subtype == ResultSubtypeBlocked
}

// wireEvent is one JSONL line read from the child process.
type wireEvent struct {
	Type    string            `json:"type"`
	Message *AssistantMessage `json:"message,omitempty"`

	// Result fields are inlined on type == "result" lines.
	Subtype       string  `json:"subtype,omitempty"`
	DurationMs    int64   `json:"duration_ms,omitempty"`
	DurationAPIMs int64   `json:"duration_api_ms,omitempty"`
	NumTurns      int     `json:"num_turns,omitempty"`
	SessionID     string  `json:"session_id,omitempty"`
	TotalCostUSD  float64 `json:"total_cost_usd,omitempty"`
	IsError       bool    `json:"is_error,omitempty"`
	Result        string  `json:"result,omitempty"`
}

// Decision is returned by the PostToolUse hook. Continue false terminates
// the session with StopReason surfaced as the run's result.
type Decision struct {
	Continue   bool
	StopReason string
}

// ContinueDecision is the default hook outcome.
func ContinueDecision() Decision {
	return Decision{Continue: true}
}

// BlockDecision stops the session with the given reason.
func BlockDecision(reason string) Decision {
	return Decision{Continue: false, StopReason: reason}
}

// Hook fires after every tool call the agent makes. sessionID identifies the
// steering queue; toolName and input describe the call just completed.
type Hook interface {
	PostToolUse(sessionID, toolName string, input json.RawMessage) Decision
}
