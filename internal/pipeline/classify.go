package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/stewardhq/steward/internal/llm"
)

// OutputType categorizes an agent's terminal response.
type OutputType string

const (
	OutputStatusUpdate OutputType = "STATUS_UPDATE"
	OutputQuestion     OutputType = "QUESTION"
	OutputCompletion   OutputType = "COMPLETION"
	OutputBlocker      OutputType = "BLOCKER"
	OutputError        OutputType = "ERROR"
)

// ClassificationResult decides whether output warrants delivery or a silent
// continue.
type ClassificationResult struct {
	OutputType OutputType
	Confidence float64
	Reason     string
	// WasRejectedCompletion is true when the agent claimed completion
	// without verification evidence and with hedging language.
	WasRejectedCompletion bool
}

const classifySystemPrompt = `Classify a coding agent's final message into exactly one category:
STATUS_UPDATE - progress report, work not finished
QUESTION - the agent needs an answer from the user
COMPLETION - the task is done
BLOCKER - the agent cannot proceed
ERROR - something failed
Reply with JSON only: {"output_type": "...", "confidence": 0.0-1.0, "reason": "brief"}`

// Classifier labels agent output via an LLM with a rule-based fallback.
type Classifier struct {
	LLM llm.Caller
}

// Classify labels text. LLM failures degrade to keyword rules so the worker
// can always make an auto-continue decision.
func (c *Classifier) Classify(ctx context.Context, text string) ClassificationResult {
	result := c.llmClassify(ctx, text)
	if result == nil {
		result = ruleClassify(text)
	}
	if result.OutputType == OutputCompletion {
		result.WasRejectedCompletion = isRejectedCompletion(text)
	}
	return *result
}

func (c *Classifier) llmClassify(ctx context.Context, text string) *ClassificationResult {
	if c.LLM == nil {
		return nil
	}
	out, err := c.LLM.Generate(ctx, classifySystemPrompt, Truncate(text, 4000), 150)
	if err != nil {
		slog.Warn("classification LLM call failed, using rules", "err", err)
		return nil
	}
	var parsed struct {
		OutputType string  `json:"output_type"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(extractJSON(out)), &parsed); err != nil {
		slog.Warn("classification reply unparseable, using rules", "raw", out)
		return nil
	}
	switch OutputType(parsed.OutputType) {
	case OutputStatusUpdate, OutputQuestion, OutputCompletion, OutputBlocker, OutputError:
		return &ClassificationResult{
			OutputType: OutputType(parsed.OutputType),
			Confidence: parsed.Confidence,
			Reason:     parsed.Reason,
		}
	default:
		slog.Warn("classification returned unknown type", "type", parsed.OutputType)
		return nil
	}
}

// ruleClassify is the degraded-mode classifier.
func ruleClassify(text string) *ClassificationResult {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "error:") || strings.Contains(lower, "traceback") ||
		strings.Contains(lower, "fatal:"):
		return &ClassificationResult{OutputType: OutputError, Confidence: 0.5, Reason: "error markers"}
	case strings.Contains(lower, "blocked") || strings.Contains(lower, "cannot proceed"):
		return &ClassificationResult{OutputType: OutputBlocker, Confidence: 0.5, Reason: "blocker markers"}
	case strings.HasSuffix(strings.TrimSpace(text), "?"):
		return &ClassificationResult{OutputType: OutputQuestion, Confidence: 0.5, Reason: "trailing question"}
	case hasCompletionFrame(lower):
		return &ClassificationResult{OutputType: OutputCompletion, Confidence: 0.5, Reason: "completion markers"}
	default:
		return &ClassificationResult{OutputType: OutputStatusUpdate, Confidence: 0.4, Reason: "default"}
	}
}

var completionWords = []string{"done", "completed", "complete", "finished", "implemented", "fixed"}

var hedgingWords = []string{"should work", "probably", "i think", "likely", "might", "i believe"}

func hasCompletionFrame(lower string) bool {
	for _, w := range completionWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// isRejectedCompletion flags completion claims that carry hedging language
// and no verification evidence (commits, test output, file paths).
func isRejectedCompletion(text string) bool {
	lower := strings.ToLower(text)
	if !hasCompletionFrame(lower) {
		return false
	}
	if !Extract(text).Empty() {
		return false
	}
	for _, w := range hedgingWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// extractJSON pulls the first JSON object out of a model reply.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}
