package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/stewardhq/steward/internal/llm"
)

const (
	// SummarizeThreshold: output at or below this length passes through
	// untouched.
	SummarizeThreshold = 1500
	// FileAttachThreshold: output above this length is also written to a
	// temp file for attachment.
	FileAttachThreshold = 3000
	// MaxSummaryChars is the target length requested from the model.
	MaxSummaryChars = 1200
	// PlatformMessageLimit is the hard cap of the chat platform.
	PlatformMessageLimit = 4096
)

const summarySystemPrompt = `You compress coding-agent reports for chat delivery.
Rules:
- Keep it under %d characters.
- Every artifact listed below MUST appear verbatim in your summary.
- Preserve outcomes and next steps; drop narration.
Artifacts:
%s`

// Summary is the deliverable form of agent output.
type Summary struct {
	Text string
	// AttachmentPath holds the full output when it exceeded the attach
	// threshold; empty otherwise.
	AttachmentPath string
	Artifacts      Artifacts
}

// Summarizer condenses long agent output. Primary model, then fallback
// model, then hard truncation.
type Summarizer struct {
	LLM llm.Caller
}

// Summarize produces the deliverable text for raw agent output.
func (s *Summarizer) Summarize(ctx context.Context, raw string) Summary {
	if len(raw) <= SummarizeThreshold {
		return Summary{Text: raw}
	}

	out := Summary{Artifacts: Extract(raw)}
	if len(raw) > FileAttachThreshold {
		out.AttachmentPath = writeAttachment(raw)
	}

	if s.LLM != nil {
		system := fmt.Sprintf(summarySystemPrompt, MaxSummaryChars, out.Artifacts.List())
		text, err := s.LLM.Generate(ctx, system, raw, MaxSummaryChars/2)
		if err == nil && text != "" {
			out.Text = text
			return out
		}
		slog.Warn("summarization failed, truncating", "err", err)
	}

	out.Text = Truncate(raw, PlatformMessageLimit)
	return out
}

// Truncate hard-caps text at limit with an ellipsis.
func Truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return strings.TrimSpace(text[:limit-1]) + "…"
}

func writeAttachment(raw string) string {
	f, err := os.CreateTemp("", "steward-output-*.txt")
	if err != nil {
		slog.Warn("attachment temp file failed", "err", err)
		return ""
	}
	defer f.Close()
	if _, err := f.WriteString(raw); err != nil {
		slog.Warn("attachment write failed", "err", err)
		return ""
	}
	return f.Name()
}
