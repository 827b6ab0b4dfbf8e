package pipeline

import (
	"fmt"
	"os"
	"strings"
)

// maxCriteriaChars caps how much of a plan's success criteria the coach
// quotes back to the agent.
const maxCriteriaChars = 500

// Skill maps a slash-command prefix to the evidence the agent should show
// when continuing under that workflow.
type Skill struct {
	Prefix       string
	EvidenceHint string
}

// skillRegistry is checked by prefix match against the originating message.
var skillRegistry = []Skill{
	{Prefix: "/do-plan", EvidenceHint: "Show the written plan file path and its key milestones."},
	{Prefix: "/do-build", EvidenceHint: "Show build output and the commit hash of the implementation."},
	{Prefix: "/do-test", EvidenceHint: "Show the test command you ran and its pass/fail counts."},
	{Prefix: "/do-docs", EvidenceHint: "Show the documentation files you changed."},
}

// ContinuePrompt selects the content of an auto-continue prompt. It never
// guesses: when no rule applies it degrades to the literal "continue".
func ContinuePrompt(class ClassificationResult, activePlanPath, messageText string) string {
	if class.WasRejectedCompletion {
		return "Your previous message claimed completion without verification evidence. " +
			"Continue working, and when you finish, include concrete evidence: " +
			"commit hashes, test output, and the paths of files you changed."
	}

	if activePlanPath != "" {
		criteria, ok := parseSuccessCriteria(activePlanPath)
		if ok {
			return fmt.Sprintf(
				"Continue. The active plan's success criteria are:\n%s\nWork toward these before reporting completion.",
				criteria)
		}
		return fmt.Sprintf("Continue. Check the active plan at %s for the remaining work.", activePlanPath)
	}

	for _, skill := range skillRegistry {
		if strings.HasPrefix(messageText, skill.Prefix) {
			return "Continue. " + skill.EvidenceHint
		}
	}

	return "continue"
}

// parseSuccessCriteria extracts the "## Success Criteria" section from a
// plan file. Returns false when the file or section cannot be read cleanly.
func parseSuccessCriteria(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	lines := strings.Split(string(data), "\n")
	var section []string
	in := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.EqualFold(trimmed, "## Success Criteria") {
			in = true
			continue
		}
		if in && strings.HasPrefix(trimmed, "## ") {
			break
		}
		if in {
			section = append(section, line)
		}
	}
	text := strings.TrimSpace(strings.Join(section, "\n"))
	if text == "" {
		return "", false
	}
	if len(text) > maxCriteriaChars {
		text = text[:maxCriteriaChars]
	}
	return text, true
}
