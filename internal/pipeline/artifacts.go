// Package pipeline turns raw agent output into a user-deliverable message:
// artifact extraction, summarization with tiered fallback, classification,
// and coaching of auto-continue prompts.
package pipeline

import (
	"regexp"
	"strings"
)

// Artifacts are verifiable fragments of agent output that must survive
// summarization verbatim: commit hashes, URLs, file paths, test results and
// error lines.
type Artifacts struct {
	CommitHashes []string
	URLs         []string
	FilePaths    []string
	TestResults  []string
	ErrorLines   []string
}

var (
	commitHashRe = regexp.MustCompile(`\b[0-9a-f]{7,40}\b`)
	urlRe        = regexp.MustCompile(`https?://[^\s)>\]"']+`)
	filePathRe   = regexp.MustCompile(`\b[\w./-]+/[\w.-]+\.\w{1,8}\b`)
	testResultRe = regexp.MustCompile(`\b\d+ (?:passed|failed)\b`)
)

// Extract scans text for artifacts.
func Extract(text string) Artifacts {
	var a Artifacts
	a.CommitHashes = dedupe(commitHashRe.FindAllString(text, -1))
	a.URLs = dedupe(urlRe.FindAllString(text, -1))
	a.FilePaths = dedupe(filePathRe.FindAllString(text, -1))
	a.TestResults = dedupe(testResultRe.FindAllString(text, -1))

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "error:") || strings.HasPrefix(strings.TrimSpace(lower), "error ") {
			a.ErrorLines = append(a.ErrorLines, strings.TrimSpace(line))
		}
	}
	if len(a.ErrorLines) > 5 {
		a.ErrorLines = a.ErrorLines[:5]
	}
	return a
}

// Empty reports whether no artifacts were found.
func (a Artifacts) Empty() bool {
	return len(a.CommitHashes) == 0 && len(a.URLs) == 0 &&
		len(a.FilePaths) == 0 && len(a.TestResults) == 0
}

// List renders artifacts one per line for inclusion in an LLM prompt.
func (a Artifacts) List() string {
	var b strings.Builder
	appendAll := func(label string, items []string) {
		for _, item := range items {
			b.WriteString(label)
			b.WriteString(item)
			b.WriteByte('\n')
		}
	}
	appendAll("commit: ", a.CommitHashes)
	appendAll("url: ", a.URLs)
	appendAll("file: ", a.FilePaths)
	appendAll("tests: ", a.TestResults)
	appendAll("error: ", a.ErrorLines)
	return b.String()
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	// Cap per category to keep prompts bounded.
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}
