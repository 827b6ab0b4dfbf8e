package agent

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// TailToolUses reads the raw JSONL transcript at path and returns one-line
// summaries of the last n tool calls, oldest first.
func TailToolUses(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var summaries []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev wireEvent
		if err := json.Unmarshal(line, &ev); err != nil || ev.Message == nil {
			continue
		}
		if ev.Type != "assistant" {
			continue
		}
		for _, block := range ev.Message.Content {
			if block.Type != "tool_use" {
				continue
			}
			summaries = append(summaries, summarizeToolUse(block.Name, block.Input))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	if len(summaries) > n {
		summaries = summaries[len(summaries)-n:]
	}
	return summaries, nil
}

// summarizeToolUse renders a tool call as "Name: key detail" for the
// watchdog prompt.
func summarizeToolUse(name string, input json.RawMessage) string {
	if len(input) == 0 {
		return name
	}
	var data map[string]any
	if err := json.Unmarshal(input, &data); err != nil {
		return name
	}
	for _, key := range []string{"file_path", "path", "command", "pattern", "description"} {
		if v, ok := data[key].(string); ok && v != "" {
			v = strings.ReplaceAll(v, "\n", " ")
			if len(v) > 80 {
				v = v[:77] + "..."
			}
			return name + ": " + v
		}
	}
	return name
}
