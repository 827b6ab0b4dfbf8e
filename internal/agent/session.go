package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Options configures a session launch.
type Options struct {
	// Command is the agent CLI binary. Defaults to "claude".
	Command string
	// SystemPromptFile is read and passed as an appended system prompt.
	// Missing file is not an error; the agent runs with its defaults.
	SystemPromptFile string
	SessionID        string
	WorkingDir       string
	// APIKey is injected into the child environment.
	APIKey string
	// LogDir receives the raw JSONL transcript for this run. The watchdog
	// reads its tail.
	LogDir string
	// Hook fires after each tool use. Optional.
	Hook Hook
	// Resume continues a prior conversation with the same session ID.
	Resume bool
}

// Session owns a running agent subprocess: its stdin for queries and
// interrupts, a reader goroutine draining stdout, and the accumulated
// terminal text.
type Session struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	sessionID string
	logPath   string

	mu       sync.Mutex
	textBuf  strings.Builder
	result   *ResultMessage
	stopped  string // hook stop reason, if any
	readErr  error
	done     chan struct{}
	doneOnce sync.Once
}

// Start launches the agent subprocess and begins draining its output.
func Start(ctx context.Context, opts Options) (*Session, error) {
	if opts.SessionID == "" {
		return nil, fmt.Errorf("agent start: empty session id")
	}
	if opts.WorkingDir == "" {
		return nil, fmt.Errorf("agent start: empty working dir")
	}
	command := opts.Command
	if command == "" {
		command = "claude"
	}

	args := []string{
		"--output-format", "stream-json",
		"--input-format", "stream-json",
		"--verbose",
		"--dangerously-skip-permissions",
	}
	if opts.Resume {
		args = append(args, "--resume", opts.SessionID)
	} else {
		args = append(args, "--session-id", opts.SessionID)
	}
	if opts.SystemPromptFile != "" {
		if data, err := os.ReadFile(opts.SystemPromptFile); err == nil {
			args = append(args, "--append-system-prompt", string(data))
		} else {
			slog.Warn("system prompt file unreadable", "path", opts.SystemPromptFile, "err", err)
		}
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = opts.WorkingDir
	cmd.Env = os.Environ()
	if opts.APIKey != "" {
		cmd.Env = append(cmd.Env, "ANTHROPIC_API_KEY="+opts.APIKey)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("agent stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("agent stdout: %w", err)
	}
	cmd.Stderr = os.Stderr

	s := &Session{
		cmd:       cmd,
		stdin:     stdin,
		sessionID: opts.SessionID,
		done:      make(chan struct{}),
	}

	var logW io.WriteCloser
	if opts.LogDir != "" {
		logW, err = s.openLog(opts.LogDir)
		if err != nil {
			slog.Warn("transcript log unavailable", "session", opts.SessionID, "err", err)
		}
	}

	if err := cmd.Start(); err != nil {
		if logW != nil {
			logW.Close()
		}
		return nil, fmt.Errorf("start agent %q: %w", command, err)
	}

	go s.readLoop(stdout, logW, opts.Hook)
	return s, nil
}

func (s *Session) openLog(dir string) (io.WriteCloser, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	name := strings.ReplaceAll(s.sessionID, "/", "-") + ".jsonl"
	s.logPath = filepath.Join(dir, name)
	return os.OpenFile(s.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// readLoop drains the child's stdout, accumulating assistant text, firing
// the hook on tool use, and capturing the terminal ResultMessage.
func (s *Session) readLoop(stdout io.Reader, logW io.WriteCloser, hook Hook) {
	defer func() {
		if logW != nil {
			logW.Close()
		}
		waitErr := s.cmd.Wait()
		s.mu.Lock()
		if s.result == nil && s.readErr == nil && waitErr != nil && s.stopped == "" {
			s.readErr = fmt.Errorf("agent exited: %w", waitErr)
		}
		s.mu.Unlock()
		s.doneOnce.Do(func() { close(s.done) })
	}()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if logW != nil {
			logW.Write(append(append([]byte{}, line...), '\n'))
		}

		var ev wireEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			slog.Warn("skipping malformed agent line", "session", s.sessionID, "err", err)
			continue
		}
		switch ev.Type {
		case "assistant":
			if ev.Message == nil {
				continue
			}
			for _, block := range ev.Message.Content {
				switch block.Type {
				case "text":
					s.mu.Lock()
					if s.textBuf.Len() > 0 {
						s.textBuf.WriteByte('\n')
					}
					s.textBuf.WriteString(block.Text)
					s.mu.Unlock()
				case "tool_use":
					if hook == nil {
						continue
					}
					decision := hook.PostToolUse(s.sessionID, block.Name, block.Input)
					if !decision.Continue {
						s.mu.Lock()
						s.stopped = decision.StopReason
						s.mu.Unlock()
						if err := s.Interrupt(); err != nil {
							slog.Warn("interrupt after block decision failed",
								"session", s.sessionID, "err", err)
						}
						s.stdin.Close()
					}
				}
			}
		case "result":
			s.mu.Lock()
			s.result = &ResultMessage{
				Subtype:       ev.Subtype,
				DurationMs:    ev.DurationMs,
				DurationAPIMs: ev.DurationAPIMs,
				NumTurns:      ev.NumTurns,
				SessionID:     ev.SessionID,
				TotalCostUSD:  ev.TotalCostUSD,
				IsError:       ev.IsError,
				Result:        ev.Result,
			}
			s.mu.Unlock()
			s.stdin.Close()
		}
	}
	if err := scanner.Err(); err != nil {
		s.mu.Lock()
		s.readErr = fmt.Errorf("reading agent output: %w", err)
		s.mu.Unlock()
	}
}

// Query sends a user-role message to the agent.
func (s *Session) Query(text string) error {
	msg := map[string]any{
		"type": "user",
		"message": map[string]any{
			"role": "user",
			"content": []map[string]any{
				{"type": "text", "text": text},
			},
		},
	}
	return s.writeLine(msg)
}

// Interrupt asks the agent to stop its current action without killing the
// process.
func (s *Session) Interrupt() error {
	return s.writeLine(map[string]any{
		"type":    "control_request",
		"request": map[string]any{"subtype": "interrupt"},
	})
}

func (s *Session) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode agent input: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write agent input: %w", err)
	}
	return nil
}

// Done is closed when the child has exited and its output is drained.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the run finishes and returns the terminal result. When
// the hook blocked the session, the returned message carries the stop reason
// and whatever partial output exists.
func (s *Session) Wait() (*ResultMessage, string, error) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()

	text := s.textBuf.String()
	if s.result != nil {
		return s.result, text, nil
	}
	if s.stopped != "" {
		return &ResultMessage{
			Subtype:   ResultSubtypeBlocked,
			SessionID: s.sessionID,
			Result:    s.stopped,
		}, text, nil
	}
	return nil, text, s.readErr
}

// Close closes stdin, signaling the agent to wrap up.
func (s *Session) Close() {
	s.stdin.Close()
}

// LogPath returns the raw JSONL transcript path, empty when logging was
// disabled.
func (s *Session) LogPath() string {
	return s.logPath
}
