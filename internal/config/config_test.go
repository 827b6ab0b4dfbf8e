package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "steward.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Agent.Command != DefaultAgentCommand {
		t.Errorf("expected default agent command, got %q", cfg.Agent.Command)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("expected default log level, got %q", cfg.LogLevel)
	}
}

func TestLoad_FileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steward.yaml")
	content := `
agent:
  command: /usr/local/bin/claude
llm:
  provider: openai
  model: gpt-4o-mini
projects:
  api:
    working_dir: /srv/api
    auto_merge: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Agent.Command != "/usr/local/bin/claude" {
		t.Errorf("agent command not loaded, got %q", cfg.Agent.Command)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("llm provider not loaded, got %q", cfg.LLM.Provider)
	}
	p, ok := cfg.Projects["api"]
	if !ok {
		t.Fatal("project api missing")
	}
	if p.WorkingDir != "/srv/api" || !p.AutoMerge {
		t.Errorf("project fields wrong: %+v", p)
	}
}

func TestLoad_RelativeDBPathResolved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steward.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(dir, DefaultDBPath)
	if cfg.DBPath != want {
		t.Errorf("expected DBPath %q, got %q", want, cfg.DBPath)
	}
}

func TestLoad_InvalidDurationRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steward.yaml")
	if err := os.WriteFile(path, []byte("health:\n  interval: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for bad duration")
	}
}

func TestEnvOverrides_AgentCmd(t *testing.T) {
	cfg := Default()
	t.Setenv("STEWARD_AGENT_CMD", "/custom/agent")

	applyEnvOverrides(cfg)

	if cfg.Agent.Command != "/custom/agent" {
		t.Errorf("expected Agent.Command to be '/custom/agent', got '%s'", cfg.Agent.Command)
	}
}

func TestEnvOverrides_EmptyNoChange(t *testing.T) {
	cfg := Default()
	t.Setenv("STEWARD_AGENT_CMD", "")
	t.Setenv("STEWARD_LLM_PROVIDER", "")

	applyEnvOverrides(cfg)

	if cfg.Agent.Command != DefaultAgentCommand {
		t.Errorf("expected Agent.Command unchanged, got '%s'", cfg.Agent.Command)
	}
	if cfg.LLM.Provider != DefaultLLMProvider {
		t.Errorf("expected LLM.Provider unchanged, got '%s'", cfg.LLM.Provider)
	}
}

func TestValidate_EmptyWorkingDir(t *testing.T) {
	cfg := Default()
	cfg.Projects["bad"] = ProjectConfig{}

	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for empty working_dir")
	}
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"

	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for invalid log level")
	}
}
