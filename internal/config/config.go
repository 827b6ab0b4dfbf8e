// Package config loads and validates orchestrator configuration from
// steward.yaml with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the orchestrator.
// It is immutable after creation via Load().
type Config struct {
	// DBPath is the SQLite database file for jobs and steering messages.
	// Relative paths are resolved from the config directory.
	DBPath string `yaml:"db_path"`

	// Agent contains agent CLI invocation settings
	Agent AgentConfig `yaml:"agent"`

	// LLM configures the summarization/classification model
	LLM LLMConfig `yaml:"llm"`

	// Health configures the background job health monitor
	Health HealthConfig `yaml:"health"`

	// Projects maps a project key to its workspace settings
	Projects map[string]ProjectConfig `yaml:"projects"`

	// LogLevel controls log verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`
}

// AgentConfig controls agent CLI invocation.
type AgentConfig struct {
	// Command is the path or name of the agent CLI binary
	Command string `yaml:"command"`

	// SystemPromptFile is appended to every agent run unless a project
	// overrides it
	SystemPromptFile string `yaml:"system_prompt_file,omitempty"`

	// LogDir receives per-session JSONL transcripts
	LogDir string `yaml:"log_dir"`
}

// LLMConfig selects the model used for summarization, classification, and
// the watchdog. Fallback fields name a second provider tried when the
// primary fails.
type LLMConfig struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model,omitempty"`
	FallbackProvider string `yaml:"fallback_provider,omitempty"`
	FallbackModel    string `yaml:"fallback_model,omitempty"`

	// Timeout bounds a single LLM call, as a Go duration string
	Timeout string `yaml:"timeout"`
}

// HealthConfig controls the job health monitor.
type HealthConfig struct {
	// Interval between sweeps, as a Go duration string
	Interval string `yaml:"interval"`

	// TimeoutDefault and TimeoutBuild bound ordinary and build-workflow
	// jobs respectively
	TimeoutDefault string `yaml:"timeout_default"`
	TimeoutBuild   string `yaml:"timeout_build"`
}

// ProjectConfig describes one managed workspace.
type ProjectConfig struct {
	// WorkingDir is the git checkout root for this project
	WorkingDir string `yaml:"working_dir"`

	// AutoMerge merges finished session branches back to main; when false
	// they are pushed and parked
	AutoMerge bool `yaml:"auto_merge"`

	// SystemPromptFile overrides agent.system_prompt_file for this project
	SystemPromptFile string `yaml:"system_prompt_file,omitempty"`
}

// IntervalDuration parses the health sweep interval.
func (c *Config) IntervalDuration() (time.Duration, error) {
	return time.ParseDuration(c.Health.Interval)
}

// LLMTimeoutDuration parses the LLM call timeout.
func (c *Config) LLMTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.LLM.Timeout)
}

// Load reads configuration from path. It applies defaults, then file
// values, then environment overrides, then validates.
//
// A missing file is not an error; defaults plus environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	// Resolve the DB path against the config file's directory
	if !filepath.IsAbs(cfg.DBPath) {
		cfg.DBPath = filepath.Join(filepath.Dir(path), cfg.DBPath)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
