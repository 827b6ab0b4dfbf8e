package config

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError contains details about what failed validation.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// validateConfig checks all config values for validity.
// Returns nil if valid, or joined errors for all validation failures.
func validateConfig(cfg *Config) error {
	var errs []error

	if cfg.DBPath == "" {
		errs = append(errs, &ValidationError{
			Field:   "db_path",
			Value:   cfg.DBPath,
			Message: "must not be empty",
		})
	}

	if cfg.Agent.Command == "" {
		errs = append(errs, &ValidationError{
			Field:   "agent.command",
			Value:   cfg.Agent.Command,
			Message: "must not be empty",
		})
	}

	if cfg.LLM.Provider == "" {
		errs = append(errs, &ValidationError{
			Field:   "llm.provider",
			Value:   cfg.LLM.Provider,
			Message: "must not be empty",
		})
	}

	for _, d := range []struct {
		field string
		value string
	}{
		{"llm.timeout", cfg.LLM.Timeout},
		{"health.interval", cfg.Health.Interval},
		{"health.timeout_default", cfg.Health.TimeoutDefault},
		{"health.timeout_build", cfg.Health.TimeoutBuild},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			errs = append(errs, &ValidationError{
				Field:   d.field,
				Value:   d.value,
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		}
	}

	for key, p := range cfg.Projects {
		if p.WorkingDir == "" {
			errs = append(errs, &ValidationError{
				Field:   fmt.Sprintf("projects.%s.working_dir", key),
				Value:   p.WorkingDir,
				Message: "must not be empty",
			})
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, &ValidationError{
			Field:   "log_level",
			Value:   cfg.LogLevel,
			Message: "must be one of: debug, info, warn, error",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
