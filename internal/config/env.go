package config

import "os"

// envOverrides maps environment variables to config field setters.
var envOverrides = []struct {
	envVar string
	apply  func(*Config, string)
}{
	{
		envVar: "STEWARD_DB_PATH",
		apply: func(c *Config, v string) {
			c.DBPath = v
		},
	},
	{
		envVar: "STEWARD_AGENT_CMD",
		apply: func(c *Config, v string) {
			c.Agent.Command = v
		},
	},
	{
		envVar: "STEWARD_LLM_PROVIDER",
		apply: func(c *Config, v string) {
			c.LLM.Provider = v
		},
	},
	{
		envVar: "STEWARD_LLM_MODEL",
		apply: func(c *Config, v string) {
			c.LLM.Model = v
		},
	},
	{
		envVar: "STEWARD_LOG_LEVEL",
		apply: func(c *Config, v string) {
			c.LogLevel = v
		},
	},
}

// applyEnvOverrides modifies config in place with environment variable values.
func applyEnvOverrides(cfg *Config) {
	for _, override := range envOverrides {
		if val := os.Getenv(override.envVar); val != "" {
			override.apply(cfg, val)
		}
	}
}
