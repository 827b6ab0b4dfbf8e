package config

const (
	DefaultDBPath         = "steward.db"
	DefaultAgentCommand   = "claude"
	DefaultAgentLogDir    = "logs"
	DefaultLLMProvider    = "anthropic"
	DefaultLLMTimeout     = "30s"
	DefaultHealthInterval = "5m"
	DefaultTimeoutDefault = "45m"
	DefaultTimeoutBuild   = "150m"
	DefaultLogLevel       = "info"
)

// Default returns a Config with all default values applied.
func Default() *Config {
	return &Config{
		DBPath: DefaultDBPath,
		Agent: AgentConfig{
			Command: DefaultAgentCommand,
			LogDir:  DefaultAgentLogDir,
		},
		LLM: LLMConfig{
			Provider: DefaultLLMProvider,
			Timeout:  DefaultLLMTimeout,
		},
		Health: HealthConfig{
			Interval:       DefaultHealthInterval,
			TimeoutDefault: DefaultTimeoutDefault,
			TimeoutBuild:   DefaultTimeoutBuild,
		},
		Projects: map[string]ProjectConfig{},
		LogLevel: DefaultLogLevel,
	}
}
