// Package config loads and validates the orchestrator's YAML configuration.
package config

import "time"

// Config is the root configuration for the orchestrator server.
type Config struct {
	Version int `yaml:"version"`

	Server       ServerConfig       `yaml:"server"`
	Checkpoint   CheckpointConfig   `yaml:"checkpoint"`
	LLM          LLMConfig          `yaml:"llm"`
	Router       RouterConfig       `yaml:"router"`
	Safety       SafetyConfig       `yaml:"safety"`
	Tools        ToolsConfig        `yaml:"tools"`
	Agents       AgentsConfig       `yaml:"agents"`
	Logging      LoggingConfig      `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	MetricsPort int           `yaml:"metrics_port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

// CheckpointConfig configures the checkpoint store.
type CheckpointConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver"`
	// DSN is the sqlite file path (ignored for the memory driver).
	DSN string `yaml:"dsn"`
}

// RouterConfig configures the fallback chain.
type RouterConfig struct {
	// StructuredModel is the model used at L0/L2 for structured-output calls.
	PrimaryProvider   string `yaml:"primary_provider"`
	SecondaryProvider string `yaml:"secondary_provider"`
	// KeywordRules is the L3 deterministic fallback table, agent name -> keywords.
	KeywordRules map[string][]string `yaml:"keyword_rules"`
}

// SafetyConfig configures the safety envelope.
type SafetyConfig struct {
	MaxTurns               int           `yaml:"max_turns"`
	MaxRetries             int           `yaml:"max_retries"`
	CircuitBreakerThreshold int          `yaml:"circuit_breaker_threshold"`
	CircuitBreakerCooldown time.Duration `yaml:"circuit_breaker_cooldown"`
}

// ToolsConfig configures the tool registry.
type ToolsConfig struct {
	WorkspaceRoot     string        `yaml:"workspace_root"`
	ShellTimeout      time.Duration `yaml:"shell_timeout"`
	MaxOutputBytes    int           `yaml:"max_output_bytes"`
	HTTPMaxBodyBytes  int64         `yaml:"http_max_body_bytes"`
	ToolCallConcurrency int         `yaml:"tool_call_concurrency"`
}

// AgentsConfig configures the agent registry and plugin loading.
type AgentsConfig struct {
	PluginDir      string `yaml:"plugin_dir"`
	WatchPlugins   bool   `yaml:"watch_plugins"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	PrometheusEnabled bool          `yaml:"prometheus_enabled"`
	Tracing           TracingConfig `yaml:"tracing"`
}

// TracingConfig configures OpenTelemetry span export. An empty Endpoint
// disables tracing (the tracer becomes a no-op).
type TracingConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
	Environment    string  `yaml:"environment"`
	SamplingRate   float64 `yaml:"sampling_rate"`
	Insecure       bool    `yaml:"insecure"`
}

// Default returns a Config populated with production-sane defaults.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			MetricsPort:       9090,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Checkpoint: CheckpointConfig{
			Driver: "sqlite",
			DSN:    "orchestrator.db",
		},
		LLM: LLMConfig{
			DefaultProvider: "anthropic",
			Providers: map[string]LLMProviderConfig{
				"anthropic": {DefaultModel: "claude-sonnet-4-5"},
				"openai":    {DefaultModel: "gpt-4o"},
			},
		},
		Router: RouterConfig{
			PrimaryProvider:   "anthropic",
			SecondaryProvider: "openai",
			KeywordRules:      DefaultKeywordRules(),
		},
		Safety: SafetyConfig{
			MaxTurns:                25,
			MaxRetries:              3,
			CircuitBreakerThreshold: 3,
			CircuitBreakerCooldown:  30 * time.Second,
		},
		Tools: ToolsConfig{
			WorkspaceRoot:       ".",
			ShellTimeout:        30 * time.Second,
			MaxOutputBytes:      64000,
			HTTPMaxBodyBytes:    1 << 20,
			ToolCallConcurrency: 4,
		},
		Agents: AgentsConfig{
			PluginDir:    "agents.d",
			WatchPlugins: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Observability: ObservabilityConfig{
			PrometheusEnabled: true,
			Tracing: TracingConfig{
				ServiceName:  "orchestrator",
				SamplingRate: 1.0,
			},
		},
	}
}

// LLMConfig configures the LLM gateway's providers.
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`
}

// LLMProviderConfig configures a single LLM provider.
type LLMProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url"`
}

// DefaultKeywordRules returns the L3 deterministic routing table.
func DefaultKeywordRules() map[string][]string {
	return map[string][]string{
		"market_analyst":        {"market", "competitor", "tam", "sam", "pricing"},
		"prioritizer":           {"prioritize", "roadmap", "backlog", "tradeoff"},
		"designer":              {"wireframe", "mockup", "ui", "layout", "visual"},
		"ux_researcher":         {"user research", "interview", "persona", "usability"},
		"information_architect": {"sitemap", "navigation", "taxonomy", "ia"},
		"architect":             {"architecture", "schema", "api design", "system design"},
		"builder":               {"implement", "code", "write the", "build the"},
		"test_engineer":         {"test", "coverage", "unit test", "regression"},
		"sre":                   {"deploy", "rollout", "incident", "monitoring"},
		"security":              {"vulnerability", "security review", "threat", "cve"},
		"code_reviewer":         {"review this", "code review", "lint", "refactor"},
		"release_manager":       {"release", "changelog", "version bump", "ship"},
	}
}
