package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for crewd.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Log           LogConfig           `koanf:"log"`
	Observability ObservabilityConfig `koanf:"observability"`
	Session       SessionConfig       `koanf:"session"`
	Checkpoint    CheckpointConfig    `koanf:"checkpoint"`
	LLM           LLMConfig           `koanf:"llm"`
	Events        EventsConfig        `koanf:"events"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "json" or "console"
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	OTLPEndpoint    string `koanf:"otlp_endpoint"`
	OTLPProtocol    string `koanf:"otlp_protocol"` // "grpc" or "http"
}

// SessionConfig holds per-run execution ceilings.
type SessionConfig struct {
	IterationLimit int `koanf:"iteration_limit"`
	StepLimit      int `koanf:"step_limit"`
}

// CheckpointConfig controls the approval gate between stages.
type CheckpointConfig struct {
	// Timeout is how long a checkpoint waits for a human response.
	// Zero means wait indefinitely. A positive value treats expiry
	// as approval.
	Timeout Duration `koanf:"timeout"`
	// Disabled skips all checkpoints; runs proceed without approval.
	Disabled bool `koanf:"disabled"`
}

// LLMConfig holds provider credentials and model routing.
type LLMConfig struct {
	AnthropicAPIKey Secret `koanf:"anthropic_api_key"`
	GoogleAPIKey    Secret `koanf:"google_api_key"`
	OpenAIAPIKey    Secret `koanf:"openai_api_key"`

	// OrchestratorModel drives planning and freeform decisions.
	OrchestratorModel string `koanf:"orchestrator_model"`

	// RateLimitRPS and RateLimitBurst bound outbound provider calls.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// MCPCommand launches the database tool server for the data
	// engineer worker. Empty disables tool calls.
	MCPCommand string   `koanf:"mcp_command"`
	MCPArgs    []string `koanf:"mcp_args"`
}

// EventsConfig selects the event transport.
type EventsConfig struct {
	// NATSURL connects event publishing to a NATS server. Empty
	// falls back to the in-process bus.
	NATSURL string `koanf:"nats_url"`
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.http_port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout cannot be negative")
	}
	if c.Session.IterationLimit < 1 {
		return fmt.Errorf("session.iteration_limit must be positive, got %d", c.Session.IterationLimit)
	}
	if c.Session.StepLimit < 1 {
		return fmt.Errorf("session.step_limit must be positive, got %d", c.Session.StepLimit)
	}
	if c.Checkpoint.Timeout < 0 {
		return fmt.Errorf("checkpoint.timeout cannot be negative")
	}
	if c.LLM.RateLimitRPS < 0 {
		return fmt.Errorf("llm.rate_limit_rps cannot be negative")
	}
	if c.LLM.RateLimitBurst < 0 {
		return fmt.Errorf("llm.rate_limit_burst cannot be negative")
	}
	switch c.Observability.OTLPProtocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("observability.otlp_protocol must be grpc or http, got %q", c.Observability.OTLPProtocol)
	}
	return nil
}
