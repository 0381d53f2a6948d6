package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfigFile(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8420, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "crewd", cfg.Observability.ServiceName)
	assert.Equal(t, "grpc", cfg.Observability.OTLPProtocol)
	assert.Equal(t, 5, cfg.Session.IterationLimit)
	assert.Equal(t, 15, cfg.Session.StepLimit)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.OrchestratorModel)
	assert.Equal(t, 2.0, cfg.LLM.RateLimitRPS)
	assert.Equal(t, 4, cfg.LLM.RateLimitBurst)
	assert.Zero(t, cfg.Checkpoint.Timeout)
	assert.False(t, cfg.Checkpoint.Disabled)
	assert.Empty(t, cfg.Events.NATSURL)
}

func TestLoad_YAMLValues(t *testing.T) {
	path := writeConfigFile(t, `
server:
  http_port: 9999
  shutdown_timeout: 5s
session:
  iteration_limit: 3
  step_limit: 8
checkpoint:
  timeout: 2m
llm:
  anthropic_api_key: sk-ant-test
  orchestrator_model: claude-opus-4-5-20251101
events:
  nats_url: nats://localhost:4222
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 3, cfg.Session.IterationLimit)
	assert.Equal(t, 8, cfg.Session.StepLimit)
	assert.Equal(t, 2*time.Minute, cfg.Checkpoint.Timeout.Duration())
	assert.Equal(t, "sk-ant-test", cfg.LLM.AnthropicAPIKey.Value())
	assert.Equal(t, "claude-opus-4-5-20251101", cfg.LLM.OrchestratorModel)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATSURL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  http_port: 9999\n")

	t.Setenv("SERVER_HTTP_PORT", "7777")
	t.Setenv("SESSION_ITERATION_LIMIT", "2")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Session.IterationLimit)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8420, cfg.Server.Port)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"port out of range", "server:\n  http_port: 99999\n", "http_port"},
		{"zero iteration limit", "session:\n  iteration_limit: -1\n", "iteration_limit"},
		{"zero step limit", "session:\n  step_limit: -1\n", "step_limit"},
		{"bad otlp protocol", "observability:\n  otlp_protocol: carrier-pigeon\n", "otlp_protocol"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.yaml)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("super-secret-key")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "super-secret-key", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(data))

	var empty Secret
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("bogus")))
}
