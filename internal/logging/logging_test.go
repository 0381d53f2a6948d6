package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	logger, err := New(Config{Level: "warn", Format: "json"})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_ConsoleFormat(t *testing.T) {
	logger, err := New(Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New(Config{Level: "info", Format: "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, ContextFields(ctx))

	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithWorker(ctx, "coder")
	ctx = WithRequestID(ctx, "req-9")

	fields := ContextFields(ctx)
	assert.Contains(t, fields, zap.String("session_id", "sess-1"))
	assert.Contains(t, fields, zap.String("worker", "coder"))
	assert.Contains(t, fields, zap.String("request_id", "req-9"))
}

func TestContextAccessors_Absent(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, SessionIDFromContext(ctx))
	assert.Empty(t, WorkerFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(ctx))
}

func TestTestLogger_Observes(t *testing.T) {
	tl := NewTestLogger()
	tl.Info("worker dispatched", zap.String("worker", "planner"))

	tl.AssertLogged(t, zapcore.InfoLevel, "worker dispatched")
	tl.AssertField(t, "worker dispatched", "worker", "planner")
	assert.Len(t, tl.All(), 1)
}
