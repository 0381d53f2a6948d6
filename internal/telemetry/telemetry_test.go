package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledIsNoOp(t *testing.T) {
	tel, err := New(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tel)

	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_EnabledRequiresEndpoint(t *testing.T) {
	_, err := New(context.Background(), Config{Enabled: true, ServiceName: "crewd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestShutdown_NilReceiver(t *testing.T) {
	var tel *Telemetry
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4318", stripScheme("https://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("http://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("collector:4318"))
}
