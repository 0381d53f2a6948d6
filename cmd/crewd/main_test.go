package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/crewd/internal/config"
	"github.com/fyrsmithlabs/crewd/internal/events"
)

func TestInitEvents_InProcessBus(t *testing.T) {
	cfg := &config.Config{}

	pub, sub, closeFn, err := initEvents(cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()

	assert.NotNil(t, pub)
	assert.NotNil(t, sub)
	_, ok := pub.(*events.Bus)
	assert.True(t, ok, "empty NATS URL should use the in-process bus")
}
