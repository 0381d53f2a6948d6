package events

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestSubjects(t *testing.T) {
	assert.Equal(t, "sessions.abc.worker_message", Subject("abc", TypeWorkerMessage))
	assert.Equal(t, "sessions.abc.*", SessionSubject("abc"))
}

func TestNew(t *testing.T) {
	ev := New("s1", TypeStage)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "s1", ev.SessionID)
	assert.Equal(t, TypeStage, ev.Type)
	assert.False(t, ev.At.IsZero())
}

func TestNATSPublisher_PublishSubscribe(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	p := NewNATSPublisher(nc, nil)

	sub, cancel, err := p.Subscribe("s1")
	require.NoError(t, err)
	defer cancel()

	ev := New("s1", TypeArtifact)
	ev.Worker = "coder"
	ev.Data = map[string]any{"path": "code.tsx", "version": float64(2)}
	require.NoError(t, p.Publish(context.Background(), ev))

	select {
	case got := <-sub:
		assert.Equal(t, ev.ID, got.ID)
		assert.Equal(t, TypeArtifact, got.Type)
		assert.Equal(t, "coder", got.Worker)
		assert.Equal(t, "code.tsx", got.Data["path"])
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}

	// Events for other sessions stay on their own subjects.
	require.NoError(t, p.Publish(context.Background(), New("s2", TypeStage)))
	select {
	case got := <-sub:
		t.Fatalf("unexpected cross-session event %s", got.ID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_FanOutAndCancel(t *testing.T) {
	b := NewBus()

	a, cancelA, err := b.Subscribe("s1")
	require.NoError(t, err)
	bb, cancelB, err := b.Subscribe("s1")
	require.NoError(t, err)
	defer cancelB()

	require.NoError(t, b.Publish(context.Background(), New("s1", TypeStage)))
	require.NoError(t, b.Publish(context.Background(), New("s2", TypeStage)))

	assert.Len(t, a, 1)
	assert.Len(t, bb, 1)

	cancelA()
	// The event buffered before the cancel is still delivered, then the
	// channel closes.
	got, open := <-a
	assert.True(t, open)
	assert.Equal(t, TypeStage, got.Type)
	_, open = <-a
	assert.False(t, open)

	require.NoError(t, b.Publish(context.Background(), New("s1", TypeTerminal)))
	assert.Len(t, bb, 2)
}

func TestBus_SlowConsumerDoesNotBlock(t *testing.T) {
	b := NewBus()
	ch, cancel, err := b.Subscribe("s1")
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < 200; i++ {
		require.NoError(t, b.Publish(context.Background(), New("s1", TypeWorkerMessage)))
	}
	assert.Equal(t, 64, len(ch))
}
