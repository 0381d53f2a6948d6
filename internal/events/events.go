// Package events defines the orchestration event stream. Events are
// published to subjects of the form sessions.{session_id}.{type} for
// persistence and SSE streaming; publishing is best-effort and never
// blocks the control loop.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type classifies an orchestration event.
type Type string

const (
	// TypeStage marks a control-loop transition (plan committed, phase
	// change).
	TypeStage Type = "stage"

	// TypeWorkerMessage carries a worker's textual output.
	TypeWorkerMessage Type = "worker_message"

	// TypeArtifact announces a new artifact version.
	TypeArtifact Type = "artifact"

	// TypeCheckpoint announces a pending human approval.
	TypeCheckpoint Type = "checkpoint"

	// TypeTerminal announces session termination.
	TypeTerminal Type = "terminal"

	// TypeError carries a recorded error.
	TypeError Type = "error"
)

// Event is one entry in a session's event stream.
type Event struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      Type           `json:"type"`
	Worker    string         `json:"worker,omitempty"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	At        time.Time      `json:"at"`
}

// New builds an event with id and timestamp filled in.
func New(sessionID string, typ Type) Event {
	return Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      typ,
		At:        time.Now(),
	}
}

// Publisher emits orchestration events. Implementations must be safe for
// concurrent use and must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscriber delivers a session's event stream. The cancel function
// detaches the subscription; after cancel the channel is closed.
type Subscriber interface {
	Subscribe(sessionID string) (<-chan Event, func(), error)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
