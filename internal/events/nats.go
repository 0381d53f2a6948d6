package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subject returns the NATS subject for a session event type.
func Subject(sessionID string, typ Type) string {
	return fmt.Sprintf("sessions.%s.%s", sessionID, typ)
}

// SessionSubject returns the wildcard subject covering all of a
// session's events, for subscribers.
func SessionSubject(sessionID string) string {
	return fmt.Sprintf("sessions.%s.*", sessionID)
}

// NATSPublisher publishes session events to NATS.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewNATSPublisher wraps an established connection.
func NewNATSPublisher(conn *nats.Conn, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, logger: logger}
}

// Publish implements Publisher. Marshal or publish failures are returned
// for the caller to log; they carry no retry semantics.
func (p *NATSPublisher) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := p.conn.Publish(Subject(ev.SessionID, ev.Type), data); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

// Subscribe delivers a session's events on a channel until cancel is
// called. Messages that fail to decode are dropped with a warning.
func (p *NATSPublisher) Subscribe(sessionID string) (<-chan Event, func(), error) {
	msgs := make(chan *nats.Msg, 64)
	sub, err := p.conn.ChanSubscribe(SessionSubject(sessionID), msgs)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to session events: %w", err)
	}

	out := make(chan Event, 64)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-msgs:
				var ev Event
				if err := json.Unmarshal(msg.Data, &ev); err != nil {
					p.logger.Warn("dropping undecodable event", zap.String("subject", msg.Subject), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				default:
					p.logger.Warn("dropping event for slow consumer", zap.String("subject", msg.Subject))
				}
			case <-done:
				return
			}
		}
	}()

	cancel := func() {
		_ = sub.Unsubscribe()
		close(done)
	}
	return out, cancel, nil
}
