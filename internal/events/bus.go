package events

import (
	"context"
	"sync"
)

// Bus is an in-process publisher for local mode and tests. Subscribers
// that fall behind lose events rather than blocking the control loop.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Publish implements Publisher.
func (b *Bus) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of the session's events and a cancel
// function that detaches and closes it. The error return is always nil
// and exists to share a signature with the NATS subscriber.
func (b *Bus) Subscribe(sessionID string) (<-chan Event, func(), error) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs[sessionID] = append(b.subs[sessionID], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[sessionID]
		for i, c := range chans {
			if c == ch {
				b.subs[sessionID] = append(chans[:i], chans[i+1:]...)
				close(ch)
				break
			}
		}
		if len(b.subs[sessionID]) == 0 {
			delete(b.subs, sessionID)
		}
	}
	return ch, cancel, nil
}
