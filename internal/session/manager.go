package session

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Session wraps one RunState behind a mutex so its control loop processes
// one tick at a time. Sessions never share state; the manager only
// provides lookup.
type Session struct {
	mu    sync.Mutex
	state *RunState
}

// ID returns the session id. Immutable, safe without the lock.
func (s *Session) ID() string {
	return s.state.ID
}

// Do runs fn with exclusive access to the state. All orchestrator and
// interrupt work against a session goes through here.
func (s *Session) Do(fn func(*RunState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// Snapshot returns a consistent copy of the state for the transport layer.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Snapshot()
}

// Manager tracks live sessions by id.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
}

// NewManager creates an empty manager.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{sessions: make(map[string]*Session), logger: logger}
}

// Add registers a fresh state and returns its session.
func (m *Manager) Add(state *RunState) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[state.ID]; exists {
		return nil, fmt.Errorf("session %s already registered", state.ID)
	}
	s := &Session{state: state}
	m.sessions[state.ID] = s
	m.logger.Info("session registered", zap.String("session_id", state.ID))
	return s, nil
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove closes out a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.logger.Info("session removed", zap.String("session_id", id))
	}
}

// IDs returns the registered session ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
