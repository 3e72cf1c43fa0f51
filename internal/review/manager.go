package review

import "sync"

// Manager holds live review sessions keyed by response ID. A session exists
// from the moment the teacher opens an analysis until its evaluation is
// saved or the session is dropped.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Put registers a session for a response, replacing any existing one.
func (m *Manager) Put(responseID string, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[responseID] = s
}

// Get returns the live session for a response, if any.
func (m *Manager) Get(responseID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[responseID]
	return s, ok
}

// Drop removes the session for a response.
func (m *Manager) Drop(responseID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, responseID)
}
