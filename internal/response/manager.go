package response

import (
	"context"
	"sync"

	"github.com/minseo-cho/routinelab/internal/model"
	"github.com/minseo-cho/routinelab/internal/routine"
)

// Manager holds live student sessions keyed by (room, student identity).
type Manager struct {
	store Store

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, sessions: make(map[string]*Session)}
}

func sessionKey(roomID, studentID string) string {
	return roomID + "|" + studentID
}

// Get returns the live session for a student in a room, loading a new one
// from storage if none exists yet.
func (m *Manager) Get(ctx context.Context, schema routine.Schema, roomID string, ident model.StudentIdentity, team string) (*Session, error) {
	key := sessionKey(roomID, ident.StudentID())

	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	s := NewSession(m.store, schema, roomID, ident, team)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have loaded the same student concurrently; keep
	// the first one registered.
	if existing, ok := m.sessions[key]; ok {
		s.Close()
		return existing, nil
	}
	m.sessions[key] = s
	return s, nil
}

// Drop removes and closes the session for a student, discarding any pending
// autosave.
func (m *Manager) Drop(roomID, studentID string) {
	key := sessionKey(roomID, studentID)
	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}
