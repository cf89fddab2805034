package service

import (
	"sync"

	"github.com/citeline/citeline/internal/domain"
	"github.com/google/uuid"
)

// SessionManager owns the in-memory sessions, keyed by session ID. Sessions
// are created on first use and discarded with the process; no persistence.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*domain.Session)}
}

// Get returns the session for id, creating it when unseen. An empty id gets
// a fresh session under a generated identifier.
func (m *SessionManager) Get(id string) *domain.Session {
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	s = domain.NewSession(id)
	m.sessions[id] = s
	return s
}

// Delete discards a session when its conversation ends.
func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len reports how many sessions are live.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
