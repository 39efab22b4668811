package session

import (
	"sort"
	"sync"
)

// Manager keeps one preview session per project.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	newDeps  func(projectID string) Deps
}

// NewManager creates a manager. newDeps builds the collaborators of each new
// session; every session needs its own Engine and Notifier.
func NewManager(newDeps func(projectID string) Deps) *Manager {
	return &Manager{sessions: make(map[string]*Session), newDeps: newDeps}
}

// Attach returns the session for projectID, creating it over src on first
// use.
func (m *Manager) Attach(projectID string, src Source) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[projectID]; ok {
		return s
	}
	s := New(src, m.newDeps(projectID))
	m.sessions[projectID] = s
	return s
}

// Get returns the session of an attached project.
func (m *Manager) Get(projectID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[projectID]
	return s, ok
}

// Projects returns the attached project ids in ascending order.
func (m *Manager) Projects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
