// Package session tracks per-session browse state: the last applied
// filters, sort order, and page number. Each request replaces the state
// wholesale, so there is no partial patching to interleave; sessions only
// exist so a UI can resume where it left off.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/crowdinsight/crowdinsight/engine"
)

// State is the last applied request of one session.
type State struct {
	Page    int                `json:"page"`
	Filters engine.FilterState `json:"filters"`
	Sort    engine.SortOrder   `json:"sort_order"`
}

// Session is one logical browsing session. All of its state is replaced
// atomically per request.
type Session struct {
	id string

	mu    sync.RWMutex
	state State
}

// ID returns the session's identifier.
func (s *Session) ID() string {
	return s.id
}

// Apply replaces the session state with the request that was just served.
func (s *Session) Apply(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Snapshot returns a copy of the last applied state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Manager hands out sessions keyed by ID. Sessions share the read-only
// dataset; the manager never touches it.
type Manager struct {
	defaults State

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager whose new sessions start from the given
// default state (typically unrestricted filters on page 1).
func NewManager(defaults State) *Manager {
	if defaults.Page < 1 {
		defaults.Page = 1
	}
	if defaults.Sort == "" {
		defaults.Sort = engine.SortPopularity
	}
	return &Manager{
		defaults: defaults,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session with the given ID, or a fresh one (with a new
// ID) when the ID is empty or unknown.
func (m *Manager) Get(id string) *Session {
	if id != "" {
		m.mu.RLock()
		s, ok := m.sessions[id]
		m.mu.RUnlock()
		if ok {
			return s
		}
	}

	s := &Session{id: uuid.NewString(), state: m.defaults}
	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s
}

// Drop removes a session.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
