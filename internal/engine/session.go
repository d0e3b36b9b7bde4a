package engine

import (
	"sync"
	"time"

	"github.com/arabicverse/qasida/internal/poem"
)

// SessionManager owns every in-flight and completed Session. All access
// goes through copy-on-read methods so a node goroutine never observes a
// partially-written context.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager returns an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Create starts a new session for the given pipeline, seeded with initial
// context entries (typically the user's raw prompt).
func (m *SessionManager) Create(pipelineID string, initial map[string]any) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx := make(map[string]any, len(initial))
	for k, v := range initial {
		ctx[k] = v
	}
	sess := &Session{
		ID:         poem.GenerateID("sess"),
		PipelineID: pipelineID,
		Context:    ctx,
		Status:     SessionRunning,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	m.sessions[sess.ID] = sess
	return sess
}

// Get returns the session with the given ID.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// ContextCopy returns a snapshot of the session's context, safe to hand to
// a concurrently-running node without risking a data race on the backing
// map.
func (m *SessionManager) ContextCopy(sessionID string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return make(map[string]any)
	}
	cp := make(map[string]any, len(s.Context))
	for k, v := range s.Context {
		cp[k] = v
	}
	return cp
}

// SetContext writes one key into the session's shared context.
func (m *SessionManager) SetContext(sessionID, key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.Context[key] = value
		s.UpdatedAt = time.Now()
	}
}

// AppendEvent records an event against the session's event log.
func (m *SessionManager) AppendEvent(sessionID string, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.Events = append(s.Events, ev)
		s.UpdatedAt = time.Now()
	}
}

// SetStatus transitions the session to a terminal or intermediate status.
func (m *SessionManager) SetStatus(sessionID string, status SessionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.Status = status
		s.UpdatedAt = time.Now()
	}
}
