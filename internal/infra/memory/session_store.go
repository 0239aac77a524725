package memory

import (
	"sync"

	"character-quiz-service/internal/app"
)

// SessionStore is the in-process implementation of app.SessionStore. It is
// the only structure touched by more than one connection's callbacks, so
// insertion and removal are atomic under a single lock.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

// Create inserts a fully built session; a reconnect for the same user
// replaces the previous entry.
func (s *SessionStore) Create(userID string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = session
}

func (s *SessionStore) Get(userID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// Remove deletes the session; removing an absent key is a no-op because
// disconnect and completion may both clean up the same session.
func (s *SessionStore) Remove(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
