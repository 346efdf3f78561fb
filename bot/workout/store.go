package workout

import (
	"sync"
	"time"
)

// Store owns every live Session, keyed by user id. Sessions are created on
// first use and removed only by Clear.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	now      func() time.Time
}

// NewStore builds an empty store. A nil clock defaults to time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		sessions: make(map[int64]*Session),
		now:      now,
	}
}

// Get returns the user's session if one exists.
func (s *Store) Get(userID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// GetOrCreate returns the user's session, creating one stamped with today's
// date when absent.
func (s *Store) GetOrCreate(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess
	}
	sess := &Session{
		Date:         s.now().Format(DateLayout),
		LastActivity: s.now(),
	}
	s.sessions[userID] = sess
	return sess
}

// Clear removes the user's session entirely.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// QuickLogStore keeps the per-user Run/Other activity lists, independent of
// gym sessions.
type QuickLogStore struct {
	mu   sync.Mutex
	logs map[int64][]QuickLog
}

// NewQuickLogStore builds an empty quick-log store.
func NewQuickLogStore() *QuickLogStore {
	return &QuickLogStore{logs: make(map[int64][]QuickLog)}
}

// Append records one quick log for the user.
func (s *QuickLogStore) Append(userID int64, q QuickLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[userID] = append(s.logs[userID], q)
}

// List returns a copy of the user's quick logs in insertion order.
func (s *QuickLogStore) List(userID int64) []QuickLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.logs[userID]
	if len(src) == 0 {
		return nil
	}
	out := make([]QuickLog, len(src))
	copy(out, src)
	return out
}

// Len reports the number of users with at least one quick log.
func (s *QuickLogStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}
