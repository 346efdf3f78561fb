package workout

import (
	"sync"
	"time"
)

// userTimer tracks one armed inactivity timer together with the chat it
// should notify and the instant of the activity that armed it.
type userTimer struct {
	timer    *time.Timer
	chatID   int64
	lastSeen time.Time
}

// Supervisor keeps one single-shot inactivity timer per user. Touch rearms
// the timer, cancelling any pending one, so at most one timer is outstanding
// per user. A fired timer re-checks the recorded last-activity instant before
// acting: a rearm that raced the firing makes the stale fire a no-op.
type Supervisor struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	timers map[int64]*userTimer
	expire func(userID, chatID int64)
	closed bool
}

// NewSupervisor builds a supervisor firing expire after window of silence.
// A nil clock defaults to time.Now.
func NewSupervisor(window time.Duration, now func() time.Time, expire func(userID, chatID int64)) *Supervisor {
	if now == nil {
		now = time.Now
	}
	return &Supervisor{
		window: window,
		now:    now,
		timers: make(map[int64]*userTimer),
		expire: expire,
	}
}

// Touch records activity for the user and rearms their timer.
func (s *Supervisor) Touch(userID, chatID int64) {
	if s == nil || s.window <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if prev, ok := s.timers[userID]; ok {
		prev.timer.Stop()
	}
	ut := &userTimer{
		chatID:   chatID,
		lastSeen: s.now(),
	}
	ut.timer = time.AfterFunc(s.window, func() { s.fire(userID) })
	s.timers[userID] = ut
}

// fire runs on the timer goroutine. The last-seen re-check is the optimistic
// guard against a Touch that landed after this timer was already firing.
func (s *Supervisor) fire(userID int64) {
	s.mu.Lock()
	ut, ok := s.timers[userID]
	if !ok || s.closed {
		s.mu.Unlock()
		return
	}
	if s.now().Sub(ut.lastSeen) < s.window {
		s.mu.Unlock()
		return
	}
	delete(s.timers, userID)
	chatID := ut.chatID
	s.mu.Unlock()

	if s.expire != nil {
		s.expire(userID, chatID)
	}
}

// Close cancels every outstanding timer. The supervisor is unusable after.
func (s *Supervisor) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ut := range s.timers {
		ut.timer.Stop()
		delete(s.timers, id)
	}
}
