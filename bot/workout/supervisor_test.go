package workout

import (
	"strings"
	"sync"
	"testing"
	"time"
)

type captureNotifier struct {
	mu      sync.Mutex
	chatIDs []int64
	batches [][]Reply
}

func (n *captureNotifier) Notify(chatID int64, replies []Reply) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chatIDs = append(n.chatIDs, chatID)
	n.batches = append(n.batches, replies)
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.batches)
}

func (n *captureNotifier) last() (int64, []Reply) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.batches) == 0 {
		return 0, nil
	}
	return n.chatIDs[len(n.chatIDs)-1], n.batches[len(n.batches)-1]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestSupervisorFiresAfterWindow(t *testing.T) {
	var (
		mu    sync.Mutex
		fired []int64
	)
	sup := NewSupervisor(30*time.Millisecond, nil, func(userID, chatID int64) {
		mu.Lock()
		fired = append(fired, userID)
		mu.Unlock()
	})
	defer sup.Close()

	sup.Touch(1, 100)
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) == 1 && fired[0] == 1
	})
}

func TestSupervisorTouchRearms(t *testing.T) {
	var (
		mu    sync.Mutex
		fires int
	)
	sup := NewSupervisor(200*time.Millisecond, nil, func(userID, chatID int64) {
		mu.Lock()
		fires++
		mu.Unlock()
	})
	defer sup.Close()

	sup.Touch(1, 100)
	// Keep touching inside the window; the timer must never fire.
	for i := 0; i < 5; i++ {
		time.Sleep(40 * time.Millisecond)
		sup.Touch(1, 100)
	}
	mu.Lock()
	n := fires
	mu.Unlock()
	if n != 0 {
		t.Fatalf("timer fired %d times despite rearms", n)
	}

	// Then let it expire once.
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fires == 1
	})
}

func TestSupervisorCloseCancels(t *testing.T) {
	var (
		mu    sync.Mutex
		fires int
	)
	sup := NewSupervisor(20*time.Millisecond, nil, func(userID, chatID int64) {
		mu.Lock()
		fires++
		mu.Unlock()
	})
	sup.Touch(1, 100)
	sup.Close()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fires != 0 {
		t.Fatalf("closed supervisor fired %d times", fires)
	}
}

func TestIdleTimeoutEndsWorkoutWithSummary(t *testing.T) {
	notifier := &captureNotifier{}
	e := NewEngine(Options{IdleTimeout: 40 * time.Millisecond, Notifier: notifier})
	defer e.Close()
	const user, chat = int64(1), int64(42)

	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyChest)
	e.HandleButton(user, chat, PayloadEqDumbbell)
	e.HandleText(user, chat, "Bench Press")
	e.HandleText(user, chat, "1")
	e.HandleText(user, chat, "6@60")

	waitFor(t, time.Second, func() bool { return notifier.count() == 1 })

	chatID, replies := notifier.last()
	if chatID != chat {
		t.Fatalf("timeout notice sent to chat %d, want %d", chatID, chat)
	}
	text := replies[0].Text
	if !strings.Contains(text, "due to inactivity") {
		t.Fatalf("timeout notice = %q", text)
	}
	if !strings.Contains(text, "6(60)") {
		t.Fatalf("timeout notice missing entry summary line: %q", text)
	}
	if len(replies[0].Choices) != 2 {
		t.Fatalf("timeout notice should carry the post-end choice, got %+v", replies[0].Choices)
	}

	// Day and entries survive into the post-end state.
	sess, ok := e.Sessions().Get(user)
	if !ok {
		t.Fatalf("session dropped by idle timeout")
	}
	if sess.Day != DayChest || len(sess.Entries) != 1 {
		t.Fatalf("idle timeout lost state: day=%q entries=%d", sess.Day, len(sess.Entries))
	}
	if e.InProgress(user) {
		t.Fatalf("idle timeout should clear transient flow state")
	}
}

func TestIdleTimeoutWithoutSession(t *testing.T) {
	notifier := &captureNotifier{}
	e := NewEngine(Options{IdleTimeout: 30 * time.Millisecond, Notifier: notifier})
	defer e.Close()

	// A /log without ever opening a gym session still arms the timer.
	e.HandleCommand(5, 55, "log")
	waitFor(t, time.Second, func() bool { return notifier.count() == 1 })

	_, replies := notifier.last()
	if !strings.Contains(replies[0].Text, "Session closed due to inactivity") {
		t.Fatalf("idle notice = %q", replies[0].Text)
	}
}
