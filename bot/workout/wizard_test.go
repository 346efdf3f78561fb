package workout

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestEngine() *Engine {
	return NewEngine(Options{})
}

func lastText(t *testing.T, replies []Reply) string {
	t.Helper()
	if len(replies) == 0 {
		t.Fatalf("expected at least one reply")
	}
	return replies[len(replies)-1].Text
}

func TestLiftFlowEndToEnd(t *testing.T) {
	e := newTestEngine()
	const user, chat = int64(1), int64(1)

	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyChest)
	e.HandleButton(user, chat, PayloadEqDumbbell)
	e.HandleText(user, chat, "Bench Press")
	e.HandleText(user, chat, "2")
	if got := lastText(t, e.HandleText(user, chat, "6@60")); !strings.Contains(got, "Set 2?") {
		t.Fatalf("after first set line, got %q, want next-set prompt", got)
	}
	replies := e.HandleText(user, chat, "5@60")

	sess, ok := e.Sessions().Get(user)
	if !ok {
		t.Fatalf("session missing after finalize")
	}
	if len(sess.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(sess.Entries))
	}
	lift, ok := sess.Entries[0].(LiftEntry)
	if !ok {
		t.Fatalf("entry is %T, want LiftEntry", sess.Entries[0])
	}
	if lift.Compact() != "2 x 6(60), 5(60)" {
		t.Fatalf("compact = %q, want %q", lift.Compact(), "2 x 6(60), 5(60)")
	}
	if lift.Equipment != EquipmentDumbbell || lift.Exercise != "Bench Press" {
		t.Fatalf("entry = %+v", lift)
	}
	if len(lift.Reps) != lift.Sets || len(lift.Weights) != lift.Sets {
		t.Fatalf("reps/weights length mismatch: %d/%d vs sets %d", len(lift.Reps), len(lift.Weights), lift.Sets)
	}
	if len(replies) == 0 || len(replies[0].Choices) != 2 {
		t.Fatalf("finalize reply should offer continue/end, got %+v", replies)
	}
}

func TestCardioFlow(t *testing.T) {
	e := newTestEngine()
	const user, chat = int64(2), int64(2)

	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyCardio)
	e.HandleButton(user, chat, PayloadCardioIncline)
	e.HandleText(user, chat, "10")
	e.HandleText(user, chat, "6.5")

	sess, _ := e.Sessions().Get(user)
	if len(sess.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(sess.Entries))
	}
	if got := sess.Entries[0].Label(); got != "Incline 10° @ 6.5" {
		t.Fatalf("label = %q, want %q", got, "Incline 10° @ 6.5")
	}
}

func TestCardioFlatFlow(t *testing.T) {
	e := newTestEngine()
	const user, chat = int64(3), int64(3)

	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyCardio)
	e.HandleButton(user, chat, PayloadCardioFlat)
	e.HandleText(user, chat, "6.5")

	sess, _ := e.Sessions().Get(user)
	if got := sess.Entries[0].Label(); got != "Flat @ 6.5" {
		t.Fatalf("label = %q, want %q", got, "Flat @ 6.5")
	}
}

func TestInvalidSetCountNeverAdvances(t *testing.T) {
	e := newTestEngine()
	const user, chat = int64(4), int64(4)

	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyBack)
	e.HandleButton(user, chat, PayloadEqBarbell)
	e.HandleText(user, chat, "Deadlift")

	for _, bad := range []string{"25", "abc", "0"} {
		got := lastText(t, e.HandleText(user, chat, bad))
		if !strings.Contains(got, "valid number of sets") {
			t.Fatalf("input %q: got %q, want set-count re-prompt", bad, got)
		}
		f := e.flows[user]
		if f.wizard.Step != StepSetCount || f.wizard.Sets != 0 {
			t.Fatalf("input %q advanced the wizard: %+v", bad, f.wizard)
		}
	}

	// A valid count still works after the failures.
	if got := lastText(t, e.HandleText(user, chat, "3")); !strings.Contains(got, "Set 1?") {
		t.Fatalf("valid count got %q, want first set prompt", got)
	}
}

func TestInvalidSetLineDoesNotConsumeIndex(t *testing.T) {
	e := newTestEngine()
	const user, chat = int64(5), int64(5)

	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyLegs)
	e.HandleButton(user, chat, PayloadEqMachine)
	e.HandleText(user, chat, "Leg Press")
	e.HandleText(user, chat, "2")

	e.HandleText(user, chat, "garbage")
	f := e.flows[user]
	if len(f.wizard.Reps) != 0 || len(f.wizard.Weights) != 0 {
		t.Fatalf("invalid line consumed a set index: %+v", f.wizard)
	}

	if got := lastText(t, e.HandleText(user, chat, "10@120")); !strings.Contains(got, "Set 2?") {
		t.Fatalf("got %q, want second set prompt", got)
	}
}

func TestLogDiscardsInProgressWizard(t *testing.T) {
	e := newTestEngine()
	const user, chat = int64(6), int64(6)

	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyChest)
	e.HandleButton(user, chat, PayloadEqDumbbell)
	e.HandleText(user, chat, "Fly")
	if !e.InProgress(user) {
		t.Fatalf("wizard should be in progress")
	}

	e.HandleCommand(user, chat, "log")
	if e.InProgress(user) {
		t.Fatalf("wizard should be discarded by /log")
	}
	// The session survives the flow restart.
	if _, ok := e.Sessions().Get(user); !ok {
		t.Fatalf("session dropped by /log restart")
	}
}

func TestEndRetainsEntriesAndDay(t *testing.T) {
	e := newTestEngine()
	const user, chat = int64(7), int64(7)

	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyChest)
	e.HandleButton(user, chat, PayloadEqDumbbell)
	e.HandleText(user, chat, "Bench Press")
	e.HandleText(user, chat, "1")
	e.HandleText(user, chat, "6@60")

	replies := e.HandleButton(user, chat, PayloadEnd)
	if len(replies) != 2 {
		t.Fatalf("end should produce two replies, got %d", len(replies))
	}
	if !strings.Contains(replies[1].Text, "6(60)") {
		t.Fatalf("end summary missing entry line: %q", replies[1].Text)
	}

	sess, ok := e.Sessions().Get(user)
	if !ok {
		t.Fatalf("session dropped on end, should be retained")
	}
	if sess.Day != DayChest || len(sess.Entries) != 1 {
		t.Fatalf("day/entries not retained: day=%q entries=%d", sess.Day, len(sess.Entries))
	}
	if e.InProgress(user) {
		t.Fatalf("transient flow state should be cleared on end")
	}
}

func TestStartNewDayDropsSession(t *testing.T) {
	e := newTestEngine()
	const user, chat = int64(8), int64(8)

	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyAbs)
	e.HandleButton(user, chat, PayloadEqBodyweight)
	e.HandleText(user, chat, "Crunch")
	e.HandleText(user, chat, "1")
	e.HandleText(user, chat, "20@bw")
	e.HandleButton(user, chat, PayloadEnd)

	e.HandleButton(user, chat, PayloadNewDay)
	sess, ok := e.Sessions().Get(user)
	if !ok {
		t.Fatalf("new day should open a fresh session")
	}
	if sess.Day != "" || len(sess.Entries) != 0 {
		t.Fatalf("new day kept old state: day=%q entries=%d", sess.Day, len(sess.Entries))
	}
}

func TestContinueSameDayResumesBranch(t *testing.T) {
	e := newTestEngine()
	const user, chat = int64(9), int64(9)

	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyCardio)
	e.HandleButton(user, chat, PayloadCardioFlat)
	e.HandleText(user, chat, "7")
	e.HandleButton(user, chat, PayloadEnd)

	replies := e.HandleButton(user, chat, PayloadSameDay)
	got := lastText(t, replies)
	if !strings.Contains(got, "Incline or flat?") {
		t.Fatalf("same-day resume on a cardio session got %q, want mode prompt", got)
	}
	sess, _ := e.Sessions().Get(user)
	if len(sess.Entries) != 1 {
		t.Fatalf("same-day resume lost entries: %d", len(sess.Entries))
	}
}

func TestStrayTextIsIgnored(t *testing.T) {
	e := newTestEngine()
	if replies := e.HandleText(10, 10, "hello there"); replies != nil {
		t.Fatalf("stray text should produce no reply, got %+v", replies)
	}
	if _, ok := e.Sessions().Get(10); ok {
		t.Fatalf("stray text should not create a session")
	}
}

func TestUnknownPayload(t *testing.T) {
	e := newTestEngine()
	replies := e.HandleButton(11, 11, "bogus_payload")
	if got := lastText(t, replies); got != "Unknown option. Please type /log again." {
		t.Fatalf("unknown payload reply = %q", got)
	}
	if e.InProgress(11) {
		t.Fatalf("unknown payload must not mutate flow state")
	}
}

func TestQuickLogFlow(t *testing.T) {
	e := newTestEngine()
	const user, chat = int64(12), int64(12)

	e.HandleButton(user, chat, PayloadRun)
	got := lastText(t, e.HandleText(user, chat, "5km"))
	if !strings.Contains(got, "📌 Logged: Run — 5km") {
		t.Fatalf("quick log reply = %q", got)
	}
	logs := e.QuickLogs().List(user)
	if len(logs) != 1 || logs[0].Activity != "Run" || logs[0].Details != "5km" {
		t.Fatalf("quick logs = %+v", logs)
	}
	// pendingActivity consumed, next text is stray.
	if replies := e.HandleText(user, chat, "another"); replies != nil {
		t.Fatalf("text after quick log should be ignored, got %+v", replies)
	}
}

func TestSummaryCommand(t *testing.T) {
	e := newTestEngine()
	const user, chat = int64(13), int64(13)

	if got := lastText(t, e.HandleCommand(user, chat, "summary")); got != "No logs yet. Type /log to start." {
		t.Fatalf("empty summary = %q", got)
	}

	e.HandleButton(user, chat, PayloadOther)
	e.HandleText(user, chat, "yoga 45min")
	got := lastText(t, e.HandleCommand(user, chat, "summary"))
	if !strings.Contains(got, "🧾 Other logs:") || !strings.Contains(got, "1. Other: yoga 45min") {
		t.Fatalf("summary = %q", got)
	}
}

func TestEndCommandWithoutSession(t *testing.T) {
	e := newTestEngine()
	if got := lastText(t, e.HandleCommand(14, 14, "end")); got != "No active gym workout." {
		t.Fatalf("end without session = %q", got)
	}
}

// blockingArchiver parks inside ArchiveWorkout until released, standing in
// for a slow database write.
type blockingArchiver struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingArchiver() *blockingArchiver {
	return &blockingArchiver{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (a *blockingArchiver) ArchiveWorkout(ctx context.Context, userID int64, s *Session) error {
	close(a.started)
	<-a.release
	return nil
}

func (a *blockingArchiver) ArchiveQuickLog(ctx context.Context, userID int64, q QuickLog) error {
	return nil
}

type recordingArchiver struct {
	mu       sync.Mutex
	sessions []*Session
	quick    []QuickLog
}

func (a *recordingArchiver) ArchiveWorkout(ctx context.Context, userID int64, s *Session) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = append(a.sessions, s)
	return nil
}

func (a *recordingArchiver) ArchiveQuickLog(ctx context.Context, userID int64, q QuickLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.quick = append(a.quick, q)
	return nil
}

func TestArchiveWriteDoesNotBlockOtherUsers(t *testing.T) {
	arch := newBlockingArchiver()
	e := NewEngine(Options{Archiver: arch})
	const user, chat = int64(30), int64(30)

	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyChest)
	e.HandleButton(user, chat, PayloadEqDumbbell)
	e.HandleText(user, chat, "Bench Press")
	e.HandleText(user, chat, "1")
	e.HandleText(user, chat, "6@60")

	done := make(chan struct{})
	go func() {
		e.HandleButton(user, chat, PayloadEnd)
		close(done)
	}()
	<-arch.started

	// With the archive write still in flight, another user's events must
	// go through immediately.
	other := make(chan struct{})
	go func() {
		e.HandleCommand(31, 31, "start")
		close(other)
	}()
	select {
	case <-other:
	case <-time.After(time.Second):
		t.Fatal("another user's command blocked behind an archive write")
	}

	close(arch.release)
	<-done
}

func TestArchiveReceivesSnapshot(t *testing.T) {
	arch := &recordingArchiver{}
	e := NewEngine(Options{Archiver: arch})
	const user, chat = int64(32), int64(32)

	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyChest)
	e.HandleButton(user, chat, PayloadEqDumbbell)
	e.HandleText(user, chat, "Bench Press")
	e.HandleText(user, chat, "1")
	e.HandleText(user, chat, "6@60")
	e.HandleButton(user, chat, PayloadEnd)

	// Keep logging into the same day; the archived record must not grow.
	e.HandleButton(user, chat, PayloadSameDay)
	e.HandleButton(user, chat, PayloadEqBarbell)
	e.HandleText(user, chat, "Squat")
	e.HandleText(user, chat, "1")
	e.HandleText(user, chat, "5@100")

	arch.mu.Lock()
	defer arch.mu.Unlock()
	if len(arch.sessions) != 1 {
		t.Fatalf("archived workouts = %d, want 1", len(arch.sessions))
	}
	if len(arch.sessions[0].Entries) != 1 {
		t.Fatalf("archive holds %d entries, want the 1 present at end time", len(arch.sessions[0].Entries))
	}
	live, _ := e.Sessions().Get(user)
	if len(live.Entries) != 2 {
		t.Fatalf("live session entries = %d, want 2", len(live.Entries))
	}
}

func TestQuickLogArchived(t *testing.T) {
	arch := &recordingArchiver{}
	e := NewEngine(Options{Archiver: arch})

	e.HandleButton(33, 33, PayloadRun)
	e.HandleText(33, 33, "5km")

	arch.mu.Lock()
	defer arch.mu.Unlock()
	if len(arch.quick) != 1 || arch.quick[0].Activity != "Run" || arch.quick[0].Details != "5km" {
		t.Fatalf("archived quick logs = %+v", arch.quick)
	}
}

func TestCardioModeButtonWithoutCardioFlow(t *testing.T) {
	e := newTestEngine()
	const user, chat = int64(34), int64(34)

	// A tap on a keyboard from an old message, with no flow at all.
	if got := lastText(t, e.HandleButton(user, chat, PayloadCardioIncline)); got != unknownOptionText {
		t.Fatalf("stale incline tap = %q", got)
	}
	if e.InProgress(user) {
		t.Fatalf("stale tap must not open a flow")
	}
	if replies := e.HandleText(user, chat, "10"); replies != nil {
		t.Fatalf("text after stale tap should be stray, got %+v", replies)
	}

	// A lift-day flow must not accept cardio mode taps either.
	e.HandleButton(user, chat, PayloadGym)
	e.HandleButton(user, chat, PayloadBodyChest)
	if got := lastText(t, e.HandleButton(user, chat, PayloadCardioFlat)); got != unknownOptionText {
		t.Fatalf("flat tap on a lift day = %q", got)
	}
}
