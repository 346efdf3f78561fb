package workout

import (
	"testing"
	"time"
)

func TestStoreGetOrCreate(t *testing.T) {
	fixed := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(func() time.Time { return fixed })

	if _, ok := s.Get(1); ok {
		t.Fatalf("Get on empty store returned a session")
	}

	sess := s.GetOrCreate(1)
	if sess.Date != "01-02-2026" {
		t.Fatalf("date = %q, want %q", sess.Date, "01-02-2026")
	}
	if sess.Day != "" || len(sess.Entries) != 0 {
		t.Fatalf("fresh session not empty: %+v", sess)
	}

	// Same session comes back on repeat calls.
	sess.Day = DayChest
	if again := s.GetOrCreate(1); again.Day != DayChest {
		t.Fatalf("GetOrCreate returned a different session")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestStoreClear(t *testing.T) {
	s := NewStore(nil)
	s.GetOrCreate(1)
	s.GetOrCreate(2)
	s.Clear(1)
	if _, ok := s.Get(1); ok {
		t.Fatalf("cleared session still present")
	}
	if _, ok := s.Get(2); !ok {
		t.Fatalf("Clear removed the wrong session")
	}
}

func TestQuickLogStore(t *testing.T) {
	s := NewQuickLogStore()
	if got := s.List(1); got != nil {
		t.Fatalf("List on empty store = %+v", got)
	}

	s.Append(1, QuickLog{Activity: "Run", Details: "5km"})
	s.Append(1, QuickLog{Activity: "Other", Details: "yoga"})
	logs := s.List(1)
	if len(logs) != 2 || logs[0].Details != "5km" || logs[1].Details != "yoga" {
		t.Fatalf("logs = %+v", logs)
	}

	// List returns a copy; mutating it must not affect the store.
	logs[0].Details = "mutated"
	if s.List(1)[0].Details != "5km" {
		t.Fatalf("List leaked internal slice")
	}
}
