package workout

import (
	"strings"
	"testing"
)

func TestSummarizeEmptySession(t *testing.T) {
	s := &Session{Date: "01-02-2026"}
	got := Summarize(s)
	want := "Summary of *01-02-2026* Workout\nDay: Unknown\n(no exercises logged)"
	if got != want {
		t.Fatalf("Summarize = %q, want %q", got, want)
	}
}

func TestSummarizeWithEntries(t *testing.T) {
	s := &Session{
		Date: "01-02-2026",
		Day:  DayChest,
		Entries: []Entry{
			LiftEntry{Equipment: EquipmentDumbbell, Exercise: "Bench Press", Sets: 2, Reps: []int{6, 5}, Weights: []string{"60", "60"}},
			CardioEntry{Mode: CardioIncline, Degree: "10", Speed: "6.5"},
		},
	}
	got := Summarize(s)
	if !strings.Contains(got, "Summary of *01-02-2026* Workout") {
		t.Fatalf("missing header: %q", got)
	}
	if !strings.Contains(got, "Day: Chest") {
		t.Fatalf("missing day line: %q", got)
	}
	if !strings.Contains(got, "Dumbbell Bench Press — 2 x 6(60), 5(60)") {
		t.Fatalf("missing lift line: %q", got)
	}
	if !strings.Contains(got, "Incline 10° @ 6.5") {
		t.Fatalf("missing cardio line: %q", got)
	}
}

func TestSummarizeIdempotent(t *testing.T) {
	s := &Session{
		Date:    "01-02-2026",
		Day:     DayLegs,
		Entries: []Entry{LiftEntry{Equipment: EquipmentBarbell, Exercise: "Squat", Sets: 1, Reps: []int{5}, Weights: []string{"100"}}},
	}
	first := Summarize(s)
	second := Summarize(s)
	if first != second {
		t.Fatalf("Summarize not deterministic:\n%q\n%q", first, second)
	}
}

func TestSummarizeNil(t *testing.T) {
	if got := Summarize(nil); got != "No workout found." {
		t.Fatalf("Summarize(nil) = %q", got)
	}
}

func TestSummarizeEscapesMarkdownInUserText(t *testing.T) {
	s := &Session{
		Date:    "01-02-2026",
		Day:     DayBack,
		Entries: []Entry{LiftEntry{Equipment: EquipmentMachine, Exercise: "Lat_Pulldown", Sets: 1, Reps: []int{8}, Weights: []string{"50"}}},
	}
	got := Summarize(s)
	if !strings.Contains(got, `Lat\_Pulldown`) {
		t.Fatalf("exercise underscore not escaped: %q", got)
	}
	if !strings.Contains(got, "*01-02-2026*") {
		t.Fatalf("date bold markers must survive escaping: %q", got)
	}
}
