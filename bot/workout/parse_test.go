package workout

import "testing"

func TestParseSetLine(t *testing.T) {
	cases := []struct {
		in     string
		reps   int
		weight string
		ok     bool
	}{
		{"6@60", 6, "60", true},
		{"6 @ 60", 6, "60", true},
		{"6x60", 6, "60", true},
		{"6 x 60", 6, "60", true},
		{"12X61.25", 12, "61.25", true},
		{"8@135lb", 8, "135lb", true},
		{"  6@60  ", 6, "60", true},
		{"abc", 0, "", false},
		{"0@60", 0, "", false},
		{"201@60", 0, "", false},
		{"6@", 0, "", false},
		{"@60", 0, "", false},
		{"", 0, "", false},
		{"6", 0, "", false},
	}
	for _, tc := range cases {
		reps, weight, ok := ParseSetLine(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseSetLine(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
		if !tc.ok {
			continue
		}
		if reps != tc.reps || weight != tc.weight {
			t.Fatalf("ParseSetLine(%q) = (%d, %q), want (%d, %q)", tc.in, reps, weight, tc.reps, tc.weight)
		}
	}
}

func TestParseSetCount(t *testing.T) {
	cases := []struct {
		in string
		n  int
		ok bool
	}{
		{"1", 1, true},
		{"20", 20, true},
		{" 3 ", 3, true},
		{"0", 0, false},
		{"21", 0, false},
		{"25", 0, false},
		{"abc", 0, false},
		{"-1", 0, false},
		{"2.5", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		n, ok := ParseSetCount(tc.in)
		if ok != tc.ok || n != tc.n {
			t.Fatalf("ParseSetCount(%q) = (%d, %v), want (%d, %v)", tc.in, n, ok, tc.n, tc.ok)
		}
	}
}

func TestIsNumeric(t *testing.T) {
	for _, s := range []string{"10", "6.5", " 7 ", "-2", "0"} {
		if !IsNumeric(s) {
			t.Fatalf("IsNumeric(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "fast", "6,5", "10°"} {
		if IsNumeric(s) {
			t.Fatalf("IsNumeric(%q) = true, want false", s)
		}
	}
}
