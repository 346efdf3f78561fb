package workout

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minSetCount = 1
	maxSetCount = 20
	maxReps     = 200
)

// setLineRe matches "<reps><sep><weight>" where the separator is "@" or "x",
// with optional surrounding spaces. The weight keeps any trailing unit text.
var setLineRe = regexp.MustCompile(`^(\d+)\s*[@xX]\s*(\S.*)$`)

// ParseSetLine parses one set reply such as "6@60", "6 @ 60" or "6x60".
// Reps must be a positive integer up to 200; the weight is any non-empty
// trailing token and is kept as text so units like "135lb" survive.
func ParseSetLine(s string) (int, string, bool) {
	m := setLineRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, "", false
	}
	reps, err := strconv.Atoi(m[1])
	if err != nil || reps <= 0 || reps > maxReps {
		return 0, "", false
	}
	weight := strings.TrimSpace(m[2])
	if weight == "" {
		return 0, "", false
	}
	return reps, weight, true
}

// ParseSetCount parses the set-count reply, accepting integers 1 through 20.
func ParseSetCount(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < minSetCount || n > maxSetCount {
		return 0, false
	}
	return n, true
}

// IsNumeric reports whether the reply parses as a number, integer or decimal.
// Cardio degree and speed values are validated with this but stored as text.
func IsNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
