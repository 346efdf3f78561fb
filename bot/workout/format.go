package workout

import (
	"fmt"
	"strings"

	"github.com/Jethrochang07/FlyWJ/core/telegram/format"
)

// Summarize renders the full workout summary for a session. The output is
// Markdown: the date is bold and user-entered entry text is escaped. Pure
// and deterministic for identical session content.
func Summarize(s *Session) string {
	if s == nil {
		return "No workout found."
	}

	day := s.Day
	if day == "" {
		day = "Unknown"
	}

	lines := []string{
		fmt.Sprintf("Summary of *%s* Workout", s.Date),
		fmt.Sprintf("Day: %s", day),
	}
	if len(s.Entries) == 0 {
		lines = append(lines, "(no exercises logged)")
		return strings.Join(lines, "\n")
	}
	for _, e := range s.Entries {
		lines = append(lines, format.EscapeMarkdown(e.Label()))
	}
	return strings.Join(lines, "\n")
}
