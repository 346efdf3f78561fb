package format

import "strings"

var mdV1Replacer = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// EscapeMarkdown escapes Markdown (v1) special characters in user-entered
// text so it can be embedded into formatted messages.
func EscapeMarkdown(text string) string {
	return mdV1Replacer.Replace(text)
}
