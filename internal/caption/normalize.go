package caption

import "strings"

// normalizeCaption cleans whitespace around already decoded caption text.
// Markup-looking runs and entity text are part of the caption and are kept.
// Returns "" when only whitespace remains.
func normalizeCaption(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")

	return strings.TrimSpace(text)
}
