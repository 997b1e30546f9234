package formatter

import (
	"html"
	"strings"
)

// Truncate shortens s to at most max runes, appending "..." when it was cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// DecodeEntities resolves HTML entity escapes that Reddit applies to URLs and
// embed markup (most commonly "&amp;" inside query strings).
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	return html.UnescapeString(s)
}
