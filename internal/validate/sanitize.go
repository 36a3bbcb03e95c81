package validate

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeText cleans a description or title for safe storage.
func SanitizeText(s string) string {
	// Remove null bytes (common injection attempt)
	s = strings.ReplaceAll(s, "\x00", "")

	// Normalize line endings
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	return strings.TrimSpace(StripControlChars(s))
}

// StripControlChars removes all control characters from a string.
func StripControlChars(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// SingleLine collapses newlines and runs of spaces so text fits one row.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateString truncates a string to maxLen runes, adding "..." if truncated.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
