package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// ContainsAny reports whether text contains any of the needles.
func ContainsAny(text string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// CountHits counts how many distinct needles occur in text (each needle counts once).
func CountHits(text string, needles []string) int {
	n := 0
	for _, w := range needles {
		if w != "" && strings.Contains(text, w) {
			n++
		}
	}
	return n
}

// HasQuestion reports whether s contains an ASCII or full-width question mark.
func HasQuestion(s string) bool {
	return strings.ContainsAny(s, "?？")
}

// RuneLen returns the number of characters in s.
func RuneLen(s string) int { return utf8.RuneCountInString(s) }

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// TrimForPrompt truncates s to n characters and marks the cut with an ellipsis.
func TrimForPrompt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return Truncate(s, n) + "…"
}

// Coalesce returns a if non-empty, otherwise b.
func Coalesce(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
