package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// ,} or ,]
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)

	// }{ between array elements
	missingCommaBetweenObjectsRegex = regexp.MustCompile(`}\s*{`)

	// "value"\n"key":
	missingCommaBeforeKeyRegex = regexp.MustCompile(`(")\s*\n\s*("[\w][^"]*"\s*:)`)
)

// repairJSON fixes the syntax errors models commonly produce: raw control characters
// inside strings, trailing or missing commas, and output cut off mid-structure.
func repairJSON(input string) string {
	result := sanitizeControlChars(input)
	result = missingCommaBeforeKeyRegex.ReplaceAllString(result, `$1, $2`)
	result = missingCommaBetweenObjectsRegex.ReplaceAllString(result, `},{`)
	result = closeTruncated(result)
	result = trailingCommaRegex.ReplaceAllString(result, `$1`)
	return result
}

// sanitizeControlChars escapes literal control characters inside JSON strings.
func sanitizeControlChars(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString && c < 0x20:
			switch c {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				b.WriteString(fmt.Sprintf(`\u%04x`, c))
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// closeTruncated closes an unterminated string and any brackets left open, innermost first.
func closeTruncated(input string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if !inString && len(stack) == 0 {
		return input
	}
	var b strings.Builder
	b.WriteString(input)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
