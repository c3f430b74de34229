package utils

import "strings"

// NormalizeWhitespace replaces multiple whitespace with single space.
func NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateString truncates string to max length, counting runes.
func TruncateString(str string, maxLength int) string {
	runes := []rune(str)
	if len(runes) <= maxLength {
		return str
	}

	return string(runes[:maxLength]) + "..."
}

// Preview squeezes a response body or document into a single short log line.
func Preview(body []byte) string {
	return TruncateString(NormalizeWhitespace(string(body)), 200)
}
