package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeSentence canonicalizes transcript text for hashing and comparison:
// Unicode NFC, surrounding whitespace trimmed, internal runs of whitespace
// collapsed to single spaces.
func NormalizeSentence(text string) string {
	return norm.NFC.String(CollapseWhitespace(text))
}

// CollapseWhitespace trims the string and replaces every internal run of
// whitespace with a single space.
func CollapseWhitespace(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.Join(fields, " ")
}

// CountWords reports the number of whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
