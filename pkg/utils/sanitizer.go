package utils

import (
	"regexp"
	"strings"
)

// MaxSymptomLength is the hard cap applied to sanitized symptom text.
const MaxSymptomLength = 1000

var (
	disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9\s.,!?-]`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// SanitizeSymptomText normalizes raw user input: strips characters outside the
// allowed set, collapses whitespace runs to single spaces, trims, and caps the
// length. It never fails; hostile or empty input yields an empty string.
func SanitizeSymptomText(raw string) string {
	cleaned := disallowedChars.ReplaceAllString(raw, "")
	cleaned = whitespaceRuns.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned) > MaxSymptomLength {
		cleaned = strings.TrimSpace(cleaned[:MaxSymptomLength])
	}
	return cleaned
}
