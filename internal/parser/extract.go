// Package parser turns raw generator output into a validated QuerySet.
//
// Extraction is tolerant: code fences and surrounding prose are stripped.
// Validation is strict: exactly domain.QueriesPerCategory unique non-empty queries.
package parser

import (
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("^```[a-zA-Z]*\\n|\\n```$")

// StripFence removes one leading "```lang" line and one trailing "```" line.
func StripFence(text string) string {
	return fenceRe.ReplaceAllString(strings.TrimSpace(text), "")
}

// ExtractJSON returns the span from the first '{' to the last '}' of the
// fence-stripped text, or the whole stripped text when no such span exists.
func ExtractJSON(raw string) string {
	text := StripFence(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}
