package stt

import (
	"regexp"
	"strings"
)

// DefaultFillerWords are the hesitation sounds and verbal tics stripped
// from transcripts before they reach the responder.
var DefaultFillerWords = []string{
	"um", "uh", "uhh", "umm",
	"er", "ah", "hmm", "mm",
	"you know", "basically", "literally",
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// Filter removes filler words from recognized transcripts. A Filter is
// immutable after construction and safe for concurrent use.
type Filter struct {
	pattern *regexp.Regexp
}

// NewFilter builds a filter for the given filler words. Nil uses
// DefaultFillerWords; an empty slice disables filtering entirely.
func NewFilter(fillerWords []string) *Filter {
	if fillerWords == nil {
		fillerWords = DefaultFillerWords
	}
	if len(fillerWords) == 0 {
		return &Filter{}
	}

	patterns := make([]string, 0, len(fillerWords))
	for _, w := range fillerWords {
		patterns = append(patterns, `\b`+regexp.QuoteMeta(strings.ToLower(w))+`\b`)
	}
	return &Filter{
		pattern: regexp.MustCompile(`(?i)(` + strings.Join(patterns, `|`) + `)`),
	}
}

// Clean strips filler words and normalizes whitespace. The second return
// is false when nothing meaningful remains.
func (f *Filter) Clean(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	cleaned := text
	if f.pattern != nil {
		cleaned = f.pattern.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))

	if strings.Trim(cleaned, ".,!?;: ") == "" {
		return "", false
	}
	return cleaned, true
}
