package sanitize

import (
	"strings"
	"unicode/utf8"
)

// DefaultMask is the character repeated in place of redacted text.
const DefaultMask = 'X'

// MaskLen is the number of mask characters written for sp: the span length in
// characters, else the label length, else 1. A redacted span is never invisible.
func MaskLen(text string, sp Span) int {
	n := 0
	if sp.Start >= 0 && sp.Start < sp.End && sp.End <= len(text) {
		n = utf8.RuneCountInString(text[sp.Start:sp.End])
	}
	if n <= 0 {
		n = utf8.RuneCountInString(sp.Label)
	}
	if n <= 0 {
		n = 1
	}
	return n
}

// Compose rebuilds text with every span masked and returns the result and the
// number of mask runs written. Spans are taken as given (callers pass the
// confirmed subset) and walked by Start; a span starting before the end of an
// earlier one is skipped, so the earlier redaction wins.
func Compose(text string, spans []Span, mask rune) (string, int) {
	if mask == 0 {
		mask = DefaultMask
	}
	var b strings.Builder
	b.Grow(len(text))

	cursor, applied := 0, 0
	for _, sp := range orderSpans(spans) {
		if sp.Start < cursor || sp.Start > len(text) {
			continue
		}
		end := min(max(sp.End, sp.Start), len(text))
		b.WriteString(text[cursor:sp.Start])
		b.WriteString(strings.Repeat(string(mask), MaskLen(text, sp)))
		cursor = end
		applied++
	}
	b.WriteString(text[cursor:])
	return b.String(), applied
}
