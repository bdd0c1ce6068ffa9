package sanitize

import (
	"fmt"
	"sort"
	"strings"
)

// Status is the review state of a span.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

// ParseStatus converts a user-supplied string into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusConfirmed, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Source tells the store where a candidate span came from.
// It decides the initial status.
type Source int

const (
	SourceOracle Source = iota // suggested by a classifier, starts pending
	SourceUser                 // drawn by the reviewer, starts confirmed
)

// CategoryCustom is the category given to reviewer-drawn spans.
const CategoryCustom = "CUSTOM"

// Span is a detection: a labelled byte range of the document text.
type Span struct {
	ID       string `json:"id"`
	Label    string `json:"label"`    // the matched substring, for display
	Category string `json:"category"` // e.g. "PER", "PHONE", "CUSTOM"
	Start    int    `json:"start"`    // byte offset of the first character (UTF-8)
	End      int    `json:"end"`      // byte offset one past the last character
	Status   Status `json:"status"`
}

// Candidate is a span proposed for insertion into a Store.
type Candidate struct {
	ID       string // preferred id; a fresh one is generated when empty or taken
	Label    string // defaults to the covered text
	Category string
	Start    int
	End      int
	Source   Source
}

// orderSpans returns a copy of spans sorted by Start. Ties keep input order.
func orderSpans(spans []Span) []Span {
	out := make([]Span, len(spans))
	copy(out, spans)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func isRuneBoundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}
	return s[i]&0xC0 != 0x80
}
