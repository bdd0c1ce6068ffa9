// Package sanitize holds the review model of the redaction service: the
// extracted document text, the detections (spans) laid over it, and the pure
// transformations derived from them.
//
// A Store owns one document. Its text never changes in place; loading a new
// document replaces the text and drops every span in one step. Spans may
// overlap; overlap is resolved when views are derived, never in storage.
//
// Usage:
//
//	st := sanitize.NewStore(text)
//	st.AddEntities(entities)          // oracle suggestions, pending
//	st.SetStatus("PER-1-0", sanitize.StatusConfirmed)
//	frags := sanitize.Partition(st.Text(), st.Ordered())
//	redacted, err := st.Redact(sanitize.DefaultMask)
package sanitize

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// generationCounter hands out document generations across all stores in the
// process, so a view taken from one document never matches another.
var generationCounter atomic.Uint64

// Store holds one document's text and its spans.
// It is not safe for concurrent use; callers serialise access.
type Store struct {
	text        string
	fingerprint string
	generation  uint64

	spans []Span         // insertion order
	index map[string]int // id → position in spans
}

// NewStore creates a Store for text with no spans.
func NewStore(text string) *Store {
	s := &Store{}
	s.ReplaceDocument(text)
	return s
}

// ReplaceDocument installs text as the new document and discards all spans.
// Views derived from the previous document are stale afterwards; Generation
// changes so callers can detect that.
func (s *Store) ReplaceDocument(text string) {
	sum := blake3.Sum256([]byte(text))
	s.text = text
	s.fingerprint = hex.EncodeToString(sum[:])
	s.generation = generationCounter.Add(1)
	s.spans = nil
	s.index = make(map[string]int)
}

// Text returns the document text.
func (s *Store) Text() string { return s.text }

// Fingerprint returns the hex BLAKE3 digest of the document text.
func (s *Store) Fingerprint() string { return s.fingerprint }

// Generation identifies the currently installed document.
func (s *Store) Generation() uint64 { return s.generation }

// Len returns the number of spans.
func (s *Store) Len() int { return len(s.spans) }

// AddSpan validates c and stores it as a new span.
// Oracle candidates start pending, user candidates start confirmed.
func (s *Store) AddSpan(c Candidate) (Span, error) {
	if c.Start < 0 || c.End > len(s.text) || c.Start > c.End {
		return Span{}, fmt.Errorf("%w: [%d,%d) in text of %d bytes", ErrInvalidRange, c.Start, c.End, len(s.text))
	}
	if !isRuneBoundary(s.text, c.Start) || !isRuneBoundary(s.text, c.End) {
		return Span{}, fmt.Errorf("%w: [%d,%d) splits a character", ErrInvalidRange, c.Start, c.End)
	}

	sp := Span{
		ID:       s.freshID(c),
		Label:    c.Label,
		Category: c.Category,
		Start:    c.Start,
		End:      c.End,
		Status:   StatusPending,
	}
	if sp.Label == "" {
		sp.Label = s.text[c.Start:c.End]
	}
	if c.Source == SourceUser {
		sp.Status = StatusConfirmed
		if sp.Category == "" {
			sp.Category = CategoryCustom
		}
	}

	s.index[sp.ID] = len(s.spans)
	s.spans = append(s.spans, sp)
	return sp, nil
}

// freshID returns the preferred id when it is unused, otherwise a new one.
func (s *Store) freshID(c Candidate) string {
	if c.ID != "" {
		if _, taken := s.index[c.ID]; !taken {
			return c.ID
		}
		slog.Debug("sanitize: span id taken, generating a new one", "id", c.ID)
		return c.ID + "-" + uuid.NewString()
	}
	if c.Source == SourceUser {
		return CategoryCustom + "-" + uuid.NewString()
	}
	return uuid.NewString()
}

// SetStatus changes the status of span id. Every transition is allowed.
func (s *Store) SetStatus(id string, st Status) error {
	if _, err := ParseStatus(string(st)); err != nil {
		return err
	}
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	s.spans[i].Status = st
	return nil
}

// SetAllStatus sets every span to st (confirm-all / reject-all) and returns
// how many spans changed.
func (s *Store) SetAllStatus(st Status) (int, error) {
	if _, err := ParseStatus(string(st)); err != nil {
		return 0, err
	}
	changed := 0
	for i := range s.spans {
		if s.spans[i].Status != st {
			s.spans[i].Status = st
			changed++
		}
	}
	return changed, nil
}

// Get returns the span with the given id.
func (s *Store) Get(id string) (Span, bool) {
	i, ok := s.index[id]
	if !ok {
		return Span{}, false
	}
	return s.spans[i], true
}

// Ordered returns a copy of all spans sorted by Start, ties in insertion order.
func (s *Store) Ordered() []Span {
	return orderSpans(s.spans)
}

// Confirmed returns the confirmed spans in ordered view.
func (s *Store) Confirmed() []Span {
	var out []Span
	for _, sp := range s.Ordered() {
		if sp.Status == StatusConfirmed {
			out = append(out, sp)
		}
	}
	return out
}

// Counts tallies spans per status.
type Counts struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Rejected  int `json:"rejected"`
	Total     int `json:"total"`
}

// Counts returns the number of spans in each status.
func (s *Store) Counts() Counts {
	var c Counts
	for _, sp := range s.spans {
		switch sp.Status {
		case StatusPending:
			c.Pending++
		case StatusConfirmed:
			c.Confirmed++
		case StatusRejected:
			c.Rejected++
		}
	}
	c.Total = len(s.spans)
	return c
}

// AddEntities locates every occurrence of each entity's text and adds one
// pending span per occurrence. It returns the spans that were added.
func (s *Store) AddEntities(entities []Entity) []Span {
	var added []Span
	for _, c := range Candidates(s.text, entities) {
		sp, err := s.AddSpan(c)
		if err != nil {
			// Occurrence search only yields in-bounds ranges; a failure here
			// means a match split a character, which cannot be a span.
			slog.Debug("sanitize: dropping candidate", "id", c.ID, "err", err)
			continue
		}
		added = append(added, sp)
	}
	return added
}

// AddFromSelection adds a confirmed user span over the first occurrence of the
// trimmed selection. It fails with ErrNoOccurrence when the selection is empty
// or does not occur in the text.
func (s *Store) AddFromSelection(selection string) (Span, error) {
	selected := strings.TrimSpace(selection)
	if selected == "" {
		return Span{}, ErrNoOccurrence
	}
	start := strings.Index(s.text, selected)
	if start < 0 {
		return Span{}, fmt.Errorf("%w: %q", ErrNoOccurrence, selected)
	}
	return s.AddSpan(Candidate{
		Label:    selected,
		Category: CategoryCustom,
		Start:    start,
		End:      start + len(selected),
		Source:   SourceUser,
	})
}

// Redact composes the redacted text from the confirmed spans.
// It fails with ErrNothingToRedact when no span is confirmed.
func (s *Store) Redact(mask rune) (string, error) {
	confirmed := s.Confirmed()
	if len(confirmed) == 0 {
		return "", ErrNothingToRedact
	}
	out, _ := Compose(s.text, confirmed, mask)
	return out, nil
}
