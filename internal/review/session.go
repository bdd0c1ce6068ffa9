// Package review orchestrates one redaction review: it loads a document
// through the extraction and suggestion ports, serialises every edit to the
// span store, and hands confirmed spans to the Exporter.
//
// A Session holds at most one document. Loading runs extraction and
// suggestion before the store is touched and installs the result in one
// swap, so a failed load leaves the previous document in place.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gonkalabs/gonka-redact-go/internal/sanitize"
)

var (
	ErrNoDocument = errors.New("review: no document loaded")
	ErrStale      = errors.New("review: document changed since the view was taken")
	ErrExtract    = errors.New("review: text extraction failed")
)

// Extractor turns an uploaded file into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Suggester proposes entities for a text.
type Suggester interface {
	Suggest(ctx context.Context, text string) ([]sanitize.Entity, error)
}

// Snapshot is a consistent read of the session. Generation identifies the
// document it was taken from; edits that quote a stale generation fail.
type Snapshot struct {
	Name        string          `json:"name"`
	Fingerprint string          `json:"fingerprint"`
	Generation  uint64          `json:"generation"`
	Text        string          `json:"text"`
	Spans       []sanitize.Span `json:"spans"`
	Counts      sanitize.Counts `json:"counts"`
}

// Session is the single-writer owner of the current document.
type Session struct {
	extractor Extractor
	suggester Suggester
	exporter  *Exporter

	mu    sync.Mutex
	name  string
	store *sanitize.Store
}

// New creates an empty Session. suggester may be nil, in which case loaded
// documents start without detections.
func New(extractor Extractor, suggester Suggester, exporter *Exporter) *Session {
	return &Session{extractor: extractor, suggester: suggester, exporter: exporter}
}

// Load extracts text from data and installs it with its suggestions.
func (s *Session) Load(ctx context.Context, name string, data []byte) (Snapshot, error) {
	text, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %w", ErrExtract, err)
	}
	return s.LoadText(ctx, name, text)
}

// LoadText installs text as the current document with its suggestions.
func (s *Session) LoadText(ctx context.Context, name, text string) (Snapshot, error) {
	var entities []sanitize.Entity
	if s.suggester != nil {
		var err error
		entities, err = s.suggester.Suggest(ctx, text)
		if err != nil {
			return Snapshot{}, fmt.Errorf("review: suggest: %w", err)
		}
	}

	st := sanitize.NewStore(text)
	added := st.AddEntities(entities)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
	s.store = st
	slog.Info("review: document loaded",
		"name", name,
		"fingerprint", st.Fingerprint(),
		"bytes", len(text),
		"entities", len(entities),
		"spans", len(added),
	)
	return s.snapshot(), nil
}

// Snapshot returns the current document and its ordered spans.
func (s *Session) Snapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return Snapshot{}, ErrNoDocument
	}
	return s.snapshot(), nil
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		Name:        s.name,
		Fingerprint: s.store.Fingerprint(),
		Generation:  s.store.Generation(),
		Text:        s.store.Text(),
		Spans:       s.store.Ordered(),
		Counts:      s.store.Counts(),
	}
}

// Fragments partitions the current text by its spans for display.
func (s *Session) Fragments() (uint64, []sanitize.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return 0, nil, ErrNoDocument
	}
	return s.store.Generation(), sanitize.Partition(s.store.Text(), s.store.Ordered()), nil
}

// SetStatus changes the status of span id. A non-zero generation must match
// the installed document.
func (s *Session) SetStatus(generation uint64, id, status string) (sanitize.Span, error) {
	st, err := sanitize.ParseStatus(status)
	if err != nil {
		return sanitize.Span{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(generation); err != nil {
		return sanitize.Span{}, err
	}
	if err := s.store.SetStatus(id, st); err != nil {
		return sanitize.Span{}, err
	}
	sp, _ := s.store.Get(id)
	slog.Debug("review: status changed", "id", id, "status", st)
	return sp, nil
}

// SetAll applies status to every span and returns the updated counts.
func (s *Session) SetAll(generation uint64, status string) (sanitize.Counts, error) {
	st, err := sanitize.ParseStatus(status)
	if err != nil {
		return sanitize.Counts{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(generation); err != nil {
		return sanitize.Counts{}, err
	}
	changed, err := s.store.SetAllStatus(st)
	if err != nil {
		return sanitize.Counts{}, err
	}
	slog.Info("review: bulk status change", "status", st, "changed", changed)
	return s.store.Counts(), nil
}

// AddSelection adds a confirmed user span over the first occurrence of
// selection.
func (s *Session) AddSelection(generation uint64, selection string) (sanitize.Span, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(generation); err != nil {
		return sanitize.Span{}, err
	}
	return s.store.AddFromSelection(selection)
}

// Redacted returns the redacted text without rendering it. A non-zero
// generation must match the installed document.
func (s *Session) Redacted(generation uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(generation); err != nil {
		return "", err
	}
	return s.store.Redact(s.exporter.mask())
}

// Export renders the confirmed spans of the current document. A non-zero
// generation must match the installed document, so a client never downloads
// a document other than the one it reviewed.
func (s *Session) Export(ctx context.Context, generation uint64) (*Export, error) {
	s.mu.Lock()
	if err := s.check(generation); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	doc := Document{
		Name:        s.name,
		Fingerprint: s.store.Fingerprint(),
		Text:        s.store.Text(),
		Confirmed:   s.store.Confirmed(),
	}
	s.mu.Unlock()

	return s.exporter.Export(ctx, doc)
}

// check must be called with mu held.
func (s *Session) check(generation uint64) error {
	if s.store == nil {
		return ErrNoDocument
	}
	if generation != 0 && generation != s.store.Generation() {
		return fmt.Errorf("%w: have %d, got %d", ErrStale, s.store.Generation(), generation)
	}
	return nil
}
