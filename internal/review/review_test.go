package review

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/gonkalabs/gonka-redact-go/internal/audit"
	"github.com/gonkalabs/gonka-redact-go/internal/layout"
	"github.com/gonkalabs/gonka-redact-go/internal/sanitize"
	"github.com/gonkalabs/gonka-redact-go/internal/signer"
)

const doc = "Contact John Smith at 555-1234 today."

type textExtractor struct{ err error }

func (x textExtractor) Extract(_ context.Context, data []byte) (string, error) {
	if x.err != nil {
		return "", x.err
	}
	return string(data), nil
}

type lineRenderer struct{}

func (lineRenderer) Render(w io.Writer, pages []layout.Page) error {
	for _, p := range pages {
		for _, l := range p.Lines {
			fmt.Fprintln(w, l.Text)
		}
	}
	return nil
}

type memAudit struct {
	entries []audit.Entry
	err     error
}

func (m *memAudit) Record(_ context.Context, e audit.Entry) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.entries = append(m.entries, e)
	return int64(len(m.entries)), nil
}

func monospace(text string, size float64) float64 {
	return float64(len([]rune(text))) * size * 0.5
}

func newSession(t *testing.T, sg Suggester, aud Auditor) *Session {
	t.Helper()
	exp := &Exporter{
		Mask:     'X',
		Layout:   layout.NewEngine(monospace),
		Renderer: lineRenderer{},
	}
	if aud != nil {
		exp.Audit = aud
	}
	return New(textExtractor{}, sg, exp)
}

func suggester(entities ...sanitize.Entity) Suggester {
	return sanitize.NewSuggester(sanitize.ClassifierFunc(func(context.Context, string) ([]sanitize.Entity, error) {
		return entities, nil
	}))
}

func TestLoadAndReview(t *testing.T) {
	s := newSession(t, suggester(
		sanitize.Entity{ID: "PER", Label: "PER", Text: "John Smith"},
		sanitize.Entity{ID: "PHONE", Label: "PHONE", Text: "555-1234"},
	), nil)

	if _, err := s.Snapshot(); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("empty session: %v", err)
	}

	snap, err := s.Load(context.Background(), "memo.pdf", []byte(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Name != "memo.pdf" || len(snap.Spans) != 2 || snap.Counts.Pending != 2 {
		t.Fatalf("snapshot %+v", snap)
	}

	if _, err := s.SetStatus(snap.Generation, "PER-0", "confirmed"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := s.SetStatus(snap.Generation, "PER-0", "maybe"); !errors.Is(err, sanitize.ErrInvalidStatus) {
		t.Fatalf("bad status: %v", err)
	}
	if _, err := s.SetStatus(snap.Generation, "nope", "rejected"); !errors.Is(err, sanitize.ErrNotFound) {
		t.Fatalf("unknown id: %v", err)
	}

	got, err := s.Redacted(snap.Generation)
	if err != nil || got != "Contact XXXXXXXXXX at 555-1234 today." {
		t.Fatalf("Redacted = %q, %v", got, err)
	}

	gen, frags, err := s.Fragments()
	if err != nil || gen != snap.Generation || len(frags) != 5 {
		t.Fatalf("Fragments = %d, %d fragments, %v", gen, len(frags), err)
	}
}

func TestStaleGeneration(t *testing.T) {
	s := newSession(t, nil, nil)
	first, _ := s.LoadText(context.Background(), "a", "first document")
	second, _ := s.LoadText(context.Background(), "b", "second document")
	if first.Generation == second.Generation {
		t.Fatalf("generation did not change")
	}
	if _, err := s.AddSelection(first.Generation, "document"); !errors.Is(err, ErrStale) {
		t.Fatalf("stale add: %v", err)
	}
	if _, err := s.AddSelection(second.Generation, "document"); err != nil {
		t.Fatalf("fresh add: %v", err)
	}
	if _, err := s.AddSelection(0, "missing"); !errors.Is(err, sanitize.ErrNoOccurrence) {
		t.Fatalf("missing selection: %v", err)
	}
}

func TestExportRejectsStaleGeneration(t *testing.T) {
	aud := &memAudit{}
	s := newSession(t, nil, aud)

	if _, err := s.Export(context.Background(), 0); !errors.Is(err, ErrNoDocument) {
		t.Fatalf("empty session: %v", err)
	}

	reviewed, _ := s.LoadText(context.Background(), "reviewed.pdf", doc)
	if _, err := s.AddSelection(reviewed.Generation, "John Smith"); err != nil {
		t.Fatalf("select: %v", err)
	}
	other, _ := s.LoadText(context.Background(), "other.pdf", "Jane Doe lives at 1 Main St.")
	if _, err := s.AddSelection(other.Generation, "Jane Doe"); err != nil {
		t.Fatalf("select: %v", err)
	}

	if _, err := s.Export(context.Background(), reviewed.Generation); !errors.Is(err, ErrStale) {
		t.Fatalf("stale export: %v", err)
	}
	if _, err := s.Redacted(reviewed.Generation); !errors.Is(err, ErrStale) {
		t.Fatalf("stale redacted text: %v", err)
	}
	if len(aud.entries) != 0 {
		t.Fatalf("audit written for stale export: %+v", aud.entries)
	}

	out, err := s.Export(context.Background(), other.Generation)
	if err != nil || out.FileName != "other.redacted.pdf" {
		t.Fatalf("Export = %+v, %v", out, err)
	}
}

func TestFailedLoadKeepsDocument(t *testing.T) {
	s := newSession(t, nil, nil)
	before, _ := s.LoadText(context.Background(), "a", doc)

	s.extractor = textExtractor{err: errors.New("broken xref")}
	if _, err := s.Load(context.Background(), "b.pdf", []byte("x")); !errors.Is(err, ErrExtract) {
		t.Fatalf("extract failure: %v", err)
	}

	s.extractor = textExtractor{}
	s.suggester = sanitize.NewSuggester(sanitize.ClassifierFunc(func(context.Context, string) ([]sanitize.Entity, error) {
		return nil, errors.New("down")
	}))
	if _, err := s.Load(context.Background(), "c.pdf", []byte("other")); !errors.Is(err, sanitize.ErrOracle) {
		t.Fatalf("oracle failure: %v", err)
	}

	after, err := s.Snapshot()
	if err != nil || after.Generation != before.Generation || after.Text != doc {
		t.Fatalf("document replaced: %+v, %v", after, err)
	}
}

func TestExport(t *testing.T) {
	aud := &memAudit{}
	s := newSession(t, suggester(sanitize.Entity{ID: "PHONE", Text: "555-1234"}), aud)
	snap, _ := s.LoadText(context.Background(), "Memo.PDF", doc)

	if _, err := s.Export(context.Background(), snap.Generation); !errors.Is(err, sanitize.ErrNothingToRedact) {
		t.Fatalf("nothing confirmed: %v", err)
	}
	if len(aud.entries) != 0 {
		t.Fatalf("audit written for failed export")
	}

	if _, err := s.SetAll(snap.Generation, "confirmed"); err != nil {
		t.Fatalf("confirm all: %v", err)
	}
	if _, err := s.AddSelection(snap.Generation, "  John Smith "); err != nil {
		t.Fatalf("select: %v", err)
	}

	out, err := s.Export(context.Background(), snap.Generation)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	want := "Contact XXXXXXXXXX at XXXXXXXX today."
	if out.Text != want || strings.TrimSpace(string(out.PDF)) != want {
		t.Fatalf("export text %q, pdf %q", out.Text, out.PDF)
	}
	if out.FileName != "Memo.redacted.pdf" || out.Confirmed != 2 || out.Applied != 2 || out.Pages != 1 {
		t.Fatalf("export %+v", out)
	}
	if out.Digest != signer.Digest(out.PDF) || out.Attestation != nil {
		t.Fatalf("digest %s attestation %+v", out.Digest, out.Attestation)
	}
	if len(aud.entries) != 1 || aud.entries[0].Document != snap.Fingerprint {
		t.Fatalf("audit %+v", aud.entries)
	}
}

func TestExportAuditFailureIsLogged(t *testing.T) {
	s := newSession(t, nil, &memAudit{err: errors.New("disk full")})
	snap, _ := s.LoadText(context.Background(), "", doc)
	s.AddSelection(snap.Generation, "today")
	out, err := s.Export(context.Background(), snap.Generation)
	if err != nil || out.FileName != "redacted.pdf" {
		t.Fatalf("Export = %+v, %v", out, err)
	}
}

func TestExportAttested(t *testing.T) {
	sg, err := signer.New("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	s := newSession(t, nil, nil)
	s.exporter.Attester = sg
	snap, _ := s.LoadText(context.Background(), "x.pdf", doc)
	s.AddSelection(snap.Generation, "John")

	out, err := s.Export(context.Background(), snap.Generation)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out.Attestation == nil || out.Attestation.Document != snap.Fingerprint {
		t.Fatalf("attestation %+v", out.Attestation)
	}
	if err := signer.Verify(out.PDF, *out.Attestation); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"report.pdf": "report.redacted.pdf",
		"REPORT.PDF": "REPORT.redacted.pdf",
		"notes.txt":  "notes.txt.redacted.pdf",
		"":           "redacted.pdf",
		".pdf":       "redacted.pdf",
		"a.pdf.pdf":  "a.pdf.redacted.pdf",
	}
	for in, want := range tests {
		if got := FileName(in); got != want {
			t.Errorf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}
