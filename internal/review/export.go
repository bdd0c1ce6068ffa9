package review

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/gonkalabs/gonka-redact-go/internal/audit"
	"github.com/gonkalabs/gonka-redact-go/internal/layout"
	"github.com/gonkalabs/gonka-redact-go/internal/sanitize"
	"github.com/gonkalabs/gonka-redact-go/internal/signer"
)

// Renderer draws laid-out pages.
type Renderer interface {
	Render(w io.Writer, pages []layout.Page) error
}

// Attester signs exported bytes.
type Attester interface {
	Attest(payload []byte, document string) (signer.Attestation, error)
}

// Auditor records exports.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry) (int64, error)
}

// Document is what an export needs from the session.
type Document struct {
	Name        string
	Fingerprint string
	Text        string
	Confirmed   []sanitize.Span
}

// Export is one rendered redaction.
type Export struct {
	FileName    string
	PDF         []byte
	Text        string
	Pages       int
	Confirmed   int
	Applied     int
	Digest      string
	Attestation *signer.Attestation
}

// Exporter composes, lays out, renders, signs and records redactions.
// Attester and Audit are optional.
type Exporter struct {
	Mask     rune
	Layout   *layout.Engine
	Renderer Renderer
	Attester Attester
	Audit    Auditor
}

func (e *Exporter) mask() rune {
	if e == nil || e.Mask == 0 {
		return sanitize.DefaultMask
	}
	return e.Mask
}

// Export renders doc. It fails with sanitize.ErrNothingToRedact when no span
// is confirmed. Audit failures are logged and do not fail the export.
func (e *Exporter) Export(ctx context.Context, doc Document) (*Export, error) {
	if len(doc.Confirmed) == 0 {
		return nil, sanitize.ErrNothingToRedact
	}
	if e == nil || e.Layout == nil || e.Renderer == nil {
		return nil, errors.New("review: exporter not configured")
	}

	text, applied := sanitize.Compose(doc.Text, doc.Confirmed, e.mask())
	pages := e.Layout.Layout(text)

	var buf bytes.Buffer
	if err := e.Renderer.Render(&buf, pages); err != nil {
		return nil, fmt.Errorf("review: render: %w", err)
	}

	out := &Export{
		FileName:  FileName(doc.Name),
		PDF:       buf.Bytes(),
		Text:      text,
		Pages:     len(pages),
		Confirmed: len(doc.Confirmed),
		Applied:   applied,
		Digest:    signer.Digest(buf.Bytes()),
	}

	if e.Attester != nil {
		a, err := e.Attester.Attest(out.PDF, doc.Fingerprint)
		if err != nil {
			return nil, fmt.Errorf("review: attest: %w", err)
		}
		out.Attestation = &a
	}

	if e.Audit != nil {
		entry := audit.Entry{
			Document:  doc.Fingerprint,
			FileName:  out.FileName,
			Confirmed: out.Confirmed,
			Applied:   out.Applied,
			Pages:     out.Pages,
			Digest:    out.Digest,
		}
		if out.Attestation != nil {
			entry.Signature = out.Attestation.Signature
			entry.Signer = out.Attestation.Signer
		}
		if _, err := e.Audit.Record(ctx, entry); err != nil {
			slog.Warn("review: audit record failed", "file", out.FileName, "err", err)
		}
	}

	slog.Info("review: exported",
		"file", out.FileName,
		"confirmed", out.Confirmed,
		"applied", out.Applied,
		"pages", out.Pages,
		"bytes", len(out.PDF),
	)
	return out, nil
}

var pdfSuffix = regexp.MustCompile(`(?i)\.pdf$`)

// FileName derives the download name: "report.pdf" becomes
// "report.redacted.pdf"; an empty name becomes "redacted.pdf".
func FileName(name string) string {
	base := strings.TrimSpace(pdfSuffix.ReplaceAllString(strings.TrimSpace(name), ""))
	if base == "" {
		return "redacted.pdf"
	}
	return base + ".redacted.pdf"
}
