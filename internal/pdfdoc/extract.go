// Package pdfdoc adapts PDF files to the review model: it extracts a flat text
// stream from an uploaded PDF, measures glyph widths for layout, and renders
// laid-out pages back into a PDF.
package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

// ErrNotPDF is returned for input that does not start with the PDF header.
var ErrNotPDF = errors.New("pdfdoc: not a PDF file")

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// Extractor pulls plain text out of PDF files.
type Extractor struct{}

// Extract returns the text of every page, pages separated by a blank line,
// trimmed and NFC-normalised so oracle strings match composed characters.
func (Extractor) Extract(ctx context.Context, data []byte) (text string, err error) {
	if !IsPDF(data) {
		return "", ErrNotPDF
	}

	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfdoc: malformed PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdfdoc: open: %w", err)
	}

	var b strings.Builder
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdfdoc: page %d: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n\n")
	}

	text = norm.NFC.String(strings.TrimSpace(b.String()))
	slog.Debug("pdfdoc: extracted", "pages", pages, "bytes", len(text))
	return text, nil
}
