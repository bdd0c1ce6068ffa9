// Package layout typesets a flat text stream into fixed-size pages with a
// greedy word wrap. Glyph widths come from a caller-supplied WidthFunc, so the
// package does not depend on any font or output format.
package layout

import (
	"errors"
	"strings"
)

// WidthFunc measures text set at size, in the same unit as the page geometry.
type WidthFunc func(text string, size float64) float64

// PaperSize is a page size in points.
type PaperSize struct {
	Width, Height float64
}

var (
	Letter = PaperSize{Width: 612, Height: 792}
	A4     = PaperSize{Width: 595.28, Height: 841.89}
)

// Margins defines page margins in points.
type Margins struct {
	Top, Bottom, Left, Right float64
}

// Line is one laid-out line. X and Y are the baseline origin measured from
// the bottom-left corner of the page.
type Line struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Page is an ordered list of lines.
type Page struct {
	Index  int     `json:"index"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Lines  []Line  `json:"lines"`
}

// Engine wraps and paginates text.
type Engine struct {
	width WidthFunc

	FontSize   float64
	LineHeight float64 // absolute, in points
	Margins    Margins

	pageWidth  float64
	pageHeight float64
}

// Option defines a configuration option for the Engine.
type Option func(*Engine)

// WithFontSize sets the font size. Line height follows at 1.4× unless set
// explicitly after this option.
func WithFontSize(size float64) Option {
	return func(e *Engine) {
		e.FontSize = size
		e.LineHeight = size * 1.4
	}
}

// WithLineHeight sets the distance between baselines in points.
func WithLineHeight(height float64) Option {
	return func(e *Engine) {
		e.LineHeight = height
	}
}

// WithLineSpacing sets the line height as a multiple of the font size.
func WithLineSpacing(factor float64) Option {
	return func(e *Engine) {
		e.LineHeight = e.FontSize * factor
	}
}

// WithMargins sets the page margins.
func WithMargins(margins Margins) Option {
	return func(e *Engine) {
		e.Margins = margins
	}
}

// WithPaperSize sets the page dimensions.
func WithPaperSize(size PaperSize) Option {
	return func(e *Engine) {
		e.pageWidth = size.Width
		e.pageHeight = size.Height
	}
}

// NewEngine creates a layout engine measuring with width. Defaults: Letter,
// 40pt margins, 11pt text, 15.4pt line height.
func NewEngine(width WidthFunc, opts ...Option) *Engine {
	e := &Engine{
		width:      width,
		FontSize:   11,
		LineHeight: 11 * 1.4,
		Margins:    Margins{Top: 40, Bottom: 40, Left: 40, Right: 40},
		pageWidth:  Letter.Width,
		pageHeight: Letter.Height,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PageSize returns the page dimensions.
func (e *Engine) PageSize() PaperSize {
	return PaperSize{Width: e.pageWidth, Height: e.pageHeight}
}

// ContentWidth is the page width minus the left and right margins.
func (e *Engine) ContentWidth() float64 {
	return e.pageWidth - e.Margins.Left - e.Margins.Right
}

// Validate reports geometry that cannot hold any text.
func (e *Engine) Validate() error {
	switch {
	case e.width == nil:
		return errors.New("layout: no width function")
	case e.FontSize <= 0:
		return errors.New("layout: font size must be positive")
	case e.LineHeight <= 0:
		return errors.New("layout: line height must be positive")
	case e.ContentWidth() <= 0:
		return errors.New("layout: margins leave no content width")
	case e.pageHeight-e.Margins.Top < e.Margins.Bottom:
		return errors.New("layout: margins leave no content height")
	}
	return nil
}

// Wrap splits text on whitespace runs and packs the words greedily into
// lines no wider than the content width. A word wider than the content width
// is placed alone on its own line, never split.
func (e *Engine) Wrap(text string) []string {
	maxWidth := e.ContentWidth()
	var (
		lines   []string
		current string
	)
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if e.width(candidate, e.FontSize) > maxWidth && current != "" {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// Paginate places lines top to bottom. A new page starts whenever the
// cursor has dropped below the bottom margin. There is always at least one page.
func (e *Engine) Paginate(lines []string) []Page {
	pages := []Page{e.newPage(0)}
	top := e.pageHeight - e.Margins.Top
	y := top
	for _, text := range lines {
		if y < e.Margins.Bottom {
			pages = append(pages, e.newPage(len(pages)))
			y = top
		}
		cur := &pages[len(pages)-1]
		cur.Lines = append(cur.Lines, Line{Text: text, X: e.Margins.Left, Y: y})
		y -= e.LineHeight
	}
	return pages
}

// Layout wraps and paginates text.
func (e *Engine) Layout(text string) []Page {
	return e.Paginate(e.Wrap(text))
}

func (e *Engine) newPage(index int) Page {
	return Page{Index: index, Width: e.pageWidth, Height: e.pageHeight}
}

// Words returns the words of all lines of all pages, in order.
func Words(pages []Page) []string {
	var out []string
	for _, p := range pages {
		for _, l := range p.Lines {
			out = append(out, strings.Fields(l.Text)...)
		}
	}
	return out
}
