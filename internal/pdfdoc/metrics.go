package pdfdoc

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Metrics measures text with the advance widths of a TrueType font.
// Kerning is not applied; the renderer does not kern either.
type Metrics struct {
	mu         sync.Mutex
	font       *sfnt.Font
	buf        sfnt.Buffer
	unitsPerEm float64
	ppem       fixed.Int26_6
	cache      map[rune]float64 // advance in font units
}

// NewMetrics parses a TrueType/OpenType font.
func NewMetrics(ttf []byte) (*Metrics, error) {
	f, err := sfnt.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("pdfdoc: parse font: %w", err)
	}
	upem := f.UnitsPerEm()
	if upem == 0 {
		return nil, fmt.Errorf("pdfdoc: invalid unitsPerEm")
	}
	return &Metrics{
		font:       f,
		unitsPerEm: float64(upem),
		// Requesting advances at ppem == unitsPerEm yields them in font units.
		ppem:  fixed.Int26_6(upem << 6),
		cache: make(map[rune]float64),
	}, nil
}

// GoRegularMetrics returns Metrics for the embedded Go Regular font, the font
// the Renderer draws with.
func GoRegularMetrics() (*Metrics, error) {
	return NewMetrics(goregular.TTF)
}

// Width returns the advance width of text at size, in points.
// It matches layout.WidthFunc.
func (m *Metrics) Width(text string, size float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var units float64
	for _, r := range text {
		units += m.advance(r)
	}
	return units * size / m.unitsPerEm
}

func (m *Metrics) advance(r rune) float64 {
	if adv, ok := m.cache[r]; ok {
		return adv
	}
	// Unmapped runes resolve to glyph 0 (.notdef), which still has an advance.
	idx, err := m.font.GlyphIndex(&m.buf, r)
	if err != nil {
		idx = 0
	}
	a, err := m.font.GlyphAdvance(&m.buf, idx, m.ppem, font.HintingNone)
	if err != nil {
		a = 0
	}
	adv := float64(a) / 64
	m.cache[r] = adv
	return adv
}
