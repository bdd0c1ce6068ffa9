package pdfdoc

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gonkalabs/gonka-redact-go/internal/layout"
)

const fontFamily = "goregular"

// Renderer draws laid-out pages as a PDF using one embedded UTF-8 font.
type Renderer struct {
	ttf      []byte
	fontSize float64
	creator  string
}

// NewRenderer creates a Renderer drawing Go Regular at fontSize points.
func NewRenderer(fontSize float64) *Renderer {
	return &Renderer{ttf: goregular.TTF, fontSize: fontSize, creator: "gonka-redact"}
}

// Render writes pages to w. Line coordinates are bottom-up (PDF user space);
// fpdf measures from the top, so y is flipped per page.
func (r *Renderer) Render(w io.Writer, pages []layout.Page) error {
	if len(pages) == 0 {
		return errors.New("pdfdoc: no pages to render")
	}
	first := pages[0]
	doc := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	doc.SetCreator(r.creator, true)
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.AddUTF8FontFromBytes(fontFamily, "", r.ttf)
	doc.SetFont(fontFamily, "", r.fontSize)

	for _, p := range pages {
		doc.AddPageFormat("P", fpdf.SizeType{Wd: p.Width, Ht: p.Height})
		for _, line := range p.Lines {
			doc.Text(line.X, p.Height-line.Y, line.Text)
		}
	}
	if err := doc.Error(); err != nil {
		return fmt.Errorf("pdfdoc: render: %w", err)
	}
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("pdfdoc: write: %w", err)
	}
	return nil
}
