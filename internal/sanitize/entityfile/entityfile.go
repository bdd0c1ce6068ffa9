// Package entityfile provides a Classifier backed by a static JSON file in the
// detection-oracle response format:
//
//	{"entities": [{"id": "PER-1", "label": "PER", "text": "John Smith",
//	               "start": null, "end": null, "confidence": 0.97}]}
//
// It returns the same entities for every text. Occurrence search decides
// which of them actually appear in a document.
package entityfile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gonkalabs/gonka-redact-go/internal/sanitize"
)

// Response is the oracle response document.
type Response struct {
	Entities []sanitize.Entity `json:"entities"`
}

// Classifier serves entities loaded from a file.
type Classifier struct {
	entities []sanitize.Entity
}

// Load reads and parses the file at path.
func Load(path string) (*Classifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("entityfile: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes an oracle response from r.
func Parse(r io.Reader) (*Classifier, error) {
	var resp Response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("entityfile: decode: %w", err)
	}
	return &Classifier{entities: resp.Entities}, nil
}

// Len returns the number of loaded entities.
func (c *Classifier) Len() int { return len(c.entities) }

// Classify returns a copy of the loaded entities.
func (c *Classifier) Classify(ctx context.Context, _ string) ([]sanitize.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]sanitize.Entity, len(c.entities))
	copy(out, c.entities)
	return out, nil
}
