package sanitize

import "context"

// Entity is one suggestion returned by a detection oracle.
// Start and End are whatever the oracle reported; they are never trusted.
// Every occurrence of Text in the document is located independently.
type Entity struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"` // category, e.g. "PER", "PHONE", "EMAIL"
	Text       string  `json:"text"`  // the sensitive substring, verbatim
	Start      *int    `json:"start"`
	End        *int    `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Classifier suggests sensitive entities for a text.
// Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Entity, error)
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text string) ([]Entity, error)

// Classify calls f(ctx, text).
func (f ClassifierFunc) Classify(ctx context.Context, text string) ([]Entity, error) {
	return f(ctx, text)
}
