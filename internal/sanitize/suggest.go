package sanitize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultBudget is the maximum time Suggest waits for all classifiers.
// Classifiers that miss the deadline are skipped; their goroutines keep
// running in the background but their results are discarded.
// Set high enough to cover a small LLM running on CPU.
const DefaultBudget = 120 * time.Second

// Suggester fans a text out to an ordered list of classifiers (static entity
// file, NER sidecar, local LLM) and merges what they return.
type Suggester struct {
	classifiers []Classifier

	// Budget bounds the whole fan-out. Zero means DefaultBudget.
	Budget time.Duration
	// MinConfidence drops entities scoring below it. Zero accepts all.
	MinConfidence float64
}

// NewSuggester creates a Suggester over the given classifiers.
func NewSuggester(classifiers ...Classifier) *Suggester {
	return &Suggester{classifiers: classifiers}
}

// Len returns the number of configured classifiers.
func (s *Suggester) Len() int { return len(s.classifiers) }

// Suggest runs every classifier concurrently and returns the merged entities,
// filtered by text and confidence. It returns partial results when some
// classifiers fail or time out, and ErrOracle only when all of them failed.
func (s *Suggester) Suggest(ctx context.Context, text string) ([]Entity, error) {
	if len(s.classifiers) == 0 {
		return nil, nil
	}

	budget := s.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	cctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type result struct {
		entities []Entity
		err      error
	}
	ch := make(chan result, len(s.classifiers))

	for _, clf := range s.classifiers {
		go func(c Classifier) {
			entities, err := c.Classify(cctx, text)
			ch <- result{entities: entities, err: err}
		}(clf)
	}

	var (
		all  []Entity
		errs []error
	)
	for range s.classifiers {
		select {
		case r := <-ch:
			if r.err != nil {
				slog.Warn("sanitize: classifier error", "err", r.err)
				errs = append(errs, r.err)
				continue
			}
			all = append(all, r.entities...)
		case <-cctx.Done():
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			slog.Warn("sanitize: classifier budget exceeded, using partial results")
			return s.filter(all), nil
		}
	}

	if len(errs) == len(s.classifiers) {
		return nil, fmt.Errorf("%w: %w", ErrOracle, errors.Join(errs...))
	}
	return s.filter(all), nil
}

// filter drops empty and low-confidence entities. An entity is collapsed
// only when another entity with the same ID and Text came first; entities
// that share a text under different ids each keep their own spans.
func (s *Suggester) filter(entities []Entity) []Entity {
	type key struct{ id, text string }
	out := make([]Entity, 0, len(entities))
	seen := make(map[key]bool, len(entities))
	for _, e := range entities {
		k := key{e.ID, e.Text}
		if e.Text == "" || seen[k] {
			continue
		}
		if s.MinConfidence > 0 && e.Confidence < s.MinConfidence {
			slog.Debug("sanitize: entity below confidence threshold", "id", e.ID, "confidence", e.Confidence)
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	return out
}
