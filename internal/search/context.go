package search

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/store"
)

// ContextExpander fetches the verses surrounding a target verse.
type ContextExpander struct {
	corpus store.Corpus
}

// NewContextExpander creates an expander reading from c.
func NewContextExpander(c store.Corpus) *ContextExpander {
	return &ContextExpander{corpus: c}
}

// ExpandContext returns up to window verses on each side of v, clamped to
// v's chapter. A non-positive window yields an empty context.
func (x *ContextExpander) ExpandContext(ctx context.Context, v *store.Verse, window int) (ContextWindow, error) {
	w := ContextWindow{Before: []*store.Verse{}, After: []*store.Verse{}}
	if v == nil || window <= 0 {
		return w, nil
	}

	start, end := corpus.ContextBounds(v.Chapter, v.Number, window)
	if start == end {
		return w, nil
	}
	verses, err := x.corpus.VerseRange(ctx, v.Chapter, start, end)
	if err != nil {
		return w, fmt.Errorf("context for %d:%d: %w", v.Chapter, v.Number, err)
	}
	for _, cv := range verses {
		switch {
		case cv.Number < v.Number:
			w.Before = append(w.Before, cv)
		case cv.Number > v.Number:
			w.After = append(w.After, cv)
		}
	}
	return w, nil
}

// expandTop attaches context to the first topN results concurrently.
// Results past topN are left untouched.
func (x *ContextExpander) expandTop(ctx context.Context, results []*VerseResult, topN, window int) error {
	if window <= 0 {
		return nil
	}
	n := min(topN, len(results))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		r := results[i]
		g.Go(func() error {
			w, err := x.ExpandContext(gctx, r.Verse, window)
			if err != nil {
				return err
			}
			r.Context = w
			r.HasContext = true
			return nil
		})
	}
	return g.Wait()
}
