package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/criterion/internal/corpus"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
	"github.com/Aman-CERP/criterion/internal/reference"
	"github.com/Aman-CERP/criterion/internal/store"
	"github.com/Aman-CERP/criterion/internal/telemetry"
)

// GetByReference resolves verse references ("2:255", "2:10-20"). Invalid
// references become per-item errors and do not fail the call; the outcome
// keeps input order for both results and errors. Context is only fetched
// for single-verse references when includeContext is set; a non-positive
// contextWindow selects the engine default. Store failures abort the call.
func (e *Engine) GetByReference(ctx context.Context, refs []string, includeContext bool, contextWindow int) (out *ReferenceOutcome, err error) {
	start := time.Now()
	defer func() {
		n := 0
		if out != nil {
			n = len(out.Results)
		}
		e.record(telemetry.KindReference, "", n, start, err)
	}()

	if len(refs) == 0 {
		return nil, cerrors.New(cerrors.ErrCodeNoReferences, "at least one reference is required", nil)
	}
	if contextWindow <= 0 {
		contextWindow = e.config.ReferenceContextWindow
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	type slot struct {
		result *ReferenceResult
		refErr *ReferenceError
	}
	slots := make([]slot, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	for i, raw := range refs {
		g.Go(func() error {
			ref, err := reference.ParseAndValidate(raw)
			if err != nil {
				slots[i].refErr = toReferenceError(raw, err)
				return nil
			}
			res, err := e.resolve(gctx, raw, ref, includeContext, contextWindow)
			switch {
			case errors.Is(err, store.ErrNotFound):
				slots[i].refErr = &ReferenceError{
					Reference: raw,
					Code:      cerrors.ErrCodeVerseNotFound,
					Message:   fmt.Sprintf("Verse %s is not in the corpus. Has it been ingested?", ref),
				}
				return nil
			case err != nil:
				return cerrors.StoreError("resolve reference "+ref.String(), err)
			}
			slots[i].result = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out = &ReferenceOutcome{
		TotalRequested: len(refs),
		Results:        []*ReferenceResult{},
		Errors:         []ReferenceError{},
	}
	for _, s := range slots {
		if s.refErr != nil {
			out.Errors = append(out.Errors, *s.refErr)
			continue
		}
		out.Results = append(out.Results, s.result)
	}
	return out, nil
}

func (e *Engine) resolve(ctx context.Context, raw string, ref reference.Reference, includeContext bool, window int) (*ReferenceResult, error) {
	ch, _ := corpus.LookupChapter(ref.Chapter)
	res := &ReferenceResult{
		Requested:         raw,
		Reference:         ref,
		Display:           ref.Display(),
		ChapterName:       ch.Name,
		ChapterNameNative: ch.NameNative,
		ChapterVerses:     ch.Verses,
		IsRange:           ref.IsRange,
	}

	if ref.IsRange {
		verses, err := e.corpus.VerseRange(ctx, ref.Chapter, ref.Start, ref.End)
		if err != nil {
			return nil, err
		}
		if len(verses) == 0 {
			return nil, store.ErrNotFound
		}
		for _, v := range verses {
			res.Verses = append(res.Verses, ReferenceVerse{Verse: v, IsTarget: true})
		}
		res.VerseCount = len(res.Verses)
		return res, nil
	}

	target, err := e.corpus.GetVerse(ctx, ref.Chapter, ref.Start)
	if err != nil {
		return nil, err
	}
	if !includeContext {
		res.Verses = []ReferenceVerse{{Verse: target, IsTarget: true}}
		res.VerseCount = 1
		return res, nil
	}

	w, err := e.context.ExpandContext(ctx, target, window)
	if err != nil {
		return nil, err
	}
	for _, v := range w.Before {
		res.Verses = append(res.Verses, ReferenceVerse{Verse: v, IsContext: true})
	}
	res.Verses = append(res.Verses, ReferenceVerse{Verse: target, IsTarget: true})
	for _, v := range w.After {
		res.Verses = append(res.Verses, ReferenceVerse{Verse: v, IsContext: true})
	}
	res.VerseCount = len(res.Verses)
	res.HasContext = !w.IsEmpty()
	return res, nil
}

func toReferenceError(raw string, err error) *ReferenceError {
	code := cerrors.GetCode(err)
	if code == "" {
		code = cerrors.ErrCodeInvalidReference
	}
	msg := err.Error()
	if ce, ok := cerrors.As(err); ok {
		msg = ce.Message
	}
	return &ReferenceError{Reference: raw, Code: code, Message: msg}
}
