// Package ingest loads the verse and narration corpora from source files,
// embeds them, and writes them to the corpus database and search indexes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/criterion/internal/embed"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
	"github.com/Aman-CERP/criterion/internal/store"
	"github.com/Aman-CERP/criterion/internal/ui"
)

// DefaultConcurrency is the number of embedding batches in flight.
const DefaultConcurrency = 2

// Dependencies are the collaborators of a Runner.
type Dependencies struct {
	// Corpus receives passages and embeddings (required).
	Corpus *store.SQLiteCorpus
	// Keywords receives narration text (required for narrations).
	Keywords store.KeywordIndex
	// Vectors receives embeddings. Only persistent backends need it; the
	// in-memory ones are rebuilt from the corpus at serve time.
	Vectors  store.VectorIndex
	Embedder embed.Embedder // required
	Renderer ui.Renderer    // required
}

// Options tunes a Runner.
type Options struct {
	BatchSize   int
	Concurrency int
	// Provider is the embedder provider name shown in the summary.
	Provider string
}

// Result summarises an ingestion run.
type Result struct {
	Kind     store.Kind
	Stored   int
	Skipped  int
	Duration time.Duration
	Embed    time.Duration
	Index    time.Duration
}

// Runner executes ingestion with progress reporting.
type Runner struct {
	corpus      *store.SQLiteCorpus
	keywords    store.KeywordIndex
	vectors     store.VectorIndex
	embedder    embed.Embedder
	renderer    ui.Renderer
	batchSize   int
	concurrency int
	provider    string
}

// NewRunner validates deps and applies option defaults.
func NewRunner(deps Dependencies, opts Options) (*Runner, error) {
	switch {
	case deps.Corpus == nil:
		return nil, fmt.Errorf("corpus is required")
	case deps.Embedder == nil:
		return nil, fmt.Errorf("embedder is required")
	case deps.Renderer == nil:
		return nil, fmt.Errorf("renderer is required")
	}

	if opts.BatchSize <= 0 {
		opts.BatchSize = embed.DefaultBatchSize
	}
	opts.BatchSize = min(opts.BatchSize, embed.MaxBatchSize)
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	return &Runner{
		corpus:      deps.Corpus,
		keywords:    deps.Keywords,
		vectors:     deps.Vectors,
		embedder:    deps.Embedder,
		renderer:    deps.Renderer,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		provider:    opts.Provider,
	}, nil
}

// IngestQuran embeds and stores verses.
func (r *Runner) IngestQuran(ctx context.Context, data *QuranData) (*Result, error) {
	start := time.Now()
	r.reportWarnings(data.Warnings)

	if err := r.checkEmbedder(ctx); err != nil {
		return nil, err
	}

	texts := make([]string, len(data.Verses))
	for i, v := range data.Verses {
		texts[i] = v.TextDefault
	}

	embedStart := time.Now()
	vectors, err := r.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	embedTime := time.Since(embedStart)

	err = r.store(ctx, len(data.Verses), func(lo, hi int) error {
		return r.corpus.SaveVerses(ctx, data.Verses[lo:hi], vectors[lo:hi])
	})
	if err != nil {
		return nil, err
	}

	indexStart := time.Now()
	if r.vectors != nil {
		records := make([]store.EmbeddingRecord, len(data.Verses))
		for i, v := range data.Verses {
			records[i] = store.EmbeddingRecord{Kind: store.KindVerse, ID: v.ID, Vector: vectors[i]}
		}
		if err := r.addVectors(ctx, records); err != nil {
			return nil, err
		}
	}

	return r.finish(&Result{
		Kind:     store.KindVerse,
		Stored:   len(data.Verses),
		Skipped:  len(data.Warnings),
		Duration: time.Since(start),
		Embed:    embedTime,
		Index:    time.Since(indexStart),
	}), nil
}

// IngestHadith embeds and stores narrations and indexes their text.
func (r *Runner) IngestHadith(ctx context.Context, data *HadithData) (*Result, error) {
	if r.keywords == nil {
		return nil, cerrors.New(cerrors.ErrCodeIngestFailed, "keyword index is required for narrations", nil)
	}
	start := time.Now()
	r.reportWarnings(data.Warnings)

	if err := r.checkEmbedder(ctx); err != nil {
		return nil, err
	}

	texts := make([]string, len(data.Narrations))
	for i, n := range data.Narrations {
		texts[i] = n.TextDefault
	}

	embedStart := time.Now()
	vectors, err := r.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	embedTime := time.Since(embedStart)

	err = r.store(ctx, len(data.Narrations), func(lo, hi int) error {
		return r.corpus.SaveNarrations(ctx, data.Narrations[lo:hi], vectors[lo:hi])
	})
	if err != nil {
		return nil, err
	}

	indexStart := time.Now()
	r.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageIndexing, Message: "Building keyword index..."})

	docs := make([]store.KeywordDoc, len(data.Narrations))
	records := make([]store.EmbeddingRecord, len(data.Narrations))
	for i, n := range data.Narrations {
		docs[i] = store.KeywordDoc{ID: n.ID, Text: n.TextDefault, Collection: n.Collection, GradeCategory: n.GradeCategory}
		records[i] = store.EmbeddingRecord{
			Kind:          store.KindNarration,
			ID:            n.ID,
			Collection:    n.Collection,
			GradeCategory: n.GradeCategory,
			Vector:        vectors[i],
		}
	}
	if err := r.keywords.Index(ctx, docs); err != nil {
		return nil, cerrors.StoreError("failed to build keyword index", err)
	}
	if r.vectors != nil {
		if err := r.addVectors(ctx, records); err != nil {
			return nil, err
		}
	}

	return r.finish(&Result{
		Kind:     store.KindNarration,
		Stored:   len(data.Narrations),
		Skipped:  len(data.Warnings),
		Duration: time.Since(start),
		Embed:    embedTime,
		Index:    time.Since(indexStart),
	}), nil
}

// Clear deletes a corpus kind from the database and the indexes. When both
// corpora are empty afterwards the recorded embedder is forgotten, so a
// different embedder can be used for the next ingestion.
func (r *Runner) Clear(ctx context.Context, kind store.Kind) error {
	if err := r.corpus.Clear(ctx, kind); err != nil {
		return cerrors.StoreError("failed to clear corpus", err)
	}
	if kind == store.KindNarration && r.keywords != nil {
		if err := r.keywords.Clear(ctx); err != nil {
			return cerrors.StoreError("failed to clear keyword index", err)
		}
	}
	if r.vectors != nil {
		if err := r.vectors.Delete(ctx, kind); err != nil {
			return cerrors.StoreError("failed to clear vector index", err)
		}
	}

	stats, err := r.corpus.Stats(ctx)
	if err != nil {
		return cerrors.StoreError("failed to read corpus stats", err)
	}
	if stats.Verses == 0 && stats.Narrations == 0 {
		for _, key := range []string{store.StateKeyEmbeddingModel, store.StateKeyEmbeddingDimensions} {
			if err := r.corpus.SetState(ctx, key, ""); err != nil {
				return cerrors.StoreError("failed to reset embedder state", err)
			}
		}
	}
	return nil
}

func (r *Runner) checkEmbedder(ctx context.Context) error {
	err := r.corpus.CheckEmbedder(ctx, r.embedder.ModelName(), r.embedder.Dimensions())
	var (
		dim   store.ErrDimensionMismatch
		model store.ErrModelMismatch
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &dim):
		return cerrors.New(cerrors.ErrCodeDimensionMismatch, dim.Error(), err).
			WithSuggestion("Run 'criterion ingest' with --clear for both corpora to switch embedders")
	case errors.As(err, &model):
		return cerrors.New(cerrors.ErrCodeModelMismatch, model.Error(), err).
			WithSuggestion("Run 'criterion ingest' with --clear for both corpora to switch embedders")
	default:
		return cerrors.StoreError("failed to check embedder", err)
	}
}

// embedAll embeds texts in batches, up to r.concurrency batches at a time.
// The result lines up with texts.
func (r *Runner) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var done atomic.Int64

	r.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageEmbedding, Total: len(texts)})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for lo := 0; lo < len(texts); lo += r.batchSize {
		hi := min(lo+r.batchSize, len(texts))
		g.Go(func() error {
			batch, err := r.embedder.EmbedBatch(gctx, texts[lo:hi])
			if err != nil {
				if ctx.Err() != nil {
					return cerrors.New(cerrors.ErrCodeIngestFailed, "ingestion interrupted", ctx.Err())
				}
				return cerrors.EmbeddingError(fmt.Sprintf("failed to embed batch %d-%d", lo, hi), err)
			}
			if len(batch) != hi-lo {
				return cerrors.EmbeddingError(fmt.Sprintf("embedder returned %d vectors for %d texts", len(batch), hi-lo), nil)
			}
			copy(vectors[lo:hi], batch)

			n := done.Add(int64(hi - lo))
			r.renderer.UpdateProgress(ui.ProgressEvent{
				Stage:   ui.StageEmbedding,
				Current: int(n),
				Total:   len(texts),
				Item:    fmt.Sprintf("batch %d-%d", lo+1, hi),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// store calls save for consecutive batches in order, so passage IDs follow
// input order.
func (r *Runner) store(ctx context.Context, total int, save func(lo, hi int) error) error {
	r.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageStoring, Total: total})
	for lo := 0; lo < total; lo += r.batchSize {
		if err := ctx.Err(); err != nil {
			return cerrors.New(cerrors.ErrCodeIngestFailed, fmt.Sprintf("ingestion interrupted at %d/%d", lo, total), err)
		}
		hi := min(lo+r.batchSize, total)
		if err := save(lo, hi); err != nil {
			return cerrors.StoreError("failed to store passages", err)
		}
		r.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageStoring, Current: hi, Total: total})
	}
	return nil
}

func (r *Runner) addVectors(ctx context.Context, records []store.EmbeddingRecord) error {
	r.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageIndexing, Message: "Uploading vectors..."})
	for lo := 0; lo < len(records); lo += r.batchSize {
		hi := min(lo+r.batchSize, len(records))
		if err := r.vectors.Add(ctx, records[lo:hi]); err != nil {
			return cerrors.New(cerrors.ErrCodeRemoteIndexError, "failed to upload vectors", err)
		}
		r.renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageIndexing, Current: hi, Total: len(records)})
	}
	return nil
}

func (r *Runner) reportWarnings(warnings []Warning) {
	for _, w := range warnings {
		r.renderer.AddError(ui.ErrorEvent{Item: w.Source, Err: errors.New(w.String()), IsWarn: true})
	}
}

func (r *Runner) finish(res *Result) *Result {
	kind := "verses"
	if res.Kind == store.KindNarration {
		kind = "narrations"
	}
	r.renderer.Complete(ui.CompletionStats{
		Kind:     kind,
		Stored:   res.Stored,
		Skipped:  res.Skipped,
		Duration: res.Duration,
		Warnings: res.Skipped,
		Embed:    res.Embed,
		Index:    res.Index,
		Embedder: ui.EmbedderInfo{
			Provider:   r.provider,
			Model:      r.embedder.ModelName(),
			Dimensions: r.embedder.Dimensions(),
		},
	})

	slog.Info("ingest_complete",
		slog.String("kind", string(res.Kind)),
		slog.Int("stored", res.Stored),
		slog.Int("skipped", res.Skipped),
		slog.Int64("duration_ms", res.Duration.Milliseconds()),
		slog.Int64("embed_ms", res.Embed.Milliseconds()),
		slog.Int64("index_ms", res.Index.Milliseconds()),
		slog.String("embedder_model", r.embedder.ModelName()))
	return res
}
