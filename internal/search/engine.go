package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/embed"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
	"github.com/Aman-CERP/criterion/internal/store"
	"github.com/Aman-CERP/criterion/internal/telemetry"
)

// Engine answers verse, narration, reference and topic queries. It holds no
// per-call state and is safe for concurrent use.
type Engine struct {
	corpus   store.Corpus
	vectors  store.VectorIndex
	keywords store.KeywordIndex
	embedder embed.Embedder
	config   EngineConfig
	fusion   *RRFFusion
	context  *ContextExpander
	topics   *corpus.TopicCatalog
	metrics  *telemetry.QueryMetrics
	logger   *slog.Logger
}

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithMetrics sets an optional query telemetry collector.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTopics replaces the embedded topic catalog.
func WithTopics(c *corpus.TopicCatalog) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.topics = c
		}
	}
}

// WithLogger sets the logger used for query events.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a search engine over the given corpus and indexes.
// Returns an error if any required dependency is nil.
func NewEngine(
	c store.Corpus,
	vectors store.VectorIndex,
	keywords store.KeywordIndex,
	embedder embed.Embedder,
	config EngineConfig,
	opts ...EngineOption,
) (*Engine, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: corpus is required", ErrNilDependency)
	}
	if vectors == nil {
		return nil, fmt.Errorf("%w: vector index is required", ErrNilDependency)
	}
	if keywords == nil {
		return nil, fmt.Errorf("%w: keyword index is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}

	config = config.withDefaults()
	e := &Engine{
		corpus:   c,
		vectors:  vectors,
		keywords: keywords,
		embedder: embedder,
		config:   config,
		fusion:   NewRRFFusionWithK(config.RRFConstant),
		context:  NewContextExpander(c),
		topics:   corpus.Topics(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the effective engine configuration.
func (e *Engine) Config() EngineConfig { return e.config }

// Topics returns the topic catalog the engine serves.
func (e *Engine) Topics() *corpus.TopicCatalog { return e.topics }

// SearchVerses returns verses semantically related to q.Query, most similar
// first. Only hits at or above the similarity floor are returned. The top
// ContextTopN results carry surrounding verses.
func (e *Engine) SearchVerses(ctx context.Context, q VerseQuery) (out *VerseOutcome, err error) {
	start := time.Now()
	query := strings.TrimSpace(q.Query)
	defer func() { e.record(telemetry.KindVerse, query, verseCount(out), start, err) }()

	if query == "" {
		return nil, emptyQueryError()
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	limit := clampLimit(q.Limit, e.config.DefaultVerseLimit, e.config.MaxVerseLimit)
	window := q.ContextWindow
	switch {
	case window == 0:
		window = e.config.ContextWindow
	case window < 0:
		window = 0
	}

	vec, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := e.vectors.Search(ctx, store.KindVerse, vec, store.NarrationFilter{}, limit)
	if err != nil {
		return nil, searchError("verse vector search", err)
	}
	hits = e.aboveFloor(hits)

	out = &VerseOutcome{Query: query, Results: []*VerseResult{}}
	if len(hits) == 0 {
		out.Message = MsgNoVerses
		return out, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	verses, err := e.corpus.VersesByID(ctx, ids)
	if err != nil {
		return nil, cerrors.StoreError("load verses", err)
	}

	for _, h := range hits {
		v, ok := verses[h.ID]
		if !ok {
			e.logger.Warn("verse_missing_for_embedding", slog.Int64("id", h.ID))
			continue
		}
		out.Results = append(out.Results, &VerseResult{
			Verse:      v,
			Similarity: h.Similarity,
			Rank:       len(out.Results) + 1,
		})
	}
	if len(out.Results) == 0 {
		out.Message = MsgNoVerses
		return out, nil
	}

	if err := e.context.expandTop(ctx, out.Results, e.config.ContextTopN, window); err != nil {
		return nil, cerrors.StoreError("expand verse context", err)
	}

	out.Found = true
	e.logger.Debug("verse_search_completed",
		slog.String("query", query),
		slog.Int("results", len(out.Results)),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

// SearchNarrations returns narrations matching q, fusing vector and keyword
// candidates with RRF. Collection and grade filters apply to both lists
// before fusion.
func (e *Engine) SearchNarrations(ctx context.Context, q NarrationQuery) (out *NarrationOutcome, err error) {
	start := time.Now()
	query := strings.TrimSpace(q.Query)
	defer func() { e.record(telemetry.KindNarration, query, narrationCount(out), start, err) }()

	if query == "" {
		return nil, emptyQueryError()
	}

	collections, err := corpus.ParseCollections(q.Collections)
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodeUnknownCollection, err.Error(), err).
			WithSuggestion("Valid collections: " + strings.Join(collectionIDs(), ", "))
	}
	grade, err := corpus.ParseGradePreference(q.Grade)
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodeInvalidGrade, err.Error(), err)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	limit := clampLimit(q.Limit, e.config.DefaultNarrationLimit, e.config.MaxNarrationLimit)
	fetch := limit * e.config.CandidateMultiplier
	filter := store.NarrationFilter{Collections: collections, Grades: grade.Categories()}

	vec, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	var (
		vecHits []store.VectorHit
		kwHits  []store.KeywordHit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.vectors.Search(gctx, store.KindNarration, vec, filter, fetch)
		if err != nil {
			return searchError("narration vector search", err)
		}
		vecHits = e.aboveFloor(hits)
		return nil
	})
	g.Go(func() error {
		hits, err := e.keywords.Search(gctx, query, filter, fetch)
		if err != nil {
			return searchError("narration keyword search", err)
		}
		kwHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out = &NarrationOutcome{
		Query:       query,
		Results:     []*NarrationResult{},
		Collections: collections,
		Grade:       grade,
	}

	similarity := make(map[int64]float64, len(vecHits))
	vecIDs := make([]int64, len(vecHits))
	for i, h := range vecHits {
		vecIDs[i] = h.ID
		similarity[h.ID] = h.Similarity
	}
	lexical := make(map[int64]float64, len(kwHits))
	kwIDs := make([]int64, len(kwHits))
	for i, h := range kwHits {
		kwIDs[i] = h.ID
		lexical[h.ID] = h.Score
	}

	fused := e.fusion.Fuse(
		RankedList{Origin: OriginVector, IDs: vecIDs},
		RankedList{Origin: OriginKeyword, IDs: kwIDs},
	)
	fused, err = e.keepAboveFloor(ctx, vec, fused, similarity)
	if err != nil {
		return nil, err
	}
	if len(fused) == 0 {
		out.Message = MsgNoNarrations
		return out, nil
	}

	ids := make([]int64, len(fused))
	for i, f := range fused {
		ids[i] = f.ID
	}
	narrations, err := e.corpus.NarrationsByID(ctx, ids)
	if err != nil {
		return nil, cerrors.StoreError("load narrations", err)
	}

	for _, f := range fused {
		if len(out.Results) == limit {
			break
		}
		n, ok := narrations[f.ID]
		if !ok || !filter.Matches(n.Collection, n.GradeCategory) {
			continue
		}
		out.Results = append(out.Results, &NarrationResult{
			Narration:    n,
			Similarity:   similarity[f.ID],
			Relevance:    similarity[f.ID],
			KeywordScore: lexical[f.ID],
			FusionScore:  f.Score,
			Origin:       f.Origin,
			Rank:         len(out.Results) + 1,
		})
	}

	if len(out.Results) == 0 {
		out.Message = MsgNoNarrations
		return out, nil
	}
	out.Found = true
	e.logger.Debug("narration_search_completed",
		slog.String("query", query),
		slog.Int("vector_hits", len(vecHits)),
		slog.Int("keyword_hits", len(kwHits)),
		slog.Int("results", len(out.Results)),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

// SearchTopic runs the verse and narration searches of a curated topic
// concurrently. Narrations are restricted to sahih-only.
func (e *Engine) SearchTopic(ctx context.Context, slug string) (out *TopicOutcome, err error) {
	start := time.Now()
	defer func() {
		n := 0
		if out != nil {
			n = verseCount(out.Verses) + narrationCount(out.Narrations)
		}
		e.record(telemetry.KindTopic, slug, n, start, err)
	}()

	topic, ok := e.topics.Get(strings.TrimSpace(slug))
	if !ok {
		return nil, cerrors.Newf(cerrors.ErrCodeUnknownTopic, "Unknown topic: %q", slug).
			WithSuggestion("Run 'criterion topic list' to see available topics")
	}

	out = &TopicOutcome{Topic: topic, Related: e.topics.Related(topic.Slug)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := e.SearchVerses(gctx, VerseQuery{
			Query:         topic.Query,
			Limit:         e.config.TopicVerseLimit,
			ContextWindow: NoContext,
		})
		out.Verses = v
		return err
	})
	g.Go(func() error {
		n, err := e.SearchNarrations(gctx, NarrationQuery{
			Query: topic.Query,
			Grade: string(corpus.GradeSahihOnly),
			Limit: e.config.TopicNarrationLimit,
		})
		out.Narrations = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// embedQuery embeds a search query. Provider failures map to an embedding
// error; an empty prepared query maps to the empty-query validation error.
func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, embed.ErrEmptyInput) {
			return nil, emptyQueryError()
		}
		if ctx.Err() != nil {
			return nil, cerrors.New(cerrors.ErrCodeProviderTimeout, "embedding request timed out", err)
		}
		return nil, cerrors.EmbeddingError("embed query", err)
	}
	return vec, nil
}

// keepAboveFloor scores keyword-only candidates against the query vector
// using their stored embeddings and drops every candidate below the
// similarity floor. similarity gains the computed scores. Fused order is
// preserved.
func (e *Engine) keepAboveFloor(ctx context.Context, vec []float32, fused []*FusedResult, similarity map[int64]float64) ([]*FusedResult, error) {
	var missing []int64
	for _, f := range fused {
		if _, ok := similarity[f.ID]; !ok {
			missing = append(missing, f.ID)
		}
	}
	if len(missing) > 0 {
		stored, err := e.corpus.EmbeddingsByID(ctx, store.KindNarration, missing)
		if err != nil {
			return nil, cerrors.StoreError("load narration embeddings", err)
		}
		for id, v := range stored {
			similarity[id] = store.Cosine(vec, v)
		}
	}

	kept := fused[:0:0]
	for _, f := range fused {
		if sim, ok := similarity[f.ID]; ok && sim >= e.config.MinSimilarity {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// aboveFloor drops hits below the similarity floor. Index backends apply
// the same floor; remote backends are not trusted to.
func (e *Engine) aboveFloor(hits []store.VectorHit) []store.VectorHit {
	out := hits[:0:0]
	for _, h := range hits {
		if h.Similarity >= e.config.MinSimilarity {
			out = append(out, h)
		}
	}
	return out
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.Timeout)
}

// record emits query telemetry when a collector is configured.
func (e *Engine) record(kind telemetry.QueryKind, query string, results int, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Kind:        kind,
		Query:       query,
		ResultCount: results,
		Latency:     time.Since(start),
		Err:         err,
		Timestamp:   time.Now(),
	})
}

func searchError(op string, err error) error {
	var dim store.ErrDimensionMismatch
	if errors.As(err, &dim) {
		return cerrors.New(cerrors.ErrCodeDimensionMismatch, err.Error(), err).
			WithSuggestion("Re-run 'criterion ingest' with the configured embedder")
	}
	return cerrors.StoreError(op, err)
}

func emptyQueryError() error {
	return cerrors.New(cerrors.ErrCodeEmptyQuery, "query must not be empty", nil)
}

func collectionIDs() []string {
	all := corpus.AllCollections()
	ids := make([]string, len(all))
	for i, c := range all {
		ids[i] = string(c)
	}
	return ids
}

func verseCount(o *VerseOutcome) int {
	if o == nil {
		return 0
	}
	return len(o.Results)
}

func narrationCount(o *NarrationOutcome) int {
	if o == nil {
		return 0
	}
	return len(o.Results)
}
