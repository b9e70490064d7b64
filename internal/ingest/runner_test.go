package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/embed"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
	"github.com/Aman-CERP/criterion/internal/store"
	"github.com/Aman-CERP/criterion/internal/ui"
)

// recordingRenderer captures renderer calls.
type recordingRenderer struct {
	mu       sync.Mutex
	events   []ui.ProgressEvent
	warnings []ui.ErrorEvent
	complete *ui.CompletionStats
}

func (r *recordingRenderer) Start(context.Context) error { return nil }
func (r *recordingRenderer) Stop() error                 { return nil }

func (r *recordingRenderer) UpdateProgress(e ui.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingRenderer) AddError(e ui.ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, e)
}

func (r *recordingRenderer) Complete(s ui.CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = &s
}

func (r *recordingRenderer) stages() map[ui.Stage]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[ui.Stage]bool)
	for _, e := range r.events {
		seen[e.Stage] = true
	}
	return seen
}

// failingEmbedder fails every batch.
type failingEmbedder struct{ *embed.StaticEmbedder }

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

// renamedEmbedder reports another model name over the static vectors.
type renamedEmbedder struct {
	*embed.StaticEmbedder
	name string
}

func (e renamedEmbedder) ModelName() string { return e.name }

// cancellingEmbedder cancels the ingestion context on its first batch.
type cancellingEmbedder struct {
	*embed.StaticEmbedder
	cancel context.CancelFunc
}

func (e cancellingEmbedder) EmbedBatch(ctx context.Context, _ []string) ([][]float32, error) {
	e.cancel()
	<-ctx.Done()
	return nil, ctx.Err()
}

type fixture struct {
	corpus   *store.SQLiteCorpus
	keywords *store.FTSIndex
	vectors  *store.ExactIndex
	renderer *recordingRenderer
	runner   *Runner
}

func newFixture(t *testing.T, e embed.Embedder) *fixture {
	t.Helper()
	c, err := store.NewSQLiteCorpus("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	f := &fixture{
		corpus:   c,
		keywords: store.NewFTSIndex(c),
		vectors:  store.NewExactIndex(store.DefaultVectorConfig(e.Dimensions())),
		renderer: &recordingRenderer{},
	}
	f.runner, err = NewRunner(Dependencies{
		Corpus:   c,
		Keywords: f.keywords,
		Vectors:  f.vectors,
		Embedder: e,
		Renderer: f.renderer,
	}, Options{BatchSize: 2, Concurrency: 3, Provider: "static"})
	require.NoError(t, err)
	return f
}

func sampleQuran() *QuranData {
	ch1, _ := corpus.LookupChapter(1)
	data := &QuranData{Warnings: []Warning{{Source: "en.txt", Line: 9, Message: "malformed line"}}}
	texts := []string{
		"In the name of God, the Gracious, the Merciful.",
		"Praise be to God, Lord of the Worlds.",
		"The Most Gracious, the Most Merciful.",
		"Master of the Day of Judgment.",
		"It is You we worship, and upon You we call for help.",
	}
	for i, text := range texts {
		data.Verses = append(data.Verses, &store.Verse{
			Chapter: 1, Number: i + 1, TextDefault: text,
			ChapterName: ch1.Name, ChapterNameNative: ch1.NameNative,
		})
	}
	return data
}

func sampleHadith() *HadithData {
	return &HadithData{Narrations: []*store.Narration{
		{Collection: corpus.CollectionBukhari, Number: 1, TextDefault: "Actions are judged by intentions.", GradeCategory: corpus.GradeSahih},
		{Collection: corpus.CollectionMuslim, Number: 8, TextDefault: "Prayer is the pillar of the religion.", GradeCategory: corpus.GradeSahih},
		{Collection: corpus.CollectionNawawi40, Number: 3, TextDefault: "Islam is built upon five pillars.", GradeCategory: corpus.GradeHasan},
	}}
}

func TestNewRunner_RequiresDependencies(t *testing.T) {
	_, err := NewRunner(Dependencies{}, Options{})
	assert.Error(t, err)
}

func TestRunner_IngestQuran(t *testing.T) {
	// Given: a runner over an empty corpus
	ctx := context.Background()
	f := newFixture(t, embed.NewStaticEmbedder(64))

	// When: ingesting five verses in batches of two
	res, err := f.runner.IngestQuran(ctx, sampleQuran())

	// Then: every verse is stored with its embedding
	require.NoError(t, err)
	assert.Equal(t, store.KindVerse, res.Kind)
	assert.Equal(t, 5, res.Stored)
	assert.Equal(t, 1, res.Skipped)

	stats, err := f.corpus.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Verses)
	assert.Equal(t, 5, stats.VerseEmbeddings)
	assert.Equal(t, embed.StaticModelName, stats.EmbeddingModel)
	assert.Equal(t, 64, stats.EmbeddingDimensions)

	v, err := f.corpus.GetVerse(ctx, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, "Master of the Day of Judgment.", v.TextDefault)

	// Then: IDs follow input order and the vector index received them
	verses, err := f.corpus.VerseRange(ctx, 1, 1, 5)
	require.NoError(t, err)
	for i := 1; i < len(verses); i++ {
		assert.Less(t, verses[i-1].ID, verses[i].ID)
	}
	assert.Equal(t, 5, f.vectors.Count(store.KindVerse))

	// Then: progress covered each stage and warnings were surfaced
	stages := f.renderer.stages()
	assert.True(t, stages[ui.StageEmbedding])
	assert.True(t, stages[ui.StageStoring])
	assert.True(t, stages[ui.StageIndexing])
	require.Len(t, f.renderer.warnings, 1)
	assert.True(t, f.renderer.warnings[0].IsWarn)
	require.NotNil(t, f.renderer.complete)
	assert.Equal(t, "verses", f.renderer.complete.Kind)
	assert.Equal(t, "static", f.renderer.complete.Embedder.Provider)
}

func TestRunner_IngestQuran_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, embed.NewStaticEmbedder(64))

	_, err := f.runner.IngestQuran(ctx, sampleQuran())
	require.NoError(t, err)
	_, err = f.runner.IngestQuran(ctx, sampleQuran())
	require.NoError(t, err)

	stats, err := f.corpus.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Verses)
}

func TestRunner_IngestHadith(t *testing.T) {
	// Given: a runner with an FTS keyword index
	ctx := context.Background()
	f := newFixture(t, embed.NewStaticEmbedder(64))

	// When: ingesting narrations
	res, err := f.runner.IngestHadith(ctx, sampleHadith())

	// Then: narrations are stored and keyword-searchable
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stored)

	stats, err := f.corpus.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Narrations)
	assert.Equal(t, 1, stats.ByCollection[corpus.CollectionMuslim])

	hits, err := f.keywords.Search(ctx, "pillar", store.NarrationFilter{}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = f.keywords.Search(ctx, "pillar", store.NarrationFilter{Grades: []corpus.GradeCategory{corpus.GradeSahih}}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	assert.Equal(t, 3, f.vectors.Count(store.KindNarration))
	assert.Equal(t, "narrations", f.renderer.complete.Kind)
}

func TestRunner_DimensionMismatch(t *testing.T) {
	// Given: a corpus ingested with 64-dimensional vectors
	ctx := context.Background()
	f := newFixture(t, embed.NewStaticEmbedder(64))
	_, err := f.runner.IngestQuran(ctx, sampleQuran())
	require.NoError(t, err)

	// When: ingesting with a different dimension into the same corpus
	other, err := NewRunner(Dependencies{
		Corpus:   f.corpus,
		Keywords: f.keywords,
		Embedder: embed.NewStaticEmbedder(32),
		Renderer: &recordingRenderer{},
	}, Options{})
	require.NoError(t, err)
	_, err = other.IngestHadith(ctx, sampleHadith())

	// Then: it is refused before anything is written
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeDimensionMismatch, cerrors.GetCode(err))
	stats, err := f.corpus.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Narrations)
}

func TestRunner_ModelChangeRefused(t *testing.T) {
	// Given: a corpus ingested by one 64-dimensional model
	ctx := context.Background()
	f := newFixture(t, embed.NewStaticEmbedder(64))
	_, err := f.runner.IngestQuran(ctx, sampleQuran())
	require.NoError(t, err)

	// When: ingesting with another model of the same dimension
	other, err := NewRunner(Dependencies{
		Corpus:   f.corpus,
		Keywords: f.keywords,
		Embedder: renamedEmbedder{embed.NewStaticEmbedder(64), "text-embedding-3-small"},
		Renderer: &recordingRenderer{},
	}, Options{})
	require.NoError(t, err)
	_, err = other.IngestHadith(ctx, sampleHadith())

	// Then: it is refused and the recorded model is unchanged
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeModelMismatch, cerrors.GetCode(err))
	stats, err := f.corpus.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Narrations)
	model, err := f.corpus.GetState(ctx, store.StateKeyEmbeddingModel)
	require.NoError(t, err)
	assert.Equal(t, embed.StaticModelName, model)
}

func TestRunner_Interrupted(t *testing.T) {
	// Given: an embedder that cancels the run mid-batch
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, cancellingEmbedder{embed.NewStaticEmbedder(64), cancel})

	// When: ingesting
	_, err := f.runner.IngestQuran(ctx, sampleQuran())

	// Then: the run reports an interrupted ingestion and stores nothing
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeIngestFailed, cerrors.GetCode(err))
	assert.ErrorIs(t, err, context.Canceled)
	stats, err := f.corpus.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Verses)
}

func TestRunner_HadithNeedsKeywordIndex(t *testing.T) {
	c, err := store.NewSQLiteCorpus("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	r, err := NewRunner(Dependencies{
		Corpus:   c,
		Embedder: embed.NewStaticEmbedder(64),
		Renderer: &recordingRenderer{},
	}, Options{})
	require.NoError(t, err)

	_, err = r.IngestHadith(context.Background(), sampleHadith())

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeIngestFailed, cerrors.GetCode(err))
}

func TestRunner_EmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, failingEmbedder{embed.NewStaticEmbedder(64)})

	_, err := f.runner.IngestQuran(ctx, sampleQuran())

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeEmbeddingFailed, cerrors.GetCode(err))
	stats, err := f.corpus.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Verses)
}

func TestRunner_Clear(t *testing.T) {
	// Given: both corpora ingested
	ctx := context.Background()
	f := newFixture(t, embed.NewStaticEmbedder(64))
	_, err := f.runner.IngestQuran(ctx, sampleQuran())
	require.NoError(t, err)
	_, err = f.runner.IngestHadith(ctx, sampleHadith())
	require.NoError(t, err)

	// When: clearing narrations only
	require.NoError(t, f.runner.Clear(ctx, store.KindNarration))

	// Then: narrations, their keyword rows and vectors are gone; the embedder is still recorded
	stats, err := f.corpus.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Narrations)
	assert.Zero(t, stats.NarrationEmbeddings)
	assert.Equal(t, 5, stats.Verses)
	assert.Equal(t, 64, stats.EmbeddingDimensions)
	assert.Zero(t, f.vectors.Count(store.KindNarration))
	hits, err := f.keywords.Search(ctx, "pillar", store.NarrationFilter{}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	// When: clearing verses too
	require.NoError(t, f.runner.Clear(ctx, store.KindVerse))

	// Then: a different embedder may now be used
	other, err := NewRunner(Dependencies{
		Corpus:   f.corpus,
		Keywords: f.keywords,
		Embedder: embed.NewStaticEmbedder(32),
		Renderer: &recordingRenderer{},
	}, Options{})
	require.NoError(t, err)
	_, err = other.IngestHadith(ctx, sampleHadith())
	assert.NoError(t, err)
}
