package search

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/embed"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
	"github.com/Aman-CERP/criterion/internal/store"
	"github.com/Aman-CERP/criterion/internal/telemetry"
)

func TestNewEngine_NilDependencies(t *testing.T) {
	fx := newFixture(t)
	emb := embed.NewStaticEmbedder(testDims)

	tests := []struct {
		name string
		fn   func() (*Engine, error)
	}{
		{"corpus", func() (*Engine, error) { return NewEngine(nil, fx.vectors, fx.keywords, emb, DefaultConfig()) }},
		{"vectors", func() (*Engine, error) { return NewEngine(fx.corpus, nil, fx.keywords, emb, DefaultConfig()) }},
		{"keywords", func() (*Engine, error) { return NewEngine(fx.corpus, fx.vectors, nil, emb, DefaultConfig()) }},
		{"embedder", func() (*Engine, error) { return NewEngine(fx.corpus, fx.vectors, fx.keywords, nil, DefaultConfig()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.fn()
			assert.Nil(t, e)
			assert.ErrorIs(t, err, ErrNilDependency)
		})
	}
}

func TestNewEngine_ConfigDefaults(t *testing.T) {
	fx := newFixture(t)
	e, err := NewEngine(fx.corpus, fx.vectors, fx.keywords, fx.embedder, EngineConfig{MinSimilarity: 0.1})
	require.NoError(t, err)

	cfg := e.Config()
	assert.Equal(t, store.MinSimilarity, cfg.MinSimilarity)
	assert.Equal(t, 20, cfg.DefaultVerseLimit)
	assert.Equal(t, 25, cfg.MaxVerseLimit)
	assert.Equal(t, 5, cfg.DefaultNarrationLimit)
	assert.Equal(t, 20, cfg.MaxNarrationLimit)
	assert.Equal(t, 2, cfg.ContextWindow)
	assert.Equal(t, 3, cfg.ContextTopN)
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{0, 20}, {-4, 1}, {1, 1}, {7, 7}, {25, 25}, {99, 25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampLimit(tt.limit, 20, 25), "limit %d", tt.limit)
	}
}

func TestSearchVerses_ThresholdAndOrder(t *testing.T) {
	// Given verses on both sides of the similarity floor
	fx := newFixture(t)

	// When searching with the maximum limit
	out, err := fx.engine.SearchVerses(context.Background(), VerseQuery{Query: queryMercy, Limit: 25})

	// Then only the 11 verses at or above 0.3 come back, most similar first
	require.NoError(t, err)
	require.True(t, out.Found)
	assert.Empty(t, out.Message)
	require.Len(t, out.Results, 11)
	for i, r := range out.Results {
		assert.GreaterOrEqual(t, r.Similarity, store.MinSimilarity)
		assert.Equal(t, i+1, r.Rank)
		if i > 0 {
			assert.Greater(t, out.Results[i-1].Similarity, r.Similarity)
		}
		assert.False(t, r.Verse.Chapter == 2 && r.Verse.Number >= 254, "verse below floor returned")
	}
	assert.Equal(t, 1, out.Results[0].Verse.Chapter)
	assert.Equal(t, 1, out.Results[0].Verse.Number)
}

func TestSearchVerses_ContextOnlyForTopThree(t *testing.T) {
	// Given a query with more than three qualifying verses
	fx := newFixture(t)

	// When ten results are requested
	out, err := fx.engine.SearchVerses(context.Background(), VerseQuery{Query: queryMercy, Limit: 10})

	// Then exactly the first three carry context
	require.NoError(t, err)
	require.Len(t, out.Results, 10)
	for i, r := range out.Results {
		assert.Equal(t, i < 3, r.HasContext, "result %d", i+1)
		if i >= 3 {
			assert.True(t, r.Context.IsEmpty())
		}
	}

	// And the default window of 2 is clamped at the chapter start
	top := out.Results[0]
	assert.Empty(t, top.Context.Before)
	assert.Equal(t, []int{2, 3}, verseNumbers(top.Context.After))
	second := out.Results[1]
	assert.Equal(t, []int{1}, verseNumbers(second.Context.Before))
	assert.Equal(t, []int{3, 4}, verseNumbers(second.Context.After))
}

func TestSearchVerses_ContextWindowOverrides(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	out, err := fx.engine.SearchVerses(ctx, VerseQuery{Query: queryMercy, Limit: 3, ContextWindow: 5})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5, 6}, verseNumbers(out.Results[0].Context.After))

	out, err = fx.engine.SearchVerses(ctx, VerseQuery{Query: queryMercy, Limit: 3, ContextWindow: NoContext})
	require.NoError(t, err)
	for _, r := range out.Results {
		assert.False(t, r.HasContext)
	}
}

func TestSearchVerses_NoResults(t *testing.T) {
	// Given a query orthogonal to every verse
	fx := newFixture(t)

	// When searching
	out, err := fx.engine.SearchVerses(context.Background(), VerseQuery{Query: "unrelated words"})

	// Then the outcome says so instead of returning an ambiguous empty list
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, MsgNoVerses, out.Message)
	assert.NotNil(t, out.Results)
	assert.Empty(t, out.Results)
}

func TestSearchVerses_ValidationAndProviderErrors(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := fx.engine.SearchVerses(ctx, VerseQuery{Query: q})
		assert.Equal(t, cerrors.ErrCodeEmptyQuery, cerrors.GetCode(err), "query %q", q)
	}
	assert.Equal(t, int32(0), fx.embedder.calls.Load())

	fx.embedder.err = errProviderDown
	_, err := fx.engine.SearchVerses(ctx, VerseQuery{Query: queryMercy})
	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeEmbeddingFailed, cerrors.GetCode(err))
	assert.ErrorIs(t, err, errProviderDown)
}

func TestSearchVerses_DimensionMismatch(t *testing.T) {
	// Given an engine whose embedder produces larger vectors than the index
	fx := newFixture(t)
	e, err := NewEngine(fx.corpus, fx.vectors, fx.keywords, embed.NewStaticEmbedder(8), DefaultConfig())
	require.NoError(t, err)

	// When searching
	_, err = e.SearchVerses(context.Background(), VerseQuery{Query: queryMercy})

	// Then the mismatch is reported, not swallowed
	assert.Equal(t, cerrors.ErrCodeDimensionMismatch, cerrors.GetCode(err))
}

func TestSearchNarrations_FusesVectorAndKeyword(t *testing.T) {
	// Given narrations matching "prayer" by vector and by keyword
	fx := newFixture(t)

	// When searching sahih-only
	out, err := fx.engine.SearchNarrations(context.Background(), NarrationQuery{Query: queryPrayer})

	// Then the narration found by both lists outranks the vector leader
	require.NoError(t, err)
	require.True(t, out.Found)
	require.Len(t, out.Results, 2)

	first, second := out.Results[0], out.Results[1]
	assert.Equal(t, 2, first.Narration.Number)
	assert.Equal(t, OriginBoth, first.Origin)
	assert.InDelta(t, 0.8, first.Similarity, 1e-6)
	assert.Greater(t, first.KeywordScore, 0.0)

	assert.Equal(t, 1, second.Narration.Number)
	assert.Equal(t, OriginVector, second.Origin)
	assert.InDelta(t, 1.0, second.Relevance, 1e-6)

	assert.Equal(t, corpus.GradeSahihOnly, out.Grade)
	assert.Empty(t, out.Collections)
}

func TestSearchNarrations_GradeFilter(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		grade   string
		allowed []corpus.GradeCategory
		count   int
	}{
		{"sahih-only", []corpus.GradeCategory{corpus.GradeSahih}, 2},
		{"", []corpus.GradeCategory{corpus.GradeSahih}, 2},
		{"sahih-and-hasan", []corpus.GradeCategory{corpus.GradeSahih, corpus.GradeHasan}, 3},
		{"all", nil, 4},
	}
	for _, tt := range tests {
		t.Run(tt.grade, func(t *testing.T) {
			out, err := fx.engine.SearchNarrations(ctx, NarrationQuery{Query: queryPrayer, Grade: tt.grade, Limit: 20})
			require.NoError(t, err)
			assert.Len(t, out.Results, tt.count)
			for _, r := range out.Results {
				if tt.allowed != nil {
					assert.Contains(t, tt.allowed, r.Narration.GradeCategory)
				}
				assert.GreaterOrEqual(t, r.Similarity, store.MinSimilarity)
				assert.Equal(t, r.Similarity, r.Relevance)
			}
		})
	}
}

func TestSearchNarrations_CollectionFilter(t *testing.T) {
	fx := newFixture(t)

	out, err := fx.engine.SearchNarrations(context.Background(), NarrationQuery{
		Query:       queryPrayer,
		Collections: []string{"RiyadusSalihin"},
		Grade:       "all",
	})

	require.NoError(t, err)
	require.Len(t, out.Results, 1)
	assert.Equal(t, corpus.CollectionRiyadusSalihin, out.Results[0].Narration.Collection)
	assert.Equal(t, []corpus.Collection{corpus.CollectionRiyadusSalihin}, out.Collections)
}

func TestSearchNarrations_KeywordOnlyBelowFloor(t *testing.T) {
	fx := newFixture(t)

	tests := []struct {
		name  string
		query string
	}{
		{"single word", "congregation"},
		{"one shared word among noise", "cleanliness zebra quantum volcano spaceship marmalade trombone glacier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: the keyword index matches a narration whose embedding is
			// orthogonal to the query
			hits, err := fx.keywords.Search(context.Background(), tt.query, store.NarrationFilter{}, 10)
			require.NoError(t, err)
			require.NotEmpty(t, hits)

			// When: searching every grade
			out, err := fx.engine.SearchNarrations(context.Background(), NarrationQuery{Query: tt.query, Grade: "all"})

			// Then: the lexical match alone does not qualify
			require.NoError(t, err)
			assert.False(t, out.Found)
			assert.Equal(t, MsgNoNarrations, out.Message)
			assert.Empty(t, out.Results)
		})
	}
}

func TestSearchNarrations_KeywordOnlyScoredBySimilarity(t *testing.T) {
	// Given: a vector candidate list too short to reach nawawi40/5, which
	// the keyword index finds and whose cosine to the query is ~0.42
	fx := newFixture(t)
	fx.embedder.vectors["light"] = vec(0.5, 0, 1, 0)
	cfg := DefaultConfig()
	cfg.CandidateMultiplier = 1
	e, err := NewEngine(fx.corpus, fx.vectors, fx.keywords, fx.embedder, cfg)
	require.NoError(t, err)

	// When: searching with a limit of three
	out, err := e.SearchNarrations(context.Background(), NarrationQuery{Query: "light", Grade: "all", Limit: 3})

	// Then: the keyword-only narration keeps its place and reports its true similarity
	require.NoError(t, err)
	require.True(t, out.Found)
	require.Len(t, out.Results, 3)
	for _, r := range out.Results {
		assert.GreaterOrEqual(t, r.Similarity, store.MinSimilarity)
		assert.Equal(t, r.Similarity, r.Relevance)
	}

	kw := out.Results[1]
	assert.Equal(t, corpus.CollectionNawawi40, kw.Narration.Collection)
	assert.Equal(t, 5, kw.Narration.Number)
	assert.Equal(t, OriginKeyword, kw.Origin)
	assert.InDelta(t, 0.95*0.5/math.Sqrt(1.25), kw.Similarity, 1e-4)
	assert.Greater(t, kw.KeywordScore, 0.0)
}

func TestEngine_KeepAboveFloor(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	id := func(c corpus.Collection, n int) int64 {
		nar, err := fx.corpus.GetNarration(ctx, c, n)
		require.NoError(t, err)
		return nar.ID
	}
	b1 := id(corpus.CollectionBukhari, 1)
	b2 := id(corpus.CollectionBukhari, 2)
	m7 := id(corpus.CollectionMuslim, 7)

	// Given: one vector hit and two keyword-only candidates, one orthogonal
	// to the query, plus an id with no stored embedding
	fused := []*FusedResult{
		{ID: b2, Origin: OriginKeyword},
		{ID: b1, Origin: OriginVector},
		{ID: m7, Origin: OriginKeyword},
		{ID: 9999, Origin: OriginKeyword},
	}
	similarity := map[int64]float64{b1: 1}

	// When: applying the floor for the first-axis query
	kept, err := fx.engine.keepAboveFloor(ctx, vec(1, 0, 0, 0), fused, similarity)

	// Then: order is kept and only candidates at or above 0.3 survive
	require.NoError(t, err)
	require.Len(t, kept, 2)
	assert.Equal(t, b2, kept[0].ID)
	assert.Equal(t, b1, kept[1].ID)
	assert.InDelta(t, 0.8, similarity[b2], 1e-6)
	assert.InDelta(t, 0.0, similarity[m7], 1e-6)
}

func TestSearchNarrations_LimitApplies(t *testing.T) {
	fx := newFixture(t)
	out, err := fx.engine.SearchNarrations(context.Background(), NarrationQuery{Query: queryPrayer, Grade: "all", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, out.Results, 1)
}

func TestSearchNarrations_NoResults(t *testing.T) {
	fx := newFixture(t)

	out, err := fx.engine.SearchNarrations(context.Background(), NarrationQuery{Query: "zakat", Grade: "all"})

	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, MsgNoNarrations, out.Message)
	assert.Empty(t, out.Results)
}

func TestSearchNarrations_ValidationErrors(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		q    NarrationQuery
		code string
	}{
		{"empty query", NarrationQuery{Query: "  "}, cerrors.ErrCodeEmptyQuery},
		{"unknown collection", NarrationQuery{Query: queryPrayer, Collections: []string{"bukhari", "tirmidhi"}}, cerrors.ErrCodeUnknownCollection},
		{"unknown grade", NarrationQuery{Query: queryPrayer, Grade: "strong"}, cerrors.ErrCodeInvalidGrade},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := fx.engine.SearchNarrations(ctx, tt.q)
			assert.Nil(t, out)
			assert.Equal(t, tt.code, cerrors.GetCode(err))
			assert.True(t, cerrors.IsValidation(err))
		})
	}
}

func TestSearchTopic(t *testing.T) {
	// Given a catalog with a prayer topic
	catalog, err := corpus.ParseTopics([]byte(`
topics:
  - slug: prayer
    title: Prayer
    query: prayer
    category: worship
    related: [mercy]
  - slug: mercy
    title: Mercy
    query: mercy
    category: character
`))
	require.NoError(t, err)
	fx := newFixture(t, WithTopics(catalog))

	// When searching the topic
	out, err := fx.engine.SearchTopic(context.Background(), "prayer")

	// Then verses and sahih-only narrations come back together
	require.NoError(t, err)
	assert.Equal(t, "Prayer", out.Topic.Title)
	require.Len(t, out.Related, 1)
	assert.Equal(t, "mercy", out.Related[0].Slug)

	assert.True(t, out.Verses.Found)
	assert.Len(t, out.Verses.Results, 11)
	for _, r := range out.Verses.Results {
		assert.False(t, r.HasContext)
	}
	require.True(t, out.Narrations.Found)
	for _, r := range out.Narrations.Results {
		assert.Equal(t, corpus.GradeSahih, r.Narration.GradeCategory)
	}

	// And unknown slugs are rejected
	_, err = fx.engine.SearchTopic(context.Background(), "astrology")
	assert.Equal(t, cerrors.ErrCodeUnknownTopic, cerrors.GetCode(err))
}

func TestEngine_RecordsMetrics(t *testing.T) {
	m, err := telemetry.NewQueryMetrics(prometheus.NewRegistry(), telemetry.DefaultConfig())
	require.NoError(t, err)
	fx := newFixture(t, WithMetrics(m))
	ctx := context.Background()

	_, err = fx.engine.SearchVerses(ctx, VerseQuery{Query: queryMercy})
	require.NoError(t, err)
	_, err = fx.engine.SearchNarrations(ctx, NarrationQuery{Query: "zakat"})
	require.NoError(t, err)
	_, _ = fx.engine.SearchVerses(ctx, VerseQuery{Query: ""})

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.ByKind[telemetry.KindVerse])
	assert.Equal(t, int64(1), snap.ByOutcome[telemetry.OutcomeEmpty])
	assert.Equal(t, int64(1), snap.ByOutcome[telemetry.OutcomeError])
	assert.Equal(t, []string{"zakat"}, snap.ZeroResultQueries)
}

func TestEngine_StaticEmbedderExactTextMatch(t *testing.T) {
	// Given a corpus embedded with the static embedder
	ctx := context.Background()
	emb := embed.NewStaticEmbedder(64)
	c, err := store.NewSQLiteCorpus("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	texts := []string{
		"Indeed, Allah is with the patient.",
		"And establish prayer and give zakah.",
		"So remember Me; I will remember you.",
	}
	verses := make([]*store.Verse, len(texts))
	for i, text := range texts {
		verses[i] = &store.Verse{Chapter: 2, Number: 150 + i, TextDefault: text, ChapterName: "Al-Baqarah"}
	}
	vectors, err := emb.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.NoError(t, c.SaveVerses(ctx, verses, vectors))

	idx := store.NewExactIndex(store.DefaultVectorConfig(64))
	_, err = store.LoadVectorIndex(ctx, c, idx, store.KindVerse)
	require.NoError(t, err)
	e, err := NewEngine(c, idx, store.NewFTSIndex(c), emb, DefaultConfig())
	require.NoError(t, err)

	// When querying with a verse's own text
	out, err := e.SearchVerses(ctx, VerseQuery{Query: texts[1]})

	// Then that verse ranks first with full similarity
	require.NoError(t, err)
	require.True(t, out.Found)
	assert.Equal(t, 151, out.Results[0].Verse.Number)
	assert.InDelta(t, 1.0, out.Results[0].Similarity, 1e-5)
}
