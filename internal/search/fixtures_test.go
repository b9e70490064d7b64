package search

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/embed"
	"github.com/Aman-CERP/criterion/internal/store"
)

const testDims = 4

// Query texts understood by fixedEmbedder.
const (
	queryMercy  = "mercy"
	queryPrayer = "prayer"
)

// fixedEmbedder maps known query texts to fixed vectors. Unknown text
// embeds along the last axis, which no fixture passage uses.
type fixedEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   atomic.Int32
}

func newFixedEmbedder() *fixedEmbedder {
	return &fixedEmbedder{vectors: map[string][]float32{
		queryMercy:  vec(1, 0, 0, 0),
		queryPrayer: vec(1, 0, 0, 0),
	}}
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	prepared := embed.PrepareText(text)
	if prepared == "" {
		return nil, embed.ErrEmptyInput
	}
	if v, ok := f.vectors[prepared]; ok {
		return v, nil
	}
	return vec(0, 0, 0, 1), nil
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fixedEmbedder) Dimensions() int                  { return testDims }
func (f *fixedEmbedder) ModelName() string                { return "fixed" }
func (f *fixedEmbedder) Available(_ context.Context) bool { return true }
func (f *fixedEmbedder) Close() error                     { return nil }

var errProviderDown = errors.New("provider down")

// vec returns the unit vector in the direction of xs.
func vec(xs ...float32) []float32 {
	var sum float64
	for _, x := range xs {
		sum += float64(x) * float64(x)
	}
	n := float32(math.Sqrt(sum))
	out := make([]float32, len(xs))
	for i, x := range xs {
		out[i] = x / n
	}
	return out
}

type fixtureVerse struct {
	chapter, number int
	vector          []float32
}

// fixtureVerses covers all of chapter 1, 2:10-20 and 2:250-256.
//
// Against the "mercy" query (first axis) chapter 1 and 2:250-253 score
// strictly decreasing similarities above 0.6, 2:254-256 score ~0.2 and
// 2:10-20 score 0.
func fixtureVerses() []fixtureVerse {
	var out []fixtureVerse
	rank := 0
	for n := 1; n <= 7; n++ {
		out = append(out, fixtureVerse{1, n, vec(1, 0.1*float32(rank), 0, 0)})
		rank++
	}
	for n := 10; n <= 20; n++ {
		out = append(out, fixtureVerse{2, n, vec(0, 0, 1, 0)})
	}
	for n := 250; n <= 253; n++ {
		out = append(out, fixtureVerse{2, n, vec(1, 0.1*float32(rank), 0, 0)})
		rank++
	}
	for n := 254; n <= 256; n++ {
		out = append(out, fixtureVerse{2, n, vec(0.2, 0, 1, 0)})
	}
	return out
}

// fixtureNarrations and their similarity to the "prayer" query:
// bukhari/1 1.0, bukhari/2 0.8, riyadussalihin/10 0.9, nawawi40/5 0.95,
// muslim/7 0.
func fixtureNarrations() ([]*store.Narration, [][]float32) {
	ns := []*store.Narration{
		{Collection: corpus.CollectionBukhari, Number: 1, Reference: "Sahih al-Bukhari 1",
			TextDefault: "Actions are judged by intentions", GradeCategory: corpus.GradeSahih},
		{Collection: corpus.CollectionBukhari, Number: 2, Reference: "Sahih al-Bukhari 2",
			TextDefault: "The prayers offered in congregation", Grade: "Sahih", GradeCategory: corpus.GradeSahih},
		{Collection: corpus.CollectionRiyadusSalihin, Number: 10, Reference: "Riyad as-Salihin 10",
			TextDefault: "Whoever leaves prayer has disbelieved", Grade: "Hasan", GradeCategory: corpus.GradeHasan},
		{Collection: corpus.CollectionNawawi40, Number: 5, Reference: "40 Hadith Nawawi 5",
			TextDefault: "Prayer is a light, charity is a proof", Grade: "Da'if", GradeCategory: corpus.GradeDaif},
		{Collection: corpus.CollectionMuslim, Number: 7, Reference: "Sahih Muslim 7",
			TextDefault: "Cleanliness is half of faith", Grade: "Sahih", GradeCategory: corpus.GradeSahih},
	}
	vectors := [][]float32{
		vec(1, 0, 0, 0),
		vec(0.8, 0.6, 0, 0),
		vec(0.9, 0, 0.43589, 0),
		vec(0.95, 0.31225, 0, 0),
		vec(0, 0, 1, 0),
	}
	return ns, vectors
}

type fixture struct {
	corpus   *store.SQLiteCorpus
	vectors  *store.ExactIndex
	keywords *store.FTSIndex
	embedder *fixedEmbedder
	engine   *Engine
}

func newFixture(t *testing.T, opts ...EngineOption) *fixture {
	t.Helper()
	ctx := context.Background()

	c, err := store.NewSQLiteCorpus("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	fv := fixtureVerses()
	verses := make([]*store.Verse, len(fv))
	vv := make([][]float32, len(fv))
	for i, f := range fv {
		ch, _ := corpus.LookupChapter(f.chapter)
		verses[i] = &store.Verse{
			Chapter:           f.chapter,
			Number:            f.number,
			TextDefault:       "verse text",
			ChapterName:       ch.Name,
			ChapterNameNative: ch.NameNative,
		}
		vv[i] = f.vector
	}
	require.NoError(t, c.SaveVerses(ctx, verses, vv))

	ns, nv := fixtureNarrations()
	require.NoError(t, c.SaveNarrations(ctx, ns, nv))

	vectors := store.NewExactIndex(store.DefaultVectorConfig(testDims))
	_, err = store.LoadVectorIndex(ctx, c, vectors, store.KindVerse, store.KindNarration)
	require.NoError(t, err)

	keywords := store.NewFTSIndex(c)
	docs := make([]store.KeywordDoc, len(ns))
	for i, n := range ns {
		docs[i] = store.KeywordDoc{ID: n.ID, Text: n.TextDefault, Collection: n.Collection, GradeCategory: n.GradeCategory}
	}
	require.NoError(t, keywords.Index(ctx, docs))

	emb := newFixedEmbedder()
	engine, err := NewEngine(c, vectors, keywords, emb, DefaultConfig(), opts...)
	require.NoError(t, err)

	return &fixture{corpus: c, vectors: vectors, keywords: keywords, embedder: emb, engine: engine}
}
