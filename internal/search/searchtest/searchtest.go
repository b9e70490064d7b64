// Package searchtest builds small in-memory search engines for tests of the
// packages that serve the engine.
package searchtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/embed"
	"github.com/Aman-CERP/criterion/internal/search"
	"github.com/Aman-CERP/criterion/internal/store"
)

// Dimensions of the static embedder the fixture corpus is embedded with.
const Dimensions = 256

// Passage texts. Querying with one of them returns that passage with
// similarity 1.
const (
	ThroneVerse     = "Allah there is no deity except Him the Ever-Living the Sustainer of all existence"
	IntentionsText  = "Actions are judged by intentions and everyone will get what they intended"
	CleanlinessText = "Cleanliness is half of faith"
	WeakText        = "Seek knowledge even as far as distant lands"
)

// Fixture narration references.
const (
	IntentionsRef = "Sahih al-Bukhari 1"
	WeakRef       = "Riyad as-Salihin 1388"
)

var verseTexts = []struct {
	chapter, verse int
	text           string
}{
	{1, 1, "In the name of God the Gracious the Merciful"},
	{1, 2, "Praise be to God Lord of the Worlds"},
	{1, 3, "The Most Gracious the Most Merciful"},
	{1, 4, "Master of the Day of Judgment"},
	{1, 5, "It is You we worship and You we ask for help"},
	{1, 6, "Guide us to the straight path"},
	{1, 7, "The path of those You have blessed"},
	{2, 250, "Our Lord pour upon us patience and plant firmly our feet"},
	{2, 251, "So they defeated them by permission of Allah"},
	{2, 252, "These are the verses of Allah which We recite to you"},
	{2, 253, "Those messengers some of them We caused to exceed others"},
	{2, 254, "O you who have believed spend from that which We have provided"},
	{2, 255, ThroneVerse},
	{2, 256, "There shall be no compulsion in acceptance of the religion"},
}

// Verses returns chapter 1 and 2:250-256.
func Verses() []*store.Verse {
	out := make([]*store.Verse, len(verseTexts))
	for i, vt := range verseTexts {
		ch, _ := corpus.LookupChapter(vt.chapter)
		out[i] = &store.Verse{
			Chapter:           vt.chapter,
			Number:            vt.verse,
			TextNative:        "نص",
			TextDefault:       vt.text,
			ChapterName:       ch.Name,
			ChapterNameNative: ch.NameNative,
		}
	}
	return out
}

// Narrations returns two Sahih narrations and one Da'if narration.
func Narrations() []*store.Narration {
	return []*store.Narration{
		{Collection: corpus.CollectionBukhari, Number: 1, Reference: IntentionsRef,
			TextDefault: IntentionsText, Grade: "Sahih", GradeCategory: corpus.GradeSahih,
			NarratorChain: "Umar ibn al-Khattab", BookName: "Revelation"},
		{Collection: corpus.CollectionMuslim, Number: 223, Reference: "Sahih Muslim 223",
			TextDefault: CleanlinessText, Grade: "Sahih", GradeCategory: corpus.GradeSahih},
		{Collection: corpus.CollectionRiyadusSalihin, Number: 1388, Reference: WeakRef,
			TextDefault: WeakText, Grade: "Da'if", GradeCategory: corpus.GradeDaif},
	}
}

// Fixture is a populated in-memory corpus with its indexes.
type Fixture struct {
	Corpus   *store.SQLiteCorpus
	Vectors  *store.ExactIndex
	Keywords *store.FTSIndex
	Embedder *embed.StaticEmbedder
	Engine   *search.Engine
}

// New builds the fixture corpus and an engine over it. The corpus is
// closed when the test ends.
func New(t testing.TB, opts ...search.EngineOption) *Fixture {
	t.Helper()
	ctx := context.Background()
	emb := embed.NewStaticEmbedder(Dimensions)

	c, err := store.NewSQLiteCorpus("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	verses := Verses()
	texts := make([]string, len(verses))
	for i, v := range verses {
		texts[i] = v.TextDefault
	}
	vv, err := emb.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.NoError(t, c.SaveVerses(ctx, verses, vv))

	ns := Narrations()
	texts = make([]string, len(ns))
	for i, n := range ns {
		texts[i] = n.TextDefault
	}
	nv, err := emb.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.NoError(t, c.SaveNarrations(ctx, ns, nv))

	vectors := store.NewExactIndex(store.DefaultVectorConfig(Dimensions))
	_, err = store.LoadVectorIndex(ctx, c, vectors, store.KindVerse, store.KindNarration)
	require.NoError(t, err)

	keywords := store.NewFTSIndex(c)
	docs := make([]store.KeywordDoc, len(ns))
	for i, n := range ns {
		docs[i] = store.KeywordDoc{ID: n.ID, Text: n.TextDefault, Collection: n.Collection, GradeCategory: n.GradeCategory}
	}
	require.NoError(t, keywords.Index(ctx, docs))

	engine, err := search.NewEngine(c, vectors, keywords, emb, search.DefaultConfig(), opts...)
	require.NoError(t, err)

	return &Fixture{Corpus: c, Vectors: vectors, Keywords: keywords, Embedder: emb, Engine: engine}
}

// NewEngine is New(t, opts...).Engine.
func NewEngine(t testing.TB, opts ...search.EngineOption) *search.Engine {
	t.Helper()
	return New(t, opts...).Engine
}
