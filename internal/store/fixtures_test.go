package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/criterion/internal/corpus"
)

const testDims = 4

func newTestCorpus(t *testing.T) *SQLiteCorpus {
	t.Helper()
	c, err := NewSQLiteCorpus("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testVerses() []*Verse {
	return []*Verse{
		{Chapter: 1, Number: 1, TextDefault: "In the name of Allah, the Entirely Merciful", ChapterName: "Al-Fatihah"},
		{Chapter: 1, Number: 2, TextDefault: "All praise is due to Allah, Lord of the worlds", ChapterName: "Al-Fatihah"},
		{Chapter: 1, Number: 3, TextDefault: "The Entirely Merciful, the Especially Merciful", ChapterName: "Al-Fatihah"},
		{Chapter: 2, Number: 255, TextDefault: "Allah - there is no deity except Him", ChapterName: "Al-Baqarah"},
	}
}

func testNarrations() []*Narration {
	return []*Narration{
		{Collection: corpus.CollectionBukhari, Number: 1, TextDefault: "Actions are judged by intentions",
			Grade: "", GradeCategory: corpus.GradeSahih, NarratorChain: "Umar bin Al-Khattab"},
		{Collection: corpus.CollectionBukhari, Number: 2, TextDefault: "The prayers offered in congregation",
			Grade: "Sahih", GradeCategory: corpus.GradeSahih},
		{Collection: corpus.CollectionRiyadusSalihin, Number: 10, TextDefault: "Whoever leaves prayer has disbelieved",
			Grade: "Hasan", GradeCategory: corpus.GradeHasan},
		{Collection: corpus.CollectionNawawi40, Number: 5, TextDefault: "Prayer is a light, charity is a proof",
			Grade: "Da'if", GradeCategory: corpus.GradeDaif},
	}
}

// unit returns a vector along one axis.
func unit(axis int) []float32 {
	v := make([]float32, testDims)
	v[axis] = 1
	return v
}

func seedCorpus(t *testing.T, c *SQLiteCorpus) ([]*Verse, []*Narration) {
	t.Helper()
	ctx := context.Background()

	verses := testVerses()
	vv := make([][]float32, len(verses))
	for i := range verses {
		vv[i] = unit(i % testDims)
	}
	require.NoError(t, c.SaveVerses(ctx, verses, vv))

	ns := testNarrations()
	nv := make([][]float32, len(ns))
	for i := range ns {
		nv[i] = unit(i % testDims)
	}
	require.NoError(t, c.SaveNarrations(ctx, ns, nv))
	return verses, ns
}

func keywordDocs(ns []*Narration) []KeywordDoc {
	docs := make([]KeywordDoc, len(ns))
	for i, n := range ns {
		docs[i] = KeywordDoc{ID: n.ID, Text: n.TextDefault, Collection: n.Collection, GradeCategory: n.GradeCategory}
	}
	return docs
}
