package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/criterion/internal/corpus"
)

// keywordBackends builds each keyword backend over the same seeded corpus.
func keywordBackends(t *testing.T) map[string]struct {
	idx KeywordIndex
	ns  []*Narration
} {
	t.Helper()
	out := map[string]struct {
		idx KeywordIndex
		ns  []*Narration
	}{}

	c := newTestCorpus(t)
	_, ns := seedCorpus(t, c)
	fts := NewFTSIndex(c)
	require.NoError(t, fts.Index(context.Background(), keywordDocs(ns)))
	out["sqlite"] = struct {
		idx KeywordIndex
		ns  []*Narration
	}{fts, ns}

	bc := newTestCorpus(t)
	_, bns := seedCorpus(t, bc)
	bl, err := NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = bl.Close() })
	require.NoError(t, bl.Index(context.Background(), keywordDocs(bns)))
	out["bleve"] = struct {
		idx KeywordIndex
		ns  []*Narration
	}{bl, bns}

	return out
}

func hitIDs(hits []KeywordHit) []int64 {
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

func TestKeywordIndex_StemmedMatch(t *testing.T) {
	for name, b := range keywordBackends(t) {
		t.Run(name, func(t *testing.T) {
			// When: searching a plural the texts use in singular and plural
			hits, err := b.idx.Search(context.Background(), "prayers", NarrationFilter{}, 10)

			// Then: all three prayer narrations match
			require.NoError(t, err)
			assert.ElementsMatch(t, []int64{b.ns[1].ID, b.ns[2].ID, b.ns[3].ID}, hitIDs(hits))
			for _, h := range hits {
				assert.Greater(t, h.Score, 0.0)
			}
		})
	}
}

func TestKeywordIndex_Filters(t *testing.T) {
	for name, b := range keywordBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			tests := []struct {
				name   string
				filter NarrationFilter
				want   []int64
			}{
				{"collection", NarrationFilter{Collections: []corpus.Collection{corpus.CollectionBukhari}}, []int64{b.ns[1].ID}},
				{"grade", NarrationFilter{Grades: []corpus.GradeCategory{corpus.GradeSahih, corpus.GradeHasan}}, []int64{b.ns[1].ID, b.ns[2].ID}},
				{"both", NarrationFilter{
					Collections: []corpus.Collection{corpus.CollectionNawawi40},
					Grades:      []corpus.GradeCategory{corpus.GradeSahih},
				}, []int64{}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					hits, err := b.idx.Search(ctx, "prayer", tt.filter, 10)
					require.NoError(t, err)
					assert.ElementsMatch(t, tt.want, hitIDs(hits))
				})
			}
		})
	}
}

func TestKeywordIndex_NoMatchIsEmpty(t *testing.T) {
	for name, b := range keywordBackends(t) {
		t.Run(name, func(t *testing.T) {
			queries := []string{"zakat", "", "   ", `"unbalanced AND (`, "NEAR(", "*"}
			for _, q := range queries {
				hits, err := b.idx.Search(context.Background(), q, NarrationFilter{}, 10)
				require.NoError(t, err, "query %q", q)
				assert.NotNil(t, hits)
				assert.Empty(t, hits, "query %q", q)
			}
		})
	}
}

func TestKeywordIndex_Limit(t *testing.T) {
	for name, b := range keywordBackends(t) {
		t.Run(name, func(t *testing.T) {
			hits, err := b.idx.Search(context.Background(), "prayer", NarrationFilter{}, 2)
			require.NoError(t, err)
			assert.Len(t, hits, 2)
			assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
		})
	}
}

func TestKeywordIndex_ReindexReplaces(t *testing.T) {
	for name, b := range keywordBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := keywordDocs(b.ns[:1])[0]
			doc.Text = "fasting in ramadan"
			require.NoError(t, b.idx.Index(ctx, []KeywordDoc{doc}))

			hits, err := b.idx.Search(ctx, "intentions", NarrationFilter{}, 10)
			require.NoError(t, err)
			assert.Empty(t, hits)

			hits, err = b.idx.Search(ctx, "ramadan", NarrationFilter{}, 10)
			require.NoError(t, err)
			assert.Equal(t, []int64{doc.ID}, hitIDs(hits))
		})
	}
}

func TestKeywordIndex_Clear(t *testing.T) {
	for name, b := range keywordBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, b.idx.Clear(ctx))

			hits, err := b.idx.Search(ctx, "prayer", NarrationFilter{}, 10)
			require.NoError(t, err)
			assert.Empty(t, hits)
		})
	}
}

func TestBleveIndex_PersistsAndRecoversFromCorruption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")
	ctx := context.Background()

	idx, err := NewBleveIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Index(ctx, []KeywordDoc{{ID: 7, Text: "patience in adversity", Collection: corpus.CollectionMuslim}}))
	require.NoError(t, idx.Close())

	reopened, err := NewBleveIndex(path)
	require.NoError(t, err)
	n, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	require.NoError(t, reopened.Close())

	// Given: a truncated index_meta.json
	require.NoError(t, writeFile(filepath.Join(path, "index_meta.json"), ""))

	// Then: the index is recreated empty
	recovered, err := NewBleveIndex(path)
	require.NoError(t, err)
	defer func() { _ = recovered.Close() }()
	n, err = recovered.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestQueryTerms(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"What does Islam say about patience?", []string{"islam", "patience"}},
		{"the the", []string{"the"}},
		{`"prayer" OR (charity)`, []string{"prayer", "charity"}},
		{"a ? !", []string{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, queryTerms(tt.in), tt.in)
	}
	assert.Equal(t, `"prayer" OR "charity"`, ftsMatchExpr([]string{"prayer", "charity"}))
}
