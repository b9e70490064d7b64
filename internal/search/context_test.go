package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/criterion/internal/store"
)

func verseNumbers(vs []*store.Verse) []int {
	out := make([]int, len(vs))
	for i, v := range vs {
		out[i] = v.Number
	}
	return out
}

func TestContextExpander_ExpandContext(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	x := NewContextExpander(fx.corpus)

	tests := []struct {
		name       string
		chapter    int
		verse      int
		window     int
		wantBefore []int
		wantAfter  []int
	}{
		{"clamped at chapter start", 1, 2, 5, []int{1}, []int{3, 4, 5, 6, 7}},
		{"first verse has no before", 1, 1, 2, []int{}, []int{2, 3}},
		{"clamped at chapter end", 1, 7, 2, []int{5, 6}, []int{}},
		{"interior window", 1, 4, 2, []int{2, 3}, []int{5, 6}},
		{"zero window", 1, 4, 0, []int{}, []int{}},
		{"negative window", 1, 4, -3, []int{}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given a target verse from the corpus
			target, err := fx.corpus.GetVerse(ctx, tt.chapter, tt.verse)
			require.NoError(t, err)

			// When context is expanded
			w, err := x.ExpandContext(ctx, target, tt.window)

			// Then neighbours are split around the target and never leave the chapter
			require.NoError(t, err)
			assert.Equal(t, tt.wantBefore, verseNumbers(w.Before))
			assert.Equal(t, tt.wantAfter, verseNumbers(w.After))
			for _, v := range append(w.Before, w.After...) {
				assert.Equal(t, tt.chapter, v.Chapter)
			}
		})
	}
}

func TestContextExpander_MissingNeighboursSkipped(t *testing.T) {
	// Given 2:250 whose predecessors were never ingested
	fx := newFixture(t)
	ctx := context.Background()
	target, err := fx.corpus.GetVerse(ctx, 2, 250)
	require.NoError(t, err)

	// When expanded by 2
	w, err := NewContextExpander(fx.corpus).ExpandContext(ctx, target, 2)

	// Then only stored verses come back
	require.NoError(t, err)
	assert.Empty(t, w.Before)
	assert.Equal(t, []int{251, 252}, verseNumbers(w.After))
}

func TestContextExpander_NilVerse(t *testing.T) {
	fx := newFixture(t)
	w, err := NewContextExpander(fx.corpus).ExpandContext(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.True(t, w.IsEmpty())
}
