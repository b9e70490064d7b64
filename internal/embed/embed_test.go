package embed

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Aman-CERP/criterion/internal/errors"
)

func TestPrepareText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  patience in hardship  ", "patience in hardship"},
		{"line one\nline two", "line one line two"},
		{"windows\r\nbreaks", "windows breaks"},
		{"\n\n", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PrepareText(tt.in))
	}
}

func TestBatches(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, batches(5, 2))
	assert.Equal(t, [][2]int{{0, 3}}, batches(3, 100))
	assert.Empty(t, batches(0, 10))
}

func TestStaticEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewStaticEmbedder(0)
	ctx := context.Background()

	a, err := e.Embed(ctx, "patience and prayer")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "patience\nand prayer")
	require.NoError(t, err)

	require.Len(t, a, DefaultDimensions)
	assert.Equal(t, a, b, "newlines must not change the vector")

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestStaticEmbedder_EmptyInputIsError(t *testing.T) {
	e := NewStaticEmbedder(16)

	_, err := e.Embed(context.Background(), " \n ")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = e.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestStaticEmbedder_BatchPreservesOrder(t *testing.T) {
	e := NewStaticEmbedder(64)
	ctx := context.Background()

	batch, err := e.EmbedBatch(ctx, []string{"mercy", "charity", "fasting"})
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range []string{"mercy", "charity", "fasting"} {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestStaticEmbedder_Closed(t *testing.T) {
	e := NewStaticEmbedder(8)
	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))
	_, err := e.Embed(context.Background(), "x")
	assert.Error(t, err)
}

// countingEmbedder records calls and can be told to fail.
type countingEmbedder struct {
	mu         sync.Mutex
	embedCalls int
	batchCalls int
	batchSizes []int
	fail       error
	inner      *StaticEmbedder
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{inner: NewStaticEmbedder(32)}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.embedCalls++
	c.mu.Unlock()
	if c.fail != nil {
		return nil, c.fail
	}
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.batchCalls++
	c.batchSizes = append(c.batchSizes, len(texts))
	c.mu.Unlock()
	if c.fail != nil {
		return nil, c.fail
	}
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int                    { return 32 }
func (c *countingEmbedder) ModelName() string                  { return "counting" }
func (c *countingEmbedder) Available(ctx context.Context) bool { return true }
func (c *countingEmbedder) Close() error                       { return nil }

func TestCachedEmbedder_HitsSkipInner(t *testing.T) {
	// Given: a cached embedder
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	// When: embedding equivalent queries twice
	v1, err := c.Embed(ctx, "trust in allah")
	require.NoError(t, err)
	v2, err := c.Embed(ctx, "  trust in allah\n")
	require.NoError(t, err)

	// Then: the inner embedder ran once
	assert.Equal(t, 1, inner.embedCalls)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, c.Len())
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := newCountingEmbedder()
	inner.fail = errors.New("quota exceeded")
	c := NewCachedEmbedder(inner, 10)

	_, err := c.Embed(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	inner.fail = nil
	_, err = c.Embed(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.embedCalls)
}

func TestCachedEmbedder_BatchOnlyEmbedsMisses(t *testing.T) {
	inner := newCountingEmbedder()
	c := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	_, err := c.Embed(ctx, "b")
	require.NoError(t, err)

	out, err := c.EmbedBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []int{2}, inner.batchSizes)

	b, _ := c.Embed(ctx, "b")
	assert.Equal(t, b, out[1])

	empty, err := c.EmbedBatch(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p)

	p, err = ParseProvider("OpenAI")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)

	_, err = ParseProvider("ollama")
	assert.Error(t, err)
}

func TestNew_StaticWithCache(t *testing.T) {
	e, err := New(context.Background(), Options{Provider: ProviderStatic, Dimensions: 128, CacheSize: 5})
	require.NoError(t, err)

	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok)
	assert.Equal(t, 128, cached.Dimensions())
	assert.Equal(t, StaticModelName, cached.ModelName())
}

func TestNew_RemoteProvidersNeedKeys(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		envVar   string
	}{
		{"gemini", ProviderGemini, "GOOGLE_GENERATIVE_AI_API_KEY"},
		{"openai", ProviderOpenAI, "OPENAI_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a remote provider without an API key
			opts := Options{Provider: tt.provider, Dimensions: 8}

			// When: building the embedder
			e, err := New(context.Background(), opts)

			// Then: a missing-key error names the variable to set
			require.Error(t, err)
			assert.Nil(t, e)
			ce, ok := cerrors.As(err)
			require.True(t, ok)
			assert.Equal(t, cerrors.ErrCodeMissingAPIKey, ce.Code)
			assert.Equal(t, cerrors.CategoryConfig, ce.Category)
			assert.Contains(t, ce.Suggestion, tt.envVar)
		})
	}

	_, err := New(context.Background(), Options{Provider: "bogus"})
	assert.Error(t, err)
}
