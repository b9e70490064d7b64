package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// StaticModelName identifies vectors produced by StaticEmbedder.
const StaticModelName = "static-hash-768"

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var englishStopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "he": true, "in": true,
	"is": true, "it": true, "of": true, "on": true, "or": true, "that": true,
	"the": true, "this": true, "to": true, "was": true, "were": true,
	"will": true, "with": true, "what": true, "who": true, "about": true,
}

// StaticEmbedder generates deterministic hash-based embeddings without a
// network provider. Semantic quality is low; lexical overlap dominates.
// It backs offline ingestion and tests.
type StaticEmbedder struct {
	dims int

	mu     sync.RWMutex
	closed bool
}

// NewStaticEmbedder creates a static embedder with the given dimension.
// dims <= 0 selects DefaultDimensions.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed implements Embedder.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.check(ctx); err != nil {
		return nil, err
	}
	prepared := PrepareText(text)
	if prepared == "" {
		return nil, ErrEmptyInput
	}
	return e.vector(prepared), nil
}

// EmbedBatch implements Embedder.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.check(ctx); err != nil {
		return nil, err
	}
	prepared, err := prepareAll(texts)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(prepared))
	for i, t := range prepared {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *StaticEmbedder) check(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return fmt.Errorf("embedder is closed")
	}
	return ctx.Err()
}

func (e *StaticEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)

	for _, tok := range words(text) {
		if englishStopWords[tok] {
			continue
		}
		v[hashToIndex(tok, e.dims)] += tokenWeight
	}

	letters := []rune(lettersOnly(text))
	for i := 0; i+ngramSize <= len(letters); i++ {
		v[hashToIndex(string(letters[i:i+ngramSize]), e.dims)] += ngramWeight
	}

	return normalizeVector(v)
}

// words splits text into lower-cased letter/digit runs.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func lettersOnly(text string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func hashToIndex(s string, dims int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(dims))
}

// Dimensions implements Embedder.
func (e *StaticEmbedder) Dimensions() int { return e.dims }

// ModelName implements Embedder.
func (e *StaticEmbedder) ModelName() string { return StaticModelName }

// Available implements Embedder.
func (e *StaticEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close implements Embedder.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
