// Package embed turns text into embedding vectors.
//
// Queries and stored passages must be embedded by the same provider, model
// and task type, otherwise their vectors are not comparable.
package embed

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
)

const (
	// DefaultDimensions is the vector size of text-embedding-004.
	DefaultDimensions = 768

	// DefaultBatchSize is the number of texts sent per provider request.
	DefaultBatchSize = 100

	// MaxBatchSize caps provider requests.
	MaxBatchSize = 250

	// DefaultTimeout bounds a single provider request.
	DefaultTimeout = 30 * time.Second
)

// ErrEmptyInput is returned when text is empty after preparation.
var ErrEmptyInput = errors.New("embed: input text is empty")

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single query text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for texts, preserving order.
	// Used by ingestion only.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// PrepareText trims text and collapses line breaks into single spaces.
// Some providers embed literal newlines differently from spaces.
func PrepareText(text string) string {
	if !strings.ContainsAny(text, "\r\n") {
		return strings.TrimSpace(text)
	}
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.NewReplacer("\n", " ", "\r", " ").Replace(text)
	return strings.TrimSpace(text)
}

// prepareAll applies PrepareText to every text and rejects empty ones.
func prepareAll(texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = PrepareText(t)
		if out[i] == "" {
			return nil, ErrEmptyInput
		}
	}
	return out, nil
}

// batches splits n items into [start, end) windows of at most size.
func batches(n, size int) [][2]int {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(n, start+size)})
	}
	return out
}

// normalizeVector scales v to unit length. Zero vectors are returned as-is.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
