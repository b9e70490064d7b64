package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// IndexOptions selects and configures the vector and keyword backends.
type IndexOptions struct {
	VectorBackend  VectorBackend
	KeywordBackend KeywordBackend
	Vector         VectorConfig
	Qdrant         QdrantConfig
	// BlevePath is the Bleve index directory; empty means in-memory.
	BlevePath string
}

// ParseVectorBackend parses a vector backend name. Empty selects exact.
func ParseVectorBackend(s string) (VectorBackend, error) {
	switch b := VectorBackend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return VectorBackendExact, nil
	case VectorBackendExact, VectorBackendHNSW, VectorBackendQdrant:
		return b, nil
	default:
		return "", fmt.Errorf("unknown vector backend: %s (valid options: exact, hnsw, qdrant)", s)
	}
}

// ParseKeywordBackend parses a keyword backend name. Empty selects sqlite.
func ParseKeywordBackend(s string) (KeywordBackend, error) {
	switch b := KeywordBackend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return KeywordBackendSQLite, nil
	case KeywordBackendSQLite, KeywordBackendBleve:
		return b, nil
	default:
		return "", fmt.Errorf("unknown keyword backend: %s (valid options: sqlite, bleve)", s)
	}
}

// NewVectorIndex creates an empty vector index for the backend.
func NewVectorIndex(opts IndexOptions) (VectorIndex, error) {
	switch opts.VectorBackend {
	case VectorBackendExact, "":
		return NewExactIndex(opts.Vector), nil
	case VectorBackendHNSW:
		return NewHNSWIndex(opts.Vector), nil
	case VectorBackendQdrant:
		return NewQdrantIndex(opts.Qdrant, opts.Vector)
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", opts.VectorBackend)
	}
}

// OpenVectorIndex creates the vector index for query serving. In-memory
// backends are filled from the corpus; Qdrant already holds its points.
func OpenVectorIndex(ctx context.Context, opts IndexOptions, c *SQLiteCorpus) (VectorIndex, error) {
	idx, err := NewVectorIndex(opts)
	if err != nil {
		return nil, err
	}
	if opts.VectorBackend == VectorBackendQdrant {
		return idx, nil
	}

	start := time.Now()
	n, err := LoadVectorIndex(ctx, c, idx, KindVerse, KindNarration)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	slog.Info("vector_index_loaded",
		slog.String("backend", string(opts.VectorBackend)),
		slog.Int("vectors", n),
		slog.Duration("duration", time.Since(start)))
	return idx, nil
}

// OpenKeywordIndex creates the keyword index for the backend.
func OpenKeywordIndex(opts IndexOptions, c *SQLiteCorpus) (KeywordIndex, error) {
	switch opts.KeywordBackend {
	case KeywordBackendSQLite, "":
		return NewFTSIndex(c), nil
	case KeywordBackendBleve:
		return NewBleveIndex(opts.BlevePath)
	default:
		return nil, fmt.Errorf("unknown keyword backend: %s", opts.KeywordBackend)
	}
}
