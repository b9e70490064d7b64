package store

import (
	"context"
	"fmt"
	"sync"
)

// ExactIndex implements VectorIndex with a brute-force cosine scan.
// The corpora are small enough that a full scan is fast and the
// threshold semantics are exact.
type ExactIndex struct {
	mu      sync.RWMutex
	config  VectorConfig
	entries map[Kind][]vectorEntry // Ascending by id
	pos     map[Kind]map[int64]int // id -> index into entries
	closed  bool
}

var _ VectorIndex = (*ExactIndex)(nil)

// NewExactIndex creates an empty exact index.
func NewExactIndex(cfg VectorConfig) *ExactIndex {
	return &ExactIndex{
		config:  cfg,
		entries: make(map[Kind][]vectorEntry),
		pos:     make(map[Kind]map[int64]int),
	}
}

// Add implements VectorIndex.
func (x *ExactIndex) Add(ctx context.Context, records []EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return fmt.Errorf("index is closed")
	}

	for _, rec := range records {
		if len(rec.Vector) != x.config.Dimensions {
			return ErrDimensionMismatch{Expected: x.config.Dimensions, Got: len(rec.Vector)}
		}
		if !rec.Kind.Valid() {
			return fmt.Errorf("unknown corpus kind %q", rec.Kind)
		}
	}

	for _, rec := range records {
		positions := x.pos[rec.Kind]
		if positions == nil {
			positions = make(map[int64]int)
			x.pos[rec.Kind] = positions
		}

		entry := newVectorEntry(rec)
		if i, ok := positions[rec.ID]; ok {
			x.entries[rec.Kind][i] = entry
			continue
		}
		positions[rec.ID] = len(x.entries[rec.Kind])
		x.entries[rec.Kind] = append(x.entries[rec.Kind], entry)
	}
	return nil
}

// Search implements VectorIndex.
func (x *ExactIndex) Search(ctx context.Context, kind Kind, query []float32, filter NarrationFilter, limit int) ([]VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if len(query) != x.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: x.config.Dimensions, Got: len(query)}
	}
	if limit <= 0 {
		return []VectorHit{}, nil
	}

	q := normalizedCopy(query)
	floor := x.config.floor()

	hits := make([]VectorHit, 0, limit)
	for i, e := range x.entries[kind] {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !e.admits(kind, filter) {
			continue
		}
		sim := dot(q, e.vec)
		if sim < floor {
			continue
		}
		hits = append(hits, VectorHit{ID: e.id, Similarity: sim})
	}
	return rankHits(hits, limit), nil
}

// Delete implements VectorIndex.
func (x *ExactIndex) Delete(ctx context.Context, kind Kind) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, kind)
	delete(x.pos, kind)
	return nil
}

// Count returns the number of vectors held for a kind.
func (x *ExactIndex) Count(kind Kind) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries[kind])
}

// Close releases resources.
func (x *ExactIndex) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closed = true
	x.entries = nil
	x.pos = nil
	return nil
}
