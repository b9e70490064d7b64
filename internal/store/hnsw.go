package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/hnsw"
)

// minCandidates is the smallest candidate set fetched from the graph.
const minCandidates = 64

// HNSWIndex implements VectorIndex using coder/hnsw for candidate
// generation. Candidates are re-scored exactly, then filtered and
// thresholded, so the similarity floor is applied to true cosine values.
type HNSWIndex struct {
	mu     sync.RWMutex
	config VectorConfig
	graphs map[Kind]*hnswGraph
	closed bool
}

// hnswGraph is one graph per corpus kind.
type hnswGraph struct {
	graph   *hnsw.Graph[uint64]
	entries map[uint64]vectorEntry // internal key -> entry
	keys    map[int64]uint64       // passage id -> internal key
	nextKey uint64
}

var _ VectorIndex = (*HNSWIndex)(nil)

// NewHNSWIndex creates an empty HNSW index.
func NewHNSWIndex(cfg VectorConfig) *HNSWIndex {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}
	return &HNSWIndex{
		config: cfg,
		graphs: make(map[Kind]*hnswGraph),
	}
}

func (h *HNSWIndex) graphFor(kind Kind) *hnswGraph {
	g, ok := h.graphs[kind]
	if !ok {
		graph := hnsw.NewGraph[uint64]()
		graph.Distance = hnsw.CosineDistance
		graph.M = h.config.M
		graph.EfSearch = h.config.EfSearch
		graph.Ml = 0.25

		g = &hnswGraph{
			graph:   graph,
			entries: make(map[uint64]vectorEntry),
			keys:    make(map[int64]uint64),
		}
		h.graphs[kind] = g
	}
	return g
}

// Add implements VectorIndex. Replaced passages are orphaned in the graph
// rather than deleted; coder/hnsw misbehaves when the last node is removed.
func (h *HNSWIndex) Add(ctx context.Context, records []EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("index is closed")
	}

	for _, rec := range records {
		if len(rec.Vector) != h.config.Dimensions {
			return ErrDimensionMismatch{Expected: h.config.Dimensions, Got: len(rec.Vector)}
		}
		if !rec.Kind.Valid() {
			return fmt.Errorf("unknown corpus kind %q", rec.Kind)
		}
	}

	for _, rec := range records {
		g := h.graphFor(rec.Kind)
		if old, ok := g.keys[rec.ID]; ok {
			delete(g.entries, old)
		}

		key := g.nextKey
		g.nextKey++

		entry := newVectorEntry(rec)
		g.graph.Add(hnsw.MakeNode(key, entry.vec))
		g.entries[key] = entry
		g.keys[rec.ID] = key
	}
	return nil
}

// Search implements VectorIndex.
func (h *HNSWIndex) Search(ctx context.Context, kind Kind, query []float32, filter NarrationFilter, limit int) ([]VectorHit, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if len(query) != h.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: h.config.Dimensions, Got: len(query)}
	}

	g, ok := h.graphs[kind]
	if !ok || g.graph.Len() == 0 || limit <= 0 {
		return []VectorHit{}, nil
	}

	q := normalizedCopy(query)
	k := min(max(limit*4, minCandidates), g.graph.Len())
	nodes := g.graph.Search(q, k)

	floor := h.config.floor()
	hits := make([]VectorHit, 0, len(nodes))
	skipped := 0
	for _, node := range nodes {
		e, ok := g.entries[node.Key]
		if !ok || !e.admits(kind, filter) {
			skipped++ // orphaned by a replacement, or filtered out
			continue
		}
		sim := dot(q, e.vec)
		if sim < floor {
			continue
		}
		hits = append(hits, VectorHit{ID: e.id, Similarity: sim})
	}

	// A narrow filter can leave qualifying vectors outside the candidate
	// set; those searches fall back to an exact scan of the kind.
	if len(hits) < limit && skipped > 0 && k < g.graph.Len() {
		hits = g.scan(kind, q, filter, floor)
	}
	return rankHits(hits, limit), nil
}

// scan scores every live entry against the unit query q.
func (g *hnswGraph) scan(kind Kind, q []float32, filter NarrationFilter, floor float64) []VectorHit {
	hits := make([]VectorHit, 0, len(g.entries))
	for _, e := range g.entries {
		if !e.admits(kind, filter) {
			continue
		}
		if sim := dot(q, e.vec); sim >= floor {
			hits = append(hits, VectorHit{ID: e.id, Similarity: sim})
		}
	}
	return hits
}

// Delete implements VectorIndex by dropping the kind's graph.
func (h *HNSWIndex) Delete(ctx context.Context, kind Kind) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.graphs, kind)
	return nil
}

// HNSWStats reports graph size including orphaned nodes.
type HNSWStats struct {
	Valid      int
	GraphNodes int
	Orphans    int
}

// Stats returns statistics for one kind.
func (h *HNSWIndex) Stats(kind Kind) HNSWStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	g, ok := h.graphs[kind]
	if !ok {
		return HNSWStats{}
	}
	nodes := g.graph.Len()
	return HNSWStats{
		Valid:      len(g.keys),
		GraphNodes: nodes,
		Orphans:    nodes - len(g.keys),
	}
}

// Close releases resources.
func (h *HNSWIndex) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.graphs = nil
	return nil
}
