package store

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Aman-CERP/criterion/internal/corpus"
)

// VectorBackend names a vector index implementation.
type VectorBackend string

const (
	// VectorBackendExact scans every embedding (default).
	VectorBackendExact VectorBackend = "exact"
	// VectorBackendHNSW generates candidates with an HNSW graph.
	VectorBackendHNSW VectorBackend = "hnsw"
	// VectorBackendQdrant queries a Qdrant server.
	VectorBackendQdrant VectorBackend = "qdrant"
)

// KeywordBackend names a keyword index implementation.
type KeywordBackend string

const (
	// KeywordBackendSQLite uses the FTS5 table in the corpus database (default).
	KeywordBackendSQLite KeywordBackend = "sqlite"
	// KeywordBackendBleve uses a Bleve index directory.
	KeywordBackendBleve KeywordBackend = "bleve"
)

// LoadVectorIndex copies the stored embeddings of the given kinds from the
// corpus into idx in batches. It returns the number of records loaded.
func LoadVectorIndex(ctx context.Context, c *SQLiteCorpus, idx VectorIndex, kinds ...Kind) (int, error) {
	const batchSize = 512

	total := 0
	for _, kind := range kinds {
		batch := make([]EmbeddingRecord, 0, batchSize)
		err := c.Embeddings(ctx, kind, func(rec EmbeddingRecord) error {
			batch = append(batch, rec)
			if len(batch) < batchSize {
				return nil
			}
			if err := idx.Add(ctx, batch); err != nil {
				return err
			}
			total += len(batch)
			batch = batch[:0]
			return nil
		})
		if err == nil && len(batch) > 0 {
			err = idx.Add(ctx, batch)
			total += len(batch)
		}
		if err != nil {
			return total, fmt.Errorf("load %s embeddings: %w", kind, err)
		}
	}
	return total, nil
}

// normalizeVectorInPlace normalizes a vector to unit length in place.
func normalizeVectorInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
}

func normalizedCopy(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	normalizeVectorInPlace(out)
	return out
}

// dot returns the dot product; for unit vectors this is cosine similarity.
func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Cosine returns the cosine similarity of a and b, or 0 when their lengths
// differ or either is a zero vector.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var ab, aa, bb float64
	for i := range a {
		ab += float64(a[i]) * float64(b[i])
		aa += float64(a[i]) * float64(a[i])
		bb += float64(b[i]) * float64(b[i])
	}
	if aa == 0 || bb == 0 {
		return 0
	}
	return ab / (math.Sqrt(aa) * math.Sqrt(bb))
}

// rankHits orders hits by similarity descending then ID ascending and
// truncates to limit.
func rankHits(hits []VectorHit, limit int) []VectorHit {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// vectorEntry is an embedding held by an in-memory index.
type vectorEntry struct {
	id         int64
	collection corpus.Collection
	grade      corpus.GradeCategory
	vec        []float32 // Unit length
}

func newVectorEntry(rec EmbeddingRecord) vectorEntry {
	return vectorEntry{
		id:         rec.ID,
		collection: rec.Collection,
		grade:      rec.GradeCategory,
		vec:        normalizedCopy(rec.Vector),
	}
}

// admits applies the narration filter; verses are never filtered.
func (e vectorEntry) admits(kind Kind, filter NarrationFilter) bool {
	return kind != KindNarration || filter.Matches(e.collection, e.grade)
}
