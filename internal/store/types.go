// Package store persists the verse and narration corpora (SQLite) and
// provides the vector and keyword indexes searched over them.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aman-CERP/criterion/internal/corpus"
)

// Kind identifies one of the two corpora.
type Kind string

const (
	KindVerse     Kind = "verse"
	KindNarration Kind = "narration"
)

// Valid reports whether k names a known corpus.
func (k Kind) Valid() bool {
	return k == KindVerse || k == KindNarration
}

// ParseKind parses a corpus kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown corpus kind %q (use verse or narration)", s)
	}
	return k, nil
}

// State keys for the corpus state table.
const (
	// StateKeyEmbeddingModel stores the embedder model used at ingestion.
	StateKeyEmbeddingModel = "embedding_model"
	// StateKeyEmbeddingDimensions stores the embedding dimension used at ingestion.
	StateKeyEmbeddingDimensions = "embedding_dimensions"
)

// CurrentSchemaVersion is the current corpus schema version.
const CurrentSchemaVersion = 1

// MinSimilarity is the lowest cosine similarity ever returned by a vector index.
const MinSimilarity = 0.3

// ErrNotFound is returned when a passage does not exist.
var ErrNotFound = errors.New("passage not found")

// Verse is one verse of the Quran.
type Verse struct {
	ID                int64
	Chapter           int
	Number            int
	TextNative        string // Arabic
	TextDefault       string // English
	ChapterName       string // Transliterated
	ChapterNameNative string // Arabic
}

// Narration is one hadith from a collection.
type Narration struct {
	ID            int64
	Collection    corpus.Collection
	Number        int
	Reference     string
	TextNative    string
	TextDefault   string
	Grade         string // Free text as ingested
	GradeCategory corpus.GradeCategory
	BookNumber    int
	BookName      string
	ChapterNumber int
	ChapterName   string
	NarratorChain string
	SourceURL     string
}

// NarrationFilter restricts narration searches. Empty slices match everything.
type NarrationFilter struct {
	Collections []corpus.Collection
	Grades      []corpus.GradeCategory
}

// IsEmpty reports whether the filter admits every narration.
func (f NarrationFilter) IsEmpty() bool {
	return len(f.Collections) == 0 && len(f.Grades) == 0
}

// Matches reports whether a narration with the given collection and grade
// category passes the filter.
func (f NarrationFilter) Matches(c corpus.Collection, g corpus.GradeCategory) bool {
	if len(f.Collections) > 0 && !containsValue(f.Collections, c) {
		return false
	}
	if len(f.Grades) > 0 && !containsValue(f.Grades, g) {
		return false
	}
	return true
}

func containsValue[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// EmbeddingRecord is the stored embedding of one passage plus the fields
// vector indexes filter on.
type EmbeddingRecord struct {
	Kind          Kind
	ID            int64 // Passage ID; ascending IDs follow insertion order
	Collection    corpus.Collection
	GradeCategory corpus.GradeCategory
	Vector        []float32
}

// VectorHit is a single vector search result.
type VectorHit struct {
	ID         int64
	Similarity float64 // Cosine similarity, 0-1 scale
}

// KeywordHit is a single keyword search result.
type KeywordHit struct {
	ID    int64
	Score float64 // Higher is better
}

// KeywordDoc is a narration as seen by a keyword index.
type KeywordDoc struct {
	ID            int64
	Text          string
	Collection    corpus.Collection
	GradeCategory corpus.GradeCategory
}

// Corpus provides read access to stored passages.
type Corpus interface {
	// GetVerse returns one verse or ErrNotFound.
	GetVerse(ctx context.Context, chapter, verse int) (*Verse, error)

	// VerseRange returns verses start..end of a chapter in ascending order.
	// Missing verses are skipped.
	VerseRange(ctx context.Context, chapter, start, end int) ([]*Verse, error)

	// VersesByID returns the verses with the given IDs keyed by ID.
	VersesByID(ctx context.Context, ids []int64) (map[int64]*Verse, error)

	// NarrationsByID returns the narrations with the given IDs keyed by ID.
	NarrationsByID(ctx context.Context, ids []int64) (map[int64]*Narration, error)

	// EmbeddingsByID returns the stored vectors of the given passages keyed
	// by ID. Passages without an embedding are absent.
	EmbeddingsByID(ctx context.Context, kind Kind, ids []int64) (map[int64][]float32, error)
}

// VectorIndex searches passage embeddings by cosine similarity.
type VectorIndex interface {
	// Add inserts or replaces embedding records.
	Add(ctx context.Context, records []EmbeddingRecord) error

	// Search returns up to limit hits ordered by similarity descending, then
	// by passage ID ascending. Hits below the index's similarity floor are
	// dropped. The filter only applies to narrations.
	Search(ctx context.Context, kind Kind, query []float32, filter NarrationFilter, limit int) ([]VectorHit, error)

	// Delete removes every record of a corpus kind.
	Delete(ctx context.Context, kind Kind) error

	Close() error
}

// KeywordIndex provides full-text search over narration text.
type KeywordIndex interface {
	// Index inserts or replaces documents.
	Index(ctx context.Context, docs []KeywordDoc) error

	// Search returns up to limit hits ordered by lexical relevance. No match
	// and malformed queries both yield an empty slice.
	Search(ctx context.Context, query string, filter NarrationFilter, limit int) ([]KeywordHit, error)

	// Clear removes every document.
	Clear(ctx context.Context) error

	Close() error
}

// ErrDimensionMismatch indicates vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (re-run 'criterion ingest' with the configured embedder)", e.Expected, e.Got)
}

// ErrModelMismatch indicates the corpus was embedded with another model.
// Vectors of different models are not comparable even at equal dimension.
type ErrModelMismatch struct {
	Stored string
	Got    string
}

func (e ErrModelMismatch) Error() string {
	return fmt.Sprintf("embedding model mismatch: corpus was embedded with %q, configured embedder is %q", e.Stored, e.Got)
}

// VectorConfig configures in-memory vector indexes.
type VectorConfig struct {
	// Dimensions is the vector dimension (768 for text-embedding-004).
	Dimensions int

	// MinSimilarity is the similarity floor; values below MinSimilarity are raised to it.
	MinSimilarity float64

	// M is HNSW max connections per layer (default: 16).
	M int

	// EfSearch is HNSW query-time search width (default: 64).
	EfSearch int
}

// DefaultVectorConfig returns defaults for the given dimension.
func DefaultVectorConfig(dimensions int) VectorConfig {
	return VectorConfig{
		Dimensions:    dimensions,
		MinSimilarity: MinSimilarity,
		M:             16,
		EfSearch:      64,
	}
}

func (c VectorConfig) floor() float64 {
	return max(c.MinSimilarity, MinSimilarity)
}
