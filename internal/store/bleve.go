package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// BleveIndex implements KeywordIndex with Bleve using the English analyzer.
// Collection and grade category are indexed as keyword fields for filtering.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ KeywordIndex = (*BleveIndex)(nil)

// bleveDoc is the document structure for Bleve indexing.
type bleveDoc struct {
	Text       string `json:"text"`
	Collection string `json:"collection"`
	Grade      string `json:"grade"`
}

// validateBleveIntegrity checks that an existing index directory carries a
// readable index_meta.json. A missing directory is fine.
func validateBleveIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("index_meta.json is empty")
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// NewBleveIndex opens or creates a Bleve index at path.
// An empty path creates an in-memory index. A corrupt index is removed and
// recreated empty; ingestion rebuilds it.
func NewBleveIndex(path string) (*BleveIndex, error) {
	idx, err := openBleve(path)
	if err != nil {
		return nil, err
	}
	return &BleveIndex{index: idx, path: path}, nil
}

func openBleve(path string) (bleve.Index, error) {
	m, err := newNarrationMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	if path == "" {
		return bleve.NewMemOnly(m)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	if validErr := validateBleveIntegrity(path); validErr != nil {
		slog.Warn("keyword_index_corrupted",
			slog.String("path", path),
			slog.String("error", validErr.Error()))
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("keyword index corrupted at %s and cannot remove: %w (original error: %v)", path, err, validErr)
		}
		slog.Info("keyword_index_cleared",
			slog.String("path", path),
			slog.String("reason", "corruption detected, re-run ingest"))
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword index %s: %w", path, err)
	}
	return idx, nil
}

func newNarrationMapping() (*mapping.IndexMappingImpl, error) {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = en.AnalyzerName
	text.Store = false
	text.IncludeTermVectors = false

	exact := bleve.NewKeywordFieldMapping()
	exact.Analyzer = keyword.Name
	exact.Store = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("text", text)
	doc.AddFieldMappingsAt("collection", exact)
	doc.AddFieldMappingsAt("grade", exact)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = en.AnalyzerName
	return m, m.Validate()
}

// Index implements KeywordIndex.
func (b *BleveIndex) Index(ctx context.Context, docs []KeywordDoc) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		err := batch.Index(strconv.FormatInt(doc.ID, 10), bleveDoc{
			Text:       doc.Text,
			Collection: string(doc.Collection),
			Grade:      doc.GradeCategory.String(),
		})
		if err != nil {
			return fmt.Errorf("failed to index document %d: %w", doc.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Search implements KeywordIndex.
func (b *BleveIndex) Search(ctx context.Context, queryStr string, filter NarrationFilter, limit int) ([]KeywordHit, error) {
	if strings.TrimSpace(queryStr) == "" || limit <= 0 {
		return []KeywordHit{}, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	match := bleve.NewMatchQuery(queryStr)
	match.SetField("text")

	conjuncts := []query.Query{match}
	if len(filter.Collections) > 0 {
		terms := make([]query.Query, len(filter.Collections))
		for i, c := range filter.Collections {
			tq := bleve.NewTermQuery(string(c))
			tq.SetField("collection")
			terms[i] = tq
		}
		conjuncts = append(conjuncts, bleve.NewDisjunctionQuery(terms...))
	}
	if len(filter.Grades) > 0 {
		terms := make([]query.Query, len(filter.Grades))
		for i, g := range filter.Grades {
			tq := bleve.NewTermQuery(g.String())
			tq.SetField("grade")
			terms[i] = tq
		}
		conjuncts = append(conjuncts, bleve.NewDisjunctionQuery(terms...))
	}

	var q query.Query = match
	if len(conjuncts) > 1 {
		q = bleve.NewConjunctionQuery(conjuncts...)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	hits := make([]KeywordHit, 0, len(result.Hits))
	for _, h := range result.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			slog.Warn("keyword_index_bad_id", slog.String("id", h.ID))
			continue
		}
		hits = append(hits, KeywordHit{ID: id, Score: h.Score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	return hits, nil
}

// Clear implements KeywordIndex by recreating the index.
func (b *BleveIndex) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("index is closed")
	}

	if err := b.index.Close(); err != nil {
		return fmt.Errorf("failed to close keyword index: %w", err)
	}
	if b.path != "" {
		if err := os.RemoveAll(b.path); err != nil {
			return fmt.Errorf("failed to remove keyword index: %w", err)
		}
	}
	idx, err := openBleve(b.path)
	if err != nil {
		b.closed = true
		return err
	}
	b.index = idx
	return nil
}

// Count returns the number of indexed documents.
func (b *BleveIndex) Count() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, fmt.Errorf("index is closed")
	}
	return b.index.DocCount()
}

// Close releases the index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}
