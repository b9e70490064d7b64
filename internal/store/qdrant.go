package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/Aman-CERP/criterion/internal/corpus"
)

// QdrantConfig configures the Qdrant vector backend.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string
	// Port is the Qdrant gRPC port (default: 6334).
	Port int
	// APIKey for authenticated access (optional).
	APIKey string
	// UseTLS enables TLS connections.
	UseTLS bool
	// CollectionPrefix prefixes the per-kind collection names (default: criterion).
	CollectionPrefix string
}

// qdrantAPI is the subset of the Qdrant client the index needs.
type qdrantAPI interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Search(ctx context.Context, req *qdrant.SearchPoints) ([]*qdrant.ScoredPoint, error)
	Close() error
}

// qdrantConn adapts *qdrant.Client to qdrantAPI.
type qdrantConn struct {
	*qdrant.Client
}

func (c qdrantConn) Search(ctx context.Context, req *qdrant.SearchPoints) ([]*qdrant.ScoredPoint, error) {
	resp, err := c.GetPointsClient().Search(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.GetResult(), nil
}

// QdrantIndex implements VectorIndex with one Qdrant collection per corpus
// kind. Points carry collection and grade_category payloads for filtering.
type QdrantIndex struct {
	client  qdrantAPI
	config  VectorConfig
	prefix  string
	mu      sync.Mutex
	ensured map[Kind]bool
}

var _ VectorIndex = (*QdrantIndex)(nil)

// NewQdrantIndex connects to Qdrant.
func NewQdrantIndex(cfg QdrantConfig, vcfg VectorConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client for %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return newQdrantIndex(qdrantConn{client}, cfg.CollectionPrefix, vcfg), nil
}

func newQdrantIndex(client qdrantAPI, prefix string, vcfg VectorConfig) *QdrantIndex {
	if prefix == "" {
		prefix = "criterion"
	}
	return &QdrantIndex{
		client:  client,
		config:  vcfg,
		prefix:  prefix,
		ensured: make(map[Kind]bool),
	}
}

// CollectionName returns the Qdrant collection holding a corpus kind.
func (q *QdrantIndex) CollectionName(kind Kind) string {
	return q.prefix + "_" + string(kind)
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, kind Kind) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ensured[kind] {
		return nil
	}

	name := q.CollectionName(kind)
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if !exists {
		err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(q.config.Dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		slog.Info("qdrant_collection_created",
			slog.String("collection", name),
			slog.Int("dimensions", q.config.Dimensions))
	}
	q.ensured[kind] = true
	return nil
}

// Add implements VectorIndex.
func (q *QdrantIndex) Add(ctx context.Context, records []EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	byKind := make(map[Kind][]*qdrant.PointStruct)
	for _, rec := range records {
		if len(rec.Vector) != q.config.Dimensions {
			return ErrDimensionMismatch{Expected: q.config.Dimensions, Got: len(rec.Vector)}
		}
		if !rec.Kind.Valid() {
			return fmt.Errorf("unknown corpus kind %q", rec.Kind)
		}

		payload := map[string]*qdrant.Value{
			"passage_id": qdrant.NewValueInt(rec.ID),
		}
		if rec.Kind == KindNarration {
			payload["collection"] = qdrant.NewValueString(string(rec.Collection))
			payload["grade_category"] = qdrant.NewValueString(rec.GradeCategory.String())
		}

		byKind[rec.Kind] = append(byKind[rec.Kind], &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(rec.ID)),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: payload,
		})
	}

	wait := true
	for kind, points := range byKind {
		if err := q.ensureCollection(ctx, kind); err != nil {
			return err
		}
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.CollectionName(kind),
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert %d points into %s: %w", len(points), q.CollectionName(kind), err)
		}
	}
	return nil
}

// Search implements VectorIndex. Qdrant applies the filter and threshold
// server-side; results are re-sorted locally so ties order by passage ID.
func (q *QdrantIndex) Search(ctx context.Context, kind Kind, query []float32, filter NarrationFilter, limit int) ([]VectorHit, error) {
	if len(query) != q.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: q.config.Dimensions, Got: len(query)}
	}
	if limit <= 0 {
		return []VectorHit{}, nil
	}

	threshold := float32(q.config.floor())
	req := &qdrant.SearchPoints{
		CollectionName: q.CollectionName(kind),
		Vector:         query,
		Limit:          uint64(limit),
		ScoreThreshold: &threshold,
		WithPayload:    qdrant.NewWithPayload(false),
	}
	if kind == KindNarration {
		req.Filter = buildQdrantFilter(filter)
	}

	points, err := q.client.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search %s: %w", req.CollectionName, err)
	}

	floor := q.config.floor()
	hits := make([]VectorHit, 0, len(points))
	for _, p := range points {
		num, ok := p.GetId().GetPointIdOptions().(*qdrant.PointId_Num)
		if !ok {
			continue
		}
		sim := float64(p.GetScore())
		if sim < floor {
			continue
		}
		hits = append(hits, VectorHit{ID: int64(num.Num), Similarity: sim})
	}
	return rankHits(hits, limit), nil
}

// buildQdrantFilter converts a narration filter into Qdrant must-conditions
// with match-any keyword sets. Returns nil for an empty filter.
func buildQdrantFilter(filter NarrationFilter) *qdrant.Filter {
	if filter.IsEmpty() {
		return nil
	}

	var must []*qdrant.Condition
	if len(filter.Collections) > 0 {
		values := make([]string, len(filter.Collections))
		for i, c := range filter.Collections {
			values[i] = string(c)
		}
		must = append(must, keywordsCondition("collection", values))
	}
	if len(filter.Grades) > 0 {
		must = append(must, keywordsCondition("grade_category", gradeNames(filter.Grades)))
	}
	return &qdrant.Filter{Must: must}
}

func keywordsCondition(key string, values []string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key: key,
				Match: &qdrant.Match{
					MatchValue: &qdrant.Match_Keywords{
						Keywords: &qdrant.RepeatedStrings{Strings: values},
					},
				},
			},
		},
	}
}

func gradeNames(grades []corpus.GradeCategory) []string {
	out := make([]string, len(grades))
	for i, g := range grades {
		out[i] = g.String()
	}
	return out
}

// Delete implements VectorIndex by dropping the kind's collection.
func (q *QdrantIndex) Delete(ctx context.Context, kind Kind) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	name := q.CollectionName(kind)
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if exists {
		if err := q.client.DeleteCollection(ctx, name); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", name, err)
		}
	}
	delete(q.ensured, kind)
	return nil
}

// Close closes the Qdrant client.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
