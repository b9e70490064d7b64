package embed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	cerrors "github.com/Aman-CERP/criterion/internal/errors"
)

const (
	// DefaultGeminiModel is the Gemini embedding model used for both the
	// corpus and queries.
	DefaultGeminiModel = "text-embedding-004"

	// TaskRetrievalQuery is the task type applied to every embedding so
	// stored and query vectors share one scheme.
	TaskRetrievalQuery = "RETRIEVAL_QUERY"
)

// GeminiConfig configures the Gemini embedder.
type GeminiConfig struct {
	// APIKey for the Gemini API (required).
	APIKey string
	// Model name (default: text-embedding-004).
	Model string
	// Dimensions requested from the model (default: 768).
	Dimensions int
	// TaskType (default: RETRIEVAL_QUERY).
	TaskType string
	// BatchSize for EmbedBatch (default: 100).
	BatchSize int
	// Timeout per request (default: 30s).
	Timeout time.Duration
}

// contentEmbedder is the slice of the genai Models service we use.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiEmbedder implements Embedder with the Gemini embeddings API.
type GeminiEmbedder struct {
	models    contentEmbedder
	model     string
	dims      int
	taskType  string
	batchSize int
	timeout   time.Duration
}

// NewGeminiEmbedder creates a Gemini embedder.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, cerrors.New(cerrors.ErrCodeMissingAPIKey, "API key is required for Gemini embedder", nil).
			WithSuggestion("Set GOOGLE_GENERATIVE_AI_API_KEY (or GEMINI_API_KEY), or set CRITERION_EMBEDDER=static for offline use")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newGeminiEmbedder(client.Models, cfg), nil
}

func newGeminiEmbedder(models contentEmbedder, cfg GeminiConfig) *GeminiEmbedder {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.TaskType == "" {
		cfg.TaskType = TaskRetrievalQuery
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	cfg.BatchSize = min(cfg.BatchSize, MaxBatchSize)
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &GeminiEmbedder{
		models:    models,
		model:     cfg.Model,
		dims:      cfg.Dimensions,
		taskType:  cfg.TaskType,
		batchSize: cfg.BatchSize,
		timeout:   cfg.Timeout,
	}
}

// Embed implements Embedder.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	prepared, err := prepareAll(texts)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(prepared))
	for _, b := range batches(len(prepared), e.batchSize) {
		vecs, err := e.embed(ctx, prepared[b[0]:b[1]])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *GeminiEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	dims := int32(e.dims)
	start := time.Now()
	resp, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             e.taskType,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed %d texts: %w", len(texts), err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", got, len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != e.dims {
			got := 0
			if emb != nil {
				got = len(emb.Values)
			}
			return nil, fmt.Errorf("gemini embedding %d has %d dimensions, want %d", i, got, e.dims)
		}
		out[i] = emb.Values
	}

	slog.Debug("gemini_embed",
		slog.Int("texts", len(texts)),
		slog.Duration("duration", time.Since(start)))

	return out, nil
}

// Dimensions implements Embedder.
func (e *GeminiEmbedder) Dimensions() int { return e.dims }

// ModelName implements Embedder.
func (e *GeminiEmbedder) ModelName() string { return e.model }

// Available implements Embedder. The API is only checked on first use.
func (e *GeminiEmbedder) Available(ctx context.Context) bool { return e.models != nil }

// Close implements Embedder.
func (e *GeminiEmbedder) Close() error { return nil }
