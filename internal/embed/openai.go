package embed

import (
	"context"
	"fmt"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"

	cerrors "github.com/Aman-CERP/criterion/internal/errors"
)

// DefaultOpenAIModel is the OpenAI embedding model used when none is set.
const DefaultOpenAIModel = string(openai.SmallEmbedding3)

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	// APIKey for the OpenAI API (required).
	APIKey string
	// BaseURL overrides the API endpoint for compatible servers.
	BaseURL string
	// Model name (default: text-embedding-3-small).
	Model string
	// Dimensions requested from the model (default: 768).
	Dimensions int
	// BatchSize for EmbedBatch (default: 100).
	BatchSize int
	// Timeout per request (default: 30s).
	Timeout time.Duration
}

type embeddingCreator interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIEmbedder implements Embedder with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client    embeddingCreator
	model     string
	dims      int
	batchSize int
	timeout   time.Duration
}

// NewOpenAIEmbedder creates an OpenAI embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, cerrors.New(cerrors.ErrCodeMissingAPIKey, "API key is required for OpenAI embedder", nil).
			WithSuggestion("Set OPENAI_API_KEY, or set CRITERION_EMBEDDER=static for offline use")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newOpenAIEmbedder(openai.NewClientWithConfig(clientCfg), cfg), nil
}

func newOpenAIEmbedder(client embeddingCreator, cfg OpenAIConfig) *OpenAIEmbedder {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OpenAIEmbedder{
		client:    client,
		model:     cfg.Model,
		dims:      cfg.Dimensions,
		batchSize: min(cfg.BatchSize, MaxBatchSize),
		timeout:   cfg.Timeout,
	}
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dims,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed %d texts: %w", len(texts), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	// Data must line up with texts by Index.
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(texts))
	for i, d := range data {
		if len(d.Embedding) != e.dims {
			return nil, fmt.Errorf("openai embedding %d has %d dimensions, want %d", i, len(d.Embedding), e.dims)
		}
		out[i] = d.Embedding
	}
	return out, nil
}

// Dimensions implements Embedder.
func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

// ModelName implements Embedder.
func (e *OpenAIEmbedder) ModelName() string { return e.model }

// Available implements Embedder.
func (e *OpenAIEmbedder) Available(ctx context.Context) bool { return e.client != nil }

// Close implements Embedder.
func (e *OpenAIEmbedder) Close() error { return nil }
