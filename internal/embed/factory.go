package embed

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider names an embedding backend.
type Provider string

const (
	// ProviderGemini uses the Gemini embeddings API (default).
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI uses the OpenAI embeddings API.
	ProviderOpenAI Provider = "openai"
	// ProviderStatic uses local hash-based embeddings.
	ProviderStatic Provider = "static"
)

// ParseProvider parses a provider name. Empty input selects Gemini.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProviderGemini, nil
	case ProviderGemini, ProviderOpenAI, ProviderStatic:
		return p, nil
	default:
		return "", fmt.Errorf("unknown embedding provider %q (use gemini, openai or static)", s)
	}
}

// Options selects and tunes an embedder.
type Options struct {
	Provider   Provider
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
	BatchSize  int
	Timeout    time.Duration
	// CacheSize enables query caching when > 0.
	CacheSize int
}

// New builds the embedder described by opts.
func New(ctx context.Context, opts Options) (Embedder, error) {
	var (
		e   Embedder
		err error
	)

	switch opts.Provider {
	case ProviderGemini, "":
		e, err = NewGeminiEmbedder(ctx, GeminiConfig{
			APIKey:     opts.APIKey,
			Model:      opts.Model,
			Dimensions: opts.Dimensions,
			BatchSize:  opts.BatchSize,
			Timeout:    opts.Timeout,
		})
	case ProviderOpenAI:
		e, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     opts.APIKey,
			BaseURL:    opts.BaseURL,
			Model:      opts.Model,
			Dimensions: opts.Dimensions,
			BatchSize:  opts.BatchSize,
			Timeout:    opts.Timeout,
		})
	case ProviderStatic:
		e = NewStaticEmbedder(opts.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	if opts.CacheSize > 0 {
		e = NewCachedEmbedder(e, opts.CacheSize)
	}
	return e, nil
}
