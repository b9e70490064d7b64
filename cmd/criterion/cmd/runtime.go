package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Aman-CERP/criterion/internal/config"
	"github.com/Aman-CERP/criterion/internal/embed"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
	"github.com/Aman-CERP/criterion/internal/mcp"
	"github.com/Aman-CERP/criterion/internal/search"
	"github.com/Aman-CERP/criterion/internal/store"
	"github.com/Aman-CERP/criterion/internal/telemetry"
)

// runtime owns the stores, indexes and engine behind a query command.
type runtime struct {
	cfg      *config.Config
	corpus   *store.SQLiteCorpus
	vectors  store.VectorIndex
	keywords store.KeywordIndex
	embedder embed.Embedder
	registry *prometheus.Registry
	metrics  *telemetry.QueryMetrics
	engine   *search.Engine
}

// openRuntime opens the corpus and its indexes and builds a search engine.
// The engine's default context window is contextWindow; a value of 0
// disables context.
func openRuntime(ctx context.Context, cfg *config.Config, contextWindow int) (_ *runtime, err error) {
	rt := &runtime{cfg: cfg, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	rt.corpus, err = store.NewSQLiteCorpus(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	eopts, err := embedOptions(cfg)
	if err != nil {
		return nil, err
	}
	rt.embedder, err = embed.New(ctx, eopts)
	if err != nil {
		return nil, err
	}
	if err := verifyEmbedder(ctx, rt.corpus, rt.embedder); err != nil {
		return nil, err
	}

	opts, err := indexOptions(cfg)
	if err != nil {
		return nil, err
	}
	rt.vectors, err = store.OpenVectorIndex(ctx, opts, rt.corpus)
	if err != nil {
		return nil, err
	}
	rt.keywords, err = store.OpenKeywordIndex(opts, rt.corpus)
	if err != nil {
		return nil, err
	}

	rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.metrics, err = telemetry.NewQueryMetrics(rt.registry, telemetry.DefaultConfig())
	if err != nil {
		return nil, err
	}

	rt.engine, err = search.NewEngine(rt.corpus, rt.vectors, rt.keywords, rt.embedder,
		engineConfig(cfg, contextWindow),
		search.WithMetrics(rt.metrics),
		search.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// verifyEmbedder refuses to query a corpus embedded by a different model or
// dimension.
func verifyEmbedder(ctx context.Context, corpus *store.SQLiteCorpus, e embed.Embedder) error {
	err := corpus.VerifyEmbedder(ctx, e.ModelName(), e.Dimensions())
	var (
		dim   store.ErrDimensionMismatch
		model store.ErrModelMismatch
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &dim):
		return cerrors.New(cerrors.ErrCodeDimensionMismatch, dim.Error(), err).
			WithSuggestion("Configure the embedder the corpus was ingested with, or re-run 'criterion ingest --clear'")
	case errors.As(err, &model):
		return cerrors.New(cerrors.ErrCodeModelMismatch, model.Error(), err).
			WithSuggestion("Configure the embedder the corpus was ingested with, or re-run 'criterion ingest --clear'")
	default:
		return cerrors.StoreError("failed to read embedder state", err)
	}
}

// Close releases everything the runtime opened.
func (r *runtime) Close() error {
	var errs []error
	if r.embedder != nil {
		errs = append(errs, r.embedder.Close())
	}
	if r.keywords != nil {
		errs = append(errs, r.keywords.Close())
	}
	if r.vectors != nil {
		errs = append(errs, r.vectors.Close())
	}
	if r.corpus != nil {
		errs = append(errs, r.corpus.Close())
	}
	return errors.Join(errs...)
}

func indexOptions(cfg *config.Config) (store.IndexOptions, error) {
	vb, err := store.ParseVectorBackend(cfg.Vector.Backend)
	if err != nil {
		return store.IndexOptions{}, err
	}
	kb, err := store.ParseKeywordBackend(cfg.Keyword.Backend)
	if err != nil {
		return store.IndexOptions{}, err
	}
	return store.IndexOptions{
		VectorBackend:  vb,
		KeywordBackend: kb,
		Vector: store.VectorConfig{
			Dimensions:    cfg.Embedder.Dimensions,
			MinSimilarity: cfg.Search.MinSimilarity,
			M:             cfg.Vector.HNSWM,
			EfSearch:      cfg.Vector.HNSWEfSearch,
		},
		Qdrant: store.QdrantConfig{
			Host:             cfg.Vector.QdrantHost,
			Port:             cfg.Vector.QdrantPort,
			APIKey:           cfg.Vector.QdrantAPIKey,
			UseTLS:           cfg.Vector.QdrantTLS,
			CollectionPrefix: cfg.Vector.CollectionPrefix,
		},
		BlevePath: cfg.BlevePath(),
	}, nil
}

func embedOptions(cfg *config.Config) (embed.Options, error) {
	p, err := embed.ParseProvider(cfg.Embedder.Provider)
	if err != nil {
		return embed.Options{}, err
	}
	return embed.Options{
		Provider:   p,
		Model:      cfg.Embedder.Model,
		APIKey:     cfg.Embedder.APIKey,
		Dimensions: cfg.Embedder.Dimensions,
		BatchSize:  cfg.Embedder.BatchSize,
		Timeout:    cfg.Embedder.Timeout,
		CacheSize:  cfg.Embedder.CacheSize,
	}, nil
}

func engineConfig(cfg *config.Config, contextWindow int) search.EngineConfig {
	s := cfg.Search
	if contextWindow == 0 {
		contextWindow = search.NoContext
	}
	return search.EngineConfig{
		MinSimilarity:          s.MinSimilarity,
		DefaultVerseLimit:      s.DefaultVerseLimit,
		MaxVerseLimit:          s.MaxVerseLimit,
		DefaultNarrationLimit:  s.DefaultNarrationLimit,
		MaxNarrationLimit:      s.MaxNarrationLimit,
		ContextWindow:          contextWindow,
		ContextTopN:            s.ContextTopN,
		ReferenceContextWindow: s.ReferenceContextWindow,
		RRFConstant:            s.RRFConstant,
		Timeout:                s.Timeout,
	}
}

// toolConfig maps the search settings onto the MCP tool defaults.
func toolConfig(cfg *config.Config) mcp.ToolConfig {
	tools := mcp.DefaultToolConfig()
	tools.ContextWindow = cfg.Search.ToolContextWindow
	tools.ReferenceWindow = cfg.Search.ReferenceContextWindow
	return tools
}
