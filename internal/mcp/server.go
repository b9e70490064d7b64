package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/format"
	"github.com/Aman-CERP/criterion/internal/search"
	"github.com/Aman-CERP/criterion/internal/telemetry"
	"github.com/Aman-CERP/criterion/pkg/version"
)

// ServerName is reported to clients during initialization.
const ServerName = "Criterion"

// Engine is the retrieval surface the tools call.
type Engine interface {
	SearchVerses(ctx context.Context, q search.VerseQuery) (*search.VerseOutcome, error)
	SearchNarrations(ctx context.Context, q search.NarrationQuery) (*search.NarrationOutcome, error)
	GetByReference(ctx context.Context, refs []string, includeContext bool, contextWindow int) (*search.ReferenceOutcome, error)
	Topics() *corpus.TopicCatalog
}

var _ Engine = (*search.Engine)(nil)

// ToolConfig holds per-tool defaults.
type ToolConfig struct {
	VerseLimit      int
	ContextWindow   int
	NarrationLimit  int
	ReferenceWindow int
}

// DefaultToolConfig returns the tool defaults.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		VerseLimit:      DefaultToolVerseLimit,
		ContextWindow:   2,
		NarrationLimit:  DefaultToolNarrationLimit,
		ReferenceWindow: DefaultToolReferenceWindow,
	}
}

// Server is the MCP server. It bridges AI clients with the retrieval engine.
type Server struct {
	mcp     *mcp.Server
	engine  Engine
	config  ToolConfig
	logger  *slog.Logger
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithToolConfig overrides the tool defaults. Zero fields keep their
// defaults.
func WithToolConfig(c ToolConfig) Option {
	return func(s *Server) {
		if c.VerseLimit > 0 {
			s.config.VerseLimit = c.VerseLimit
		}
		if c.ContextWindow != 0 {
			s.config.ContextWindow = c.ContextWindow
		}
		if c.NarrationLimit > 0 {
			s.config.NarrationLimit = c.NarrationLimit
		}
		if c.ReferenceWindow > 0 {
			s.config.ReferenceWindow = c.ReferenceWindow
		}
	}
}

// NewServer creates an MCP server with the retrieval tools and the topic
// catalog resource registered.
func NewServer(engine Engine, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}

	s := &Server{
		engine: engine,
		config: DefaultToolConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version.Version,
	}, nil)

	s.registerTools()
	s.registerTopicsResource()
	return s, nil
}

// SetMetrics attaches query telemetry and registers the query_metrics
// resource.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	s.metrics = m
	s.mu.Unlock()

	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: ToolQueryQuran,
		Description: "Search the Quran for verses relevant to a question or topic using semantic retrieval. " +
			"Returns the most relevant verses with Arabic and English text; the top 3 include surrounding " +
			"verses for context. Use for questions about teachings, guidance, stories or spiritual topics.",
	}, s.queryQuranHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: ToolQueryHadith,
		Description: "Search hadith collections (Bukhari, Muslim, Nawawi40, Riyad as-Salihin) for the " +
			"Prophet's sayings and actions. Combines semantic and keyword matching. Defaults to Sahih " +
			"narrations only; widen with gradePreference.",
	}, s.queryHadithHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: ToolGetByReference,
		Description: "Fetch Quran verses by exact reference: \"2:255\" for one verse, \"2:10-20\" for a " +
			"range, or a list for batch lookup. Optionally adds surrounding verses. Do not use for topic " +
			"search; use query_quran for that.",
	}, s.getByReferenceHandler)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 3))
}

func (s *Server) queryQuranHandler(ctx context.Context, _ *mcp.CallToolRequest, in QueryQuranInput) (
	*mcp.CallToolResult,
	QueryQuranOutput,
	error,
) {
	if strings.TrimSpace(in.Question) == "" {
		return nil, QueryQuranOutput{}, NewInvalidParamsError("question is required")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = s.config.VerseLimit
	}

	log := s.startCall(ToolQueryQuran, slog.String("question", in.Question), slog.Int("limit", limit))
	start := time.Now()

	out, err := s.engine.SearchVerses(ctx, search.VerseQuery{
		Query:         in.Question,
		Limit:         limit,
		ContextWindow: s.config.ContextWindow,
	})
	if err != nil {
		return nil, QueryQuranOutput{}, s.fail(log, start, err)
	}
	if !out.Found {
		log.Info("tool_completed", slog.Duration("duration", time.Since(start)), slog.Int("results", 0))
		return nil, QueryQuranOutput{Success: false, Message: out.Message}, nil
	}

	verses := toolVerses(out.Results)
	withContext := 0
	for _, v := range verses {
		if v.HasContext {
			withContext++
		}
	}
	log.Info("tool_completed",
		slog.Duration("duration", time.Since(start)),
		slog.Int("results", len(verses)),
		slog.String("top", verses[0].Reference))

	return nil, QueryQuranOutput{
		Success:             true,
		TotalVerses:         len(verses),
		TopThreeWithContext: withContext,
		Verses:              verses,
	}, nil
}

func (s *Server) queryHadithHandler(ctx context.Context, _ *mcp.CallToolRequest, in QueryHadithInput) (
	*mcp.CallToolResult,
	QueryHadithOutput,
	error,
) {
	if strings.TrimSpace(in.Question) == "" {
		return nil, QueryHadithOutput{}, NewInvalidParamsError("question is required")
	}

	log := s.startCall(ToolQueryHadith,
		slog.String("question", in.Question),
		slog.Any("collections", in.Collections),
		slog.String("grade", in.GradePreference))
	start := time.Now()

	out, err := s.engine.SearchNarrations(ctx, search.NarrationQuery{
		Query:       in.Question,
		Collections: in.Collections,
		Grade:       in.GradePreference,
		Limit:       s.config.NarrationLimit,
	})
	if err != nil {
		return nil, QueryHadithOutput{}, s.fail(log, start, err)
	}
	if !out.Found {
		log.Info("tool_completed", slog.Duration("duration", time.Since(start)), slog.Int("results", 0))
		return nil, QueryHadithOutput{Success: false, Message: out.Message}, nil
	}

	hadiths := toolHadiths(out.Results)
	log.Info("tool_completed",
		slog.Duration("duration", time.Since(start)),
		slog.Int("results", len(hadiths)),
		slog.String("top", hadiths[0].Reference))

	return nil, QueryHadithOutput{
		Success:             true,
		TotalHadiths:        len(hadiths),
		CollectionsSearched: corpus.DisplayNames(out.Collections),
		GradeFilter:         string(out.Grade),
		Hadiths:             hadiths,
	}, nil
}

func (s *Server) getByReferenceHandler(ctx context.Context, _ *mcp.CallToolRequest, in GetByReferenceInput) (
	*mcp.CallToolResult,
	GetByReferenceOutput,
	error,
) {
	refs, err := referenceList(in.References)
	if err != nil {
		return nil, GetByReferenceOutput{}, err
	}
	if len(refs) == 0 {
		return nil, GetByReferenceOutput{
			Message: "No references provided.",
			Results: []format.Reference{},
			Errors:  []search.ReferenceError{},
		}, nil
	}
	window := in.ContextWindow
	if window <= 0 {
		window = s.config.ReferenceWindow
	}

	log := s.startCall(ToolGetByReference,
		slog.Any("references", refs),
		slog.Bool("include_context", in.IncludeContext),
		slog.Int("context_window", window))
	start := time.Now()

	out, err := s.engine.GetByReference(ctx, refs, in.IncludeContext, window)
	if err != nil {
		return nil, GetByReferenceOutput{}, s.fail(log, start, err)
	}

	errs := out.Errors
	if errs == nil {
		errs = []search.ReferenceError{}
	}
	log.Info("tool_completed",
		slog.Duration("duration", time.Since(start)),
		slog.Int("results", len(out.Results)),
		slog.Int("failed", len(errs)))

	return nil, GetByReferenceOutput{
		Success:           out.Success(),
		TotalRequested:    out.TotalRequested,
		SuccessfulFetches: len(out.Results),
		FailedFetches:     len(errs),
		Results:           format.References(out.Results),
		Errors:            errs,
	}, nil
}

// startCall returns a logger tagged with the tool name and a fresh request
// id, and logs the call.
func (s *Server) startCall(tool string, attrs ...any) *slog.Logger {
	log := s.logger.With(
		slog.String("tool", tool),
		slog.String("request_id", uuid.NewString()))
	log.Info("tool_started", attrs...)
	return log
}

func (s *Server) fail(log *slog.Logger, start time.Time, err error) error {
	mapped := MapError(err)
	log.Error("tool_failed",
		slog.Duration("duration", time.Since(start)),
		slog.Int("code", mapped.Code),
		slog.String("error", err.Error()))
	return mapped
}

// Serve runs the server on the given transport until ctx is canceled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "", "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("mcp_server_stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
