package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/telemetry"
)

// Resource URIs.
const (
	TopicsURI       = "criterion://topics"
	QueryMetricsURI = "criterion://query_metrics"
)

// TopicsOutput is the content of the topics resource.
type TopicsOutput struct {
	Count  int            `json:"count"`
	Topics []corpus.Topic `json:"topics"`
}

// QueryMetricsOutput is the content of the query_metrics resource.
type QueryMetricsOutput struct {
	TotalQueries      int64                 `json:"total_queries"`
	ZeroResultRate    float64               `json:"zero_result_rate"`
	ByKind            map[string]int64      `json:"by_kind"`
	ByOutcome         map[string]int64      `json:"by_outcome"`
	Latency           map[string]int64      `json:"latency"`
	TopTerms          []telemetry.TermCount `json:"top_terms"`
	ZeroResultQueries []string              `json:"zero_result_queries"`
	Since             string                `json:"since"`
}

func (s *Server) registerTopicsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "topics",
			URI:         TopicsURI,
			Description: "Curated topics with tuned search queries; pass a topic query to query_quran or query_hadith",
			MIMEType:    "application/json",
		},
		s.handleTopics,
	)
}

func (s *Server) handleTopics(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	topics := s.engine.Topics().All()
	return jsonResource(TopicsURI, TopicsOutput{Count: len(topics), Topics: topics})
}

func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         QueryMetricsURI,
			Description: "Query telemetry for this session: volume, outcomes, latency and frequent terms",
			MIMEType:    "application/json",
		},
		s.handleQueryMetrics,
	)
}

func (s *Server) handleQueryMetrics(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	if metrics == nil {
		return nil, NewResourceNotFoundError(QueryMetricsURI)
	}

	snap := metrics.Snapshot()
	out := QueryMetricsOutput{
		TotalQueries:      snap.TotalQueries,
		ZeroResultRate:    snap.ZeroResultRate(),
		ByKind:            make(map[string]int64, len(snap.ByKind)),
		ByOutcome:         make(map[string]int64, len(snap.ByOutcome)),
		Latency:           make(map[string]int64, len(snap.Latency)),
		TopTerms:          snap.TopTerms,
		ZeroResultQueries: snap.ZeroResultQueries,
		Since:             snap.Since.UTC().Format(time.RFC3339),
	}
	for k, v := range snap.ByKind {
		out.ByKind[string(k)] = v
	}
	for k, v := range snap.ByOutcome {
		out.ByOutcome[string(k)] = v
	}
	for k, v := range snap.Latency {
		out.Latency[string(k)] = v
	}
	return jsonResource(QueryMetricsURI, out)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(content)},
		},
	}, nil
}
