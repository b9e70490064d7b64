// Package telemetry records retrieval query metrics. Counters and latency
// histograms are exported through Prometheus, and a bounded in-process
// summary (top terms, zero-result queries) backs diagnostics. Nothing is
// reported externally; scraping /metrics is the only way out.
package telemetry

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// QueryKind identifies the retrieval entry point that served a query.
type QueryKind string

const (
	KindVerse     QueryKind = "verse"
	KindNarration QueryKind = "narration"
	KindReference QueryKind = "reference"
	KindTopic     QueryKind = "topic"
)

// Outcome classifies how a query finished.
type Outcome string

const (
	OutcomeFound Outcome = "found"
	OutcomeEmpty Outcome = "empty"
	OutcomeError Outcome = "error"
)

// LatencyBucket is a coarse latency band used by the in-process summary.
type LatencyBucket string

const (
	BucketUnder50ms  LatencyBucket = "<50ms"
	BucketUnder250ms LatencyBucket = "<250ms"
	BucketUnder1s    LatencyBucket = "<1s"
	BucketUnder5s    LatencyBucket = "<5s"
	BucketSlow       LatencyBucket = ">=5s"
)

// LatencyToBucket maps a duration onto its summary band.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < 50*time.Millisecond:
		return BucketUnder50ms
	case d < 250*time.Millisecond:
		return BucketUnder250ms
	case d < time.Second:
		return BucketUnder1s
	case d < 5*time.Second:
		return BucketUnder5s
	default:
		return BucketSlow
	}
}

// QueryEvent describes one completed retrieval call.
type QueryEvent struct {
	Kind        QueryKind
	Query       string
	ResultCount int
	Latency     time.Duration
	Err         error
	Timestamp   time.Time
}

// Outcome derives the event outcome from its error and result count.
func (e QueryEvent) Outcome() Outcome {
	switch {
	case e.Err != nil:
		return OutcomeError
	case e.ResultCount == 0:
		return OutcomeEmpty
	default:
		return OutcomeFound
	}
}

// ExtractTerms lowercases a query and keeps whitespace-separated words of at
// least three characters.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount is a query term with the number of queries that used it.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the in-process summary.
type Snapshot struct {
	TotalQueries      int64                   `json:"total_queries"`
	ByKind            map[QueryKind]int64     `json:"by_kind"`
	ByOutcome         map[Outcome]int64       `json:"by_outcome"`
	Latency           map[LatencyBucket]int64 `json:"latency"`
	TopTerms          []TermCount             `json:"top_terms"`
	ZeroResultQueries []string                `json:"zero_result_queries"`
	Since             time.Time               `json:"since"`
}

// ZeroResultRate returns the share of queries that found nothing, 0..1.
func (s *Snapshot) ZeroResultRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ByOutcome[OutcomeEmpty]) / float64(s.TotalQueries)
}

// Config tunes the collector.
type Config struct {
	Namespace          string
	TopTermsCapacity   int
	ZeroResultCapacity int
}

// DefaultConfig returns the collector defaults.
func DefaultConfig() Config {
	return Config{
		Namespace:          "criterion",
		TopTermsCapacity:   200,
		ZeroResultCapacity: 100,
	}
}

// QueryMetrics collects query telemetry. Safe for concurrent use; a nil
// *QueryMetrics ignores every call.
type QueryMetrics struct {
	queries     *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	resultCount *prometheus.HistogramVec
	zeroResults *prometheus.CounterVec

	mu        sync.Mutex
	total     int64
	byKind    map[QueryKind]int64
	byOutcome map[Outcome]int64
	latencies map[LatencyBucket]int64
	terms     *lru.Cache[string, int64]
	zero      *RingBuffer[string]
	since     time.Time
}

// NewQueryMetrics builds a collector and registers its Prometheus series
// with reg. A nil reg keeps the series unregistered.
func NewQueryMetrics(reg prometheus.Registerer, cfg Config) (*QueryMetrics, error) {
	def := DefaultConfig()
	if cfg.Namespace == "" {
		cfg.Namespace = def.Namespace
	}
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultCapacity <= 0 {
		cfg.ZeroResultCapacity = def.ZeroResultCapacity
	}

	terms, err := lru.New[string, int64](cfg.TopTermsCapacity)
	if err != nil {
		return nil, fmt.Errorf("create term cache: %w", err)
	}

	m := &QueryMetrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "queries_total",
			Help:      "Retrieval queries by kind and outcome.",
		}, []string{"kind", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "query_duration_seconds",
			Help:      "Retrieval query latency.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		resultCount: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "query_results",
			Help:      "Number of results returned per query.",
			Buckets:   []float64{0, 1, 3, 5, 10, 15, 20, 25},
		}, []string{"kind"}),
		zeroResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "zero_result_queries_total",
			Help:      "Queries that completed without any qualifying result.",
		}, []string{"kind"}),
		byKind:    make(map[QueryKind]int64),
		byOutcome: make(map[Outcome]int64),
		latencies: make(map[LatencyBucket]int64),
		terms:     terms,
		zero:      NewRingBuffer[string](cfg.ZeroResultCapacity),
		since:     time.Now(),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.queries, m.latency, m.resultCount, m.zeroResults} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("register metrics: %w", err)
			}
		}
	}
	return m, nil
}

// Record captures one completed query.
func (m *QueryMetrics) Record(e QueryEvent) {
	if m == nil {
		return
	}
	outcome := e.Outcome()
	kind := string(e.Kind)

	m.queries.WithLabelValues(kind, string(outcome)).Inc()
	m.latency.WithLabelValues(kind).Observe(e.Latency.Seconds())
	if outcome != OutcomeError {
		m.resultCount.WithLabelValues(kind).Observe(float64(e.ResultCount))
	}
	if outcome == OutcomeEmpty {
		m.zeroResults.WithLabelValues(kind).Inc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.byKind[e.Kind]++
	m.byOutcome[outcome]++
	m.latencies[LatencyToBucket(e.Latency)]++
	for _, term := range ExtractTerms(e.Query) {
		n, _ := m.terms.Get(term)
		m.terms.Add(term, n+1)
	}
	if outcome == OutcomeEmpty && e.Query != "" {
		m.zero.Push(e.Query)
	}
}

// Snapshot copies the in-process summary. Top terms are ordered by count
// descending, then alphabetically.
func (m *QueryMetrics) Snapshot() *Snapshot {
	if m == nil {
		return &Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Snapshot{
		TotalQueries:      m.total,
		ByKind:            make(map[QueryKind]int64, len(m.byKind)),
		ByOutcome:         make(map[Outcome]int64, len(m.byOutcome)),
		Latency:           make(map[LatencyBucket]int64, len(m.latencies)),
		TopTerms:          make([]TermCount, 0, m.terms.Len()),
		ZeroResultQueries: m.zero.Items(),
		Since:             m.since,
	}
	for k, v := range m.byKind {
		s.ByKind[k] = v
	}
	for k, v := range m.byOutcome {
		s.ByOutcome[k] = v
	}
	for k, v := range m.latencies {
		s.Latency[k] = v
	}
	for _, term := range m.terms.Keys() {
		if n, ok := m.terms.Peek(term); ok {
			s.TopTerms = append(s.TopTerms, TermCount{Term: term, Count: n})
		}
	}
	sort.Slice(s.TopTerms, func(i, j int) bool {
		if s.TopTerms[i].Count != s.TopTerms[j].Count {
			return s.TopTerms[i].Count > s.TopTerms[j].Count
		}
		return s.TopTerms[i].Term < s.TopTerms[j].Term
	})
	return s
}

// Handler serves the Prometheus exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
