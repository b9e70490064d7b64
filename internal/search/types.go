package search

import (
	"time"

	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/reference"
	"github.com/Aman-CERP/criterion/internal/store"
)

// Messages reported when a search finds nothing above the similarity floor.
const (
	MsgNoVerses     = "No relevant verses found for this query."
	MsgNoNarrations = "No relevant hadiths found for this query."
)

// NoContext disables context expansion in a VerseQuery.
const NoContext = -1

// VerseQuery is a verse search request.
type VerseQuery struct {
	Query string

	// Limit is clamped to [1, MaxVerseLimit]; 0 selects DefaultVerseLimit.
	Limit int

	// ContextWindow is the number of verses fetched on each side of the top
	// results. 0 selects the engine default; NoContext disables expansion.
	ContextWindow int
}

// NarrationQuery is a narration search request.
type NarrationQuery struct {
	Query string

	// Collections restricts the search. Empty means every collection;
	// unknown identifiers are rejected.
	Collections []string

	// Grade is a grade preference ("sahih-only", "sahih-and-hasan", "all").
	// Empty selects sahih-only.
	Grade string

	// Limit is clamped to [1, MaxNarrationLimit]; 0 selects
	// DefaultNarrationLimit.
	Limit int
}

// ContextWindow holds the verses surrounding a target verse, in ascending
// order and always within the target's chapter.
type ContextWindow struct {
	Before []*store.Verse `json:"before"`
	After  []*store.Verse `json:"after"`
}

// IsEmpty reports whether the window holds no verses.
func (w ContextWindow) IsEmpty() bool {
	return len(w.Before) == 0 && len(w.After) == 0
}

// VerseResult is one ranked verse.
type VerseResult struct {
	Verse      *store.Verse
	Similarity float64
	Rank       int
	HasContext bool
	Context    ContextWindow
}

// VerseOutcome is the result of a verse search. When Found is false,
// Results is empty and Message explains why.
type VerseOutcome struct {
	Query   string
	Found   bool
	Message string
	Results []*VerseResult
}

// NarrationResult is one ranked narration.
type NarrationResult struct {
	Narration *store.Narration

	// Similarity is the cosine similarity to the query. Keyword-only
	// matches are scored from their stored embedding.
	Similarity float64

	// KeywordScore is the lexical score, 0 for vector-only matches.
	KeywordScore float64

	// FusionScore is the raw RRF score.
	FusionScore float64

	// Relevance is the 0..1 score shown to callers, equal to Similarity.
	Relevance float64

	Origin Origin
	Rank   int
}

// NarrationOutcome is the result of a narration search.
type NarrationOutcome struct {
	Query       string
	Found       bool
	Message     string
	Results     []*NarrationResult
	Collections []corpus.Collection
	Grade       corpus.GradePreference
}

// ReferenceVerse is one verse line of a reference lookup.
type ReferenceVerse struct {
	Verse     *store.Verse
	IsTarget  bool
	IsContext bool
}

// ReferenceResult is a resolved reference.
type ReferenceResult struct {
	Requested         string
	Reference         reference.Reference
	Display           string
	ChapterName       string
	ChapterNameNative string
	Verses            []ReferenceVerse
	ChapterVerses     int
	VerseCount        int
	HasContext        bool
	IsRange           bool
}

// ReferenceError reports why a single reference could not be resolved.
type ReferenceError struct {
	Reference string `json:"reference"`
	Code      string `json:"code"`
	Message   string `json:"error"`
}

func (e ReferenceError) Error() string {
	return e.Reference + ": " + e.Message
}

// ReferenceOutcome collects resolved references and per-item failures.
type ReferenceOutcome struct {
	TotalRequested int
	Results        []*ReferenceResult
	Errors         []ReferenceError
}

// Success reports whether at least one reference resolved.
func (o *ReferenceOutcome) Success() bool {
	return len(o.Results) > 0
}

// TopicOutcome combines verse and narration results for a curated topic.
type TopicOutcome struct {
	Topic      corpus.Topic
	Related    []corpus.Topic
	Verses     *VerseOutcome
	Narrations *NarrationOutcome
}

// EngineConfig tunes the search engine.
type EngineConfig struct {
	// MinSimilarity is the vector similarity floor. Values below
	// store.MinSimilarity are raised to it.
	MinSimilarity float64

	DefaultVerseLimit     int
	MaxVerseLimit         int
	DefaultNarrationLimit int
	MaxNarrationLimit     int

	// ContextWindow is the default verse context window for searches. A
	// negative value disables context by default.
	ContextWindow int

	// ContextTopN is how many top verse results get context.
	ContextTopN int

	// ReferenceContextWindow is the default window for reference lookups.
	ReferenceContextWindow int

	// CandidateMultiplier sizes the vector and keyword candidate lists of a
	// narration search relative to the requested limit.
	CandidateMultiplier int

	TopicVerseLimit     int
	TopicNarrationLimit int

	RRFConstant int

	// Timeout bounds a single search. 0 leaves the caller's context alone.
	Timeout time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		MinSimilarity:          store.MinSimilarity,
		DefaultVerseLimit:      20,
		MaxVerseLimit:          25,
		DefaultNarrationLimit:  5,
		MaxNarrationLimit:      20,
		ContextWindow:          2,
		ContextTopN:            3,
		ReferenceContextWindow: 5,
		CandidateMultiplier:    2,
		TopicVerseLimit:        15,
		TopicNarrationLimit:    8,
		RRFConstant:            DefaultRRFConstant,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	d := DefaultConfig()
	c.MinSimilarity = max(c.MinSimilarity, store.MinSimilarity)
	if c.DefaultVerseLimit <= 0 {
		c.DefaultVerseLimit = d.DefaultVerseLimit
	}
	if c.MaxVerseLimit <= 0 {
		c.MaxVerseLimit = d.MaxVerseLimit
	}
	if c.DefaultNarrationLimit <= 0 {
		c.DefaultNarrationLimit = d.DefaultNarrationLimit
	}
	if c.MaxNarrationLimit <= 0 {
		c.MaxNarrationLimit = d.MaxNarrationLimit
	}
	switch {
	case c.ContextWindow == 0:
		c.ContextWindow = d.ContextWindow
	case c.ContextWindow < 0:
		c.ContextWindow = 0
	}
	if c.ContextTopN <= 0 {
		c.ContextTopN = d.ContextTopN
	}
	if c.ReferenceContextWindow <= 0 {
		c.ReferenceContextWindow = d.ReferenceContextWindow
	}
	if c.CandidateMultiplier <= 0 {
		c.CandidateMultiplier = d.CandidateMultiplier
	}
	if c.TopicVerseLimit <= 0 {
		c.TopicVerseLimit = d.TopicVerseLimit
	}
	if c.TopicNarrationLimit <= 0 {
		c.TopicNarrationLimit = d.TopicNarrationLimit
	}
	if c.RRFConstant <= 0 {
		c.RRFConstant = d.RRFConstant
	}
	return c
}

// clampLimit applies the default for 0 and clamps into [1, hi].
func clampLimit(limit, def, hi int) int {
	if limit == 0 {
		limit = def
	}
	return min(hi, max(1, limit))
}
