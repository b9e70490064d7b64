package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Aman-CERP/criterion/internal/corpus"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
	"github.com/Aman-CERP/criterion/internal/format"
	"github.com/Aman-CERP/criterion/internal/search"
	"github.com/Aman-CERP/criterion/pkg/version"
)

// VerseSearchResponse is the body of /search/api.
type VerseSearchResponse struct {
	Results []format.Verse `json:"results"`
	Query   string         `json:"query"`
	Count   int            `json:"count"`
	Message string         `json:"message,omitempty"`
}

// NarrationFilters echoes the effective narration filters.
type NarrationFilters struct {
	Collections []string `json:"collections"`
	GradeFilter string   `json:"gradeFilter"`
}

// NarrationSearchResponse is the body of /hadith/search/api.
type NarrationSearchResponse struct {
	Results []format.Narration `json:"results"`
	Query   string             `json:"query"`
	Count   int                `json:"count"`
	Message string             `json:"message,omitempty"`
	Filters NarrationFilters   `json:"filters"`
}

// TopicsResponse is the body of /topics.
type TopicsResponse struct {
	Count  int            `json:"count"`
	Topics []corpus.Topic `json:"topics"`
}

// TopicResponse is the body of /topics/{slug}.
type TopicResponse struct {
	Topic   corpus.Topic       `json:"topic"`
	Related []corpus.Topic     `json:"related"`
	Verses  []format.Verse     `json:"verses"`
	Hadiths []format.Narration `json:"hadiths"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleVerseSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgQueryRequired})
		return
	}

	out, err := s.engine.SearchVerses(r.Context(), search.VerseQuery{
		Query:         q,
		Limit:         queryInt(r, "limit"),
		ContextWindow: s.config.BrowseContextWindow,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	results := format.Verses(out.Results)
	writeJSON(w, http.StatusOK, VerseSearchResponse{
		Results: results,
		Query:   q,
		Count:   len(results),
		Message: out.Message,
	})
}

// handleNarrationSearch parses filters leniently: unknown collections are
// dropped and an unknown grade falls back to sahih-only.
func (s *Server) handleNarrationSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := strings.TrimSpace(params.Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgQueryRequired})
		return
	}

	var collections []corpus.Collection
	if raw := params.Get("collections"); raw != "" {
		collections = corpus.FilterValidCollections(strings.Split(raw, ","))
	}
	grade, err := corpus.ParseGradePreference(params.Get("grade"))
	if err != nil {
		grade = corpus.DefaultGradePreference
	}
	limit := queryInt(r, "limit")
	if limit <= 0 {
		limit = s.config.NarrationLimit
	}

	ids := make([]string, len(collections))
	for i, c := range collections {
		ids[i] = string(c)
	}
	out, err := s.engine.SearchNarrations(r.Context(), search.NarrationQuery{
		Query:       q,
		Collections: ids,
		Grade:       string(grade),
		Limit:       limit,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	results := format.Narrations(out.Results)
	writeJSON(w, http.StatusOK, NarrationSearchResponse{
		Results: results,
		Query:   q,
		Count:   len(results),
		Message: out.Message,
		Filters: NarrationFilters{
			Collections: corpus.DisplayNames(collections),
			GradeFilter: string(grade),
		},
	})
}

// handleVerse serves one verse with ?context=N surrounding verses on each
// side. context=0 returns the verse alone.
func (s *Server) handleVerse(w http.ResponseWriter, r *http.Request) {
	chapter := chi.URLParam(r, "chapter")
	verse := chi.URLParam(r, "verse")

	window := s.config.ReferenceContextWindow
	if raw := r.URL.Query().Get("context"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "Query parameter 'context' must be a non-negative integer",
				Code:  cerrors.ErrCodeInvalidInput,
			})
			return
		}
		window = n
	}

	ref := fmt.Sprintf("%s:%s", chapter, verse)
	out, err := s.engine.GetByReference(r.Context(), []string{ref}, window > 0, window)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(out.Errors) > 0 {
		refErr := out.Errors[0]
		status := http.StatusBadRequest
		if refErr.Code == cerrors.ErrCodeVerseNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: refErr.Message, Code: refErr.Code})
		return
	}
	writeJSON(w, http.StatusOK, format.References(out.Results)[0])
}

func (s *Server) handleTopics(w http.ResponseWriter, _ *http.Request) {
	topics := s.engine.Topics().All()
	writeJSON(w, http.StatusOK, TopicsResponse{Count: len(topics), Topics: topics})
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	out, err := s.engine.SearchTopic(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := TopicResponse{
		Topic:   out.Topic,
		Related: out.Related,
		Verses:  []format.Verse{},
		Hadiths: []format.Narration{},
	}
	if resp.Related == nil {
		resp.Related = []corpus.Topic{}
	}
	if out.Verses != nil {
		resp.Verses = format.Verses(out.Verses.Results)
	}
	if out.Narrations != nil {
		resp.Hadiths = format.Narrations(out.Narrations.Results)
	}
	writeJSON(w, http.StatusOK, resp)
}

// queryInt parses an integer query parameter; missing or malformed values
// yield 0 so the engine default applies.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
