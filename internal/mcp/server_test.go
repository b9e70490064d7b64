package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/criterion/internal/corpus"
	cerrors "github.com/Aman-CERP/criterion/internal/errors"
	"github.com/Aman-CERP/criterion/internal/search"
	"github.com/Aman-CERP/criterion/internal/search/searchtest"
	"github.com/Aman-CERP/criterion/internal/store"
)

// connect starts srv on an in-memory transport and returns a client session.
func connect(t *testing.T, srv *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func newTestSession(t *testing.T, engine Engine, opts ...Option) *mcp.ClientSession {
	t.Helper()
	srv, err := NewServer(engine, opts...)
	require.NoError(t, err)
	return connect(t, srv)
}

// callTool calls a tool that must succeed and decodes its structured output.
func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool returned error: %v", toolText(res))

	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

// callToolError calls a tool that must fail and returns the error text.
func callToolError(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return err.Error()
	}
	require.True(t, res.IsError, "expected tool error")
	return toolText(res)
}

func toolText(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// stubEngine returns canned outcomes.
type stubEngine struct {
	verses     *search.VerseOutcome
	narrations *search.NarrationOutcome
	references *search.ReferenceOutcome
	err        error

	lastVerse     search.VerseQuery
	lastNarration search.NarrationQuery
}

func (s *stubEngine) SearchVerses(_ context.Context, q search.VerseQuery) (*search.VerseOutcome, error) {
	s.lastVerse = q
	return s.verses, s.err
}

func (s *stubEngine) SearchNarrations(_ context.Context, q search.NarrationQuery) (*search.NarrationOutcome, error) {
	s.lastNarration = q
	return s.narrations, s.err
}

func (s *stubEngine) GetByReference(_ context.Context, _ []string, _ bool, _ int) (*search.ReferenceOutcome, error) {
	return s.references, s.err
}

func (s *stubEngine) Topics() *corpus.TopicCatalog { return corpus.Topics() }

func TestNewServer_RequiresEngine(t *testing.T) {
	_, err := NewServer(nil)
	require.Error(t, err)
}

func TestListTools(t *testing.T) {
	// Given: a connected client
	cs := newTestSession(t, &stubEngine{})

	// When: listing tools
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	// Then: the three retrieval tools are registered
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.ElementsMatch(t, []string{ToolQueryQuran, ToolQueryHadith, ToolGetByReference}, names)
}

func TestQueryQuran_ReturnsRankedVersesWithContext(t *testing.T) {
	// Given: a corpus containing 2:255
	cs := newTestSession(t, searchtest.NewEngine(t))

	// When: asking with the exact verse text
	var out QueryQuranOutput
	callTool(t, cs, ToolQueryQuran, map[string]any{"question": searchtest.ThroneVerse}, &out)

	// Then: 2:255 ranks first with a ±2 passage
	require.True(t, out.Success)
	require.NotEmpty(t, out.Verses)
	assert.Equal(t, len(out.Verses), out.TotalVerses)
	assert.LessOrEqual(t, out.TotalVerses, DefaultToolVerseLimit)

	top := out.Verses[0]
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, "Al-Baqarah 2:255", top.Reference)
	assert.Equal(t, "100.0%", top.Relevance)
	assert.True(t, top.HasContext)
	assert.Equal(t, "2:253-256", top.PassageRange)
	require.Len(t, top.ContextBefore, 2)
	assert.Equal(t, 253, top.ContextBefore[0].Verse)
	assert.Equal(t, 254, top.ContextBefore[1].Verse)
	require.Len(t, top.ContextAfter, 1)
	assert.Equal(t, 256, top.ContextAfter[0].Verse)
}

func TestQueryQuran_OnlyTopThreeHaveContext(t *testing.T) {
	// Given: an engine returning five verses, the first three with context
	results := make([]*search.VerseResult, 5)
	for i := range results {
		results[i] = &search.VerseResult{
			Verse:      &store.Verse{Chapter: 1, Number: i + 1, TextDefault: "v", ChapterName: "Al-Fatihah"},
			Similarity: 0.9 - float64(i)*0.1,
			Rank:       i + 1,
			HasContext: i < 3,
		}
	}
	stub := &stubEngine{verses: &search.VerseOutcome{Found: true, Results: results}}
	cs := newTestSession(t, stub)

	// When: calling query_quran with an explicit limit
	var out QueryQuranOutput
	callTool(t, cs, ToolQueryQuran, map[string]any{"question": "mercy", "limit": 5}, &out)

	// Then: the request carries the tool window and the count is reported
	assert.Equal(t, 5, stub.lastVerse.Limit)
	assert.Equal(t, 2, stub.lastVerse.ContextWindow)
	assert.Equal(t, 5, out.TotalVerses)
	assert.Equal(t, 3, out.TopThreeWithContext)
	for i, v := range out.Verses {
		assert.Equal(t, i < 3, v.HasContext, "verse %d", i+1)
		if !v.HasContext {
			assert.Empty(t, v.PassageRange)
		}
	}
}

func TestQueryQuran_DefaultLimit(t *testing.T) {
	stub := &stubEngine{verses: &search.VerseOutcome{Message: search.MsgNoVerses}}
	cs := newTestSession(t, stub)

	var out QueryQuranOutput
	callTool(t, cs, ToolQueryQuran, map[string]any{"question": "patience"}, &out)

	assert.Equal(t, DefaultToolVerseLimit, stub.lastVerse.Limit)
}

func TestQueryQuran_NotFound(t *testing.T) {
	// Given: an engine that finds nothing above the floor
	stub := &stubEngine{verses: &search.VerseOutcome{Found: false, Message: search.MsgNoVerses, Results: []*search.VerseResult{}}}
	cs := newTestSession(t, stub)

	// When: querying
	var out QueryQuranOutput
	callTool(t, cs, ToolQueryQuran, map[string]any{"question": "quantum chromodynamics"}, &out)

	// Then: success is false with the engine message
	assert.False(t, out.Success)
	assert.Equal(t, search.MsgNoVerses, out.Message)
	assert.Empty(t, out.Verses)
}

func TestQueryQuran_EmptyQuestion(t *testing.T) {
	cs := newTestSession(t, &stubEngine{})

	msg := callToolError(t, cs, ToolQueryQuran, map[string]any{"question": "   "})

	assert.Contains(t, msg, "question is required")
}

func TestQueryQuran_EmbeddingFailure(t *testing.T) {
	// Given: an engine whose provider fails
	stub := &stubEngine{err: cerrors.EmbeddingError("embed query", errors.New("quota exceeded"))}
	cs := newTestSession(t, stub)

	// When: querying
	msg := callToolError(t, cs, ToolQueryQuran, map[string]any{"question": "mercy"})

	// Then: the structured message is surfaced
	assert.Contains(t, msg, "embed query")
}

func TestQueryHadith_DefaultsToSahih(t *testing.T) {
	// Given: a corpus with a weak narration
	cs := newTestSession(t, searchtest.NewEngine(t))

	// When: searching for the weak narration's text without a grade
	var out QueryHadithOutput
	callTool(t, cs, ToolQueryHadith, map[string]any{"question": searchtest.WeakText}, &out)

	// Then: the weak narration is excluded
	if out.Success {
		assert.Equal(t, "sahih-only", out.GradeFilter)
		for _, h := range out.Hadiths {
			assert.NotEqual(t, searchtest.WeakRef, h.Reference)
		}
	} else {
		assert.Equal(t, search.MsgNoNarrations, out.Message)
	}
}

func TestQueryHadith_AllGrades(t *testing.T) {
	cs := newTestSession(t, searchtest.NewEngine(t))

	var out QueryHadithOutput
	callTool(t, cs, ToolQueryHadith, map[string]any{
		"question":        searchtest.WeakText,
		"gradePreference": "all",
	}, &out)

	require.True(t, out.Success)
	assert.Equal(t, "all", out.GradeFilter)
	assert.Equal(t, []string{"All collections"}, out.CollectionsSearched)
	require.NotEmpty(t, out.Hadiths)
	top := out.Hadiths[0]
	assert.Equal(t, searchtest.WeakRef, top.Reference)
	assert.Equal(t, "Da'if", top.Grade)
	assert.Equal(t, "Semantic + Keyword", top.MatchType)
	assert.LessOrEqual(t, out.TotalHadiths, DefaultToolNarrationLimit)
}

func TestQueryHadith_SharedWordAloneIsNotAMatch(t *testing.T) {
	// Given: a question that shares one word with a narration and is
	// otherwise unrelated
	cs := newTestSession(t, searchtest.NewEngine(t))

	// When: searching every grade
	var out QueryHadithOutput
	callTool(t, cs, ToolQueryHadith, map[string]any{
		"question":        "cleanliness zebra quantum volcano spaceship marmalade trombone glacier",
		"gradePreference": "all",
	}, &out)

	// Then: nothing qualifies
	assert.False(t, out.Success)
	assert.Equal(t, search.MsgNoNarrations, out.Message)
	assert.Empty(t, out.Hadiths)
}

func TestQueryHadith_CollectionFilter(t *testing.T) {
	// Given: a corpus with a Bukhari narration
	cs := newTestSession(t, searchtest.NewEngine(t))

	// When: restricting the search to Bukhari
	var out QueryHadithOutput
	callTool(t, cs, ToolQueryHadith, map[string]any{
		"question":    searchtest.IntentionsText,
		"collections": []string{"bukhari"},
	}, &out)

	// Then: only Bukhari is searched and the narration fields are filled
	require.True(t, out.Success)
	assert.Equal(t, []string{"Sahih Bukhari"}, out.CollectionsSearched)
	for _, h := range out.Hadiths {
		assert.Equal(t, "Sahih Bukhari", h.Collection)
	}
	top := out.Hadiths[0]
	assert.Equal(t, searchtest.IntentionsRef, top.Reference)
	assert.Equal(t, "Umar ibn al-Khattab", top.Narrator)
	assert.Equal(t, "Revelation", top.Book)
	assert.Equal(t, "Not specified", top.Chapter)
}

func TestQueryHadith_UnknownCollection(t *testing.T) {
	cs := newTestSession(t, searchtest.NewEngine(t))

	msg := callToolError(t, cs, ToolQueryHadith, map[string]any{
		"question":    "prayer",
		"collections": []string{"tirmidhi"},
	})

	assert.Contains(t, msg, "tirmidhi")
}

func TestQueryHadith_UsesToolLimit(t *testing.T) {
	stub := &stubEngine{narrations: &search.NarrationOutcome{Message: search.MsgNoNarrations}}
	cs := newTestSession(t, stub, WithToolConfig(ToolConfig{NarrationLimit: 4}))

	var out QueryHadithOutput
	callTool(t, cs, ToolQueryHadith, map[string]any{"question": "fasting"}, &out)

	assert.Equal(t, 4, stub.lastNarration.Limit)
	assert.False(t, out.Success)
}

func TestGetByReference(t *testing.T) {
	cs := newTestSession(t, searchtest.NewEngine(t))

	tests := []struct {
		name        string
		args        map[string]any
		wantSuccess bool
		wantOK      int
		wantFailed  int
		check       func(t *testing.T, out GetByReferenceOutput)
	}{
		{
			name:        "single string",
			args:        map[string]any{"references": "2:255"},
			wantSuccess: true,
			wantOK:      1,
			check: func(t *testing.T, out GetByReferenceOutput) {
				require.Len(t, out.Results[0].Verses, 1)
				assert.Equal(t, searchtest.ThroneVerse, out.Results[0].Verses[0].English)
				assert.True(t, out.Results[0].Verses[0].IsTarget)
			},
		},
		{
			name:        "range",
			args:        map[string]any{"references": []string{"1:1-7"}},
			wantSuccess: true,
			wantOK:      1,
			check: func(t *testing.T, out GetByReferenceOutput) {
				r := out.Results[0]
				require.Len(t, r.Verses, 7)
				assert.True(t, r.Metadata.IsRange)
				assert.Equal(t, 1, r.Verses[0].Verse)
				assert.Equal(t, 7, r.Verses[6].Verse)
			},
		},
		{
			name:        "context clamps at chapter start",
			args:        map[string]any{"references": "1:2", "includeContext": true, "contextWindow": 5},
			wantSuccess: true,
			wantOK:      1,
			check: func(t *testing.T, out GetByReferenceOutput) {
				r := out.Results[0]
				require.Len(t, r.Verses, 7)
				assert.True(t, r.Metadata.HasContext)
				assert.True(t, r.Verses[0].IsContext)
				assert.True(t, r.Verses[1].IsTarget)
			},
		},
		{
			name:        "huge context window covers the chapter",
			args:        map[string]any{"references": "1:7", "includeContext": true, "contextWindow": 1 << 40},
			wantSuccess: true,
			wantOK:      1,
			check: func(t *testing.T, out GetByReferenceOutput) {
				r := out.Results[0]
				require.Len(t, r.Verses, 7)
				assert.True(t, r.Metadata.HasContext)
				assert.True(t, r.Verses[6].IsTarget)
			},
		},
		{
			name:        "partial failure",
			args:        map[string]any{"references": []string{"2:255", "200:1", "2:9999"}},
			wantSuccess: true,
			wantOK:      1,
			wantFailed:  2,
			check: func(t *testing.T, out GetByReferenceOutput) {
				assert.Equal(t, "200:1", out.Errors[0].Reference)
				assert.Equal(t, cerrors.ErrCodeChapterOutOfRange, out.Errors[0].Code)
				assert.Equal(t, "2:9999", out.Errors[1].Reference)
				assert.Equal(t, cerrors.ErrCodeVerseOutOfRange, out.Errors[1].Code)
			},
		},
		{
			name:       "every reference fails",
			args:       map[string]any{"references": []string{"abc", "3:10-5"}},
			wantFailed: 2,
			check: func(t *testing.T, out GetByReferenceOutput) {
				assert.Empty(t, out.Results)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: fetching by reference
			var out GetByReferenceOutput
			callTool(t, cs, ToolGetByReference, tt.args, &out)

			// Then: counts and success reflect per-item outcomes
			assert.Equal(t, tt.wantSuccess, out.Success)
			assert.Equal(t, tt.wantOK+tt.wantFailed, out.TotalRequested)
			assert.Equal(t, tt.wantOK, out.SuccessfulFetches)
			assert.Equal(t, tt.wantFailed, out.FailedFetches)
			if tt.check != nil {
				tt.check(t, out)
			}
		})
	}
}

func TestGetByReference_Empty(t *testing.T) {
	cs := newTestSession(t, &stubEngine{})

	var out GetByReferenceOutput
	callTool(t, cs, ToolGetByReference, map[string]any{"references": []string{}}, &out)

	assert.False(t, out.Success)
	assert.Equal(t, "No references provided.", out.Message)
}

func TestGetByReference_InvalidType(t *testing.T) {
	cs := newTestSession(t, &stubEngine{})

	msg := callToolError(t, cs, ToolGetByReference, map[string]any{"references": 42})

	assert.Contains(t, msg, "references")
}

func TestReferenceList(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    []string
		wantErr bool
	}{
		{name: "nil", in: nil, want: nil},
		{name: "string", in: "2:255", want: []string{"2:255"}},
		{name: "strings", in: []string{"1:1", "2:2"}, want: []string{"1:1", "2:2"}},
		{name: "json array", in: []any{"1:1", "2:2"}, want: []string{"1:1", "2:2"}},
		{name: "mixed array", in: []any{"1:1", 2}, wantErr: true},
		{name: "number", in: 3.0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := referenceList(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
