package mcp

import (
	"github.com/Aman-CERP/criterion/internal/format"
	"github.com/Aman-CERP/criterion/internal/search"
)

// Tool names.
const (
	ToolQueryQuran     = "query_quran"
	ToolQueryHadith    = "query_hadith"
	ToolGetByReference = "get_quran_by_reference"
)

// Tool defaults.
const (
	DefaultToolVerseLimit      = 7
	DefaultToolNarrationLimit  = 3
	DefaultToolReferenceWindow = 5
)

// QueryQuranInput defines the input schema for the query_quran tool.
type QueryQuranInput struct {
	Question string `json:"question" jsonschema:"the question or topic to search the Quran for; verses are matched by meaning"`
	Limit    int    `json:"limit,omitempty" jsonschema:"number of verses to return, default 7, max 25"`
}

// ToolVerse is one ranked verse as returned to the model.
type ToolVerse struct {
	Rank            int                `json:"rank"`
	Reference       string             `json:"reference"`
	SurahNameArabic string             `json:"surahNameArabic"`
	Arabic          string             `json:"arabic"`
	English         string             `json:"english"`
	Relevance       string             `json:"relevance"`
	HasContext      bool               `json:"hasContext"`
	PassageRange    string             `json:"passageRange,omitempty"`
	ContextBefore   []format.VerseLine `json:"contextBefore,omitempty"`
	ContextAfter    []format.VerseLine `json:"contextAfter,omitempty"`
}

// QueryQuranOutput defines the output schema for the query_quran tool.
type QueryQuranOutput struct {
	Success             bool        `json:"success"`
	Message             string      `json:"message,omitempty"`
	TotalVerses         int         `json:"totalVerses,omitempty"`
	TopThreeWithContext int         `json:"topThreeWithContext,omitempty"`
	Verses              []ToolVerse `json:"verses,omitempty"`
}

// QueryHadithInput defines the input schema for the query_hadith tool.
type QueryHadithInput struct {
	Question        string   `json:"question" jsonschema:"the question to search hadiths for"`
	Collections     []string `json:"collections,omitempty" jsonschema:"collections to search: bukhari, muslim, nawawi40, riyadussalihin; empty searches all"`
	GradePreference string   `json:"gradePreference,omitempty" jsonschema:"authenticity filter: sahih-only (default), sahih-and-hasan or all"`
}

// ToolHadith is one ranked narration as returned to the model.
type ToolHadith struct {
	Rank       int    `json:"rank"`
	Reference  string `json:"reference"`
	Collection string `json:"collection"`
	English    string `json:"english"`
	Arabic     string `json:"arabic"`
	Grade      string `json:"grade"`
	Narrator   string `json:"narrator"`
	Book       string `json:"book"`
	Chapter    string `json:"chapter"`
	Relevance  string `json:"relevance"`
	MatchType  string `json:"matchType"`
	SourceURL  string `json:"sourceUrl"`
}

// QueryHadithOutput defines the output schema for the query_hadith tool.
type QueryHadithOutput struct {
	Success             bool         `json:"success"`
	Message             string       `json:"message,omitempty"`
	TotalHadiths        int          `json:"totalHadiths,omitempty"`
	CollectionsSearched []string     `json:"collectionsSearched,omitempty"`
	GradeFilter         string       `json:"gradeFilter,omitempty"`
	Hadiths             []ToolHadith `json:"hadiths,omitempty"`
}

// GetByReferenceInput defines the input schema for get_quran_by_reference.
// References is a single string or an array of strings.
type GetByReferenceInput struct {
	References     any  `json:"references" jsonschema:"reference or list of references: \"2:255\" for one verse, \"2:10-20\" for a range"`
	IncludeContext bool `json:"includeContext,omitempty" jsonschema:"include surrounding verses for single references"`
	ContextWindow  int  `json:"contextWindow,omitempty" jsonschema:"verses on each side when includeContext is set, default 5; never crosses a surah boundary"`
}

// GetByReferenceOutput defines the output schema for get_quran_by_reference.
type GetByReferenceOutput struct {
	Success           bool                    `json:"success"`
	Message           string                  `json:"message,omitempty"`
	TotalRequested    int                     `json:"totalRequested"`
	SuccessfulFetches int                     `json:"successfulFetches"`
	FailedFetches     int                     `json:"failedFetches"`
	Results           []format.Reference      `json:"results"`
	Errors            []search.ReferenceError `json:"errors"`
}

// toolVerses shapes verse results for the model. Context is flattened to
// the passage it covers.
func toolVerses(results []*search.VerseResult) []ToolVerse {
	shaped := format.Verses(results)
	out := make([]ToolVerse, len(shaped))
	for i, v := range shaped {
		tv := ToolVerse{
			Rank:            v.Rank,
			Reference:       v.Reference,
			SurahNameArabic: v.ChapterNameNative,
			Arabic:          v.Arabic,
			English:         v.English,
			Relevance:       v.Relevance,
			HasContext:      v.HasContext,
		}
		if v.HasContext {
			tv.ContextBefore = v.ContextBefore
			tv.ContextAfter = v.ContextAfter
			tv.PassageRange = passageRange(v)
		}
		out[i] = tv
	}
	return out
}

func passageRange(v format.Verse) string {
	start, end := v.Verse, v.Verse
	if len(v.ContextBefore) > 0 {
		start = v.ContextBefore[0].Verse
	}
	if n := len(v.ContextAfter); n > 0 {
		end = v.ContextAfter[n-1].Verse
	}
	return format.Range(v.Chapter, start, end)
}

func toolHadiths(results []*search.NarrationResult) []ToolHadith {
	shaped := format.Narrations(results)
	out := make([]ToolHadith, len(shaped))
	for i, n := range shaped {
		out[i] = ToolHadith{
			Rank:       n.Rank,
			Reference:  n.Reference,
			Collection: n.CollectionName,
			English:    n.English,
			Arabic:     n.Arabic,
			Grade:      n.Grade,
			Narrator:   n.Narrator,
			Book:       n.Book,
			Chapter:    n.Chapter,
			Relevance:  n.Relevance,
			MatchType:  n.MatchType,
			SourceURL:  n.SourceURL,
		}
	}
	return out
}

// referenceList normalizes the references argument.
func referenceList(v any) ([]string, error) {
	switch refs := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{refs}, nil
	case []string:
		return refs, nil
	case []any:
		out := make([]string, 0, len(refs))
		for _, r := range refs {
			s, ok := r.(string)
			if !ok {
				return nil, NewInvalidParamsError("references must be strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, NewInvalidParamsError("references must be a string or an array of strings")
	}
}
