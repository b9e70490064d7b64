// Package format shapes search outcomes into caller-facing records: JSON
// payloads for the MCP and HTTP surfaces and markdown for terminals.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/Aman-CERP/criterion/internal/corpus"
	"github.com/Aman-CERP/criterion/internal/search"
	"github.com/Aman-CERP/criterion/internal/store"
)

// Defaults for narration fields the corpus leaves blank.
const (
	UnknownGrade = "Unknown"
	NotSpecified = "Not specified"
)

// Match type display names.
const (
	MatchSemantic = "Semantic"
	MatchKeyword  = "Keyword"
	MatchBoth     = "Semantic + Keyword"
)

// VerseLine is a bare verse used for context and reference listings.
type VerseLine struct {
	Chapter   int    `json:"surahNumber"`
	Verse     int    `json:"ayahNumber"`
	Reference string `json:"reference"`
	Arabic    string `json:"arabic"`
	English   string `json:"english"`
	IsTarget  bool   `json:"isTarget,omitempty"`
	IsContext bool   `json:"isContext,omitempty"`
}

// Verse is a ranked verse result.
type Verse struct {
	Rank              int         `json:"rank"`
	Reference         string      `json:"reference"`
	Chapter           int         `json:"surahNumber"`
	Verse             int         `json:"ayahNumber"`
	ChapterName       string      `json:"surahNameEnglish"`
	ChapterNameNative string      `json:"surahNameArabic"`
	Arabic            string      `json:"arabic"`
	English           string      `json:"english"`
	Similarity        float64     `json:"similarity"`
	Relevance         string      `json:"relevance"`
	RelevancePercent  float64     `json:"relevancePercent"`
	HasContext        bool        `json:"hasContext"`
	ContextBefore     []VerseLine `json:"contextBefore"`
	ContextAfter      []VerseLine `json:"contextAfter"`
}

// Narration is a ranked narration result.
type Narration struct {
	Rank             int     `json:"rank"`
	Reference        string  `json:"reference"`
	Collection       string  `json:"collection"`
	CollectionName   string  `json:"collectionName"`
	Number           int     `json:"hadithNumber"`
	Arabic           string  `json:"arabic"`
	English          string  `json:"english"`
	Grade            string  `json:"grade"`
	GradeCategory    string  `json:"gradeCategory"`
	Narrator         string  `json:"narrator"`
	Book             string  `json:"book"`
	Chapter          string  `json:"chapter"`
	SourceURL        string  `json:"sourceUrl"`
	Similarity       float64 `json:"similarity"`
	Relevance        string  `json:"relevance"`
	RelevancePercent float64 `json:"relevancePercent"`
	MatchType        string  `json:"matchType"`
}

// ReferenceMetadata describes a resolved reference.
type ReferenceMetadata struct {
	TotalVersesInSurah int  `json:"totalVersesInSurah"`
	VersesReturned     int  `json:"versesReturned"`
	HasContext         bool `json:"hasContext"`
	IsRange            bool `json:"isRange"`
}

// Reference is a resolved verse reference.
type Reference struct {
	Reference         string            `json:"reference"`
	Display           string            `json:"displayReference"`
	ChapterName       string            `json:"surahNameEnglish"`
	ChapterNameNative string            `json:"surahNameArabic"`
	Verses            []VerseLine       `json:"verses"`
	Metadata          ReferenceMetadata `json:"metadata"`
}

// Percent converts a 0..1 score to a percentage rounded to one decimal,
// returned both as text ("87.3%") and as a number.
func Percent(score float64) (string, float64) {
	p := math.Round(score*1000) / 10
	return fmt.Sprintf("%.1f%%", p), p
}

// MatchType returns the display name of a result origin.
func MatchType(o search.Origin) string {
	switch o {
	case search.OriginBoth:
		return MatchBoth
	case search.OriginKeyword:
		return MatchKeyword
	default:
		return MatchSemantic
	}
}

// VerseReference renders "{chapter name} {chapter}:{verse}".
func VerseReference(v *store.Verse) string {
	name := v.ChapterName
	if name == "" {
		if ch, ok := corpus.LookupChapter(v.Chapter); ok {
			name = ch.Name
		}
	}
	return strings.TrimSpace(fmt.Sprintf("%s %d:%d", name, v.Chapter, v.Number))
}

// Range renders "c:s-e", or "c:s" when the range is a single verse.
func Range(chapter, start, end int) string {
	if start == end {
		return fmt.Sprintf("%d:%d", chapter, start)
	}
	return fmt.Sprintf("%d:%d-%d", chapter, start, end)
}

// Line converts a verse to a VerseLine.
func Line(v *store.Verse) VerseLine {
	return VerseLine{
		Chapter:   v.Chapter,
		Verse:     v.Number,
		Reference: VerseReference(v),
		Arabic:    v.TextNative,
		English:   v.TextDefault,
	}
}

func lines(vs []*store.Verse) []VerseLine {
	out := make([]VerseLine, len(vs))
	for i, v := range vs {
		out[i] = Line(v)
	}
	return out
}

// Verses shapes verse results. Context slices are never nil.
func Verses(results []*search.VerseResult) []Verse {
	out := make([]Verse, 0, len(results))
	for _, r := range results {
		v := r.Verse
		text, pct := Percent(r.Similarity)
		out = append(out, Verse{
			Rank:              r.Rank,
			Reference:         VerseReference(v),
			Chapter:           v.Chapter,
			Verse:             v.Number,
			ChapterName:       v.ChapterName,
			ChapterNameNative: v.ChapterNameNative,
			Arabic:            v.TextNative,
			English:           v.TextDefault,
			Similarity:        r.Similarity,
			Relevance:         text,
			RelevancePercent:  pct,
			HasContext:        r.HasContext,
			ContextBefore:     lines(r.Context.Before),
			ContextAfter:      lines(r.Context.After),
		})
	}
	return out
}

// GradeLabel returns the narration's ingested grade, falling back to the
// label of its category and finally to "Unknown".
func GradeLabel(n *store.Narration) string {
	if g := strings.TrimSpace(n.Grade); g != "" {
		return g
	}
	if n.GradeCategory != corpus.GradeUnknown {
		return n.GradeCategory.Label()
	}
	return UnknownGrade
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotSpecified
	}
	return s
}

// Narrations shapes narration results.
func Narrations(results []*search.NarrationResult) []Narration {
	out := make([]Narration, 0, len(results))
	for _, r := range results {
		n := r.Narration
		text, pct := Percent(r.Relevance)
		ref := n.Reference
		if ref == "" {
			ref = fmt.Sprintf("%s %d", n.Collection.DisplayName(), n.Number)
		}
		out = append(out, Narration{
			Rank:             r.Rank,
			Reference:        ref,
			Collection:       string(n.Collection),
			CollectionName:   n.Collection.DisplayName(),
			Number:           n.Number,
			Arabic:           n.TextNative,
			English:          n.TextDefault,
			Grade:            GradeLabel(n),
			GradeCategory:    n.GradeCategory.String(),
			Narrator:         orNotSpecified(n.NarratorChain),
			Book:             orNotSpecified(n.BookName),
			Chapter:          orNotSpecified(n.ChapterName),
			SourceURL:        n.SourceURL,
			Similarity:       r.Similarity,
			Relevance:        text,
			RelevancePercent: pct,
			MatchType:        MatchType(r.Origin),
		})
	}
	return out
}

// References shapes resolved references.
func References(results []*search.ReferenceResult) []Reference {
	out := make([]Reference, 0, len(results))
	for _, r := range results {
		vs := make([]VerseLine, len(r.Verses))
		for i, rv := range r.Verses {
			l := Line(rv.Verse)
			l.IsTarget = rv.IsTarget
			l.IsContext = rv.IsContext
			vs[i] = l
		}
		out = append(out, Reference{
			Reference:         r.Requested,
			Display:           r.Display,
			ChapterName:       r.ChapterName,
			ChapterNameNative: r.ChapterNameNative,
			Verses:            vs,
			Metadata: ReferenceMetadata{
				TotalVersesInSurah: r.ChapterVerses,
				VersesReturned:     r.VerseCount,
				HasContext:         r.HasContext,
				IsRange:            r.IsRange,
			},
		})
	}
	return out
}
