package store

import (
	"strings"
	"unicode"
)

// DefaultStopWords are common English words dropped from keyword queries.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "do", "does", "for",
	"from", "how", "i", "in", "is", "it", "me", "of", "on", "or", "say",
	"says", "tell", "that", "the", "this", "to", "was", "what", "when",
	"where", "which", "who", "why", "with", "about",
}

var defaultStopWordMap = BuildStopWordMap(DefaultStopWords)

// TokenizeQuery splits text into lower-cased letter/digit runs.
// Tokens shorter than 2 runes are dropped.
func TokenizeQuery(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// BuildStopWordMap creates a lookup map from a stop word list.
func BuildStopWordMap(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

// FilterStopWords removes stop words from tokens.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, isStop := stopWords[t]; !isStop {
			result = append(result, t)
		}
	}
	return result
}

// queryTerms returns the deduplicated search terms of a free-text query.
// When every token is a stop word the unfiltered tokens are used.
func queryTerms(query string) []string {
	tokens := TokenizeQuery(query)
	if filtered := FilterStopWords(tokens, defaultStopWordMap); len(filtered) > 0 {
		tokens = filtered
	}

	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	return terms
}

// ftsMatchExpr turns terms into an FTS5 expression of OR-ed quoted strings,
// so user punctuation can never be parsed as FTS5 syntax.
func ftsMatchExpr(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}
