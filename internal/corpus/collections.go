package corpus

import (
	"fmt"
	"strings"
)

// Collection identifies a narration collection.
type Collection string

const (
	CollectionBukhari        Collection = "bukhari"
	CollectionMuslim         Collection = "muslim"
	CollectionNawawi40       Collection = "nawawi40"
	CollectionRiyadusSalihin Collection = "riyadussalihin"
)

var collectionNames = map[Collection]string{
	CollectionBukhari:        "Sahih Bukhari",
	CollectionMuslim:         "Sahih Muslim",
	CollectionNawawi40:       "40 Hadith Nawawi",
	CollectionRiyadusSalihin: "Riyad as-Salihin",
}

// AllCollections returns every known collection in display order.
func AllCollections() []Collection {
	return []Collection{
		CollectionBukhari,
		CollectionMuslim,
		CollectionNawawi40,
		CollectionRiyadusSalihin,
	}
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	_, ok := collectionNames[c]
	return ok
}

// DisplayName returns the human-readable collection name. Unknown
// collections return their identifier.
func (c Collection) DisplayName() string {
	if name, ok := collectionNames[c]; ok {
		return name
	}
	return string(c)
}

// ParseCollection parses a collection identifier, case-insensitively.
func ParseCollection(s string) (Collection, error) {
	c := Collection(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown collection %q", s)
	}
	return c, nil
}

// ParseCollections parses a list of identifiers, dropping duplicates and
// keeping first-seen order. It fails on the first unknown identifier.
func ParseCollections(values []string) ([]Collection, error) {
	out := make([]Collection, 0, len(values))
	seen := make(map[Collection]bool, len(values))
	for _, v := range values {
		c, err := ParseCollection(v)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// FilterValidCollections keeps the known identifiers and silently drops
// the rest. Used by lenient HTTP query parsing.
func FilterValidCollections(values []string) []Collection {
	out := make([]Collection, 0, len(values))
	seen := make(map[Collection]bool, len(values))
	for _, v := range values {
		c, err := ParseCollection(v)
		if err != nil || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// DisplayNames maps collections to display names. An empty input means
// every collection was searched.
func DisplayNames(cs []Collection) []string {
	if len(cs) == 0 {
		return []string{"All collections"}
	}
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.DisplayName()
	}
	return names
}
