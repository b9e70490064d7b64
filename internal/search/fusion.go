// Package search orchestrates verse and narration retrieval: query
// embedding, vector and keyword candidate generation, Reciprocal Rank
// Fusion, similarity thresholding and context expansion.
package search

import "sort"

// DefaultRRFConstant is the standard RRF smoothing parameter.
const DefaultRRFConstant = 60

// Origin names the candidate list a result came from.
type Origin string

const (
	OriginVector  Origin = "vector"
	OriginKeyword Origin = "keyword"
	OriginBoth    Origin = "both"
)

// RankedList is one ordered candidate list. IDs[0] is the best match.
type RankedList struct {
	Origin Origin
	IDs    []int64
}

// FusedResult is a single passage after fusion.
type FusedResult struct {
	ID     int64
	Score  float64
	Origin Origin

	// Ranks holds the 0-indexed position in every list that contained the
	// passage.
	Ranks map[Origin]int

	lists     int
	firstList int
	firstRank int
}

// RRFFusion merges ranked lists using Reciprocal Rank Fusion:
//
//	score(d) = Σ 1 / (rank_i(d) + 1 + k)
//
// with 0-indexed ranks. Only positions matter; raw scores are ignored.
type RRFFusion struct {
	K int
}

// NewRRFFusion creates a fusion with k = 60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates a fusion with a custom k. k <= 0 selects 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse combines lists into one ordering. Results are sorted by score
// descending, then by the earliest list containing the passage, then by its
// rank in that list. A passage present in every list (of two or more) gets
// OriginBoth; otherwise it keeps the origin of the list it came from.
// Duplicate IDs within a list only count at their first position.
// Empty input yields an empty, non-nil slice.
func (f *RRFFusion) Fuse(lists ...RankedList) []*FusedResult {
	k := f.K
	if k <= 0 {
		k = DefaultRRFConstant
	}

	capacity := 0
	for _, l := range lists {
		capacity += len(l.IDs)
	}
	byID := make(map[int64]*FusedResult, capacity)

	for li, l := range lists {
		seen := make(map[int64]struct{}, len(l.IDs))
		for rank, id := range l.IDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			r, ok := byID[id]
			if !ok {
				r = &FusedResult{
					ID:        id,
					Origin:    l.Origin,
					Ranks:     make(map[Origin]int, len(lists)),
					firstList: li,
					firstRank: rank,
				}
				byID[id] = r
			}
			if _, named := r.Ranks[l.Origin]; !named {
				r.Ranks[l.Origin] = rank
			}
			r.lists++
			r.Score += 1 / float64(rank+1+k)
		}
	}

	results := make([]*FusedResult, 0, len(byID))
	for _, r := range byID {
		if len(lists) > 1 && r.lists == len(lists) {
			r.Origin = OriginBoth
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.firstList != b.firstList {
			return a.firstList < b.firstList
		}
		if a.firstRank != b.firstRank {
			return a.firstRank < b.firstRank
		}
		return a.ID < b.ID
	})
	return results
}
