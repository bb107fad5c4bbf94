// Package hybrid implements execute_hybrid(ratio): running lexical and
// vector search as two scored streams and merging them, per spec.md
// §4.8.
package hybrid

import (
	"sort"

	"github.com/kestrelsearch/kestrel/rank"
)

// ScoredHit is one hit from either stream, tagged with a comparable
// combined score.
type ScoredHit struct {
	DocID        uint32
	Score        []rank.ScoreDetail
	Semantic     bool    // true if this hit came from the vector stream
	StreamWeight float64 // ratio (lexical) or 1-ratio (vector) from execute_hybrid
}

// LexicalSearchFn and VectorSearchFn let callers plug in their own
// BucketSort-backed implementations without this package depending on
// the search orchestrator (which in turn depends on hybrid).
type LexicalSearchFn func(offset, limit int) (*rank.Result, error)
type VectorSearchFn func(offset, limit int) (*rank.Result, error)

// Outcome is execute_hybrid's return value.
type Outcome struct {
	Hits          []ScoredHit
	SemanticCount int
	UsedVector    bool
}

// lexicalConfidenceThreshold is spec.md §4.8 step 1's constant.
const lexicalConfidenceThreshold = 0.45

// Execute runs spec.md §4.8's execute_hybrid(ratio):
//  1. Run lexical with offset=0, limit=offset+limit. If every hit's
//     global score >= 0.45/(1-ratio) and the count is >= offset+limit,
//     return lexical only.
//  2. Otherwise run vector too, wrap both streams with (scores, ratio)
//     and (scores, 1-ratio), and merge_by descending combined score.
//
// ratio == 1 always runs vector and skips lexical entirely (the Open
// Question resolved in DESIGN.md).
func Execute(ratio float64, offset, limit int, lexical LexicalSearchFn, vector VectorSearchFn) (*Outcome, error) {
	if ratio >= 1 {
		vecResult, err := vector(offset, limit)
		if err != nil {
			return nil, err
		}
		return &Outcome{Hits: wrapStream(vecResult, 1, true), SemanticCount: len(vecResult.Hits), UsedVector: true}, nil
	}

	lexResult, err := lexical(0, offset+limit)
	if err != nil {
		return nil, err
	}
	if len(lexResult.Hits) >= offset+limit && allConfident(lexResult.Hits, ratio) {
		hits := wrapStream(lexResult, 1, false)
		return &Outcome{Hits: paginate(hits, offset, limit), SemanticCount: 0}, nil
	}

	vecResult, err := vector(0, offset+limit)
	if err != nil {
		return nil, err
	}

	lexStream := wrapStream(lexResult, ratio, false)
	vecStream := wrapStream(vecResult, 1-ratio, true)
	merged := mergeBy(lexStream, vecStream)
	merged = dedup(merged)

	semanticCount := 0
	for _, h := range merged {
		if h.Semantic {
			semanticCount++
		}
	}
	return &Outcome{Hits: paginate(merged, offset, limit), SemanticCount: semanticCount, UsedVector: true}, nil
}

func allConfident(hits []rank.Hit, ratio float64) bool {
	threshold := lexicalConfidenceThreshold / (1 - ratio)
	for _, h := range hits {
		if combinedRank(h.Score).NormalizedScore() < threshold {
			return false
		}
	}
	return true
}

func combinedRank(stack []rank.ScoreDetail) rank.Rank {
	ranks := make([]rank.Rank, len(stack))
	for i, s := range stack {
		ranks[i] = s.Rank()
	}
	return rank.GlobalScore(ranks)
}

func wrapStream(result *rank.Result, weight float64, semantic bool) []ScoredHit {
	out := make([]ScoredHit, len(result.Hits))
	for i, h := range result.Hits {
		out[i] = ScoredHit{DocID: h.DocID, Score: h.Score, Semantic: semantic, StreamWeight: weight}
	}
	return out
}

// mergeBy merges two already-ranked streams by descending combined
// score, each scaled by its stream weight (ratio for lexical, 1-ratio
// for vector) per spec.md §4.8 step 3. Ties compare equal; stable sort
// preserves each stream's own relative order on a tie.
func mergeBy(lexical, vector []ScoredHit) []ScoredHit {
	merged := append(append([]ScoredHit(nil), lexical...), vector...)
	weight := func(h ScoredHit) float64 {
		return combinedRank(h.Score).NormalizedScore() * h.StreamWeight
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return weight(merged[i]) > weight(merged[j])
	})
	return merged
}

func dedup(hits []ScoredHit) []ScoredHit {
	seen := map[uint32]bool{}
	out := make([]ScoredHit, 0, len(hits))
	for _, h := range hits {
		if seen[h.DocID] {
			continue
		}
		seen[h.DocID] = true
		out = append(out, h)
	}
	return out
}

func paginate(hits []ScoredHit, offset, limit int) []ScoredHit {
	if offset >= len(hits) {
		return nil
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}
