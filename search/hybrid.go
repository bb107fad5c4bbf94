package search

import (
	"go.uber.org/zap"

	"github.com/kestrelsearch/kestrel/hybrid"
	"github.com/kestrelsearch/kestrel/matches"
	"github.com/kestrelsearch/kestrel/query"
	"github.com/kestrelsearch/kestrel/rank"

	"github.com/RoaringBitmap/roaring/v2"
)

// executeHybrid runs spec.md §4.8's execute_hybrid(ratio) over the
// already-resolved candidate universe: a lexical stream driven by the
// configured criteria stack, a vector stream driven by req.Semantic's
// query vector against c.VectorIndex, merged by hybrid.Execute.
func (c *Context) executeHybrid(ctx query.Context, req Request, g *query.QueryGraph, candidates *roaring.Bitmap, matcher *matches.Matcher, cutoff rank.CutoffFn) (*Response, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	degraded := false
	lexicalFn := func(off, lim int) (*rank.Result, error) {
		rules, err := c.buildLexicalRules(ctx, g, req.SortCriteria)
		if err != nil {
			return nil, err
		}
		result, err := rank.BucketSort(rules, candidates, lim, off, cutoff)
		if err != nil {
			return nil, err
		}
		if result.Degraded {
			degraded = true
		}
		return result, nil
	}
	vectorFn := func(off, lim int) (*rank.Result, error) {
		vecRule := rank.NewVectorRule(c.VectorIndex, req.Semantic.Vector, off+lim)
		result, err := rank.BucketSort([]rank.Rule{vecRule}, candidates, lim, off, cutoff)
		if err != nil {
			return nil, err
		}
		if result.Degraded {
			degraded = true
		}
		return result, nil
	}

	outcome, err := hybrid.Execute(req.Semantic.Ratio, offset, limit, lexicalFn, vectorFn)
	if err != nil {
		return nil, err
	}
	if outcome.UsedVector {
		c.logger.Debug("hybrid search used vector stream",
			zap.String("embedder", req.Semantic.EmbedderName),
			zap.Int("semantic_hits", outcome.SemanticCount))
	}
	if degraded {
		c.logger.Warn("hybrid search degraded by cutoff", zap.String("query", req.Query))
	}

	ids := make([]uint32, len(outcome.Hits))
	scores := make([][]rank.ScoreDetail, len(outcome.Hits))
	for i, h := range outcome.Hits {
		ids[i] = h.DocID
		scores[i] = h.Score
	}
	return &Response{
		Candidates:       candidates,
		DocumentIDs:      ids,
		DocumentScores:   scores,
		MatchingWords:    matcher,
		Degraded:         degraded,
		SemanticHitCount: outcome.SemanticCount,
	}, nil
}
