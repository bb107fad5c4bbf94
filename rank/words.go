package rank

import "github.com/kestrelsearch/kestrel/query"

// WordsRule ranks by how many of the query's words a reading matched:
// cost(edge->n) = position_span(n), iterated max-cost-first so readings
// covering more words are considered before readings covering fewer.
type WordsRule struct{ *pathRule }

func NewWordsRule(g *query.QueryGraph, ctx query.Context) *WordsRule {
	costFn := func(g *query.QueryGraph, from, to uint32) int { return positionSpan(g, to) }
	table := query.BuildPathCosts(g, costFn)
	max := maxReachableCost(table, g.Root)
	scoreFn := func(cost int) ScoreDetail {
		return ScoreDetail{Words: &WordsScore{Matching: cost, Max: max}}
	}
	return &WordsRule{newPathRule(g, ctx, costFn, table, MaxCostFirst, false, query.ByWord, scoreFn)}
}
