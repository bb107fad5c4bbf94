package rank

import "github.com/kestrelsearch/kestrel/query"

// ExactnessRule ranks by how many words were matched without any
// derivation (typo, synonym, split, ngram): cost(edge->n) =
// position_span(n) iff n's term is Exact or Normal (not a derivative),
// else 0 — max-cost-first, since more exact words is better.
type ExactnessRule struct{ *pathRule }

func exactnessCost(g *query.QueryGraph, from, to uint32) int {
	if to == g.End {
		return 0
	}
	term := g.Nodes[to].Term
	if term.Kind == query.KindDerivative {
		return 0
	}
	return positionSpan(g, to)
}

func NewExactnessRule(g *query.QueryGraph, ctx query.Context) *ExactnessRule {
	table := query.BuildPathCosts(g, exactnessCost)
	max := maxReachableCost(table, g.Root)
	scoreFn := func(cost int) ScoreDetail {
		return ScoreDetail{ExactWords: &ExactWordsScore{Count: cost, Max: max}}
	}
	return &ExactnessRule{newPathRule(g, ctx, exactnessCost, table, MaxCostFirst, false, query.ByWord, scoreFn)}
}
