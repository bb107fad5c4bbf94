package rank

import "github.com/kestrelsearch/kestrel/query"

// TypoRule ranks by accumulated typo count: 1 for a Split edge, k for a
// Typo(_,k)/PrefixTypo(_,k) edge, 0 otherwise — min-cost-first, since
// fewer typos is a better reading.
type TypoRule struct{ *pathRule }

func typoCost(g *query.QueryGraph, from, to uint32) int {
	if to == g.End {
		return 0
	}
	term := g.Nodes[to].Term
	if term.Kind != query.KindDerivative {
		return 0
	}
	switch term.Derivative.Kind {
	case query.DerivSplit:
		return 1
	case query.DerivTypo, query.DerivPrefixTypo:
		return int(term.Derivative.NTypos)
	default:
		return 0
	}
}

func NewTypoRule(g *query.QueryGraph, ctx query.Context) *TypoRule {
	table := query.BuildPathCosts(g, typoCost)
	max := maxReachableCost(table, g.Root)
	scoreFn := func(cost int) ScoreDetail {
		return ScoreDetail{Typo: &TypoScore{Count: cost, Max: max}}
	}
	return &TypoRule{newPathRule(g, ctx, typoCost, table, MinCostFirst, false, query.ByWord, scoreFn)}
}
