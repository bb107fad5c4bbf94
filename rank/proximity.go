package rank

import "github.com/kestrelsearch/kestrel/query"

// ProximityRule ranks by the positional gap between consecutive query
// words: cost(edge) = |start(to) - end(from)|, clamped to query.MaxProximity,
// min-cost-first (closer words rank better).
type ProximityRule struct{ *pathRule }

func proximityCost(g *query.QueryGraph, from, to uint32) int {
	if to == g.End || from == g.Root {
		return 0
	}
	fromEnd := g.Nodes[from].Term.Position.End
	toStart := g.Nodes[to].Term.Position.Start
	gap := toStart - fromEnd
	if gap < 0 {
		gap = -gap
	}
	if gap > query.MaxProximity {
		gap = query.MaxProximity
	}
	return gap
}

func NewProximityRule(g *query.QueryGraph, ctx query.Context, precision query.ProximityPrecision) *ProximityRule {
	table := query.BuildPathCosts(g, proximityCost)
	max := maxReachableCost(table, g.Root)
	scoreFn := func(cost int) ScoreDetail {
		return ScoreDetail{Proximity: &ProximityScore{Value: cost, Max: max}}
	}
	return &ProximityRule{newPathRule(g, ctx, proximityCost, table, MinCostFirst, true, precision, scoreFn)}
}
