package rank

import "github.com/kestrelsearch/kestrel/query"

// AttributeRule ranks by which searchable field a match occurred in:
// cost(edge->n) = position_span(n) * attribute_rank, where
// attribute_rank is the lowest-indexed searchable field (per
// fieldOrder) the term's word(s) actually occur in. A cache memoizes,
// per (word, field) pair, whether the word occurs in that field, so the
// cost function reads each pair's WordFieldDocids once. No docid
// bitmaps of path prefixes are cached.
type AttributeRule struct {
	*pathRule
	cache map[attributeEdgeKey]bool
}

type attributeEdgeKey struct {
	word string
	fid  uint16
}

func attributeRank(ctx query.Context, cache map[attributeEdgeKey]bool, fieldOrder []uint16, word string) int {
	for rank, fid := range fieldOrder {
		key := attributeEdgeKey{word: word, fid: fid}
		hit, cached := cache[key]
		if !cached {
			bits, err := ctx.WordFieldDocids(word, fid)
			hit = err == nil && bits != nil && !bits.IsEmpty()
			cache[key] = hit
		}
		if hit {
			return rank
		}
	}
	return len(fieldOrder) // word occurs in none of the configured fields
}

func attributeWordOf(g *query.QueryGraph, node uint32) string {
	term := g.Nodes[node].Term
	if term.Kind == query.KindDerivative {
		if len(term.Derivative.Words) > 0 {
			return term.Derivative.Words[0]
		}
		return term.Derivative.Concat
	}
	return term.Original.Word
}

func NewAttributeRule(g *query.QueryGraph, ctx query.Context, fieldOrder []uint16) *AttributeRule {
	cache := map[attributeEdgeKey]bool{}
	costFn := func(g *query.QueryGraph, from, to uint32) int {
		if to == g.End {
			return 0
		}
		word := attributeWordOf(g, to)
		if word == "" {
			return 0
		}
		return positionSpan(g, to) * attributeRank(ctx, cache, fieldOrder, word)
	}
	table := query.BuildPathCosts(g, costFn)
	max := maxReachableCost(table, g.Root)
	scoreFn := func(cost int) ScoreDetail {
		return ScoreDetail{Attribute: &AttributeScore{Value: cost, Max: max}}
	}
	return &AttributeRule{pathRule: newPathRule(g, ctx, costFn, table, MinCostFirst, false, query.ByWord, scoreFn), cache: cache}
}
