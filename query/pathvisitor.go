package query

// VisitFn is called once per enumerated root-to-end path, as the flat
// sequence of term node ids (Start and End excluded). Returning false
// stops enumeration early (spec.md §4.4's ControlFlow::Break).
type VisitFn func(path []uint32) bool

// VisitPaths enumerates every root-to-end path through g whose total
// cost equals exactly costBudget, calling visit for each. table must
// have been built with the same costFn. If allowed is non-nil, only
// term nodes present in it may appear on a path; End is always
// reachable (spec.md §4.4: "restrict enumeration to an allowed node
// subset").
func VisitPaths(g *QueryGraph, table *NodeCostTable, costFn CostFn, costBudget int, allowed map[uint32]bool, visit VisitFn) {
	path := make([]uint32, 0, len(g.Nodes))
	visitPathsFrom(g, table, costFn, g.Root, costBudget, allowed, path, visit)
}

// visitPathsFrom returns false once visit has requested a stop, so the
// caller can unwind without visiting further siblings.
func visitPathsFrom(g *QueryGraph, table *NodeCostTable, costFn CostFn, node uint32, remaining int, allowed map[uint32]bool, path []uint32, visit VisitFn) bool {
	if node == g.End {
		if remaining != 0 {
			return true
		}
		return visit(append([]uint32(nil), path...))
	}

	cont := true
	g.Nodes[node].Successors.ForEach(func(next uint32) bool {
		if allowed != nil && next != g.End && !allowed[next] {
			return true
		}
		edgeCost := costFn(g, node, next)
		if edgeCost > remaining {
			return true
		}
		childRemaining := remaining - edgeCost
		if next != g.End && !table.Has(next, childRemaining) {
			return true // next cannot reach End at exactly this remaining cost
		}

		nextPath := path
		if next != g.End {
			nextPath = append(path, next)
		}
		if !visitPathsFrom(g, table, costFn, next, childRemaining, allowed, nextPath, visit) {
			cont = false
			return false
		}
		return true
	})
	return cont
}
