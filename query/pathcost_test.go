package query

import "testing"

// unitCost charges 1 for every edge, so a path's total cost equals its
// term-node count — enough to exercise PathCost/PathVisitor without
// depending on any ranking rule.
func unitCost(g *QueryGraph, from, to uint32) int {
	if to == g.End {
		return 0
	}
	return 1
}

func TestPathCostAndVisitorEnumerateFlatChain(t *testing.T) {
	g := buildGraph(t, "hello world", BuildConfig{Typo: TypoConfig{}, Split: DefaultSplitConfig()}, nil)
	table := BuildPathCosts(g, unitCost)

	var paths [][]uint32
	VisitPaths(g, table, unitCost, 2, nil, func(path []uint32) bool {
		paths = append(paths, append([]uint32(nil), path...))
		return true
	})
	if len(paths) == 0 {
		t.Fatalf("expected at least one path of cost 2")
	}
	for _, p := range paths {
		if len(p) != 2 {
			t.Errorf("expected a 2-node path, got %v", p)
		}
	}
}

func TestPathVisitorStopsEarly(t *testing.T) {
	g := buildGraph(t, "a b c", BuildConfig{Typo: TypoConfig{}, Split: DefaultSplitConfig()}, nil)
	table := BuildPathCosts(g, unitCost)

	count := 0
	VisitPaths(g, table, unitCost, 3, nil, func(path []uint32) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("expected exactly one path visited before stop, got %d", count)
	}
}

func TestPathVisitorRespectsAllowedSet(t *testing.T) {
	g := buildGraph(t, "cat", BuildConfig{Typo: DefaultTypoConfig(), Split: DefaultSplitConfig()}, nil)
	table := BuildPathCosts(g, unitCost)

	// Restrict to exactly the flat-chain Prefix(cat) node; the
	// Word(cat) alias pass 3 added must not appear in any visited path.
	var prefixNode uint32
	for id, n := range g.Nodes {
		if n.Kind == NodeTerm && n.Term.Kind == KindNormal && n.Term.Original.Kind == OriginalPrefix {
			prefixNode = uint32(id)
		}
	}
	allowed := map[uint32]bool{g.Root: true, prefixNode: true, g.End: true}

	var visited int
	VisitPaths(g, table, unitCost, 1, allowed, func(path []uint32) bool {
		visited++
		if len(path) != 1 || path[0] != prefixNode {
			t.Errorf("expected only the allowed prefix node on the path, got %v", path)
		}
		return true
	})
	if visited == 0 {
		t.Fatalf("expected the allowed prefix node's path to be visited")
	}
}

func TestTopologicalOrderRootFirstEndLast(t *testing.T) {
	g := buildGraph(t, "quick brown fox", BuildConfig{Typo: DefaultTypoConfig(), Split: DefaultSplitConfig()}, nil)
	order := topologicalOrder(g)
	if order[0] != g.Root {
		t.Fatalf("expected root first, got %d", order[0])
	}
	if order[len(order)-1] != g.End {
		t.Fatalf("expected end last, got %d", order[len(order)-1])
	}
}
