package query

import (
	"sort"

	"github.com/kestrelsearch/kestrel/bitset"
)

// CostFn computes the cost of the edge from -> to (from == g.Root has
// no meaningful predecessor term; rules that only care about the
// target node, e.g. Words/Typo/Attribute/Exactness, ignore `from`).
// Proximity is the one rule that needs both ends of the edge.
type CostFn func(g *QueryGraph, from, to uint32) int

// NodeCostTable records, for every node, the set of total costs at
// which End is reachable starting from that node (spec.md §4.4's
// paths_cost table), keyed by node id via bitset.VecMap. Edge costs are
// not cached here: they are cheap to recompute and storing only totals
// keeps per-edge costs available to PathVisitor instead of being summed
// away.
type NodeCostTable struct {
	totals *bitset.VecMap[map[int]bool]
	sorted *bitset.VecMap[[]int]
}

// Has reports whether node can reach End at exactly cost, and Entries
// returns every reachable total for node in ascending order.
func (t *NodeCostTable) Has(node uint32, cost int) bool {
	costs, ok := t.totals.Get(node)
	return ok && costs[cost]
}

func (t *NodeCostTable) Entries(node uint32) []int {
	entries, _ := t.sorted.Get(node)
	return entries
}

// BuildPathCosts computes, for every node, the set of total costs at
// which End is reachable, via one pass over nodes in reverse
// topological order (every node's successors are fully resolved before
// the node itself is processed). A derivative node shares no special
// treatment here: its own successors/predecessors (cloned from its
// origin at construction time, see graph.go) already make it reachable
// exactly like its origin would be.
func BuildPathCosts(g *QueryGraph, costFn CostFn) *NodeCostTable {
	table := &NodeCostTable{
		totals: bitset.NewVecMap[map[int]bool](),
		sorted: bitset.NewVecMap[[]int](),
	}

	order := topologicalOrder(g)
	for i := len(order) - 1; i >= 0; i-- {
		node := order[i]
		if node == g.End {
			table.totals.Set(node, map[int]bool{0: true})
			continue
		}
		costs := map[int]bool{}
		g.Nodes[node].Successors.ForEach(func(succ uint32) bool {
			edgeCost := costFn(g, node, succ)
			succCosts, _ := table.totals.Get(succ)
			for succCost := range succCosts {
				costs[edgeCost+succCost] = true
			}
			return true
		})
		table.totals.Set(node, costs)
	}

	table.totals.ForEach(func(node uint32, costs map[int]bool) {
		entries := make([]int, 0, len(costs))
		for cost := range costs {
			entries = append(entries, cost)
		}
		sort.Ints(entries)
		table.sorted.Set(node, entries)
	})
	return table
}

// topologicalOrder returns node ids in topological order (Root first,
// End last) via Kahn's algorithm, so PathCost construction does not
// depend on insertion-id ordering beyond what Build already guarantees.
func topologicalOrder(g *QueryGraph) []uint32 {
	inDegree := make([]int, len(g.Nodes))
	for i := range g.Nodes {
		inDegree[i] = g.Nodes[i].Predecessors.Len()
	}
	queue := []uint32{g.Root}
	var order []uint32
	visited := make([]bool, len(g.Nodes))
	visited[g.Root] = true
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		g.Nodes[node].Successors.ForEach(func(succ uint32) bool {
			inDegree[succ]--
			if inDegree[succ] <= 0 && !visited[succ] {
				visited[succ] = true
				queue = append(queue, succ)
			}
			return true
		})
	}
	return order
}
