// Package rank implements the ranking-rule stack — Words, Typo,
// Proximity, Attribute, Exactness, Sort, Vector — and the recursive
// bucket-sort driver that walks them, per spec.md §4.5/§4.6.
package rank

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kestrelsearch/kestrel/query"
)

// Rule is one entry of the ranking-rule stack. Implementations fall
// into two families: path-based rules (Words, Typo, Proximity,
// Attribute, Exactness), built on top of pathRule below, and the two
// that do not consume graph paths at all (Sort, Vector).
type Rule interface {
	// StartIteration resets the rule's cursor over candidates, scoped to
	// the surviving paths from the previous rule in the stack (nil means
	// unrestricted).
	StartIteration(candidates *roaring.Bitmap, allowedPaths map[uint32]bool) error
	// NextBucket yields the next non-empty equivalence class, or ok=false
	// once exhausted.
	NextBucket() (*Bucket, bool, error)
}

// Bucket is one equivalence class BucketSort recurses into.
type Bucket struct {
	Score        ScoreDetail
	Candidates   *roaring.Bitmap
	AllowedPaths map[uint32]bool
}

// IterationOrder controls whether a path-based rule visits higher-cost
// buckets first (more matched words is better) or lower-cost buckets
// first (fewer typos/closer proximity is better).
type IterationOrder int

const (
	MinCostFirst IterationOrder = iota
	MaxCostFirst
)

// pathRule is the shared machinery behind Words/Typo/Proximity/
// Attribute/Exactness: a per-edge CostFn, a precomputed NodeCostTable,
// and a scoreFn turning a bucket's total cost into its ScoreDetail.
type pathRule struct {
	g             *query.QueryGraph
	ctx           query.Context
	costFn        query.CostFn
	table         *query.NodeCostTable
	order         IterationOrder
	withProximity bool
	precision     query.ProximityPrecision
	scoreFn       func(cost int) ScoreDetail

	costs        []int
	cursor       int
	candidates   *roaring.Bitmap
	allowedPaths map[uint32]bool
}

func newPathRule(g *query.QueryGraph, ctx query.Context, costFn query.CostFn, table *query.NodeCostTable, order IterationOrder, withProximity bool, precision query.ProximityPrecision, scoreFn func(int) ScoreDetail) *pathRule {
	return &pathRule{
		g:             g,
		ctx:           ctx,
		costFn:        costFn,
		table:         table,
		order:         order,
		withProximity: withProximity,
		precision:     precision,
		scoreFn:       scoreFn,
	}
}

// maxReachableCost returns the largest total cost at which root can
// reach end, 0 if root cannot reach end at all.
func maxReachableCost(table *query.NodeCostTable, root uint32) int {
	entries := table.Entries(root)
	if len(entries) == 0 {
		return 0
	}
	return entries[len(entries)-1]
}

func (r *pathRule) StartIteration(candidates *roaring.Bitmap, allowedPaths map[uint32]bool) error {
	costs := append([]int(nil), r.table.Entries(r.g.Root)...)
	if r.order == MaxCostFirst {
		for i, j := 0, len(costs)-1; i < j; i, j = i+1, j-1 {
			costs[i], costs[j] = costs[j], costs[i]
		}
	}
	r.costs = costs
	r.cursor = 0
	r.candidates = candidates
	r.allowedPaths = allowedPaths
	return nil
}

func (r *pathRule) NextBucket() (*Bucket, bool, error) {
	for r.cursor < len(r.costs) {
		cost := r.costs[r.cursor]
		r.cursor++

		var paths [][]uint32
		query.VisitPaths(r.g, r.table, r.costFn, cost, r.allowedPaths, func(path []uint32) bool {
			paths = append(paths, append([]uint32(nil), path...))
			return true
		})
		if len(paths) == 0 {
			continue
		}

		union := roaring.New()
		surviving := map[uint32]bool{}
		for _, path := range paths {
			bits, err := pathDocids(r.ctx, r.g, path, r.withProximity, r.precision, r.costFn)
			if err != nil {
				return nil, false, err
			}
			check := bits.Clone()
			check.And(r.candidates)
			if check.IsEmpty() {
				continue
			}
			union.Or(bits)
			for _, n := range path {
				surviving[n] = true
			}
		}
		union.And(r.candidates)
		if union.IsEmpty() {
			continue
		}
		return &Bucket{Score: r.scoreFn(cost), Candidates: union, AllowedPaths: surviving}, true, nil
	}
	return nil, false, nil
}

// pathDocids resolves the docid bitmap a specific root-to-end path
// realizes: the intersection of every term node's own Resolve bitmap
// along the path, additionally intersected pairwise with proximity
// bitmaps when withProximity is set (the Proximity rule).
func pathDocids(ctx query.Context, g *query.QueryGraph, path []uint32, withProximity bool, precision query.ProximityPrecision, costFn query.CostFn) (*roaring.Bitmap, error) {
	if len(path) == 0 {
		return ctx.Universe()
	}
	result, err := query.Resolve(ctx, g.Nodes[path[0]].Term)
	if err != nil {
		return nil, err
	}
	result = result.Clone()

	for i := 1; i < len(path); i++ {
		termBits, err := query.Resolve(ctx, g.Nodes[path[i]].Term)
		if err != nil {
			return nil, err
		}
		result.And(termBits)
		if withProximity {
			edgeCost := costFn(g, path[i-1], path[i])
			pairBits, err := query.ResolvePairProximity(ctx, precision, g.Nodes[path[i-1]].Term, g.Nodes[path[i]].Term, uint8(edgeCost))
			if err != nil {
				return nil, err
			}
			result.And(pairBits)
		}
		if result.IsEmpty() {
			return result, nil
		}
	}
	return result, nil
}

// positionSpan is the `position_span(n)` quantity several cost
// functions share: how many query words the node's term covers.
func positionSpan(g *query.QueryGraph, node uint32) int {
	if node == g.End || node == g.Root {
		return 0
	}
	return g.Nodes[node].Term.Position.Words()
}
