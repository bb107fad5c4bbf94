package facet

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kestrelsearch/kestrel/query"
)

// SortFacetValuesBy selects how Distribution orders each field's values.
type SortFacetValuesBy int

const (
	Lexicographic SortFacetValuesBy = iota
	ByCount
)

// ValueCount is one entry of a field's facet distribution.
type ValueCount struct {
	Value string
	Count uint64
}

// Distribution computes, per the universe bitmap FacetFilter produced,
// the per-field value counts up to maxValues, ordered per sortBy —
// the thin read-side companion to FacetFilter (spec.md §4.13,
// supplemented from original_source's facet search/update modules).
func Distribution(ctx query.Context, universe *roaring.Bitmap, fid uint16, sortBy SortFacetValuesBy, maxValues int) ([]ValueCount, error) {
	values, err := ctx.FacetStringValues(fid)
	if err != nil {
		return nil, err
	}

	var counts []ValueCount
	for _, v := range values {
		bits, err := ctx.FacetStringDocids(fid, v)
		if err != nil {
			return nil, err
		}
		intersected := bits.Clone()
		intersected.And(universe)
		n := intersected.GetCardinality()
		if n == 0 {
			continue
		}
		counts = append(counts, ValueCount{Value: v, Count: n})
	}

	switch sortBy {
	case ByCount:
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].Count != counts[j].Count {
				return counts[i].Count > counts[j].Count
			}
			return counts[i].Value < counts[j].Value
		})
	default:
		sort.Slice(counts, func(i, j int) bool { return counts[i].Value < counts[j].Value })
	}

	if maxValues > 0 && len(counts) > maxValues {
		counts = counts[:maxValues]
	}
	return counts, nil
}
