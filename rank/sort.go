package rank

import (
	"sort"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kestrelsearch/kestrel/query"
)

// SortCriterion is one `field:asc`/`field:desc` entry from a search
// request's sort list.
type SortCriterion struct {
	Field     uint16
	FieldName string
	Ascending bool
	IsNumeric bool
}

// SortRule does not consume graph paths (spec.md §4.5): it opens one
// ordered iterator over the facet database, numeric levels when the
// criterion IsNumeric and string values otherwise, and yields the next
// group of docids sharing a facet value. A numeric sort does not visit
// string values of the field, and a string sort does not visit numeric
// ones.
type SortRule struct {
	ctx        query.Context
	criterion  SortCriterion
	candidates *roaring.Bitmap

	numericLevels []query.NumericLevel
	stringValues  []string
	cursor        int
}

func NewSortRule(ctx query.Context, criterion SortCriterion) *SortRule {
	return &SortRule{ctx: ctx, criterion: criterion}
}

func (r *SortRule) StartIteration(candidates *roaring.Bitmap, allowedPaths map[uint32]bool) error {
	r.candidates = candidates
	r.cursor = 0
	if r.criterion.IsNumeric {
		levels, err := r.ctx.FacetNumericLevels(r.criterion.Field)
		if err != nil {
			return err
		}
		r.numericLevels = orderNumericLevels(levels, r.criterion.Ascending)
		return nil
	}
	values, err := r.ctx.FacetStringValues(r.criterion.Field)
	if err != nil {
		return err
	}
	if !r.criterion.Ascending {
		reverseStrings(values)
	}
	r.stringValues = values
	return nil
}

func (r *SortRule) NextBucket() (*Bucket, bool, error) {
	if r.criterion.IsNumeric {
		for r.cursor < len(r.numericLevels) {
			level := r.numericLevels[r.cursor]
			r.cursor++
			docids := level.Bitmap.Clone()
			docids.And(r.candidates)
			if docids.IsEmpty() {
				continue
			}
			score := ScoreDetail{Sort: &SortScore{Field: r.criterion.FieldName, Ascending: r.criterion.Ascending, Value: formatFloat(level.LeftBound)}}
			return &Bucket{Score: score, Candidates: docids}, true, nil
		}
		return nil, false, nil
	}
	for r.cursor < len(r.stringValues) {
		value := r.stringValues[r.cursor]
		r.cursor++
		docids, err := r.ctx.FacetStringDocids(r.criterion.Field, value)
		if err != nil {
			return nil, false, err
		}
		docids = docids.Clone()
		docids.And(r.candidates)
		if docids.IsEmpty() {
			continue
		}
		score := ScoreDetail{Sort: &SortScore{Field: r.criterion.FieldName, Ascending: r.criterion.Ascending, Value: value}}
		return &Bucket{Score: score, Candidates: docids}, true, nil
	}
	return nil, false, nil
}

func orderNumericLevels(levels []query.NumericLevel, ascending bool) []query.NumericLevel {
	out := append([]query.NumericLevel(nil), levels...)
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].LeftBound < out[j].LeftBound
		}
		return out[i].LeftBound > out[j].LeftBound
	})
	return out
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
