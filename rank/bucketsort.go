package rank

import "github.com/RoaringBitmap/roaring/v2"

// Hit is one document placed into the result set by BucketSort, with
// the full per-rule score stack that produced it.
type Hit struct {
	DocID uint32
	Score []ScoreDetail
}

// Result is BucketSort's output: the ranked hits plus whether
// search_cutoff forced early termination (spec.md Open Question #2).
type Result struct {
	Hits     []Hit
	Degraded bool
}

// CutoffFn is consulted before every bucket at every rule level, with
// the count of buckets examined so far; returning true aborts further
// bucket expansion and marks the result Degraded,
// implementing spec.md's search_cutoff at bucket boundaries.
type CutoffFn func(examined int) bool

// BucketSort runs spec.md §4.6's recursive_sort over rule stack rules,
// starting from candidates, collecting up to limit hits after skipping
// the first skip matches in final rule-iteration order.
func BucketSort(rules []Rule, candidates *roaring.Bitmap, limit, skip int, cutoff CutoffFn) (*Result, error) {
	if len(rules) == 0 || limit <= 0 {
		return &Result{}, nil
	}
	if err := rules[0].StartIteration(candidates, nil); err != nil {
		return nil, err
	}
	out := &Result{}
	examined := 0
	remaining := limit
	err := recursiveSort(rules, 0, &remaining, &skip, nil, roaring.New(), out, &examined, cutoff)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func recursiveSort(rules []Rule, ruleIdx int, limit, skip *int, scoreStack []ScoreDetail, visited *roaring.Bitmap, out *Result, examined *int, cutoff CutoffFn) error {
	rule := rules[ruleIdx]
	for {
		bucket, ok, err := rule.NextBucket()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if cutoff != nil && cutoff(*examined) {
			out.Degraded = true
			return nil
		}
		*examined++

		docids := bucket.Candidates.Clone()
		docids.AndNot(visited)
		count := int(docids.GetCardinality())
		if count == 0 {
			continue
		}
		if *skip >= count {
			*skip -= count
			visited.Or(docids)
			continue
		}

		stack := append(append([]ScoreDetail(nil), scoreStack...), bucket.Score)

		if ruleIdx == len(rules)-1 {
			visited.Or(docids)
			taken := takeHits(docids, *skip, *limit, stack, out)
			*limit -= taken
			*skip = 0
			if *limit <= 0 {
				return nil
			}
			continue
		}

		if err := rules[ruleIdx+1].StartIteration(bucket.Candidates, bucket.AllowedPaths); err != nil {
			return err
		}
		if err := recursiveSort(rules, ruleIdx+1, limit, skip, stack, visited, out, examined, cutoff); err != nil {
			return err
		}
		if *limit <= 0 {
			return nil
		}
	}
}

// takeHits appends min(limit, count-skip) docids from docids (ascending
// iteration order), skipping the first skip, and returns how many were
// taken.
func takeHits(docids *roaring.Bitmap, skip, limit int, stack []ScoreDetail, out *Result) int {
	taken := 0
	it := docids.Iterator()
	idx := 0
	for it.HasNext() && taken < limit {
		doc := it.Next()
		if idx < skip {
			idx++
			continue
		}
		idx++
		out.Hits = append(out.Hits, Hit{DocID: doc, Score: append([]ScoreDetail(nil), stack...)})
		taken++
	}
	return taken
}
