package rank

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/coder/hnsw"
)

// VectorRule does not consume graph paths: it queries an ANN index
// (cosine/angular distance) against the query vector for up to
// limit+offset neighbors, yielding one singleton bucket per neighbor in
// similarity order, per spec.md §4.5 "Vector rule specifics".
type VectorRule struct {
	index      *hnsw.Graph[uint32]
	queryVec   []float32
	k          int
	candidates *roaring.Bitmap

	neighbors []hnsw.Node[uint32]
	cursor    int
}

func NewVectorRule(index *hnsw.Graph[uint32], queryVec []float32, k int) *VectorRule {
	return &VectorRule{index: index, queryVec: queryVec, k: k}
}

func (r *VectorRule) StartIteration(candidates *roaring.Bitmap, allowedPaths map[uint32]bool) error {
	r.candidates = candidates
	r.cursor = 0
	if r.index == nil || len(r.queryVec) == 0 {
		r.neighbors = nil
		return nil
	}
	r.neighbors = r.index.Search(r.queryVec, r.k)
	return nil
}

func (r *VectorRule) NextBucket() (*Bucket, bool, error) {
	for r.cursor < len(r.neighbors) {
		n := r.neighbors[r.cursor]
		r.cursor++
		if !r.candidates.Contains(n.Key) {
			continue
		}
		similarity := 1.0 - cosineDistance(r.queryVec, n.Value)
		docids := roaring.New()
		docids.Add(n.Key)
		return &Bucket{Score: ScoreDetail{Vector: &VectorScore{Similarity: similarity}}, Candidates: docids}, true, nil
	}
	return nil, false, nil
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - cos
}
