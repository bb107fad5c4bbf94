package rank

import (
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/coder/hnsw"
)

func TestCosineDistanceIdenticalVectorsIsZero(t *testing.T) {
	v := []float32{1, 2, 3}
	d := cosineDistance(v, v)
	if math.Abs(d) > 1e-9 {
		t.Fatalf("expected 0 distance for identical vectors, got %v", d)
	}
}

func TestCosineDistanceOrthogonalVectorsIsOne(t *testing.T) {
	d := cosineDistance([]float32{1, 0}, []float32{0, 1})
	if math.Abs(d-1) > 1e-9 {
		t.Fatalf("expected distance 1 for orthogonal vectors, got %v", d)
	}
}

func TestCosineDistanceZeroVectorFallsBackToMaxDistance(t *testing.T) {
	d := cosineDistance([]float32{0, 0, 0}, []float32{1, 2, 3})
	if d != 1 {
		t.Fatalf("expected distance 1 when a vector has zero norm, got %v", d)
	}
}

func TestVectorRuleNextBucketOrdersBySimilarityAndFiltersCandidates(t *testing.T) {
	g := hnsw.NewGraph[uint32]()
	g.Add(
		hnsw.MakeNode[uint32](1, []float32{1, 0, 0}),
		hnsw.MakeNode[uint32](2, []float32{0.9, 0.1, 0}),
		hnsw.MakeNode[uint32](3, []float32{0, 1, 0}),
	)

	rule := NewVectorRule(g, []float32{1, 0, 0}, 3)
	candidates := roaring.New()
	candidates.AddMany([]uint32{1, 3})
	if err := rule.StartIteration(candidates, nil); err != nil {
		t.Fatalf("StartIteration: %v", err)
	}

	var seen []uint32
	for {
		bucket, ok, err := rule.NextBucket()
		if err != nil {
			t.Fatalf("NextBucket: %v", err)
		}
		if !ok {
			break
		}
		it := bucket.Candidates.Iterator()
		for it.HasNext() {
			seen = append(seen, it.Next())
		}
	}

	// doc 2 is excluded by candidates even though it is closer than doc 3.
	if len(seen) != 2 {
		t.Fatalf("expected 2 surviving hits, got %v", seen)
	}
	if seen[0] != 1 {
		t.Fatalf("expected doc 1 (exact match) to rank first, got %v", seen)
	}
}

func TestVectorRuleNextBucketEmptyWithNoIndex(t *testing.T) {
	rule := NewVectorRule(nil, []float32{1, 0}, 5)
	if err := rule.StartIteration(roaring.New(), nil); err != nil {
		t.Fatalf("StartIteration: %v", err)
	}
	_, ok, err := rule.NextBucket()
	if err != nil {
		t.Fatalf("NextBucket: %v", err)
	}
	if ok {
		t.Fatalf("expected no buckets when index is nil")
	}
}
