package hybrid_test

import (
	"testing"

	"github.com/kestrelsearch/kestrel/hybrid"
	"github.com/kestrelsearch/kestrel/rank"
)

func wordsResult(docs ...uint32) *rank.Result {
	hits := make([]rank.Hit, len(docs))
	for i, d := range docs {
		hits[i] = rank.Hit{DocID: d, Score: []rank.ScoreDetail{{Words: &rank.WordsScore{Matching: 2, Max: 2}}}}
	}
	return &rank.Result{Hits: hits}
}

func TestExecuteSkipsVectorWhenLexicalConfident(t *testing.T) {
	vectorCalled := false
	lexical := func(offset, limit int) (*rank.Result, error) { return wordsResult(1, 2, 3), nil }
	vector := func(offset, limit int) (*rank.Result, error) {
		vectorCalled = true
		return &rank.Result{}, nil
	}

	out, err := hybrid.Execute(0.5, 0, 3, lexical, vector)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if vectorCalled {
		t.Fatalf("expected vector search to be skipped when lexical is fully confident")
	}
	if len(out.Hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(out.Hits))
	}
}

func TestExecuteRatioOneAlwaysRunsVectorOnly(t *testing.T) {
	lexicalCalled := false
	lexical := func(offset, limit int) (*rank.Result, error) {
		lexicalCalled = true
		return wordsResult(1), nil
	}
	vector := func(offset, limit int) (*rank.Result, error) {
		return &rank.Result{Hits: []rank.Hit{{DocID: 9, Score: []rank.ScoreDetail{{Vector: &rank.VectorScore{Similarity: 0.9}}}}}}, nil
	}

	out, err := hybrid.Execute(1, 0, 5, lexical, vector)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if lexicalCalled {
		t.Fatalf("expected lexical search never to run when ratio == 1")
	}
	if !out.UsedVector || len(out.Hits) != 1 || out.Hits[0].DocID != 9 {
		t.Fatalf("expected the single vector hit, got %+v", out)
	}
}

func TestExecuteMergesAndDedupsWhenLexicalUnderfilled(t *testing.T) {
	lexical := func(offset, limit int) (*rank.Result, error) { return wordsResult(1), nil }
	vector := func(offset, limit int) (*rank.Result, error) {
		return &rank.Result{Hits: []rank.Hit{
			{DocID: 1, Score: []rank.ScoreDetail{{Vector: &rank.VectorScore{Similarity: 0.8}}}},
			{DocID: 2, Score: []rank.ScoreDetail{{Vector: &rank.VectorScore{Similarity: 0.5}}}},
		}}, nil
	}

	out, err := hybrid.Execute(0.5, 0, 5, lexical, vector)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !out.UsedVector {
		t.Fatalf("expected vector search to have run")
	}
	seen := map[uint32]int{}
	for _, h := range out.Hits {
		seen[h.DocID]++
	}
	if seen[1] != 1 {
		t.Fatalf("expected doc 1 deduplicated to a single hit, got count %d", seen[1])
	}
	if len(out.Hits) != 2 {
		t.Fatalf("expected 2 distinct hits, got %d: %+v", len(out.Hits), out.Hits)
	}
}
