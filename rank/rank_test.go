package rank_test

import (
	"testing"

	"github.com/kestrelsearch/kestrel/analyzer"
	"github.com/kestrelsearch/kestrel/query"
	"github.com/kestrelsearch/kestrel/rank"
)

func TestBucketSortWordsOnly(t *testing.T) {
	ctx := query.NewMemoryContext()
	ctx.SetWord("hello", 1, 2, 3)
	ctx.SetWord("world", 2, 3)

	terms := query.ParseTerms(analyzer.Analyze("hello world"))
	g, err := query.Build(ctx, terms, query.BuildConfig{Typo: query.TypoConfig{}, Split: query.DefaultSplitConfig()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	candidates, _ := ctx.Universe()
	wordsRule := rank.NewWordsRule(g, ctx)
	result, err := rank.BucketSort([]rank.Rule{wordsRule}, candidates, 10, 0, nil)
	if err != nil {
		t.Fatalf("BucketSort: %v", err)
	}
	// Every root-to-end path spans the full query, so only docs 2 and 3
	// (matching both "hello" and "world") realize any path at all; doc 1
	// matches "hello" alone and surfaces only once a shorter reading
	// (e.g. a dropped-word edge) exists in the graph, which this build
	// does not yet construct.
	if len(result.Hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %+v", len(result.Hits), result.Hits)
	}
	seen := map[uint32]bool{}
	for _, h := range result.Hits {
		seen[h.DocID] = true
	}
	if !seen[2] || !seen[3] {
		t.Fatalf("expected docs 2 and 3, got %+v", result.Hits)
	}
}

func TestBucketSortRespectsSkipAndLimit(t *testing.T) {
	ctx := query.NewMemoryContext()
	ctx.SetWord("fox", 10, 20, 30, 40)
	terms := query.ParseTerms(analyzer.Analyze("fox"))
	g, err := query.Build(ctx, terms, query.BuildConfig{Typo: query.TypoConfig{}, Split: query.DefaultSplitConfig()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	candidates, _ := ctx.Universe()
	result, err := rank.BucketSort([]rank.Rule{rank.NewWordsRule(g, ctx)}, candidates, 2, 1, nil)
	if err != nil {
		t.Fatalf("BucketSort: %v", err)
	}
	if len(result.Hits) != 2 {
		t.Fatalf("expected 2 hits after skip=1 limit=2, got %d", len(result.Hits))
	}
}
