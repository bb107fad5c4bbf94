package matches_test

import (
	"testing"

	"github.com/kestrelsearch/kestrel/analyzer"
	"github.com/kestrelsearch/kestrel/matches"
	"github.com/kestrelsearch/kestrel/query"
)

func buildGraph(t *testing.T, text string) (*query.QueryGraph, []query.Term) {
	t.Helper()
	tokens := analyzer.Analyze(text)
	terms := query.ParseTerms(tokens)
	ctx := query.NewMemoryContext().SetVocabulary([]string{"world", "word", "hello"})
	g, err := query.Build(ctx, terms, query.BuildConfig{Typo: query.DefaultTypoConfig(), Split: query.DefaultSplitConfig()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g, terms
}

func TestLocateExactMatch(t *testing.T) {
	g, terms := buildGraph(t, "hello world")
	m := matches.NewMatcher(terms, g)

	spans := m.Locate(analyzer.Analyze("hello world"))
	if len(spans) != 2 {
		t.Fatalf("expected 2 matched spans, got %d: %+v", len(spans), spans)
	}
	for _, s := range spans {
		if s.Kind != matches.MatchExact {
			t.Fatalf("expected exact matches for a verbatim document, got %+v", s)
		}
	}
	seen := map[int]bool{}
	for _, s := range spans {
		seen[s.QueryTerm] = true
	}
	if !seen[0] || !seen[1] {
		t.Fatalf("expected query terms 0 and 1 both matched, got %+v", spans)
	}
}

func TestLocateSkipsUnmatchedWords(t *testing.T) {
	g, terms := buildGraph(t, "hello world")
	m := matches.NewMatcher(terms, g)

	spans := m.Locate(analyzer.Analyze("hello there"))
	if len(spans) != 1 || spans[0].QueryTerm != 0 {
		t.Fatalf("expected a single match on term 0, got %+v", spans)
	}
}
