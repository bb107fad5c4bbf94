package query

import (
	"testing"

	"github.com/kestrelsearch/kestrel/analyzer"
)

func buildGraph(t *testing.T, text string, cfg BuildConfig, vocab []string) *QueryGraph {
	t.Helper()
	terms := ParseTerms(analyzer.Analyze(text))
	g, err := Build(NewMemoryContext().SetVocabulary(vocab), terms, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestBuildFlatChainReachesEnd(t *testing.T) {
	g := buildGraph(t, "hello world", BuildConfig{Typo: DefaultTypoConfig(), Split: DefaultSplitConfig()}, nil)
	if g.Nodes[g.Root].Kind != NodeStart {
		t.Fatalf("root is not Start")
	}
	if g.Nodes[g.End].Kind != NodeEnd {
		t.Fatalf("end is not End")
	}
	if int(g.End) != len(g.Nodes)-1 {
		t.Fatalf("End is not the last inserted node: End=%d len=%d", g.End, len(g.Nodes))
	}
}

func TestBuildInsertionOrderInvariant(t *testing.T) {
	g := buildGraph(t, "the quick brown fox", BuildConfig{Typo: DefaultTypoConfig(), Split: DefaultSplitConfig()}, []string{"quick", "quack", "brown", "crown"})
	for id := range g.Nodes {
		g.Nodes[id].Successors.ForEach(func(succ uint32) bool {
			if succ <= uint32(id) {
				t.Errorf("node %d has successor %d not after it in insertion order", id, succ)
			}
			return true
		})
	}
}

func TestBuildEveryNonEndNodeReachesEnd(t *testing.T) {
	g := buildGraph(t, "fox", BuildConfig{Typo: DefaultTypoConfig(), Split: DefaultSplitConfig()}, []string{"fox", "box", "fax"})
	reachable := make(map[uint32]bool)
	var mark func(uint32)
	mark = func(n uint32) {
		if reachable[n] {
			return
		}
		reachable[n] = true
		g.Nodes[n].Predecessors.ForEach(func(p uint32) bool {
			mark(p)
			return true
		})
	}
	mark(g.End)
	for id := range g.Nodes {
		if !reachable[uint32(id)] {
			t.Errorf("node %d cannot reach End", id)
		}
	}
}

func TestPrefixWordAlias(t *testing.T) {
	g := buildGraph(t, "cat", BuildConfig{Typo: DefaultTypoConfig(), Split: DefaultSplitConfig()}, nil)
	// single word query: last term is a Prefix, pass 3 should add a
	// parallel Word("cat") alias.
	var sawPrefix, sawWordAlias bool
	for _, n := range g.Nodes {
		if n.Kind != NodeTerm || n.Term.Kind == KindDerivative {
			continue
		}
		if n.Term.Original.Kind == OriginalPrefix && n.Term.Original.Word == "cat" {
			sawPrefix = true
		}
		if n.Term.Original.Kind == OriginalWord && n.Term.Original.Word == "cat" {
			sawWordAlias = true
		}
	}
	if !sawPrefix || !sawWordAlias {
		t.Fatalf("expected both Prefix(cat) and its Word(cat) alias, got prefix=%v wordAlias=%v", sawPrefix, sawWordAlias)
	}
}

func TestTypoDerivationBucketsByDistance(t *testing.T) {
	g := buildGraph(t, "hello world", BuildConfig{Typo: DefaultTypoConfig(), Split: DefaultSplitConfig()}, []string{"hallo", "hullo", "help"})
	found := map[uint8]bool{}
	for _, n := range g.Nodes {
		if n.Kind == NodeTerm && n.Term.Kind == KindDerivative && n.Term.Derivative.Kind == DerivTypo {
			found[n.Term.Derivative.NTypos] = true
		}
	}
	if !found[1] {
		t.Fatalf("expected at least one 1-typo bucket, got %v", found)
	}
}

func TestSplitDerivation(t *testing.T) {
	ctx := NewMemoryContext().SetPairFrequency("lap", "top", 1, 42)
	g, err := Build(ctx, ParseTerms(analyzer.Analyze("laptop")), BuildConfig{Typo: DefaultTypoConfig(), Split: DefaultSplitConfig()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var sawSplit bool
	for _, n := range g.Nodes {
		if n.Kind == NodeTerm && n.Term.Kind == KindDerivative && n.Term.Derivative.Kind == DerivSplit {
			sawSplit = true
			found := false
			for _, p := range n.Term.Derivative.Splits {
				if p.Left == "lap" && p.Right == "top" {
					found = true
				}
			}
			if !found {
				t.Errorf("expected lap/top among split candidates, got %+v", n.Term.Derivative.Splits)
			}
		}
	}
	if !sawSplit {
		t.Fatalf("expected a split derivative node")
	}
}

func TestSynonymDerivation(t *testing.T) {
	syn := SynonymMap{"fast": {{"quick"}, {"very", "fast"}}}
	g := buildGraph(t, "fast car", BuildConfig{Synonyms: syn, Typo: DefaultTypoConfig(), Split: DefaultSplitConfig()}, nil)
	var sawSingle, sawPhrase bool
	for _, n := range g.Nodes {
		if n.Kind != NodeTerm || n.Term.Kind != KindDerivative {
			continue
		}
		switch n.Term.Derivative.Kind {
		case DerivSynonym:
			sawSingle = true
		case DerivSynonymPhrase:
			sawPhrase = true
		}
	}
	if !sawSingle || !sawPhrase {
		t.Fatalf("expected both single-word and phrase synonym derivatives, single=%v phrase=%v", sawSingle, sawPhrase)
	}
}
