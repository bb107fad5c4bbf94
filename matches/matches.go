// Package matches implements MatchingWords, grounded on
// original_source/src/search/matches/matching_words.rs (supplemented;
// dropped by the distillation). Given the surviving query graph paths
// and a document's tokenized field text, it maps matched token spans
// back to the query term that produced them, distinguishing exact
// matches from derivative ones so a client can render "fuzzy match"
// highlighting differently from an exact one.
package matches

import (
	"strings"

	"github.com/kestrelsearch/kestrel/analyzer"
	"github.com/kestrelsearch/kestrel/query"
)

// MatchKind distinguishes an exact token match from one realized via a
// query-graph derivative (typo, synonym, ngram, split).
type MatchKind int

const (
	MatchExact MatchKind = iota
	MatchDerivative
)

// MatchSpan is one matched token run in a document field.
type MatchSpan struct {
	Start, End int // token index range, inclusive
	QueryTerm  int // index into the original flat term sequence
	Kind       MatchKind
}

// Matcher builds MatchSpans for a tokenized field against the set of
// words a query graph's surviving paths resolved.
type Matcher struct {
	// byWord maps every matchable surface word to the query term index(es)
	// it can satisfy, deduplicated per (word, termIdx) — the prefix->word
	// alias pass registers the same word/term pair twice, once as a
	// Prefix original and once as its Word alias, and both must collapse
	// to a single exact match.
	byWord map[string]map[int]MatchKind
}

// NewMatcher builds a Matcher from the term sequence a QueryParser
// produced and the QueryGraph built over it: every Word/Prefix/Phrase
// surface form maps to its own term index as an exact match, and every
// derivative node's surface forms map back to Derivative.OrigTermIdx's
// originating term's index in the flat term sequence.
func NewMatcher(terms []query.Term, g *query.QueryGraph) *Matcher {
	m := &Matcher{byWord: map[string]map[int]MatchKind{}}

	posToIdx := make(map[query.Position]int, len(terms))
	for i, t := range terms {
		posToIdx[t.Position] = i
	}

	for _, n := range g.Nodes {
		if n.Kind != query.NodeTerm {
			continue
		}
		t := n.Term
		if t.Kind != query.KindDerivative {
			idx, ok := posToIdx[t.Position]
			if !ok {
				idx = -1
			}
			m.addExact(t, idx)
			continue
		}
		origin := findOriginTermIndex(g, posToIdx, t.Derivative)
		m.addDerivative(t.Derivative, origin)
	}
	return m
}

// register records word as matchable for termIdx, preferring Exact over
// Derivative if both passes register the same (word, termIdx) pair.
func (m *Matcher) register(word string, termIdx int, kind MatchKind) {
	key := normalize(word)
	if m.byWord[key] == nil {
		m.byWord[key] = map[int]MatchKind{}
	}
	if existing, ok := m.byWord[key][termIdx]; ok && existing == MatchExact {
		return
	}
	m.byWord[key][termIdx] = kind
}

// addExact registers every surface word of a non-derivative term as an
// exact match for termIdx.
func (m *Matcher) addExact(t query.Term, termIdx int) {
	if termIdx < 0 {
		return
	}
	switch t.Original.Kind {
	case query.OriginalWord, query.OriginalPrefix:
		m.register(t.Original.Word, termIdx, MatchExact)
	case query.OriginalPhrase:
		for _, w := range t.Original.Phrase {
			m.register(w, termIdx, MatchExact)
		}
	}
}

func (m *Matcher) addDerivative(d query.Derivative, termIdx int) {
	if termIdx < 0 {
		return
	}
	register := func(w string) {
		m.register(w, termIdx, MatchDerivative)
	}
	switch d.Kind {
	case query.DerivNgram:
		register(d.Concat)
	case query.DerivTypo, query.DerivPrefixTypo, query.DerivSynonym:
		for _, w := range d.Words {
			register(w)
		}
	case query.DerivSynonymPhrase:
		for _, phrase := range d.Phrases {
			for _, w := range phrase {
				register(w)
			}
		}
	case query.DerivSplit:
		for _, p := range d.Splits {
			register(p.Left)
			register(p.Right)
		}
	}
}

// findOriginTermIndex resolves a derivative's OrigTermIdx (a graph node
// id, possibly itself an alias/ngram node) back to an index into the
// original flat term sequence, by looking up the referenced node's own
// Position — every alias and single-origin derivative copies its
// origin's Position unchanged, and n-gram derivatives store the last
// original term node's id directly, so this lookup is always exact.
func findOriginTermIndex(g *query.QueryGraph, posToIdx map[query.Position]int, d query.Derivative) int {
	if d.OrigTermIdx < 0 || d.OrigTermIdx >= len(g.Nodes) {
		return -1
	}
	pos := g.Nodes[d.OrigTermIdx].Term.Position
	if idx, ok := posToIdx[pos]; ok {
		return idx
	}
	return -1
}

func normalize(w string) string { return strings.ToLower(w) }

// Locate scans tokens (as produced by analyzer.Analyze, filtered down
// to TokenWord entries) and returns every matched span.
func (m *Matcher) Locate(tokens []analyzer.Token) []MatchSpan {
	var spans []MatchSpan
	wordIdx := -1
	for _, tok := range tokens {
		if tok.Kind != analyzer.TokenWord {
			continue
		}
		wordIdx++
		origins, ok := m.byWord[normalize(tok.Word)]
		if !ok {
			continue
		}
		for termIdx, kind := range origins {
			spans = append(spans, MatchSpan{Start: wordIdx, End: wordIdx, QueryTerm: termIdx, Kind: kind})
		}
	}
	return spans
}
