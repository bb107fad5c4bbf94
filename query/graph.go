package query

import (
	"strings"

	"github.com/kestrelsearch/kestrel/bitset"
)

// NodeKind distinguishes the three shapes a GraphNode can take.
type NodeKind int

const (
	NodeStart NodeKind = iota
	NodeTerm
	NodeEnd
)

// GraphNode is one element of the query graph's node arena. Node ids are
// indices into QueryGraph.Nodes (spec.md §9: "arena + index, never
// owning references between nodes").
type GraphNode struct {
	Kind         NodeKind
	Term         Term // valid when Kind == NodeTerm
	Predecessors *bitset.BitSet
	Successors   *bitset.BitSet
}

// QueryGraph is a DAG with a unique Root and End; every root-to-end path
// is a valid reading of the user's query (spec.md §3).
type QueryGraph struct {
	Root           uint32
	End            uint32
	Nodes          []GraphNode
	QueryWordCount int
}

func (g *QueryGraph) addNode(n GraphNode) uint32 {
	id := uint32(len(g.Nodes))
	g.Nodes = append(g.Nodes, n)
	return id
}

func (g *QueryGraph) link(from, to uint32) {
	g.Nodes[from].Successors.Insert(to)
	g.Nodes[to].Predecessors.Insert(from)
}

// SynonymMap keys by space-joined lowercase words; values are alternate
// forms, each itself a list of words (len 1 for a single-word synonym,
// >1 for a multi-word synonym phrase), per spec.md §6.
type SynonymMap map[string][][]string

// SplitConfig mirrors spec.md §6's split-join-config.
type SplitConfig struct {
	SplitTakeN int // default 4
	NgramMax   int // default 3
}

func DefaultSplitConfig() SplitConfig { return SplitConfig{SplitTakeN: 4, NgramMax: 3} }

// BuildConfig bundles everything Build needs beyond the flat term list.
type BuildConfig struct {
	Synonyms SynonymMap
	Typo     TypoConfig
	Split    SplitConfig
}

// Build runs the six construction passes from spec.md §4.2 over a flat
// term sequence and returns the resulting query graph.
func Build(ctx Context, terms []Term, cfg BuildConfig) (*QueryGraph, error) {
	g := &QueryGraph{QueryWordCount: len(terms)}

	start := g.addNode(GraphNode{Kind: NodeStart, Predecessors: bitset.New(0), Successors: bitset.New(0)})
	g.Root = start

	// Pass 1: flat chain Start -> term_1 -> ... -> term_k. End is only
	// appended once every derivation pass has run, so that every node
	// the passes below clone predecessors/successors from still has an
	// accurate (End-less) successor set at clone time, and End itself
	// ends up last in insertion order — keeping "successors are always
	// nodes after the node in insertion order" true (spec.md §3).
	origIDs := make([]uint32, len(terms))
	prev := start
	for i, t := range terms {
		id := g.addNode(GraphNode{Kind: NodeTerm, Term: t, Predecessors: bitset.New(0), Successors: bitset.New(0)})
		origIDs[i] = id
		g.link(prev, id)
		prev = id
	}

	if err := addNgrams(g, origIDs, cfg.Split.NgramMax); err != nil {
		return nil, err
	}
	addPrefixWordAlias(g, origIDs)
	if err := addTypos(g, ctx, origIDs, cfg.Typo); err != nil {
		return nil, err
	}
	addSynonyms(g, origIDs, cfg.Synonyms)
	if err := addSplits(g, ctx, origIDs, cfg.Split); err != nil {
		return nil, err
	}

	// Append End and link every current sink node (successors still
	// empty — every reading of the final term span, plus Start if the
	// query was empty) to it.
	end := g.addNode(GraphNode{Kind: NodeEnd, Predecessors: bitset.New(0), Successors: bitset.New(0)})
	g.End = end
	for id := 0; id < int(end); id++ {
		if g.Nodes[id].Successors.IsEmpty() {
			g.link(uint32(id), end)
		}
	}

	return g, nil
}

func isWordlike(t Term) bool {
	if t.Kind == KindDerivative {
		return false
	}
	return t.Original.Kind == OriginalWord || t.Original.Kind == OriginalPrefix
}

// Pass 2: n-grams. For each window of n consecutive original term nodes
// whose kinds are Word|Prefix, emit one Derivative(Ngram) node.
func addNgrams(g *QueryGraph, origIDs []uint32, ngramMax int) error {
	if ngramMax < 2 {
		return nil
	}
	for n := 2; n <= ngramMax; n++ {
		for start := 0; start+n <= len(origIDs); start++ {
			words := make([]string, 0, n)
			ok := true
			for k := 0; k < n; k++ {
				term := g.Nodes[origIDs[start+k]].Term
				if !isWordlike(term) {
					ok = false
					break
				}
				words = append(words, wordOf(term.Original))
			}
			if !ok {
				continue // stops at the first non-word in the window
			}

			firstID := origIDs[start]
			lastID := origIDs[start+n-1]

			derivTerm := Term{
				Kind: KindDerivative,
				Derivative: Derivative{
					Kind:        DerivNgram,
					Concat:      strings.Join(words, ""),
					N:           uint8(n),
					OrigTermIdx: int(lastID),
				},
				Position: Position{
					Start: g.Nodes[firstID].Term.Position.Start,
					End:   g.Nodes[lastID].Term.Position.End,
				},
			}
			id := g.addNode(GraphNode{Kind: NodeTerm, Term: derivTerm, Predecessors: g.Nodes[firstID].Predecessors.Clone(), Successors: g.Nodes[lastID].Successors.Clone()})
			linkToNeighbors(g, id)
		}
	}
	return nil
}

func wordOf(o Original) string {
	if o.Kind == OriginalPhrase {
		return strings.Join(o.Phrase, "")
	}
	return o.Word
}

// linkToNeighbors registers node id as a successor/predecessor of every
// node already listed in its own Predecessors/Successors sets, so a
// newly appended derivative becomes a real parallel edge rather than a
// dangling node.
func linkToNeighbors(g *QueryGraph, id uint32) {
	g.Nodes[id].Predecessors.ForEach(func(p uint32) bool {
		g.Nodes[p].Successors.Insert(id)
		return true
	})
	g.Nodes[id].Successors.ForEach(func(s uint32) bool {
		g.Nodes[s].Predecessors.Insert(id)
		return true
	})
}

// Pass 3: every Prefix(s) term also gets a parallel Word(s) reading —
// the prefix may match as an exact short word.
func addPrefixWordAlias(g *QueryGraph, origIDs []uint32) {
	for _, id := range origIDs {
		term := g.Nodes[id].Term
		if term.Kind == KindDerivative || term.Original.Kind != OriginalPrefix {
			continue
		}
		alias := term
		alias.Original = Word(term.Original.Word)
		newID := g.addNode(GraphNode{Kind: NodeTerm, Term: alias, Predecessors: g.Nodes[id].Predecessors.Clone(), Successors: g.Nodes[id].Successors.Clone()})
		linkToNeighbors(g, newID)
	}
}

// Pass 4: typo derivations via Levenshtein automaton streaming against
// the vocabulary FST.
func addTypos(g *QueryGraph, ctx Context, origIDs []uint32, cfg TypoConfig) error {
	vocab, err := ctx.Vocabulary()
	if err != nil {
		return err
	}
	fst, err := vocabularyFST(vocab)
	if err != nil {
		return err
	}

	// addTypos considers every Word/Prefix node present before this pass
	// runs: the original term nodes plus the prefix->word aliases pass 3
	// added. Snapshot that id range so derivative nodes appended below
	// are not themselves re-processed.
	snapshotLen := len(g.Nodes)
	var candidateIDs []uint32
	for id := 0; id < snapshotLen; id++ {
		term := g.Nodes[id].Term
		if g.Nodes[id].Kind != NodeTerm || term.Kind == KindDerivative {
			continue
		}
		if term.Original.Kind == OriginalWord || term.Original.Kind == OriginalPrefix {
			candidateIDs = append(candidateIDs, uint32(id))
		}
	}

	for _, id := range candidateIDs {
		term := g.Nodes[id].Term
		if term.Kind == KindExact || term.Kind == KindDerivative {
			continue // exact terms skip typo/synonym derivation
		}
		if term.Original.Kind == OriginalPhrase {
			continue
		}
		word := term.Original.Word
		t := cfg.TyposAllowed(word)
		if t == 0 {
			continue
		}

		const maxTypoHits = 32 // fetch one past the limit so overflow is detectable
		hits, err := fuzzyMatches(fst, word, t, maxTypoHits+1)
		if err != nil {
			return err
		}
		if len(hits) > maxTypoHits {
			continue // too many hits, skip typo derivation for this term
		}

		buckets := map[uint8][]string{}
		for _, h := range hits {
			bucket := uint8(h.Distance)
			if bucket < 1 {
				bucket = 1
			}
			if int(bucket) > t {
				continue
			}
			buckets[bucket] = append(buckets[bucket], h.Word)
		}

		isPrefix := term.Original.Kind == OriginalPrefix
		derivKind := DerivTypo
		if isPrefix {
			derivKind = DerivPrefixTypo
		}
		for bucket := uint8(1); bucket <= 2; bucket++ {
			words, ok := buckets[bucket]
			if !ok || len(words) == 0 {
				continue
			}
			derivTerm := Term{
				Kind: KindDerivative,
				Derivative: Derivative{
					Kind:        derivKind,
					Words:       words,
					NTypos:      bucket,
					OrigTermIdx: int(id),
				},
				Position: term.Position,
			}
			newID := g.addNode(GraphNode{Kind: NodeTerm, Term: derivTerm, Predecessors: g.Nodes[id].Predecessors.Clone(), Successors: g.Nodes[id].Successors.Clone()})
			linkToNeighbors(g, newID)
		}
	}
	return nil
}

// Pass 5: synonyms, looked up by single word and by phrase key.
func addSynonyms(g *QueryGraph, origIDs []uint32, synonyms SynonymMap) {
	if len(synonyms) == 0 {
		return
	}
	for _, id := range origIDs {
		term := g.Nodes[id].Term
		if term.Kind == KindExact || term.Kind == KindDerivative {
			continue
		}
		key := strings.ToLower(term.Original.Word)
		if term.Original.Kind == OriginalPhrase {
			key = strings.ToLower(strings.Join(term.Original.Phrase, " "))
		}
		alts, ok := synonyms[key]
		if !ok {
			continue
		}

		var singleWords []string
		var phrases [][]string
		for _, form := range alts {
			if len(form) == 1 {
				singleWords = append(singleWords, form[0])
			} else if len(form) > 1 {
				phrases = append(phrases, form)
			}
		}

		if len(singleWords) > 0 {
			derivTerm := Term{
				Kind: KindDerivative,
				Derivative: Derivative{
					Kind:        DerivSynonym,
					Words:       singleWords,
					OrigTermIdx: int(id),
				},
				Position: term.Position,
			}
			newID := g.addNode(GraphNode{Kind: NodeTerm, Term: derivTerm, Predecessors: g.Nodes[id].Predecessors.Clone(), Successors: g.Nodes[id].Successors.Clone()})
			linkToNeighbors(g, newID)
		}
		if len(phrases) > 0 {
			derivTerm := Term{
				Kind: KindDerivative,
				Derivative: Derivative{
					Kind:        DerivSynonymPhrase,
					Phrases:     phrases,
					OrigTermIdx: int(id),
				},
				Position: term.Position,
			}
			newID := g.addNode(GraphNode{Kind: NodeTerm, Term: derivTerm, Predecessors: g.Nodes[id].Predecessors.Clone(), Successors: g.Nodes[id].Successors.Clone()})
			linkToNeighbors(g, newID)
		}
	}
}

// Pass 6: splits. For each Word(s) try every split point, score by
// word-pair frequency at proximity 1, keep the top SplitTakeN.
func addSplits(g *QueryGraph, ctx Context, origIDs []uint32, cfg SplitConfig) error {
	takeN := cfg.SplitTakeN
	if takeN <= 0 {
		takeN = 4
	}
	for _, id := range origIDs {
		term := g.Nodes[id].Term
		if term.Kind == KindExact || term.Kind == KindDerivative {
			continue
		}
		if term.Original.Kind != OriginalWord {
			continue
		}
		word := term.Original.Word
		runes := []rune(word)
		if len(runes) < 2 {
			continue
		}

		type scoredSplit struct {
			pair  SplitPair
			score uint64
		}
		var candidates []scoredSplit
		for i := 1; i < len(runes); i++ {
			left, right := string(runes[:i]), string(runes[i:])
			freq, err := ctx.WordPairFrequency(left, right, 1)
			if err != nil {
				return err
			}
			if freq == 0 {
				continue
			}
			candidates = append(candidates, scoredSplit{pair: SplitPair{Left: left, Right: right}, score: freq})
		}
		if len(candidates) == 0 {
			continue
		}
		for i := 1; i < len(candidates); i++ {
			j := i
			for j > 0 && candidates[j-1].score < candidates[j].score {
				candidates[j-1], candidates[j] = candidates[j], candidates[j-1]
				j--
			}
		}
		if len(candidates) > takeN {
			candidates = candidates[:takeN]
		}
		pairs := make([]SplitPair, len(candidates))
		for i, c := range candidates {
			pairs[i] = c.pair
		}

		derivTerm := Term{
			Kind: KindDerivative,
			Derivative: Derivative{
				Kind:        DerivSplit,
				Splits:      pairs,
				OrigTermIdx: int(id),
			},
			Position: term.Position,
		}
		newID := g.addNode(GraphNode{Kind: NodeTerm, Term: derivTerm, Predecessors: g.Nodes[id].Predecessors.Clone(), Successors: g.Nodes[id].Successors.Clone()})
		linkToNeighbors(g, newID)
	}
	return nil
}
