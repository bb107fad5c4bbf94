package query

import (
	"fmt"
	"strconv"
	"strings"
)

// OriginalKind distinguishes the three shapes an un-derived term can take.
type OriginalKind int

const (
	OriginalWord OriginalKind = iota
	OriginalPrefix
	OriginalPhrase
)

// Original is a non-derivative term payload: a single word, a prefix, or
// a phrase (sequence of words that must appear consecutively).
type Original struct {
	Kind   OriginalKind
	Word   string   // set for OriginalWord / OriginalPrefix
	Phrase []string // set for OriginalPhrase
}

func Word(s string) Original   { return Original{Kind: OriginalWord, Word: s} }
func Prefix(s string) Original { return Original{Kind: OriginalPrefix, Word: s} }
func Phrase(words []string) Original {
	return Original{Kind: OriginalPhrase, Phrase: words}
}

func (o Original) String() string {
	switch o.Kind {
	case OriginalWord:
		return fmt.Sprintf("Word(%q)", o.Word)
	case OriginalPrefix:
		return fmt.Sprintf("Prefix(%q)", o.Word)
	case OriginalPhrase:
		return fmt.Sprintf("Phrase(%v)", o.Phrase)
	}
	return "?"
}

// DerivativeKind enumerates the alternate-reading shapes spec.md §3 defines.
type DerivativeKind int

const (
	DerivNgram DerivativeKind = iota
	DerivSynonym
	DerivSynonymPhrase
	DerivTypo
	DerivPrefixTypo
	DerivSplit
)

// SplitPair is one (left, right) candidate from the split pass.
type SplitPair struct{ Left, Right string }

// Derivative is the payload of a Derivative(d, orig_term_idx) term.
type Derivative struct {
	Kind DerivativeKind

	// Ngram
	Concat string
	N      uint8

	// Synonym / Typo / PrefixTypo: a flat word list
	Words []string
	// SynonymPhrase: a list of phrases, each a word list
	Phrases [][]string
	// Typo / PrefixTypo: number of typos (1 or 2) the bucket represents
	NTypos uint8
	// Split: candidate split points
	Splits []SplitPair

	// OrigTermIdx is the graph node id this was derived from — a
	// relation, never ownership (spec.md §3). For DerivNgram it is the
	// id of the last term node in the n-gram's window.
	OrigTermIdx int
}

// TermKind distinguishes Exact/Normal originals from Derivative terms.
type TermKind int

const (
	KindNormal TermKind = iota
	KindExact
	KindDerivative
)

// Position is an inclusive query-word span [Start, End].
type Position struct{ Start, End int }

// Words returns how many query words this span contributes to
// word/words-counting rules: End - Start + 1 (spec.md §3 invariant).
func (p Position) Words() int { return p.End - p.Start + 1 }

// Term is one element of the flat sequence the QueryParser emits, and
// the payload every QueryGraph node of kind Term/Derivative node carries.
type Term struct {
	Kind       TermKind
	Original   Original   // valid when Kind != KindDerivative
	Derivative Derivative // valid when Kind == KindDerivative
	Position   Position
	IsNegative bool
}

// IsDerivative reports whether t is a Derivative term.
func (t Term) IsDerivative() bool { return t.Kind == KindDerivative }

// OriginTermIndex returns the index of the term this one derives from,
// or -1 if t is not a derivative.
func (t Term) OriginTermIndex() int {
	if t.Kind != KindDerivative {
		return -1
	}
	return t.Derivative.OrigTermIdx
}

// cacheKey returns a deterministic string identifying t's resolvable
// content for QueryCache, per spec.md §4.2's "QueryCache memoizes
// graph-level derived results". Position and IsNegative do not affect
// what Resolve returns, so they are excluded: two term nodes that only
// differ by where they sit in the query still share one cache entry.
func (t Term) cacheKey() string {
	var b strings.Builder
	if t.Kind == KindDerivative {
		b.WriteString("D")
		writeDerivativeKey(&b, t.Derivative)
		return b.String()
	}
	writeOriginalKey(&b, t.Original)
	return b.String()
}

func writeOriginalKey(b *strings.Builder, o Original) {
	b.WriteString(strconv.Itoa(int(o.Kind)))
	b.WriteByte(':')
	switch o.Kind {
	case OriginalWord, OriginalPrefix:
		b.WriteString(o.Word)
	case OriginalPhrase:
		writeWordList(b, o.Phrase)
	}
}

func writeDerivativeKey(b *strings.Builder, d Derivative) {
	b.WriteString(strconv.Itoa(int(d.Kind)))
	b.WriteByte(':')
	switch d.Kind {
	case DerivNgram:
		b.WriteString(d.Concat)
	case DerivSynonym, DerivTypo, DerivPrefixTypo:
		writeWordList(b, d.Words)
	case DerivSynonymPhrase:
		for _, phrase := range d.Phrases {
			writeWordList(b, phrase)
			b.WriteByte(';')
		}
	case DerivSplit:
		for _, pair := range d.Splits {
			b.WriteString(pair.Left)
			b.WriteByte('/')
			b.WriteString(pair.Right)
			b.WriteByte(';')
		}
	}
}

func writeWordList(b *strings.Builder, words []string) {
	for i, w := range words {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(w)
	}
}
