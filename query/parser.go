package query

import "github.com/kestrelsearch/kestrel/analyzer"

// maxTokens caps the analyzer stream the parser will consume; excess is
// truncated silently per spec.md §4.1.
const maxTokens = 100

// phraseBuilder accumulates consecutive words inside a phrase quote,
// mirroring original_source's PhraseBuilder.
type phraseBuilder struct {
	words      []string
	firstPos   int
	lastPos    int
	isNegative bool
}

func (p *phraseBuilder) pushWord(word string, pos int) {
	if len(p.words) == 0 {
		p.firstPos = pos
	}
	p.lastPos = pos
	p.words = append(p.words, word)
}

func (p *phraseBuilder) build() (Term, bool) {
	if len(p.words) == 0 {
		return Term{}, false
	}
	return Term{
		Kind:       KindNormal,
		Original:   Phrase(p.words),
		Position:   Position{Start: p.firstPos, End: p.lastPos},
		IsNegative: p.isNegative,
	}, true
}

// ParseTerms consumes an analyzer token stream and emits the flat
// sequence of Terms per spec.md §4.1's rules: phrase accumulation, Hard
// separators advancing position, Negative binding to the next term, the
// last-word Prefix rule, and the Exact flag producing Exact terms.
func ParseTerms(tokens []analyzer.Token) []Term {
	if len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}

	var terms []Term
	var phrase *phraseBuilder
	negativeNext := false
	position := -1

	for i, tok := range tokens {
		isNegative := negativeNext
		negativeNext = false

		switch tok.Kind {
		case analyzer.TokenWord:
			position++
			if phrase != nil {
				phrase.pushWord(tok.Word, position)
				continue
			}

			isLast := i == len(tokens)-1
			var orig Original
			if isLast && !tok.Flags.Exact {
				orig = Prefix(tok.Word)
			} else {
				orig = Word(tok.Word)
			}

			kind := KindNormal
			if tok.Flags.Exact {
				kind = KindExact
			}
			terms = append(terms, Term{
				Kind:       kind,
				Original:   orig,
				Position:   Position{Start: position, End: position},
				IsNegative: isNegative,
			})

		case analyzer.TokenSeparator:
			switch tok.Separator {
			case analyzer.SeparatorSoft:
				// no-op
			case analyzer.SeparatorHard:
				position += 7 // combined with the next word's +1, a full 8-position gap
				if phrase != nil {
					wasNegative := phrase.isNegative
					if term, ok := phrase.build(); ok {
						terms = append(terms, term)
					}
					phrase = &phraseBuilder{isNegative: wasNegative}
				}
			case analyzer.SeparatorPhraseQuote:
				if phrase != nil {
					if term, ok := phrase.build(); ok {
						terms = append(terms, term)
					}
					phrase = nil
				} else {
					phrase = &phraseBuilder{isNegative: isNegative}
				}
			case analyzer.SeparatorNegative:
				if phrase == nil {
					negativeNext = true
				}
			}
		}
	}

	if phrase != nil {
		if term, ok := phrase.build(); ok {
			terms = append(terms, term)
		}
	}

	return terms
}
