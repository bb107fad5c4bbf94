package query

import "github.com/RoaringBitmap/roaring/v2"

// TermResolver is implemented by a Context wrapper that memoizes
// Resolve's term-to-bitmap mapping (QueryCache). Resolve checks for it
// so installing one as a rule's ctx is the only wiring a caller needs.
type TermResolver interface {
	ResolveTerm(t Term) (*roaring.Bitmap, error)
}

// PairResolver is implemented by a Context wrapper that memoizes
// ResolvePairProximity's pair-to-bitmap mapping (QueryCache).
type PairResolver interface {
	ResolvePair(left, right Term, cost uint8) (*roaring.Bitmap, error)
}

// Resolve maps a single Term to the bitmap of documents it matches, per
// spec.md §4.3. Derivative terms fan out over their components and
// union the results; Phrase terms additionally enforce a sliding
// 3-word proximity window between every pair of phrase words.
func Resolve(ctx Context, t Term) (*roaring.Bitmap, error) {
	if tr, ok := ctx.(TermResolver); ok {
		return tr.ResolveTerm(t)
	}
	return resolveUncached(ctx, t)
}

func resolveUncached(ctx Context, t Term) (*roaring.Bitmap, error) {
	if t.Kind == KindDerivative {
		return resolveDerivative(ctx, t.Derivative)
	}
	switch t.Original.Kind {
	case OriginalWord:
		return ctx.WordDocids(t.Original.Word)
	case OriginalPrefix:
		return ctx.WordPrefixDocids(t.Original.Word)
	case OriginalPhrase:
		return resolvePhrase(ctx, t.Original.Phrase)
	}
	return roaring.New(), nil
}

const phraseWindow = 3

// resolvePhrase intersects every word's docids with a sliding
// proximity check over every pair within a 3-word window; any missing
// pair empties the result.
func resolvePhrase(ctx Context, words []string) (*roaring.Bitmap, error) {
	if len(words) == 0 {
		return roaring.New(), nil
	}
	result, err := ctx.WordDocids(words[0])
	if err != nil {
		return nil, err
	}
	result = result.Clone()

	for i := 1; i < len(words); i++ {
		wordBits, err := ctx.WordDocids(words[i])
		if err != nil {
			return nil, err
		}
		result.And(wordBits)
		if result.IsEmpty() {
			return result, nil
		}

		windowStart := i - (phraseWindow - 1)
		if windowStart < 0 {
			windowStart = 0
		}
		for j := windowStart; j < i; j++ {
			proximity := uint8(i - j)
			pairBits, err := ctx.WordPairProximityDocids(words[j], words[i], proximity)
			if err != nil {
				return nil, err
			}
			result.And(pairBits)
			if result.IsEmpty() {
				return result, nil
			}
		}
	}
	return result, nil
}

func resolveDerivative(ctx Context, d Derivative) (*roaring.Bitmap, error) {
	out := roaring.New()
	switch d.Kind {
	case DerivNgram:
		bits, err := ctx.WordDocids(d.Concat)
		if err != nil {
			return nil, err
		}
		out.Or(bits)
	case DerivSplit:
		for _, pair := range d.Splits {
			bits, err := ctx.WordPairProximityDocids(pair.Left, pair.Right, 1)
			if err != nil {
				return nil, err
			}
			out.Or(bits)
		}
	case DerivTypo, DerivPrefixTypo, DerivSynonym:
		resolveFn := ctx.WordDocids
		if d.Kind == DerivPrefixTypo {
			resolveFn = ctx.WordPrefixDocids
		}
		for _, w := range d.Words {
			bits, err := resolveFn(w)
			if err != nil {
				return nil, err
			}
			out.Or(bits)
		}
	case DerivSynonymPhrase:
		for _, phrase := range d.Phrases {
			bits, err := resolvePhrase(ctx, phrase)
			if err != nil {
				return nil, err
			}
			out.Or(bits)
		}
	}
	return out, nil
}

// ResolvePairProximity maps an ordered pair of adjacent terms at
// proximity cost c to a bitmap, per spec.md §4.3: the forward window
// (c) union the backward window (c+1), each intersected with the
// originating terms' own resolved bitmaps when those terms are phrases
// or splits (whose last/first word does not by itself stand for the
// whole term).
func ResolvePairProximity(ctx Context, precision ProximityPrecision, left, right Term, cost uint8) (*roaring.Bitmap, error) {
	if pr, ok := ctx.(PairResolver); ok {
		return pr.ResolvePair(left, right, cost)
	}
	return resolvePairProximityUncached(ctx, precision, left, right, cost)
}

func resolvePairProximityUncached(ctx Context, precision ProximityPrecision, left, right Term, cost uint8) (*roaring.Bitmap, error) {
	leftWords, err := pairEndpoints(left, true)
	if err != nil {
		return nil, err
	}
	rightWords, err := pairEndpoints(right, false)
	if err != nil {
		return nil, err
	}

	out := roaring.New()
	for _, lw := range leftWords {
		for _, rw := range rightWords {
			bits, err := pairProximityBits(ctx, precision, lw, rw, cost)
			if err != nil {
				return nil, err
			}
			out.Or(bits)
		}
	}

	if needsOwnBitmapIntersect(left) {
		ownBits, err := Resolve(ctx, left)
		if err != nil {
			return nil, err
		}
		out.And(ownBits)
	}
	if needsOwnBitmapIntersect(right) {
		ownBits, err := Resolve(ctx, right)
		if err != nil {
			return nil, err
		}
		out.And(ownBits)
	}
	return out, nil
}

func pairProximityBits(ctx Context, precision ProximityPrecision, w1, w2 string, cost uint8) (*roaring.Bitmap, error) {
	if precision == ByAttribute {
		return sameAttributeDocids(ctx, w1, w2)
	}
	forward, err := ctx.WordPairProximityDocids(w1, w2, cost)
	if err != nil {
		return nil, err
	}
	out := forward.Clone()
	if cost < MaxProximity {
		backward, err := ctx.WordPairProximityDocids(w1, w2, cost+1)
		if err != nil {
			return nil, err
		}
		out.Or(backward)
	}
	return out, nil
}

// sameAttributeDocids implements the ByAttribute precision mode: the
// proximity collapses to {0 = same attribute, infinite = different},
// computed as the union, over every field, of documents containing
// both words in that field.
func sameAttributeDocids(ctx Context, w1, w2 string) (*roaring.Bitmap, error) {
	out := roaring.New()
	for _, fid := range attributeFieldIDs(ctx) {
		a, err := ctx.WordFieldDocids(w1, fid)
		if err != nil {
			return nil, err
		}
		b, err := ctx.WordFieldDocids(w2, fid)
		if err != nil {
			return nil, err
		}
		a = a.Clone()
		a.And(b)
		out.Or(a)
	}
	return out, nil
}

// AttributeFieldSource is implemented by a Context wrapper that knows
// the ordered searchable-field id list ByAttribute proximity resolves
// against (QueryCache, installed per request by the search
// orchestrator, which knows the searchable-attributes settings list).
// A Context that doesn't implement it resolves ByAttribute proximity
// against no fields at all.
type AttributeFieldSource interface {
	AttributeFieldIDs() []uint16
}

func attributeFieldIDs(ctx Context) []uint16 {
	if s, ok := ctx.(AttributeFieldSource); ok {
		return s.AttributeFieldIDs()
	}
	return nil
}

func pairEndpoints(t Term, wantLast bool) ([]string, error) {
	if t.Kind == KindDerivative {
		switch t.Derivative.Kind {
		case DerivSplit:
			var out []string
			for _, p := range t.Derivative.Splits {
				if wantLast {
					out = append(out, p.Right)
				} else {
					out = append(out, p.Left)
				}
			}
			return out, nil
		case DerivNgram:
			return []string{t.Derivative.Concat}, nil
		case DerivTypo, DerivPrefixTypo, DerivSynonym:
			return t.Derivative.Words, nil
		case DerivSynonymPhrase:
			var out []string
			for _, phrase := range t.Derivative.Phrases {
				if len(phrase) == 0 {
					continue
				}
				if wantLast {
					out = append(out, phrase[len(phrase)-1])
				} else {
					out = append(out, phrase[0])
				}
			}
			return out, nil
		}
	}
	switch t.Original.Kind {
	case OriginalWord, OriginalPrefix:
		return []string{t.Original.Word}, nil
	case OriginalPhrase:
		if len(t.Original.Phrase) == 0 {
			return nil, nil
		}
		if wantLast {
			return []string{t.Original.Phrase[len(t.Original.Phrase)-1]}, nil
		}
		return []string{t.Original.Phrase[0]}, nil
	}
	return nil, nil
}

// needsOwnBitmapIntersect reports whether t's endpoint word alone does
// not stand for the whole term's match set (phrases and splits), per
// spec.md §4.3 ("intersect with the phrase's/split's own bitmap").
func needsOwnBitmapIntersect(t Term) bool {
	if t.Kind == KindDerivative {
		return t.Derivative.Kind == DerivSplit || t.Derivative.Kind == DerivSynonymPhrase
	}
	return t.Original.Kind == OriginalPhrase
}
