package store

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kestrelsearch/kestrel/query"
)

// Txn is a read-only transaction bound to one snapshot. It satisfies
// query.Context. Per spec.md §5, a Txn pins its snapshot until Close is
// called and is never shared across goroutines.
type Txn struct {
	store *Store
	snap  *snapshot
}

// Close releases the read lock taken by Store.Txn.
func (t *Txn) Close() {
	t.store.mu.RUnlock()
}

func emptyBitmap() *roaring.Bitmap { return roaring.New() }

func (t *Txn) WordDocids(word string) (*roaring.Bitmap, error) {
	if bm, ok := t.snap.WordDocids[word]; ok {
		return bm.Clone(), nil
	}
	return emptyBitmap(), nil
}

func (t *Txn) WordPrefixDocids(prefix string) (*roaring.Bitmap, error) {
	if bm, ok := t.snap.WordPrefixDocids[prefix]; ok {
		return bm.Clone(), nil
	}
	// Fall back to scanning the vocabulary-derived word index: a real
	// store precomputes this; our reference store only precomputes
	// prefixes that were registered by the builder, so union on demand
	// for anything shorter than the indexed prefix length.
	out := roaring.New()
	for word, bm := range t.snap.WordDocids {
		if len(word) >= len(prefix) && word[:len(prefix)] == prefix {
			out.Or(bm)
		}
	}
	return out, nil
}

func (t *Txn) WordFieldDocids(word string, fid uint16) (*roaring.Bitmap, error) {
	if bm, ok := t.snap.WordFieldDocids[wordField{Word: word, Fid: fid}]; ok {
		return bm.Clone(), nil
	}
	return emptyBitmap(), nil
}

func (t *Txn) WordPositionDocids(word string, pos uint32) (*roaring.Bitmap, error) {
	if bm, ok := t.snap.WordPositionDocids[wordPosition{Word: word, Pos: pos}]; ok {
		return bm.Clone(), nil
	}
	return emptyBitmap(), nil
}

func (t *Txn) WordPairProximityDocids(w1, w2 string, proximity uint8) (*roaring.Bitmap, error) {
	if bm, ok := t.snap.WordPairProximityDocids[wordPairProximity{Proximity: proximity, W1: w1, W2: w2}]; ok {
		return bm.Clone(), nil
	}
	return emptyBitmap(), nil
}

func (t *Txn) ExistsDocids(fid uint16) (*roaring.Bitmap, error) {
	if bm, ok := t.snap.ExistsDocids[fid]; ok {
		return bm.Clone(), nil
	}
	return emptyBitmap(), nil
}

func (t *Txn) IsNullDocids(fid uint16) (*roaring.Bitmap, error) {
	if bm, ok := t.snap.IsNullDocids[fid]; ok {
		return bm.Clone(), nil
	}
	return emptyBitmap(), nil
}

func (t *Txn) IsEmptyDocids(fid uint16) (*roaring.Bitmap, error) {
	if bm, ok := t.snap.IsEmptyDocids[fid]; ok {
		return bm.Clone(), nil
	}
	return emptyBitmap(), nil
}

func (t *Txn) FacetStringDocids(fid uint16, value string) (*roaring.Bitmap, error) {
	if bm, ok := t.snap.FacetStringLevel0[facetKey{Fid: fid, Value: value}]; ok {
		return bm.Clone(), nil
	}
	return emptyBitmap(), nil
}

func (t *Txn) FacetStringValues(fid uint16) ([]string, error) {
	var out []string
	for key := range t.snap.FacetStringLevel0 {
		if key.Fid == fid {
			out = append(out, key.Value)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (t *Txn) FacetNumericLevels(fid uint16) ([]query.NumericLevel, error) {
	levels, ok := t.snap.FacetNumericLevels[fid]
	if !ok {
		return nil, nil
	}
	out := make([]query.NumericLevel, len(levels))
	for i, l := range levels {
		out[i] = query.NumericLevel{LeftBound: l.LeftBound, ChildCount: l.ChildCount, Bitmap: l.Bitmap.Clone()}
	}
	return out, nil
}

func (t *Txn) Universe() (*roaring.Bitmap, error) {
	return t.snap.Universe.Clone(), nil
}

func (t *Txn) Vocabulary() ([]string, error) {
	out := make([]string, len(t.snap.Vocabulary))
	copy(out, t.snap.Vocabulary)
	return out, nil
}

func (t *Txn) WordPairFrequency(left, right string, proximity uint8) (uint64, error) {
	bm, ok := t.snap.WordPairProximityDocids[wordPairProximity{Proximity: proximity, W1: left, W2: right}]
	if !ok {
		return 0, nil
	}
	return bm.GetCardinality(), nil
}

// Setting returns a raw settings value by key, decoded by the caller.
func (t *Txn) Setting(key string) ([]byte, bool) {
	v, ok := t.snap.Settings[key]
	return v, ok
}

var _ query.Context = (*Txn)(nil)

// sortedVocabulary returns the vocabulary sorted, used by Builder.Finish.
func sortedVocabulary(words map[string]struct{}) []string {
	out := make([]string, 0, len(words))
	for w := range words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
