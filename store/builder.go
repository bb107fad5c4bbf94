package store

import "github.com/RoaringBitmap/roaring/v2"

// Builder accumulates a snapshot in memory, the minimal write path a
// real indexer would run through before calling Persist. It exists so
// ingest has somewhere to put inverted-index entries without the core
// query packages ever depending on a mutable store.
type Builder struct {
	snap *snapshot
}

// NewBuilder returns a Builder over an empty snapshot.
func NewBuilder() *Builder {
	return &Builder{snap: newEmptySnapshot()}
}

func (b *Builder) orPut(m map[string]*roaring.Bitmap, key string, docID uint32) {
	bm, ok := m[key]
	if !ok {
		bm = roaring.New()
		m[key] = bm
	}
	bm.Add(docID)
}

// AddDocument registers docID as present in the snapshot's universe.
func (b *Builder) AddDocument(docID uint32) {
	b.snap.Universe.Add(docID)
	b.snap.DocumentCount = b.snap.Universe.GetCardinality()
}

// IndexWord records that word occurs in docID's field fid at position
// pos, updating WordDocids, WordFieldDocids and WordPositionDocids.
func (b *Builder) IndexWord(word string, docID uint32, fid uint16, pos uint32) {
	b.orPut(b.snap.WordDocids, word, docID)

	key := wordField{Word: word, Fid: fid}
	bm, ok := b.snap.WordFieldDocids[key]
	if !ok {
		bm = roaring.New()
		b.snap.WordFieldDocids[key] = bm
	}
	bm.Add(docID)

	posKey := wordPosition{Word: word, Pos: pos}
	bm, ok = b.snap.WordPositionDocids[posKey]
	if !ok {
		bm = roaring.New()
		b.snap.WordPositionDocids[posKey] = bm
	}
	bm.Add(docID)
}

// IndexWordPairProximity records that left and right co-occur at the
// given proximity in docID, feeding both proximity ranking and split
// scoring (ctx.WordPairFrequency).
func (b *Builder) IndexWordPairProximity(left, right string, proximity uint8, docID uint32) {
	key := wordPairProximity{Proximity: proximity, W1: left, W2: right}
	bm, ok := b.snap.WordPairProximityDocids[key]
	if !ok {
		bm = roaring.New()
		b.snap.WordPairProximityDocids[key] = bm
	}
	bm.Add(docID)
}

// IndexWordPrefix registers docID under every prefix length from
// minPrefixLen up to the full word, so WordPrefixDocids serves prefix
// queries without the WordDocids fallback scan in Txn.WordPrefixDocids.
func (b *Builder) IndexWordPrefix(word string, docID uint32, minPrefixLen int) {
	runes := []rune(word)
	for n := minPrefixLen; n <= len(runes); n++ {
		b.orPut(b.snap.WordPrefixDocids, string(runes[:n]), docID)
	}
}

// SetFieldExists marks docID as holding a value for field fid.
func (b *Builder) SetFieldExists(fid uint16, docID uint32) {
	bm, ok := b.snap.ExistsDocids[fid]
	if !ok {
		bm = roaring.New()
		b.snap.ExistsDocids[fid] = bm
	}
	bm.Add(docID)
}

// SetFieldNull marks docID's field fid value as explicitly null.
func (b *Builder) SetFieldNull(fid uint16, docID uint32) {
	bm, ok := b.snap.IsNullDocids[fid]
	if !ok {
		bm = roaring.New()
		b.snap.IsNullDocids[fid] = bm
	}
	bm.Add(docID)
}

// SetFieldEmpty marks docID's field fid value as an empty string/array.
func (b *Builder) SetFieldEmpty(fid uint16, docID uint32) {
	bm, ok := b.snap.IsEmptyDocids[fid]
	if !ok {
		bm = roaring.New()
		b.snap.IsEmptyDocids[fid] = bm
	}
	bm.Add(docID)
}

// IndexFacetString records docID under field fid's normalized string
// value (level 0 of the string facet database, spec.md §4.7/§4.13).
func (b *Builder) IndexFacetString(fid uint16, normalizedValue string, docID uint32) {
	key := facetKey{Fid: fid, Value: normalizedValue}
	bm, ok := b.snap.FacetStringLevel0[key]
	if !ok {
		bm = roaring.New()
		b.snap.FacetStringLevel0[key] = bm
	}
	bm.Add(docID)
}

// SetFacetNumericLevels installs the full hierarchical numeric facet
// level table for field fid — the reference ingestion path builds a
// single flat level rather than a real multi-level tree (see DESIGN.md
// on evalNumericCompare's matching simplification).
func (b *Builder) SetFacetNumericLevels(fid uint16, levels []NumericFacetLevel) {
	b.snap.FacetNumericLevels[fid] = levels
}

// PutSetting implements settings.SettingWriter.
func (b *Builder) PutSetting(key string, value []byte) {
	b.snap.Settings[key] = value
}

// Setting implements settings.SettingStore, letting the same Builder
// round-trip through settings.Load mid-ingestion if needed.
func (b *Builder) Setting(key string) ([]byte, bool) {
	v, ok := b.snap.Settings[key]
	return v, ok
}

// Finish computes the sorted vocabulary from every indexed word and
// returns the finished Store.
func (b *Builder) Finish() *Store {
	words := make(map[string]struct{}, len(b.snap.WordDocids))
	for w := range b.snap.WordDocids {
		words[w] = struct{}{}
	}
	b.snap.Vocabulary = sortedVocabulary(words)
	return &Store{snap: b.snap}
}
