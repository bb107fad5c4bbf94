package query

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// MemoryContext is a plain-map-backed Context, the in-memory stand-in
// spec.md §4.2 names for unit tests that need a Context without
// pulling in the store package's mmap/gob machinery. Every Set method
// returns the receiver so calls chain.
type MemoryContext struct {
	words         map[string]*roaring.Bitmap
	wordField     map[wordFieldKey]*roaring.Bitmap
	wordPosition  map[wordPositionKey]*roaring.Bitmap
	wordPair      map[wordPairKey]*roaring.Bitmap
	exists        map[uint16]*roaring.Bitmap
	isNull        map[uint16]*roaring.Bitmap
	isEmpty       map[uint16]*roaring.Bitmap
	facetString   map[facetStringKey]*roaring.Bitmap
	facetNumeric  map[uint16][]NumericLevel
	universe      *roaring.Bitmap
	vocabulary    []string
	pairFrequency map[wordPairKey]uint64
}

// NewMemoryContext returns an empty MemoryContext.
func NewMemoryContext() *MemoryContext {
	return &MemoryContext{
		words:         make(map[string]*roaring.Bitmap),
		wordField:     make(map[wordFieldKey]*roaring.Bitmap),
		wordPosition:  make(map[wordPositionKey]*roaring.Bitmap),
		wordPair:      make(map[wordPairKey]*roaring.Bitmap),
		exists:        make(map[uint16]*roaring.Bitmap),
		isNull:        make(map[uint16]*roaring.Bitmap),
		isEmpty:       make(map[uint16]*roaring.Bitmap),
		facetString:   make(map[facetStringKey]*roaring.Bitmap),
		facetNumeric:  make(map[uint16][]NumericLevel),
		universe:      roaring.New(),
		pairFrequency: make(map[wordPairKey]uint64),
	}
}

func bitmapOf(docs []uint32) *roaring.Bitmap {
	bm := roaring.New()
	bm.AddMany(docs)
	return bm
}

// SetWord indexes word as occurring in docs, folding docs into the
// universe.
func (m *MemoryContext) SetWord(word string, docs ...uint32) *MemoryContext {
	m.words[word] = bitmapOf(docs)
	m.universe.AddMany(docs)
	return m
}

// SetWordField indexes word as occurring in docs within field fid.
func (m *MemoryContext) SetWordField(word string, fid uint16, docs ...uint32) *MemoryContext {
	m.wordField[wordFieldKey{word, fid}] = bitmapOf(docs)
	return m
}

// SetWordPosition indexes word as occurring in docs at position pos.
func (m *MemoryContext) SetWordPosition(word string, pos uint32, docs ...uint32) *MemoryContext {
	m.wordPosition[wordPositionKey{word, pos}] = bitmapOf(docs)
	return m
}

// SetWordPairProximity indexes w1/w2 as co-occurring in docs at the
// given proximity.
func (m *MemoryContext) SetWordPairProximity(w1, w2 string, proximity uint8, docs ...uint32) *MemoryContext {
	m.wordPair[wordPairKey{w1, w2, proximity}] = bitmapOf(docs)
	return m
}

// SetPairFrequency records how often left/right co-occur at proximity.
func (m *MemoryContext) SetPairFrequency(left, right string, proximity uint8, freq uint64) *MemoryContext {
	m.pairFrequency[wordPairKey{left, right, proximity}] = freq
	return m
}

// SetExists/SetIsNull/SetIsEmpty set the precomputed bitmaps backing
// FacetFilter's Exists/IsNull/IsEmpty leaves for field fid.
func (m *MemoryContext) SetExists(fid uint16, docs ...uint32) *MemoryContext {
	m.exists[fid] = bitmapOf(docs)
	return m
}

func (m *MemoryContext) SetIsNull(fid uint16, docs ...uint32) *MemoryContext {
	m.isNull[fid] = bitmapOf(docs)
	return m
}

func (m *MemoryContext) SetIsEmpty(fid uint16, docs ...uint32) *MemoryContext {
	m.isEmpty[fid] = bitmapOf(docs)
	return m
}

// SetFacetString indexes field fid's normalized string value as held by
// docs.
func (m *MemoryContext) SetFacetString(fid uint16, value string, docs ...uint32) *MemoryContext {
	m.facetString[facetStringKey{fid, value}] = bitmapOf(docs)
	return m
}

// SetFacetNumericLevels sets field fid's hierarchical numeric facet
// levels directly.
func (m *MemoryContext) SetFacetNumericLevels(fid uint16, levels []NumericLevel) *MemoryContext {
	m.facetNumeric[fid] = levels
	return m
}

// SetVocabulary sets the sorted word list Vocabulary returns.
func (m *MemoryContext) SetVocabulary(words []string) *MemoryContext {
	m.vocabulary = words
	return m
}

// AddToUniverse folds docs into the universe without indexing a word.
func (m *MemoryContext) AddToUniverse(docs ...uint32) *MemoryContext {
	m.universe.AddMany(docs)
	return m
}

func (m *MemoryContext) WordDocids(word string) (*roaring.Bitmap, error) {
	if bm, ok := m.words[word]; ok {
		return bm.Clone(), nil
	}
	return roaring.New(), nil
}

func (m *MemoryContext) WordPrefixDocids(prefix string) (*roaring.Bitmap, error) {
	out := roaring.New()
	for w, bm := range m.words {
		if len(w) >= len(prefix) && w[:len(prefix)] == prefix {
			out.Or(bm)
		}
	}
	return out, nil
}

func (m *MemoryContext) WordFieldDocids(word string, fid uint16) (*roaring.Bitmap, error) {
	if bm, ok := m.wordField[wordFieldKey{word, fid}]; ok {
		return bm.Clone(), nil
	}
	return roaring.New(), nil
}

func (m *MemoryContext) WordPositionDocids(word string, pos uint32) (*roaring.Bitmap, error) {
	if bm, ok := m.wordPosition[wordPositionKey{word, pos}]; ok {
		return bm.Clone(), nil
	}
	return roaring.New(), nil
}

func (m *MemoryContext) WordPairProximityDocids(w1, w2 string, proximity uint8) (*roaring.Bitmap, error) {
	if bm, ok := m.wordPair[wordPairKey{w1, w2, proximity}]; ok {
		return bm.Clone(), nil
	}
	return roaring.New(), nil
}

func (m *MemoryContext) ExistsDocids(fid uint16) (*roaring.Bitmap, error) {
	if bm, ok := m.exists[fid]; ok {
		return bm.Clone(), nil
	}
	return roaring.New(), nil
}

func (m *MemoryContext) IsNullDocids(fid uint16) (*roaring.Bitmap, error) {
	if bm, ok := m.isNull[fid]; ok {
		return bm.Clone(), nil
	}
	return roaring.New(), nil
}

func (m *MemoryContext) IsEmptyDocids(fid uint16) (*roaring.Bitmap, error) {
	if bm, ok := m.isEmpty[fid]; ok {
		return bm.Clone(), nil
	}
	return roaring.New(), nil
}

func (m *MemoryContext) FacetStringDocids(fid uint16, value string) (*roaring.Bitmap, error) {
	if bm, ok := m.facetString[facetStringKey{fid, value}]; ok {
		return bm.Clone(), nil
	}
	return roaring.New(), nil
}

func (m *MemoryContext) FacetStringValues(fid uint16) ([]string, error) {
	var out []string
	for key := range m.facetString {
		if key.Fid == fid {
			out = append(out, key.Value)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryContext) FacetNumericLevels(fid uint16) ([]NumericLevel, error) {
	return m.facetNumeric[fid], nil
}

func (m *MemoryContext) Universe() (*roaring.Bitmap, error) { return m.universe.Clone(), nil }

func (m *MemoryContext) Vocabulary() ([]string, error) { return m.vocabulary, nil }

func (m *MemoryContext) WordPairFrequency(left, right string, proximity uint8) (uint64, error) {
	return m.pairFrequency[wordPairKey{left, right, proximity}], nil
}

var _ Context = (*MemoryContext)(nil)
