// Package ingest is the reference document-ingestion path spec.md §1
// carves out of the core's scope ("document ingestion/indexing...
// builds the inverted structures the core consumes"). It exists so
// the spec.md §8 end-to-end scenarios can run as executable tests
// against a real store.Store rather than a hand-assembled fixture.
package ingest

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/kestrelsearch/kestrel/embed"
	"github.com/kestrelsearch/kestrel/facet"
	"github.com/kestrelsearch/kestrel/query"
	"github.com/kestrelsearch/kestrel/settings"
	"github.com/kestrelsearch/kestrel/store"
)

// minIndexedPrefixLen is the shortest prefix length Builder.IndexWordPrefix
// precomputes; shorter prefixes fall back to Txn.WordPrefixDocids's scan.
const minIndexedPrefixLen = 2

// Document is one JSON-document-shaped record to ingest: a primary key
// value plus a flat map of field name to value. Only top-level fields
// are read: a searchable field is indexed when its value is a string
// (any other non-nil value is recorded as empty), and a filterable field
// accepts a string, number, bool or array of strings. Nested objects are
// not flattened.
type Document map[string]any

// Ingester drives documents into a store.Builder under a fixed
// Settings, assigning sequential internal document ids and running the
// word splitting, word-pair proximity capture and facet indexing it
// needs.
type Ingester struct {
	builder  *store.Builder
	settings *settings.Settings
	embedder embed.Embedder
	nextID   uint32
	keyToID  map[string]uint32

	// numericFacets accumulates one bitmap per distinct (field, value)
	// pair across every Add call; Finish flattens it into the store's
	// per-field level table.
	numericFacets map[uint16]map[float64]*roaring.Bitmap
}

func NewIngester(s *settings.Settings, embedder embed.Embedder) *Ingester {
	return &Ingester{
		builder:       store.NewBuilder(),
		settings:      s,
		embedder:      embedder,
		keyToID:       map[string]uint32{},
		numericFacets: map[uint16]map[float64]*roaring.Bitmap{},
	}
}

// Add ingests one document, returning its assigned internal id.
func (ig *Ingester) Add(doc Document) (uint32, error) {
	docID := ig.nextID
	ig.nextID++

	if ig.settings.PrimaryKey != "" {
		if pk, ok := doc[ig.settings.PrimaryKey]; ok {
			ig.keyToID[toString(pk)] = docID
		}
	}

	ig.builder.AddDocument(docID)

	for _, fieldName := range ig.settings.SearchableFields {
		value, present := doc[fieldName]
		fid := ig.settings.FieldsIDsMap.IDOrInsert(fieldName)
		if !present || value == nil {
			continue
		}
		ig.builder.SetFieldExists(fid, docID)
		text := toString(value)
		if text == "" {
			ig.builder.SetFieldEmpty(fid, docID)
			continue
		}
		ig.indexText(fid, text, docID)
	}

	for fieldName := range ig.settings.FilterableFields {
		value, present := doc[fieldName]
		fid := ig.settings.FieldsIDsMap.IDOrInsert(fieldName)
		if !present {
			continue
		}
		if value == nil {
			ig.builder.SetFieldNull(fid, docID)
			continue
		}
		ig.builder.SetFieldExists(fid, docID)
		switch v := value.(type) {
		case float64:
			ig.recordNumericFacet(fid, v, docID)
		case string:
			if v == "" {
				ig.builder.SetFieldEmpty(fid, docID)
				continue
			}
			ig.builder.IndexFacetString(fid, facet.NormalizeFacetValue(v), docID)
		case bool:
			ig.builder.IndexFacetString(fid, facet.NormalizeFacetValue(boolString(v)), docID)
		case []any:
			if len(v) == 0 {
				ig.builder.SetFieldEmpty(fid, docID)
			}
			for _, item := range v {
				if s, ok := item.(string); ok {
					ig.builder.IndexFacetString(fid, facet.NormalizeFacetValue(s), docID)
				}
			}
		}
	}

	return docID, nil
}

// recordNumericFacet accumulates docID under field fid's exact value,
// for flattening into the store's numeric facet level table at Finish.
func (ig *Ingester) recordNumericFacet(fid uint16, value float64, docID uint32) {
	byValue, ok := ig.numericFacets[fid]
	if !ok {
		byValue = map[float64]*roaring.Bitmap{}
		ig.numericFacets[fid] = byValue
	}
	bm, ok := byValue[value]
	if !ok {
		bm = roaring.New()
		byValue[value] = bm
	}
	bm.Add(docID)
}

// Embed runs the configured embedder over fieldName's text value, for
// callers building a vector index alongside the lexical store.
func (ig *Ingester) Embed(doc Document, fieldName string) ([]float32, error) {
	if ig.embedder == nil {
		return nil, nil
	}
	value, ok := doc[fieldName]
	if !ok {
		return nil, nil
	}
	return ig.embedder.EmbedOne(toString(value))
}

// DocumentID returns the internal id assigned to a primary key value.
func (ig *Ingester) DocumentID(primaryKeyValue string) (uint32, bool) {
	id, ok := ig.keyToID[primaryKeyValue]
	return id, ok
}

// Finish flattens the accumulated numeric facet values into one level
// per distinct value, sorted by bound, and returns the finished store.
func (ig *Ingester) Finish() *store.Store {
	for fid, byValue := range ig.numericFacets {
		bounds := make([]float64, 0, len(byValue))
		for v := range byValue {
			bounds = append(bounds, v)
		}
		sort.Float64s(bounds)

		levels := make([]store.NumericFacetLevel, len(bounds))
		for i, v := range bounds {
			levels[i] = store.NumericFacetLevel{LeftBound: v, ChildCount: byValue[v].GetCardinality(), Bitmap: byValue[v]}
		}
		ig.builder.SetFacetNumericLevels(fid, levels)
	}
	return ig.builder.Finish()
}

// Settings exposes the ingester's Settings, so a caller can persist
// them into the finished store via settings.Save once it has a writer.
func (ig *Ingester) Settings() *settings.Settings { return ig.settings }

// indexText splits text into lowercase words with splitWords (on
// whitespace and , . ; : ! ?) and indexes each
// word at its sequential position, plus every preceding pair within
// query.MaxProximity positions at its actual gap, so resolvePhrase's
// sliding window and ProximityRule's path docids (which
// query proximities up to query.MaxProximity, not just 1) have data to
// match against.
func (ig *Ingester) indexText(fid uint16, text string, docID uint32) {
	words := splitWords(text)
	for pos, w := range words {
		ig.builder.IndexWord(w, docID, fid, uint32(pos))
		ig.builder.IndexWordPrefix(w, docID, minIndexedPrefixLen)
		for d := 1; d <= query.MaxProximity && d <= pos; d++ {
			ig.builder.IndexWordPairProximity(words[pos-d], w, uint8(d), docID)
		}
	}
}

func splitWords(text string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range text {
		if isSeparator(r) {
			flush()
			continue
		}
		cur = append(cur, toLower(r))
	}
	flush()
	return words
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', ',', '.', ';', ':', '!', '?':
		return true
	}
	return false
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func toString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
