// Package query implements the query-evaluation core: term parsing,
// query-graph construction, docid resolution and path enumeration. It is
// the abstract read interface (Context) the rest of the core programs
// against, per spec.md §4.2 / §9 "Context" component.
package query

import "github.com/RoaringBitmap/roaring/v2"

// ProximityPrecision selects how the DocidResolver reads positional
// proximity between two words, per spec.md §4.3.
type ProximityPrecision int

const (
	ByWord ProximityPrecision = iota
	ByAttribute
)

// Context is the read-only view of one snapshot that the rest of the
// query core is written against. A store.Txn satisfies it; tests use an
// in-memory fake. Nothing in this package imports package store — this
// is the seam spec.md §1 calls out ("the on-disk codec layer" is an
// external collaborator).
type Context interface {
	// WordDocids returns the bitmap of documents containing word, or an
	// empty bitmap if the word is unknown (a DB miss is not an error;
	// per spec.md §7 it resolves to an empty bitmap).
	WordDocids(word string) (*roaring.Bitmap, error)
	// WordPrefixDocids returns the union bitmap for every indexed word
	// sharing prefix as a prefix.
	WordPrefixDocids(prefix string) (*roaring.Bitmap, error)
	// WordFieldDocids returns documents containing word within field fid.
	WordFieldDocids(word string, fid uint16) (*roaring.Bitmap, error)
	// WordPositionDocids returns documents containing word at position pos.
	WordPositionDocids(word string, pos uint32) (*roaring.Bitmap, error)
	// WordPairProximityDocids returns documents where w1 and w2 occur at
	// exactly the given proximity (0..=MaxProximity), in that order.
	WordPairProximityDocids(w1, w2 string, proximity uint8) (*roaring.Bitmap, error)
	// ExistsDocids, IsNullDocids, IsEmptyDocids are the per-field
	// precomputed bitmaps backing FacetFilter's Exists/IsNull/IsEmpty
	// leaves.
	ExistsDocids(fid uint16) (*roaring.Bitmap, error)
	IsNullDocids(fid uint16) (*roaring.Bitmap, error)
	IsEmptyDocids(fid uint16) (*roaring.Bitmap, error)
	// FacetStringDocids returns documents where field fid's normalized
	// string value equals value (level 0 of the string facet database).
	FacetStringDocids(fid uint16, value string) (*roaring.Bitmap, error)
	// FacetStringValues returns every distinct normalized string value
	// field fid holds, sorted lexicographically — the Sort rule's and
	// FacetDistribution's string-facet iteration order.
	FacetStringValues(fid uint16) ([]string, error)
	// FacetNumericLevels returns the hierarchical numeric facet levels
	// for field fid, root level first.
	FacetNumericLevels(fid uint16) ([]NumericLevel, error)
	// Universe returns the bitmap of every document id in the snapshot.
	Universe() (*roaring.Bitmap, error)
	// Vocabulary returns the sorted list of every indexed word, used to
	// build the per-query FST for typo derivation.
	Vocabulary() ([]string, error)
	// WordPairFrequency returns how often left and right occur at the
	// given proximity, used to score Split candidates (spec.md §4.2
	// pass 6). 0 if the pair never co-occurs at that proximity.
	WordPairFrequency(left, right string, proximity uint8) (uint64, error)
}

// NumericLevel is one level of a hierarchical numeric facet database.
type NumericLevel struct {
	LeftBound  float64
	ChildCount uint32
	Bitmap     *roaring.Bitmap
}

// MaxProximity is the largest positional distance the index stores
// discretely, per the GLOSSARY ("capped at a small max (<=8)").
const MaxProximity = 8
