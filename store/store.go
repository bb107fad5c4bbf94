// Package store implements the memory-mapped key-value store the query
// core reads from. It generalizes the teacher analyzer's mmap-loading
// pattern (github.com/edsrzf/mmap-go, a fixed binary Header, a
// gob+gzip-encoded side table for anything that isn't fixed width) from
// a single linguistic dictionary file into a general per-namespace store
// of inverted indexes, facet databases and settings.
//
// Indexing (building these structures from documents) is out of scope
// for the query core; this package exists so the core has a concrete,
// testable Context implementation to run against. Real deployments would
// swap this for a production LMDB/heed-style store without the core
// changing — Context is the seam.
package store

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	mmap "github.com/edsrzf/mmap-go"
	"github.com/google/uuid"

	kerrors "github.com/kestrelsearch/kestrel/errors"
)

// magic identifies a valid store file, the analogue of the teacher's
// "DAW7" header signature.
var magic = [4]byte{'K', 'S', 'T', '1'}

// Header is the fixed-size file header read directly off the mmap
// region before anything else, exactly as the teacher reads its DAWG
// Header from mmapFile[:headerSize].
type Header struct {
	Magic      [4]byte
	RunID      [16]byte // uuid.UUID bytes, stamped per snapshot
	DataOffset int64
	DataLength int64
}

// snapshot is the gob+gzip encoded payload living after the header. It
// holds every namespace the query core reads from. Word/token indexes
// are stored as *roaring.Bitmap values so the Context layer never has to
// decode a custom posting-list format.
type snapshot struct {
	WordDocids              map[string]*roaring.Bitmap
	WordPrefixDocids        map[string]*roaring.Bitmap
	WordFieldDocids         map[wordField]*roaring.Bitmap
	WordPositionDocids      map[wordPosition]*roaring.Bitmap
	WordPairProximityDocids map[wordPairProximity]*roaring.Bitmap
	ExistsDocids            map[uint16]*roaring.Bitmap
	IsNullDocids            map[uint16]*roaring.Bitmap
	IsEmptyDocids           map[uint16]*roaring.Bitmap
	FacetStringLevel0       map[facetKey]*roaring.Bitmap
	FacetNumericLevels      map[uint16][]NumericFacetLevel
	Universe                *roaring.Bitmap
	Vocabulary              []string // sorted, feeds the FST query.Build constructs for typo derivation
	Settings                map[string][]byte
	DocumentCount           uint64
}

type wordField struct {
	Word string
	Fid  uint16
}

type wordPosition struct {
	Word string
	Pos  uint32
}

type wordPairProximity struct {
	Proximity uint8
	W1, W2    string
}

type facetKey struct {
	Fid   uint16
	Value string
}

// NumericFacetLevel is one hierarchical level of a numeric facet
// database: a sorted run of (left_bound, child_count, bitmap) triples
// enabling O(log N) range descent, per spec.md §3.
type NumericFacetLevel struct {
	LeftBound  float64
	ChildCount uint32
	Bitmap     *roaring.Bitmap
}

// Store owns one mmap'd file and the decoded snapshot living in it. All
// reads are served from the decoded snapshot; the mmap region itself is
// kept open only so the backing pages stay valid for the process
// lifetime, matching the teacher's rationale for holding onto mmapFile.
type Store struct {
	mu       sync.RWMutex
	snap     *snapshot
	rawBytes mmap.MMap // kept to pin the mmap'd pages alive; nil for in-memory stores
	header   Header
}

// NewEmpty returns a Store with empty namespaces, useful for tests and
// for building a snapshot in memory before persisting it.
func NewEmpty() *Store {
	return &Store{snap: newEmptySnapshot()}
}

func newEmptySnapshot() *snapshot {
	return &snapshot{
		WordDocids:              map[string]*roaring.Bitmap{},
		WordPrefixDocids:        map[string]*roaring.Bitmap{},
		WordFieldDocids:         map[wordField]*roaring.Bitmap{},
		WordPositionDocids:      map[wordPosition]*roaring.Bitmap{},
		WordPairProximityDocids: map[wordPairProximity]*roaring.Bitmap{},
		ExistsDocids:            map[uint16]*roaring.Bitmap{},
		IsNullDocids:            map[uint16]*roaring.Bitmap{},
		IsEmptyDocids:           map[uint16]*roaring.Bitmap{},
		FacetStringLevel0:       map[facetKey]*roaring.Bitmap{},
		FacetNumericLevels:      map[uint16][]NumericFacetLevel{},
		Universe:                roaring.New(),
		Settings:                map[string][]byte{},
	}
}

// Open memory-maps path and decodes its snapshot. It mirrors
// loadInternal in the teacher analyzer step for step: map the file,
// read+validate the fixed header, gunzip+gob-decode the data block.
func Open(path string) (*Store, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, kerrors.Wrap("open_failed", "opening store file", err)
	}
	defer file.Close()

	mapped, err := mmapFile(file)
	if err != nil {
		return nil, kerrors.Wrap("mmap_failed", "mapping store file", err)
	}

	headerSize := binary.Size(Header{})
	if len(mapped) < headerSize {
		return nil, fmt.Errorf("%w: file too small for header", kerrors.ErrInvalidStore)
	}

	var header Header
	if err := binary.Read(bytes.NewReader(mapped[:headerSize]), binary.LittleEndian, &header); err != nil {
		return nil, kerrors.Wrap("decode_failed", "reading store header", err)
	}
	if header.Magic != magic {
		return nil, fmt.Errorf("%w: bad signature", kerrors.ErrInvalidStore)
	}

	dataStart := header.DataOffset
	dataEnd := dataStart + header.DataLength
	if dataEnd > int64(len(mapped)) {
		return nil, fmt.Errorf("%w: data region out of bounds", kerrors.ErrInvalidStore)
	}

	snap, err := decodeSnapshot(mapped[dataStart:dataEnd])
	if err != nil {
		return nil, err
	}

	return &Store{snap: snap, rawBytes: mapped, header: header}, nil
}

func decodeSnapshot(compressed []byte) (*snapshot, error) {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, kerrors.Wrap("decode_failed", "opening gzip reader", err)
	}
	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, kerrors.Wrap("decode_failed", "decompressing snapshot", err)
	}
	if err := gz.Close(); err != nil {
		return nil, kerrors.Wrap("decode_failed", "closing gzip reader", err)
	}

	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&snap); err != nil {
		return nil, kerrors.Wrap("decode_failed", "gob-decoding snapshot", err)
	}
	return &snap, nil
}

// Persist writes the store's current snapshot to path as a valid store
// file: header + gzip(gob(snapshot)), the same two-stage encoding the
// teacher uses for ComplexData.
func (s *Store) Persist(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var gobBuf bytes.Buffer
	if err := gob.NewEncoder(&gobBuf).Encode(s.snap); err != nil {
		return kerrors.Wrap("encode_failed", "gob-encoding snapshot", err)
	}

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(gobBuf.Bytes()); err != nil {
		return kerrors.Wrap("encode_failed", "gzip-compressing snapshot", err)
	}
	if err := gz.Close(); err != nil {
		return kerrors.Wrap("encode_failed", "closing gzip writer", err)
	}

	runID := uuid.New()
	header := Header{
		Magic:      magic,
		DataOffset: int64(binary.Size(Header{})),
		DataLength: int64(compressed.Len()),
	}
	copy(header.RunID[:], runID[:])

	f, err := os.Create(path)
	if err != nil {
		return kerrors.Wrap("open_failed", "creating store file", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, &header); err != nil {
		return kerrors.Wrap("encode_failed", "writing store header", err)
	}
	if _, err := f.Write(compressed.Bytes()); err != nil {
		return kerrors.Wrap("encode_failed", "writing store data", err)
	}
	return nil
}

// Close releases the mmap backing this store, if any.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rawBytes == nil {
		return nil
	}
	err := unmap(s.rawBytes)
	s.rawBytes = nil
	return err
}

// Txn begins a read-only transaction over the current snapshot, per the
// "pins a snapshot until dropped" guarantee in spec.md §5. Because this
// reference store is read-at-open (no concurrent writer mutates s.snap
// after Open/Persist), Txn simply borrows the snapshot under a read
// lock held for the transaction's lifetime.
func (s *Store) Txn() *Txn {
	s.mu.RLock()
	return &Txn{store: s, snap: s.snap}
}
