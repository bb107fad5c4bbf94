// Package settings implements the index configuration key table from
// spec.md §6: the fields-ids map, searchable/filterable/sortable field
// lists, the ranking-rule stack, typo/split tuning, synonyms, embedder
// and analyzer configs, and search_cutoff. Values are gob-encoded and
// persisted under the store's Settings namespace (store.Txn.Setting),
// generalizing the teacher's ComplexData side-table pattern to a keyed
// settings store rather than one fixed struct.
package settings

import (
	"bytes"
	"encoding/gob"
	"sort"

	kerrors "github.com/kestrelsearch/kestrel/errors"
	"github.com/kestrelsearch/kestrel/query"
)

// Key names, exactly as spec.md §6 lists them.
const (
	KeyPrimaryKey                  = "primary-key"
	KeyFieldsIDsMap                = "fields-ids-map"
	KeySearchableFields            = "searchable-fields"
	KeyUserDefinedSearchableFields = "user-defined-searchable-fields"
	KeyFilterableFields            = "filterable-fields"
	KeySortableFields              = "sortable-fields"
	KeyCriteria                    = "criteria"
	KeyTypoConfig                  = "typo-config"
	KeySplitJoinConfig             = "split-join-config"
	KeySynonyms                    = "synonyms"
	KeyUserDefinedSynonyms         = "user-defined-synonyms"
	KeyProximityPrecision          = "proximity-precision"
	KeyMaxValuesPerFacet           = "max-values-per-facet"
	KeyPaginationMaxTotalHits      = "pagination-max-total-hits"
	KeySortFacetValuesBy           = "sort-facet-values-by"
	KeyEmbeddingConfigs            = "embedding_configs"
	KeyAnalyzerConfigs             = "analyzer_configs"
	KeySearchCutoff                = "search_cutoff"
)

// FieldsIDsMap is the bidirectional name<->id table new fields get
// appended to as they're first seen during ingestion.
type FieldsIDsMap struct {
	nameToID map[string]uint16
	idToName map[uint16]string
	next     uint16
}

func NewFieldsIDsMap() *FieldsIDsMap {
	return &FieldsIDsMap{nameToID: map[string]uint16{}, idToName: map[uint16]string{}}
}

// IDOrInsert returns name's id, assigning the next free id if name is new.
func (m *FieldsIDsMap) IDOrInsert(name string) uint16 {
	if id, ok := m.nameToID[name]; ok {
		return id
	}
	id := m.next
	m.next++
	m.nameToID[name] = id
	m.idToName[id] = name
	return id
}

func (m *FieldsIDsMap) ID(name string) (uint16, bool) {
	id, ok := m.nameToID[name]
	return id, ok
}

func (m *FieldsIDsMap) Name(id uint16) (string, bool) {
	name, ok := m.idToName[id]
	return name, ok
}

// gobFieldsIDsMap is FieldsIDsMap's wire form: gob can't encode
// unexported fields, so the public (de)serialization routes through
// this plain map plus the next-id counter.
type gobFieldsIDsMap struct {
	NameToID map[string]uint16
	Next     uint16
}

// Criterion is one element of the ordered ranking-rule stack
// (`criteria` in spec.md §6): either a named rule or a sort direction
// bound to a field.
type Criterion struct {
	Rule  string // "words" | "typo" | "proximity" | "attribute" | "sort" | "exactness" | "asc" | "desc"
	Field string // set when Rule == "asc" or "desc"
}

func DefaultCriteria() []Criterion {
	return []Criterion{{Rule: "words"}, {Rule: "typo"}, {Rule: "proximity"}, {Rule: "attribute"}, {Rule: "exactness"}}
}

// SortFacetRule pairs a field with the ordering Distribution should use
// for that field's values.
type SortFacetRule struct {
	Field string
	By    string // "lexicographic" | "count"
}

// EmbeddingConfig is one named embedder configuration.
type EmbeddingConfig struct {
	Name         string
	Source       string
	Model        string
	Dimensions   int
	Distribution string
}

// AnalyzerConfig is one named analyzer pipeline configuration.
type AnalyzerConfig struct {
	Name             string
	CharacterFilters []string
	Tokenizer        string
	TokenFilters     []string
	LanguageDetector string
}

// Settings is the fully decoded, in-memory view of an index's
// configuration — what Ingest and the search orchestrator consult.
type Settings struct {
	PrimaryKey                  string
	FieldsIDsMap                *FieldsIDsMap
	SearchableFields            []string
	UserDefinedSearchableFields []string
	FilterableFields            map[string]bool
	SortableFields              map[string]bool
	Criteria                    []Criterion
	Typo                        query.TypoConfig
	Split                       query.SplitConfig
	Synonyms                    query.SynonymMap
	UserDefinedSynonyms         query.SynonymMap
	ProximityPrecision          query.ProximityPrecision
	MaxValuesPerFacet           uint64
	PaginationMaxTotalHits      uint64
	SortFacetValuesBy           []SortFacetRule
	EmbeddingConfigs            []EmbeddingConfig
	AnalyzerConfigs             []AnalyzerConfig
	SearchCutoffMillis          uint64
}

// Default returns spec.md §6's documented defaults.
func Default() *Settings {
	return &Settings{
		FieldsIDsMap:           NewFieldsIDsMap(),
		FilterableFields:       map[string]bool{},
		SortableFields:         map[string]bool{},
		Criteria:               DefaultCriteria(),
		Typo:                   query.DefaultTypoConfig(),
		Split:                  query.DefaultSplitConfig(),
		Synonyms:               query.SynonymMap{},
		UserDefinedSynonyms:    query.SynonymMap{},
		ProximityPrecision:     query.ByWord,
		MaxValuesPerFacet:      100,
		PaginationMaxTotalHits: 1000,
		SearchCutoffMillis:     0, // 0 means no cutoff
	}
}

// SettingStore is the minimal persistence seam Settings needs: a byte
// get/put keyed by string, the shape store.Txn/store.Builder expose.
type SettingStore interface {
	Setting(key string) ([]byte, bool)
}

type SettingWriter interface {
	PutSetting(key string, value []byte)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, kerrors.Wrap("encode_failed", "gob-encoding setting", err)
	}
	return buf.Bytes(), nil
}

func decode(raw []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(v); err != nil {
		return kerrors.Wrap("decode_failed", "gob-decoding setting", err)
	}
	return nil
}

// Save persists every settings key into w, one gob-encoded value per
// key, mirroring the table in spec.md §6.
func Save(w SettingWriter, s *Settings) error {
	puts := []struct {
		key   string
		value any
	}{
		{KeyPrimaryKey, s.PrimaryKey},
		{KeyFieldsIDsMap, gobFieldsIDsMap{NameToID: s.FieldsIDsMap.nameToID, Next: s.FieldsIDsMap.next}},
		{KeySearchableFields, s.SearchableFields},
		{KeyUserDefinedSearchableFields, s.UserDefinedSearchableFields},
		{KeyFilterableFields, s.FilterableFields},
		{KeySortableFields, s.SortableFields},
		{KeyCriteria, s.Criteria},
		{KeyTypoConfig, s.Typo},
		{KeySplitJoinConfig, s.Split},
		{KeySynonyms, s.Synonyms},
		{KeyUserDefinedSynonyms, s.UserDefinedSynonyms},
		{KeyProximityPrecision, s.ProximityPrecision},
		{KeyMaxValuesPerFacet, s.MaxValuesPerFacet},
		{KeyPaginationMaxTotalHits, s.PaginationMaxTotalHits},
		{KeySortFacetValuesBy, s.SortFacetValuesBy},
		{KeyEmbeddingConfigs, s.EmbeddingConfigs},
		{KeyAnalyzerConfigs, s.AnalyzerConfigs},
		{KeySearchCutoff, s.SearchCutoffMillis},
	}
	for _, p := range puts {
		raw, err := encode(p.value)
		if err != nil {
			return err
		}
		w.PutSetting(p.key, raw)
	}
	return nil
}

// Load reads every settings key out of r, falling back to Default()'s
// value for any key that is absent (a fresh index before its first
// settings update).
func Load(r SettingStore) (*Settings, error) {
	s := Default()

	if raw, ok := r.Setting(KeyPrimaryKey); ok {
		if err := decode(raw, &s.PrimaryKey); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeyFieldsIDsMap); ok {
		var g gobFieldsIDsMap
		if err := decode(raw, &g); err != nil {
			return nil, err
		}
		m := NewFieldsIDsMap()
		m.next = g.Next
		for name, id := range g.NameToID {
			m.nameToID[name] = id
			m.idToName[id] = name
		}
		s.FieldsIDsMap = m
	}
	if raw, ok := r.Setting(KeySearchableFields); ok {
		if err := decode(raw, &s.SearchableFields); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeyUserDefinedSearchableFields); ok {
		if err := decode(raw, &s.UserDefinedSearchableFields); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeyFilterableFields); ok {
		if err := decode(raw, &s.FilterableFields); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeySortableFields); ok {
		if err := decode(raw, &s.SortableFields); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeyCriteria); ok {
		if err := decode(raw, &s.Criteria); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeyTypoConfig); ok {
		if err := decode(raw, &s.Typo); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeySplitJoinConfig); ok {
		if err := decode(raw, &s.Split); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeySynonyms); ok {
		if err := decode(raw, &s.Synonyms); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeyUserDefinedSynonyms); ok {
		if err := decode(raw, &s.UserDefinedSynonyms); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeyProximityPrecision); ok {
		if err := decode(raw, &s.ProximityPrecision); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeyMaxValuesPerFacet); ok {
		if err := decode(raw, &s.MaxValuesPerFacet); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeyPaginationMaxTotalHits); ok {
		if err := decode(raw, &s.PaginationMaxTotalHits); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeySortFacetValuesBy); ok {
		if err := decode(raw, &s.SortFacetValuesBy); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeyEmbeddingConfigs); ok {
		if err := decode(raw, &s.EmbeddingConfigs); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeyAnalyzerConfigs); ok {
		if err := decode(raw, &s.AnalyzerConfigs); err != nil {
			return nil, err
		}
	}
	if raw, ok := r.Setting(KeySearchCutoff); ok {
		if err := decode(raw, &s.SearchCutoffMillis); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ResolveField implements facet.FieldResolver against these settings:
// fid from FieldsIDsMap, filterable from FilterableFields.
func (s *Settings) ResolveField(path string) (fid uint16, filterable bool, ok bool) {
	id, known := s.FieldsIDsMap.ID(path)
	if !known {
		return 0, false, false
	}
	return id, s.FilterableFields[path], true
}

// FilterableFieldNames returns the sorted list of filterable field
// names, used to build a UserError's ValidNames on a bad filter.
func (s *Settings) FilterableFieldNames() []string {
	names := make([]string, 0, len(s.FilterableFields))
	for name, ok := range s.FilterableFields {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SortableFieldNames returns the sorted list of sortable field names.
func (s *Settings) SortableFieldNames() []string {
	names := make([]string, 0, len(s.SortableFields))
	for name, ok := range s.SortableFields {
		if ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
