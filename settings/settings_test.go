package settings_test

import (
	"testing"

	"github.com/kestrelsearch/kestrel/query"
	"github.com/kestrelsearch/kestrel/settings"
)

type memStore struct{ kv map[string][]byte }

func newMemStore() *memStore { return &memStore{kv: map[string][]byte{}} }

func (m *memStore) Setting(key string) ([]byte, bool)   { v, ok := m.kv[key]; return v, ok }
func (m *memStore) PutSetting(key string, value []byte) { m.kv[key] = value }

func TestSaveLoadRoundTrip(t *testing.T) {
	s := settings.Default()
	s.PrimaryKey = "id"
	s.FieldsIDsMap.IDOrInsert("title")
	s.FieldsIDsMap.IDOrInsert("body")
	s.SearchableFields = []string{"title", "body"}
	s.FilterableFields["category"] = true
	s.SortableFields["price"] = true
	s.ProximityPrecision = query.ByAttribute
	s.Synonyms = query.SynonymMap{"hi": {{"hello"}}}
	s.SearchCutoffMillis = 150

	store := newMemStore()
	if err := settings.Save(store, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := settings.Load(store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.PrimaryKey != "id" {
		t.Fatalf("expected primary key %q, got %q", "id", loaded.PrimaryKey)
	}
	if id, ok := loaded.FieldsIDsMap.ID("title"); !ok || id != 0 {
		t.Fatalf("expected title -> 0, got %d, %v", id, ok)
	}
	if loaded.ProximityPrecision != query.ByAttribute {
		t.Fatalf("expected ByAttribute, got %v", loaded.ProximityPrecision)
	}
	if !loaded.FilterableFields["category"] {
		t.Fatalf("expected category filterable")
	}
	if loaded.SearchCutoffMillis != 150 {
		t.Fatalf("expected search cutoff 150, got %d", loaded.SearchCutoffMillis)
	}
	if len(loaded.Synonyms["hi"]) != 1 || loaded.Synonyms["hi"][0][0] != "hello" {
		t.Fatalf("expected synonym hi -> [hello], got %+v", loaded.Synonyms["hi"])
	}
}

func TestLoadDefaultsWhenEmpty(t *testing.T) {
	loaded, err := settings.Load(newMemStore())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.MaxValuesPerFacet != 100 || loaded.PaginationMaxTotalHits != 1000 {
		t.Fatalf("expected default caps, got %+v", loaded)
	}
	if len(loaded.Criteria) == 0 {
		t.Fatalf("expected default criteria stack")
	}
}

func TestResolveFieldUsesFilterableSet(t *testing.T) {
	s := settings.Default()
	id := s.FieldsIDsMap.IDOrInsert("color")
	s.FilterableFields["color"] = true

	fid, filterable, ok := s.ResolveField("color")
	if !ok || fid != id || !filterable {
		t.Fatalf("expected (%d, true, true), got (%d, %v, %v)", id, fid, filterable, ok)
	}

	_, _, ok = s.ResolveField("missing")
	if ok {
		t.Fatalf("expected unknown field to resolve ok=false")
	}
}
