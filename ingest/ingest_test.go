package ingest_test

import (
	"testing"

	"github.com/kestrelsearch/kestrel/ingest"
	"github.com/kestrelsearch/kestrel/settings"
)

func newTestSettings() *settings.Settings {
	s := settings.Default()
	s.PrimaryKey = "id"
	s.SearchableFields = []string{"title"}
	s.FilterableFields["category"] = true
	s.FilterableFields["price"] = true
	return s
}

func TestAddIndexesWordsAndAssignsSequentialIDs(t *testing.T) {
	s := newTestSettings()
	ig := ingest.NewIngester(s, nil)

	id1, err := ig.Add(ingest.Document{"id": "a", "title": "hello world", "category": "books", "price": 9.99})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	id2, err := ig.Add(ingest.Document{"id": "b", "title": "hello there", "category": "toys", "price": 4.5})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id1 != 0 || id2 != 1 {
		t.Fatalf("expected sequential ids 0,1, got %d,%d", id1, id2)
	}

	st := ig.Finish()
	txn := st.Txn()
	defer txn.Close()

	bm, err := txn.WordDocids("hello")
	if err != nil {
		t.Fatalf("WordDocids: %v", err)
	}
	if bm.GetCardinality() != 2 || !bm.Contains(0) || !bm.Contains(1) {
		t.Fatalf("expected hello in both docs, got %v", bm.ToArray())
	}

	bmWorld, err := txn.WordDocids("world")
	if err != nil {
		t.Fatalf("WordDocids: %v", err)
	}
	if bmWorld.GetCardinality() != 1 || !bmWorld.Contains(0) {
		t.Fatalf("expected world only in doc 0, got %v", bmWorld.ToArray())
	}
}

func TestAddIndexesStringFacet(t *testing.T) {
	s := newTestSettings()
	ig := ingest.NewIngester(s, nil)
	ig.Add(ingest.Document{"id": "a", "title": "x", "category": "Books"})
	ig.Add(ingest.Document{"id": "b", "title": "y", "category": "Toys"})

	st := ig.Finish()
	txn := st.Txn()
	defer txn.Close()

	fid, ok := s.FieldsIDsMap.ID("category")
	if !ok {
		t.Fatalf("expected category field to have been assigned an id")
	}
	bm, err := txn.FacetStringDocids(fid, "books")
	if err != nil {
		t.Fatalf("FacetStringDocids: %v", err)
	}
	if bm.GetCardinality() != 1 || !bm.Contains(0) {
		t.Fatalf("expected category=books to match doc 0 only, got %v", bm.ToArray())
	}
}

func TestAddIndexesNumericFacetLevels(t *testing.T) {
	s := newTestSettings()
	ig := ingest.NewIngester(s, nil)
	ig.Add(ingest.Document{"id": "a", "title": "x", "category": "books", "price": 10.0})
	ig.Add(ingest.Document{"id": "b", "title": "y", "category": "books", "price": 20.0})

	st := ig.Finish()
	txn := st.Txn()
	defer txn.Close()

	fid, ok := s.FieldsIDsMap.ID("price")
	if !ok {
		t.Fatalf("expected price field to have been assigned an id")
	}
	levels, err := txn.FacetNumericLevels(fid)
	if err != nil {
		t.Fatalf("FacetNumericLevels: %v", err)
	}
	if len(levels) != 2 || levels[0].LeftBound != 10.0 || levels[1].LeftBound != 20.0 {
		t.Fatalf("expected 2 sorted levels at 10 and 20, got %+v", levels)
	}
}

func TestDocumentIDResolvesPrimaryKey(t *testing.T) {
	s := newTestSettings()
	ig := ingest.NewIngester(s, nil)
	ig.Add(ingest.Document{"id": "doc-42", "title": "x", "category": "books"})

	id, ok := ig.DocumentID("doc-42")
	if !ok || id != 0 {
		t.Fatalf("expected doc-42 -> 0, got %d, %v", id, ok)
	}
}
