package search_test

import (
	"testing"

	"github.com/coder/hnsw"
	"github.com/stretchr/testify/require"

	"github.com/kestrelsearch/kestrel/embed"
	"github.com/kestrelsearch/kestrel/facet"
	"github.com/kestrelsearch/kestrel/ingest"
	"github.com/kestrelsearch/kestrel/rank"
	"github.com/kestrelsearch/kestrel/search"
	"github.com/kestrelsearch/kestrel/settings"
	"github.com/kestrelsearch/kestrel/store"
)

func buildTestStore(t *testing.T) (*store.Store, *settings.Settings) {
	t.Helper()
	s := settings.Default()
	s.PrimaryKey = "id"
	s.SearchableFields = []string{"title"}
	s.FilterableFields["category"] = true
	s.SortableFields["category"] = true

	ig := ingest.NewIngester(s, nil)
	docs := []ingest.Document{
		{"id": "1", "title": "hello world", "category": "books"},
		{"id": "2", "title": "hello there friend", "category": "toys"},
		{"id": "3", "title": "goodbye world", "category": "books"},
	}
	for _, d := range docs {
		_, err := ig.Add(d)
		require.NoError(t, err)
	}
	return ig.Finish(), s
}

func TestExecuteBasicLexicalMatch(t *testing.T) {
	st, s := buildTestStore(t)
	txn := st.Txn()
	defer txn.Close()

	ctx := search.NewContext(txn, s, nil, nil)
	resp, err := ctx.Execute(search.Request{Query: "hello world"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.DocumentIDs)
	require.Len(t, resp.DocumentIDs, len(resp.DocumentScores))
	require.Contains(t, resp.DocumentIDs, uint32(0))
}

func TestExecuteNonFilterableFieldReturnsUserError(t *testing.T) {
	st, s := buildTestStore(t)
	txn := st.Txn()
	defer txn.Close()

	ctx := search.NewContext(txn, s, nil, nil)
	_, err := ctx.Execute(search.Request{
		Query:  "hello",
		Filter: facet.Field{Path: "title", Expr: facet.Eq{Value: facet.Str("hello")}},
	})
	require.Error(t, err)
}

func TestExecuteFilterRestrictsCandidates(t *testing.T) {
	st, s := buildTestStore(t)
	txn := st.Txn()
	defer txn.Close()

	ctx := search.NewContext(txn, s, nil, nil)
	resp, err := ctx.Execute(search.Request{
		Query:  "hello world",
		Filter: facet.Field{Path: "category", Expr: facet.Eq{Value: facet.Str("toys")}},
	})
	require.NoError(t, err)
	require.NotContains(t, resp.DocumentIDs, uint32(0))
}

func TestExecuteSortCriteriaAscending(t *testing.T) {
	st, s := buildTestStore(t)
	txn := st.Txn()
	defer txn.Close()

	s.Criteria = []settings.Criterion{{Rule: "sort"}}
	ctx := search.NewContext(txn, s, nil, nil)
	resp, err := ctx.Execute(search.Request{
		SortCriteria: []rank.SortCriterion{{FieldName: "category", Ascending: true}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.DocumentIDs)
}

func TestExecuteMatchingWordsLocatesQueryTerm(t *testing.T) {
	st, s := buildTestStore(t)
	txn := st.Txn()
	defer txn.Close()

	ctx := search.NewContext(txn, s, nil, nil)
	resp, err := ctx.Execute(search.Request{Query: "hello"})
	require.NoError(t, err)
	require.NotNil(t, resp.MatchingWords)
}

func TestExecuteHybridSemanticUsesVectorIndex(t *testing.T) {
	st, s := buildTestStore(t)
	txn := st.Txn()
	defer txn.Close()

	embedder := embed.NewHashEmbedder(settings.EmbeddingConfig{Dimensions: 8})
	titles := []string{"hello world", "hello there friend", "goodbye world"}
	index := hnsw.NewGraph[uint32]()
	for docID, title := range titles {
		vec, err := embedder.EmbedOne(title)
		require.NoError(t, err)
		index.Add(hnsw.MakeNode[uint32](uint32(docID), vec))
	}
	queryVec, err := embedder.EmbedOne("hello world")
	require.NoError(t, err)

	ctx := search.NewContext(txn, s, index, nil)
	// Ratio 1 drives hybrid.Execute's vector-only branch, so this
	// exercises VectorRule/hnsw search and hybrid merge without
	// depending on lexical-confidence arithmetic.
	resp, err := ctx.Execute(search.Request{
		Query: "hello world",
		Semantic: &search.SemanticRequest{
			EmbedderName: "hash",
			Vector:       queryVec,
			Ratio:        1,
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.DocumentIDs)
	require.Equal(t, len(resp.DocumentIDs), resp.SemanticHitCount)
	require.Equal(t, uint32(0), resp.DocumentIDs[0])
}

func TestExecuteSemanticWithoutVectorIndexReturnsError(t *testing.T) {
	st, s := buildTestStore(t)
	txn := st.Txn()
	defer txn.Close()

	ctx := search.NewContext(txn, s, nil, nil)
	_, err := ctx.Execute(search.Request{
		Query:    "hello",
		Semantic: &search.SemanticRequest{EmbedderName: "hash", Vector: []float32{1, 0}, Ratio: 1},
	})
	require.ErrorIs(t, err, search.ErrMissingVectorIndex)
}
