package embed_test

import (
	"math"
	"testing"

	"github.com/kestrelsearch/kestrel/embed"
	"github.com/kestrelsearch/kestrel/settings"
)

func TestEmbedOneIsDeterministic(t *testing.T) {
	e := embed.NewHashEmbedder(settings.EmbeddingConfig{Dimensions: 16})
	v1, err := e.EmbedOne("the quick brown fox")
	if err != nil {
		t.Fatalf("EmbedOne: %v", err)
	}
	v2, err := e.EmbedOne("the quick brown fox")
	if err != nil {
		t.Fatalf("EmbedOne: %v", err)
	}
	if len(v1) != 16 {
		t.Fatalf("expected 16 dims, got %d", len(v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("expected deterministic output, dim %d differs: %v vs %v", i, v1[i], v2[i])
		}
	}
}

func TestEmbedOneIsNormalized(t *testing.T) {
	e := embed.NewHashEmbedder(settings.EmbeddingConfig{Dimensions: 32})
	v, err := e.EmbedOne("hello world")
	if err != nil {
		t.Fatalf("EmbedOne: %v", err)
	}
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if math.Abs(norm-1.0) > 1e-4 {
		t.Fatalf("expected unit norm, got %f", norm)
	}
}

func TestEmbedOneDiffersForDifferentText(t *testing.T) {
	e := embed.NewHashEmbedder(settings.EmbeddingConfig{Dimensions: 16})
	v1, _ := e.EmbedOne("cats")
	v2, _ := e.EmbedOne("dogs")
	same := true
	for i := range v1 {
		if v1[i] != v2[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected different text to embed differently")
	}
}

func TestDefaultDimensions(t *testing.T) {
	e := embed.NewHashEmbedder(settings.EmbeddingConfig{})
	if e.Dimensions() != 128 {
		t.Fatalf("expected default 128 dims, got %d", e.Dimensions())
	}
}
