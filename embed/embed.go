// Package embed is the reference implementation of the embedder
// collaborator spec.md §1 carves out of the core's scope
// ("embed_one(text) -> vector"). Real deployments plug in an
// HTTP/ONNX-backed embedder; this package exists so ingestion and the
// hybrid-search path have a concrete, deterministic embedder to run
// the spec.md §8 end-to-end scenarios against without a network call.
package embed

import (
	"math"

	"github.com/kestrelsearch/kestrel/settings"
)

// Embedder maps free text to a fixed-dimension vector, the contract
// spec.md §1 names as an external collaborator.
type Embedder interface {
	EmbedOne(text string) ([]float32, error)
	Dimensions() int
}

// HashEmbedder is a deterministic stand-in embedder: it folds the
// lowercase word stream of the text into a fixed-width vector via a
// rolling hash per dimension, then L2-normalizes. It is not a real
// semantic embedding — it exists to exercise the vector-search path
// (hnsw indexing, cosine ranking, hybrid merge) end to end with
// reproducible output and no external model dependency.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder builds a HashEmbedder honoring an embedding_configs
// entry's configured dimensionality.
func NewHashEmbedder(cfg settings.EmbeddingConfig) *HashEmbedder {
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 128
	}
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Dimensions() int { return e.dims }

func (e *HashEmbedder) EmbedOne(text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	words := splitWords(text)
	for _, w := range words {
		h := fnv1a(w)
		for d := 0; d < e.dims; d++ {
			// Rotate the hash per dimension so a word's contribution
			// spreads across the whole vector rather than one bucket.
			bucketHash := h ^ (uint64(d)*0x9E3779B97F4A7C15 + 1)
			sign := 1.0
			if bucketHash&1 == 1 {
				sign = -1.0
			}
			vec[d] += float32(sign) * float32((bucketHash>>1)%1000) / 1000
		}
	}
	normalize(vec)
	return vec, nil
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
		if r == ' ' || r == '\t' || r == '\n' {
			flush()
			continue
		}
		cur = append(cur, toLowerRune(r))
	}
	flush()
	return words
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// fnv1a is the standard 64-bit FNV-1a hash, used deterministically
// across runs (unlike Go's randomized map iteration or hash/maphash).
func fnv1a(s string) uint64 {
	const offset = 14695981039346656037
	const prime = 1099511628211
	h := uint64(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return h
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range vec {
		vec[i] /= norm
	}
}
