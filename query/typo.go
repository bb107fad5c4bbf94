package query

import (
	"bytes"
	"sort"

	"github.com/blevesearch/vellum"
	"github.com/blevesearch/vellum/levenshtein"
)

// TypoConfig mirrors spec.md §6's typo-config settings key.
type TypoConfig struct {
	MaxTypos       int
	WordLenOneTypo int // default 4
	WordLenTwoTypo int // default 7
}

// DefaultTypoConfig matches spec.md §6 defaults.
func DefaultTypoConfig() TypoConfig {
	return TypoConfig{MaxTypos: 2, WordLenOneTypo: 4, WordLenTwoTypo: 7}
}

// TyposAllowed implements spec.md §4.2 pass 4's thresholding:
// len < word_len_one_typo -> 0; < word_len_two_typo -> 1; else 2,
// clamped by max_typos.
func (c TypoConfig) TyposAllowed(word string) int {
	n := len([]rune(word))
	var t int
	switch {
	case n < c.WordLenOneTypo:
		t = 0
	case n < c.WordLenTwoTypo:
		t = 1
	default:
		t = 2
	}
	if t > c.MaxTypos {
		t = c.MaxTypos
	}
	return t
}

// vocabularyFST builds an in-memory FST from a sorted word list, the
// data structure the GLOSSARY names for prefix and Levenshtein-automaton
// streaming lookups. Grounded on blevesearch/vellum, the FST library
// used (transitively, via bleve) by Aman-CERP-amanmcp in the pack.
func vocabularyFST(vocabulary []string) (*vellum.FST, error) {
	sorted := append([]string(nil), vocabulary...)
	sort.Strings(sorted)

	var buf bytes.Buffer
	builder, err := vellum.New(&buf, nil)
	if err != nil {
		return nil, err
	}
	var prev string
	for i, word := range sorted {
		if i > 0 && word == prev {
			continue // FST keys must be strictly increasing
		}
		if err := builder.Insert([]byte(word), uint64(i)); err != nil {
			return nil, err
		}
		prev = word
	}
	if err := builder.Close(); err != nil {
		return nil, err
	}
	return vellum.Load(buf.Bytes())
}

// typoHit is one Levenshtein-automaton match against the vocabulary FST,
// classified by exact edit distance.
type typoHit struct {
	Word     string
	Distance int
}

// fuzzyMatches streams every vocabulary word within maxDistance of word
// using a Levenshtein automaton over fst, then classifies each hit by
// its exact Damerau-Levenshtein distance (so callers can bucket 1-typo
// vs 2-typo hits per spec.md §4.2 pass 4).
func fuzzyMatches(fst *vellum.FST, word string, maxDistance int, cap int) ([]typoHit, error) {
	if fst == nil || maxDistance == 0 {
		return nil, nil
	}
	automaton, err := levenshtein.New(word, uint8(maxDistance))
	if err != nil {
		return nil, err
	}

	itr, err := fst.Search(automaton, nil, nil)
	var hits []typoHit
	for err == nil {
		key, _ := itr.Current()
		candidate := string(key)
		if candidate != word {
			dist := damerauLevenshtein(word, candidate, maxDistance+1)
			if dist <= maxDistance {
				hits = append(hits, typoHit{Word: candidate, Distance: dist})
			}
		}
		if cap > 0 && len(hits) >= cap {
			break
		}
		err = itr.Next()
	}
	if err != nil && err != vellum.ErrIteratorDone {
		return nil, err
	}
	return hits, nil
}

// damerauLevenshtein computes the optimal-string-alignment edit distance
// (insert/delete/substitute/adjacent-transpose) between a and b, early
// exiting past cap since callers only care whether the result is <= a
// small threshold.
func damerauLevenshtein(a, b string, cap int) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if abs(la-lb) > cap {
		return cap + 1
	}

	d := make([][]int, la+1)
	for i := range d {
		d[i] = make([]int, lb+1)
		d[i][0] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j] = j
	}

	for i := 1; i <= la; i++ {
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min3(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				if t := d[i-2][j-2] + 1; t < d[i][j] {
					d[i][j] = t
				}
			}
		}
	}
	return d[la][lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
