package index

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/mchmarny/admitguide/pkg/catalog"
)

// BuildError is returned when no index can be fitted to the catalog.
type BuildError struct {
	Reason string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("error building index: %s", e.Reason)
}

// vector is a sparse row sorted by term column.
type vector struct {
	cols []int
	vals []float64
}

// Index is a TF-IDF index over catalog descriptions. The vocabulary is
// frozen at build time and the index is safe for concurrent reads.
type Index struct {
	tok         *Tokenizer
	entries     []catalog.Entry
	terms       []string
	vocab       map[string]int
	idf         []float64
	docs        []vector
	fingerprint string
}

// Stats summarizes a built index.
type Stats struct {
	Entries     int    `json:"entries" yaml:"entries"`
	Vocabulary  int    `json:"vocabulary" yaml:"vocabulary"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
}

// Build fits the index to the entry descriptions. Identical input yields
// an identical index and fingerprint.
func Build(entries []catalog.Entry, tok *Tokenizer) (*Index, error) {
	if len(entries) == 0 {
		return nil, &BuildError{Reason: "catalog is empty"}
	}
	if tok == nil {
		tok = NewTokenizer(DefaultTokenizerConfig())
	}

	counts := make([]map[string]int, len(entries))
	df := make(map[string]int)
	for i, e := range entries {
		c := make(map[string]int)
		for _, term := range tok.Tokenize(e.Description) {
			c[term]++
		}
		for term := range c {
			df[term]++
		}
		counts[i] = c
	}

	if len(df) == 0 {
		return nil, &BuildError{Reason: "no terms found in catalog descriptions"}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(entries))
	for i, term := range terms {
		vocab[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	docs := make([]vector, len(entries))
	for i, c := range counts {
		docs[i] = weigh(c, vocab, idf)
	}

	ix := &Index{
		tok:     tok,
		entries: entries,
		terms:   terms,
		vocab:   vocab,
		idf:     idf,
		docs:    docs,
	}
	ix.fingerprint = ix.digest()

	slog.Debug("index built",
		"entries", len(entries),
		"vocabulary", len(terms),
		"fingerprint", ix.fingerprint)

	return ix, nil
}

// weigh turns raw term counts into an L2-normalized tf-idf row.
// Terms outside the vocabulary are ignored.
func weigh(counts map[string]int, vocab map[string]int, idf []float64) vector {
	byCol := make(map[int]int, len(counts))
	for term, c := range counts {
		if col, ok := vocab[term]; ok {
			byCol[col] += c
		}
	}

	cols := make([]int, 0, len(byCol))
	for col := range byCol {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	v := vector{cols: cols, vals: make([]float64, len(cols))}
	var sum float64
	for i, col := range cols {
		w := float64(byCol[col]) * idf[col]
		v.vals[i] = w
		sum += w * w
	}
	if sum > 0 {
		norm := math.Sqrt(sum)
		for i := range v.vals {
			v.vals[i] /= norm
		}
	}
	return v
}

func (ix *Index) digest() string {
	h := sha256.New()
	buf := make([]byte, 8)
	putFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		h.Write(buf)
	}
	putInt := func(i int) {
		binary.LittleEndian.PutUint64(buf, uint64(i))
		h.Write(buf)
	}

	for i, term := range ix.terms {
		h.Write([]byte(term))
		h.Write([]byte{0})
		putFloat(ix.idf[i])
	}
	for _, d := range ix.docs {
		putInt(len(d.cols))
		for i, col := range d.cols {
			putInt(col)
			putFloat(d.vals[i])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint is the hex SHA-256 of the vocabulary and all weights.
func (ix *Index) Fingerprint() string {
	return ix.fingerprint
}

// Vocabulary returns the sorted index terms. Callers must not modify it.
func (ix *Index) Vocabulary() []string {
	return ix.terms
}

func (ix *Index) Len() int {
	return len(ix.entries)
}

func (ix *Index) Tokenizer() *Tokenizer {
	return ix.tok
}

func (ix *Index) Stats() Stats {
	return Stats{
		Entries:     len(ix.entries),
		Vocabulary:  len(ix.terms),
		Fingerprint: ix.fingerprint,
	}
}
