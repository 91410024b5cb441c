package index

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mchmarny/admitguide/pkg/catalog"
)

// ErrInvalidK is returned when fewer than one result is requested.
var ErrInvalidK = errors.New("k must be at least 1")

// EmptyQueryError means the query has no term known to the index:
// it was empty, held only stop words, or only out-of-vocabulary terms.
type EmptyQueryError struct {
	Query string
}

func (e *EmptyQueryError) Error() string {
	return fmt.Sprintf("no recognized terms in query %q", e.Query)
}

// SearchOptions tunes ranking.
type SearchOptions struct {
	// MinScore keeps only matches scoring strictly above it. Zero keeps
	// every entry.
	MinScore float64 `yaml:"min_score"`
}

// Match is one ranked catalog entry.
type Match struct {
	Entry catalog.Entry `json:"entry" yaml:"entry"`
	Score float64       `json:"score" yaml:"score"`
}

// Result is the ordered outcome of a search.
type Result struct {
	Query   string  `json:"query" yaml:"query"`
	Matches []Match `json:"matches" yaml:"matches"`
}

// Search ranks the catalog against query and returns the top k matches.
func (ix *Index) Search(query string, k int) (Result, error) {
	return ix.SearchWithOptions(query, k, SearchOptions{})
}

// SearchWithOptions is Search with a similarity floor. Results are sorted
// by descending score; ties keep catalog order.
func (ix *Index) SearchWithOptions(query string, k int, opts SearchOptions) (Result, error) {
	if k < 1 {
		return Result{}, ErrInvalidK
	}

	counts := make(map[string]int)
	for _, term := range ix.tok.Tokenize(query) {
		counts[term]++
	}
	q := weigh(counts, ix.vocab, ix.idf)
	if len(q.cols) == 0 {
		return Result{}, &EmptyQueryError{Query: query}
	}

	qw := make(map[int]float64, len(q.cols))
	for i, col := range q.cols {
		qw[col] = q.vals[i]
	}

	matches := make([]Match, 0, len(ix.entries))
	for i, d := range ix.docs {
		score := cosine(qw, d)
		if opts.MinScore > 0 && score <= opts.MinScore {
			continue
		}
		matches = append(matches, Match{Entry: ix.entries[i], Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k < len(matches) {
		matches = matches[:k]
	}

	return Result{Query: query, Matches: matches}, nil
}

// cosine of two unit vectors, clamped to [0, 1].
func cosine(q map[int]float64, d vector) float64 {
	var dot float64
	for i, col := range d.cols {
		dot += q[col] * d.vals[i]
	}
	if dot < 0 {
		return 0
	}
	if dot > 1 {
		return 1
	}
	return dot
}
