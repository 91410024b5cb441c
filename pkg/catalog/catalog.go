package catalog

import (
	"errors"
	"strconv"
	"strings"
)

var ErrUniversityNotFound = errors.New("university not found in catalog")

// Entry is one program/university row of the catalog.
type Entry struct {
	ID          string            `json:"id" yaml:"id"`
	University  string            `json:"university" yaml:"university"`
	Program     string            `json:"program,omitempty" yaml:"program,omitempty"`
	Description string            `json:"description" yaml:"description"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Value returns the metadata column, matching the header without regard
// to case when there is no exact match.
func (e Entry) Value(column string) (string, bool) {
	if v, ok := e.Metadata[column]; ok {
		return v, true
	}
	for k, v := range e.Metadata {
		if strings.EqualFold(k, column) {
			return v, true
		}
	}
	return "", false
}

// Float returns the metadata column parsed as a number.
func (e Entry) Float(column string) (float64, bool) {
	v, ok := e.Value(column)
	if !ok {
		return 0, false
	}
	v = strings.TrimSuffix(strings.TrimSpace(v), "%")
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Catalog is the read-only set of entries loaded at startup.
type Catalog struct {
	entries      []Entry
	byUniversity map[string]int
}

// New wraps entries in insertion order. The first entry wins when a
// university appears more than once.
func New(entries []Entry) *Catalog {
	c := &Catalog{
		entries:      entries,
		byUniversity: make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		k := universityKey(e.University)
		if k == "" {
			continue
		}
		if _, ok := c.byUniversity[k]; !ok {
			c.byUniversity[k] = i
		}
	}
	return c
}

// Entries returns the catalog rows in insertion order. Callers must not
// modify the returned slice.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// FindUniversity looks up the first entry for the university name,
// ignoring case and surrounding whitespace.
func (c *Catalog) FindUniversity(name string) (Entry, error) {
	i, ok := c.byUniversity[universityKey(name)]
	if !ok {
		return Entry{}, ErrUniversityNotFound
	}
	return c.entries[i], nil
}

func universityKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
