// Package etl canonicalizes CRM opportunity batches and flags data-quality anomalies.
//
// Every stage is a pure function over record slices: inputs are never mutated
// and each call returns freshly allocated output, so repeated or concurrent
// invocations cannot interfere with each other.
package etl

import "strings"

// Table is string-typed tabular input as produced by a reader. No numeric or
// date coercion happens at this level.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable builds a Table from a header row and data rows. Header names are
// trimmed and a leading UTF-8 byte-order mark is dropped.
func NewTable(name string, header []string, rows [][]string) Table {
	cols := make([]string, len(header))
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		cols[i] = h
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return Table{Name: name, Columns: cols, Rows: rows, index: idx}
}

// Len returns the number of data rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table carries the named column.
func (t Table) Has(col string) bool {
	_, ok := t.lookup(col)
	return ok
}

// Missing returns the required columns absent from the table, in the order given.
func (t Table) Missing(required []string) []string {
	var missing []string
	for _, c := range required {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Get safely retrieves a column value from a row. Short rows and unknown
// columns yield "".
func (t Table) Get(row []string, col string) string {
	i, ok := t.lookup(col)
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (t Table) lookup(col string) (int, bool) {
	if t.index != nil {
		i, ok := t.index[col]
		return i, ok
	}
	for i, c := range t.Columns {
		if c == col {
			return i, true
		}
	}
	return 0, false
}
