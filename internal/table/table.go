// Package table provides the column-oriented in-memory table that the
// transform pipeline operates on: an ordered collection of named columns,
// one value per row, uniform height.
package table

import "fmt"

// Column is a single named column. Values are positional: Values[i] belongs
// to row i.
type Column struct {
	Name   string
	Values []any
}

// Table is an immutable-by-convention columnar table. Mutating operations
// return a new Table and never touch the receiver's column slices beyond
// sharing them; callers that need isolation should copy values first.
type Table struct {
	cols  []Column
	index map[string]int
}

// New validates and wraps a set of columns.
//
// Errors:
//   - duplicate column names
//   - columns of unequal length (tables are rectangular by definition)
func New(cols ...Column) (*Table, error) {
	t := &Table{
		cols:  make([]Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}

	height := -1
	for _, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("table: column with empty name")
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", c.Name)
		}
		if height == -1 {
			height = len(c.Values)
		} else if len(c.Values) != height {
			return nil, fmt.Errorf("table: column %q has %d values, want %d", c.Name, len(c.Values), height)
		}
		t.index[c.Name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// NumRows returns the table height. A table with no columns has zero rows.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0].Values)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns the column names in declaration order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Has reports whether a column with the given name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.cols[i], true
}

// Columns returns the columns in declaration order. The returned slice is a
// copy; the backing value slices are shared.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// Value returns the cell at (column name, row).
func (t *Table) Value(name string, row int) (any, bool) {
	i, ok := t.index[name]
	if !ok || row < 0 || row >= t.NumRows() {
		return nil, false
	}
	return t.cols[i].Values[row], true
}

// Row returns row i as a positional slice aligned to Names().
func (t *Table) Row(i int) []any {
	out := make([]any, len(t.cols))
	for c := range t.cols {
		out[c] = t.cols[c].Values[i]
	}
	return out
}

// Select returns a new table holding only the named columns, in the given
// order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, fmt.Errorf("table: select: no column %q", n)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Drop returns a new table without the named columns. Dropping a column that
// does not exist is a no-op.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	cols := make([]Column, 0, len(t.cols))
	for _, c := range t.cols {
		if _, ok := skip[c.Name]; ok {
			continue
		}
		cols = append(cols, c)
	}
	out, err := New(cols...)
	if err != nil {
		// Dropping columns cannot introduce duplicates or ragged heights.
		panic(err)
	}
	return out
}

// WithColumn returns a new table where the named column is replaced in place
// when it already exists, or appended otherwise.
//
// Errors:
//   - values length differs from the table height (unless the table has no
//     columns yet).
func (t *Table) WithColumn(name string, values []any) (*Table, error) {
	if len(t.cols) > 0 && len(values) != t.NumRows() {
		return nil, fmt.Errorf("table: column %q has %d values, want %d", name, len(values), t.NumRows())
	}

	cols := make([]Column, len(t.cols))
	copy(cols, t.cols)

	if i, ok := t.index[name]; ok {
		cols[i] = Column{Name: name, Values: values}
	} else {
		cols = append(cols, Column{Name: name, Values: values})
	}
	return New(cols...)
}
