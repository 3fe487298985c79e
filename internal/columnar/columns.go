package columnar

import "github.com/reifydb/reifydb/internal/diagnostic"

// Column is one named, typed vector — §4.8's "typed vectors plus a
// validity bitmap" collapsed into a single []Value slice, since Value
// already carries its own null marker (KindNull).
type Column struct {
	Name   string
	Values []Value
}

// Columns is the unit of data flowing between operators (§4.8): a set
// of named columns sharing one row count, plus the row numbers each
// row was sourced from (needed by joins/updates/deletes to address the
// underlying table row).
type Columns struct {
	Cols       []Column
	RowNumbers []uint64
}

// NumRows reports the shared row count across all columns.
func (c *Columns) NumRows() int {
	if len(c.Cols) == 0 {
		return 0
	}
	return len(c.Cols[0].Values)
}

// IndexOf returns the position of a named column, or -1.
func (c *Columns) IndexOf(name string) int {
	for i, col := range c.Cols {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// Get returns the value of column name at row, or an error if the
// column does not exist.
func (c *Columns) Get(name string, row int) (Value, error) {
	i := c.IndexOf(name)
	if i < 0 {
		return Value{}, diagnostic.New(diagnostic.CodeResolveUnknownName, "unknown column").WithNote(name)
	}
	return c.Cols[i].Values[row], nil
}

// Select projects a row-index subset into a new Columns, preserving
// column order and row numbers. Used by Filter/Take/Sort/Distinct.
func (c *Columns) Select(rows []int) *Columns {
	out := &Columns{Cols: make([]Column, len(c.Cols))}
	for i, col := range c.Cols {
		vals := make([]Value, len(rows))
		for j, r := range rows {
			vals[j] = col.Values[r]
		}
		out.Cols[i] = Column{Name: col.Name, Values: vals}
	}
	if c.RowNumbers != nil {
		rn := make([]uint64, len(rows))
		for j, r := range rows {
			rn[j] = c.RowNumbers[r]
		}
		out.RowNumbers = rn
	}
	return out
}

// WithColumn appends or replaces a named column (Extend/Project semantics
// depend on which of these the caller uses).
func (c *Columns) WithColumn(name string, values []Value) {
	if i := c.IndexOf(name); i >= 0 {
		c.Cols[i].Values = values
		return
	}
	c.Cols = append(c.Cols, Column{Name: name, Values: values})
}

// HasColumn reports whether a column of that name is present.
func (c *Columns) HasColumn(name string) bool { return c.IndexOf(name) >= 0 }

// Names returns the ordered list of column names.
func (c *Columns) Names() []string {
	names := make([]string, len(c.Cols))
	for i, col := range c.Cols {
		names[i] = col.Name
	}
	return names
}

// Empty builds a zero-row Columns with the given column names, used as
// the identity value for operators over an empty input.
func Empty(names ...string) *Columns {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n}
	}
	return &Columns{Cols: cols}
}
