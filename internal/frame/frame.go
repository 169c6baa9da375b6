// Package frame provides a minimal column-oriented table used as the
// interchange format between data providers and the router. It knows nothing
// about market semantics; it only tracks named columns and row counts.
package frame

import (
	"encoding/json"
	"fmt"
)

// Frame is an ordered set of named columns plus rows of opaque values.
// Column insertion order is significant and preserved through serialization.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New creates an empty frame with the given columns, in order.
// Duplicate column names are rejected.
func New(columns ...string) (*Frame, error) {
	f := &Frame{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for _, c := range columns {
		if _, dup := f.index[c]; dup {
			return nil, fmt.Errorf("frame: duplicate column %q", c)
		}
		f.index[c] = len(f.columns)
		f.columns = append(f.columns, c)
	}
	return f, nil
}

// MustNew is New but panics on duplicate columns. Intended for fixed
// column sets known at compile time.
func MustNew(columns ...string) *Frame {
	f, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return f
}

// AppendRow adds one row. The number of values must match the column count.
func (f *Frame) AppendRow(values ...any) error {
	if len(values) != len(f.columns) {
		return fmt.Errorf("frame: row has %d values, want %d", len(values), len(f.columns))
	}
	row := make([]any, len(values))
	copy(row, values)
	f.rows = append(f.rows, row)
	return nil
}

// NumRows returns the row count. Safe on a nil frame.
func (f *Frame) NumRows() int {
	if f == nil {
		return 0
	}
	return len(f.rows)
}

// NumCols returns the column count.
func (f *Frame) NumCols() int {
	if f == nil {
		return 0
	}
	return len(f.columns)
}

// IsEmpty reports whether the frame has no rows.
func (f *Frame) IsEmpty() bool {
	return f.NumRows() == 0
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// HasColumn reports whether the frame has a column with the given name.
func (f *Frame) HasColumn(name string) bool {
	if f == nil {
		return false
	}
	_, ok := f.index[name]
	return ok
}

// Column returns the values of the named column in row order.
func (f *Frame) Column(name string) ([]any, bool) {
	if f == nil {
		return nil, false
	}
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	out := make([]any, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row[i])
	}
	return out, true
}

// Row returns row i. Values are shared with the frame; callers must not
// mutate them.
func (f *Frame) Row(i int) []any {
	return f.rows[i]
}

// Cell returns the value at row i in the named column.
func (f *Frame) Cell(i int, column string) (any, bool) {
	j, ok := f.index[column]
	if !ok || i < 0 || i >= len(f.rows) {
		return nil, false
	}
	return f.rows[i][j], true
}

// frameJSON is the wire shape used for cache serialization.
type frameJSON struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON implements json.Marshaler.
func (f *Frame) MarshalJSON() ([]byte, error) {
	return json.Marshal(frameJSON{Columns: f.columns, Rows: f.rows})
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Frame) UnmarshalJSON(data []byte) error {
	var w frameJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	nf, err := New(w.Columns...)
	if err != nil {
		return err
	}
	for _, row := range w.Rows {
		if err := nf.AppendRow(row...); err != nil {
			return err
		}
	}
	*f = *nf
	return nil
}
