package models

import (
	"strconv"
	"strings"
)

// Cell is one value of a Dataset. The zero value is a missing (null) cell.
type Cell struct {
	Value string
	Valid bool
}

// Str returns a present cell holding s.
func Str(s string) Cell { return Cell{Value: s, Valid: true} }

// Int returns a present cell holding the decimal form of n.
func Int(n int) Cell { return Str(strconv.Itoa(n)) }

// Float returns a present cell holding the shortest decimal form of f.
func Float(f float64) Cell { return Str(strconv.FormatFloat(f, 'f', -1, 64)) }

// Null returns a missing cell.
func Null() Cell { return Cell{} }

// IsNull reports whether the cell is missing.
func (c Cell) IsNull() bool { return !c.Valid }

// Number parses the cell as a float. Missing or non-numeric cells return false.
func (c Cell) Number() (float64, bool) {
	if !c.Valid {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Dataset is an ordered, column-named table of cells. Every row has
// len(Columns) cells.
type Dataset struct {
	Columns []string
	Rows    [][]Cell
}

// NewDataset creates an empty Dataset with the given columns.
func NewDataset(columns []string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Columns: cols}
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// Index returns the position of the named column, or -1.
func (d *Dataset) Index(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (d *Dataset) Has(name string) bool { return d.Index(name) >= 0 }

// Column returns a copy of the named column's cells, or nil if absent.
func (d *Dataset) Column(name string) []Cell {
	idx := d.Index(name)
	if idx < 0 {
		return nil
	}
	out := make([]Cell, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := NewDataset(d.Columns)
	out.Rows = make([][]Cell, len(d.Rows))
	for i, row := range d.Rows {
		r := make([]Cell, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// Select returns a new Dataset holding only the rows at the given indices,
// in that order.
func (d *Dataset) Select(indices []int) *Dataset {
	out := NewDataset(d.Columns)
	out.Rows = make([][]Cell, len(indices))
	for i, idx := range indices {
		r := make([]Cell, len(d.Rows[idx]))
		copy(r, d.Rows[idx])
		out.Rows[i] = r
	}
	return out
}

// Filter keeps the rows for which keep returns true.
func (d *Dataset) Filter(keep func(row []Cell) bool) *Dataset {
	out := NewDataset(d.Columns)
	for _, row := range d.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Drop returns a new Dataset without the named columns. Unknown names are
// ignored.
func (d *Dataset) Drop(names ...string) *Dataset {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	var keep []int
	for i, c := range d.Columns {
		if _, ok := drop[c]; !ok {
			keep = append(keep, i)
		}
	}
	return d.project(keep)
}

func (d *Dataset) project(keep []int) *Dataset {
	cols := make([]string, len(keep))
	for j, i := range keep {
		cols[j] = d.Columns[i]
	}
	out := NewDataset(cols)
	out.Rows = make([][]Cell, len(d.Rows))
	for r, row := range d.Rows {
		nr := make([]Cell, len(keep))
		for j, i := range keep {
			nr[j] = row[i]
		}
		out.Rows[r] = nr
	}
	return out
}

// Set replaces the named column's values in place. It panics if the column
// is absent or the length differs; callers check with Has first.
func (d *Dataset) Set(name string, values []Cell) {
	idx := d.Index(name)
	if idx < 0 || len(values) != len(d.Rows) {
		panic("models: Set on unknown column or mismatched length: " + name)
	}
	for i := range d.Rows {
		d.Rows[i][idx] = values[i]
	}
}

// Append adds a column at the end. If the column already exists it is
// overwritten in place instead.
func (d *Dataset) Append(name string, values []Cell) {
	if d.Has(name) {
		d.Set(name, values)
		return
	}
	d.Columns = append(d.Columns, name)
	for i := range d.Rows {
		d.Rows[i] = append(d.Rows[i], values[i])
	}
}
