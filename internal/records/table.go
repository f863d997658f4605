// Package records holds the loaded form of a Platform export sheet: a named
// column grid, the schema it must satisfy, and typed accessors used by the
// per-module decoders.
package records

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Table is one sheet of a workbook with its header row split off.
type Table struct {
	Sheet   string
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable builds a table from a header and data rows. Short rows are
// treated as trailing empty cells.
func NewTable(sheet string, header []string, rows [][]string) *Table {
	t := &Table{Sheet: sheet, Columns: make([]string, len(header)), Rows: rows}
	for i, h := range header {
		t.Columns[i] = strings.TrimSpace(h)
	}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// Has reports whether the column is present.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Fields returns the set of column names present in the table.
func (t *Table) Fields() map[string]bool {
	out := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		out[c] = true
	}
	return out
}

// Len is the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Cell returns the trimmed raw value, or "" when the row is short or the
// column is absent.
func (t *Table) Cell(row int, column string) string {
	i, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][i])
}

// ValueError reports a cell that could not be converted to its declared type.
type ValueError struct {
	Sheet  string
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("sheet %q row %d column %q: cannot parse %q: %v", e.Sheet, e.Row+2, e.Column, e.Value, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }

// Row is a cursor over one data row. Conversion failures are sticky: the
// first one is kept and reported by Err.
type Row struct {
	table *Table
	index int
	err   error
}

// Index is the zero-based data row number.
func (r *Row) Index() int { return r.index }

// Err returns the first conversion error seen on this row.
func (r *Row) Err() error { return r.err }

func (r *Row) fail(column, value string, err error) {
	if r.err == nil {
		r.err = &ValueError{Sheet: r.table.Sheet, Row: r.index, Column: column, Value: value, Err: err}
	}
}

// Text returns nil for an empty or missing cell.
func (r *Row) Text(column string) *string {
	v := r.table.Cell(r.index, column)
	if v == "" || strings.EqualFold(v, "nan") {
		return nil
	}
	return &v
}

// Int accepts integral numbers written as floats ("12.0") and boolean words.
func (r *Row) Int(column string) *int64 {
	v := r.table.Cell(r.index, column)
	if v == "" {
		return nil
	}
	switch strings.ToLower(v) {
	case "true", "yes":
		one := int64(1)
		return &one
	case "false", "no":
		zero := int64(0)
		return &zero
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(column, v, err)
		return nil
	}
	if f != float64(int64(f)) {
		r.fail(column, v, fmt.Errorf("not an integer"))
		return nil
	}
	n := int64(f)
	return &n
}

// ID reads a required integer key.
func (r *Row) ID(column string) int64 {
	n := r.Int(column)
	if n == nil {
		if r.err == nil {
			r.fail(column, "", fmt.Errorf("required value is empty"))
		}
		return 0
	}
	return *n
}

// Float returns nil for an empty cell.
func (r *Row) Float(column string) *float64 {
	v := r.table.Cell(r.index, column)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(column, v, err)
		return nil
	}
	return &f
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 3:04:05 PM",
	"1/2/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
}

// Time accepts Excel serial dates as well as the textual layouts the
// Platform has used in its exports.
func (r *Row) Time(column string) *time.Time {
	v := r.table.Cell(r.index, column)
	if v == "" {
		return nil
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			r.fail(column, v, err)
			return nil
		}
		return &t
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return &t
		}
	}
	r.fail(column, v, fmt.Errorf("unrecognized date format"))
	return nil
}

// Decode converts every row of the table with fn and stops at the first
// conversion error.
func Decode[T any](t *Table, fn func(r *Row) T) ([]T, error) {
	out := make([]T, 0, t.Len())
	for i := range t.Rows {
		r := &Row{table: t, index: i}
		v := fn(r)
		if err := r.Err(); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
