// Package workbook reads Platform exports and reference workbooks into
// record tables and writes formatted report workbooks.
package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"pears-cleaning/internal/records"
)

// SheetNotFoundError is returned when a workbook lacks an expected sheet.
type SheetNotFoundError struct {
	Path  string
	Sheet string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("workbook %s has no sheet %q", e.Path, e.Sheet)
}

// Book is an open workbook.
type Book struct {
	path string
	f    *excelize.File
}

// Open opens an .xlsx file for reading.
func Open(path string) (*Book, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	return &Book{path: path, f: f}, nil
}

// Close releases the workbook.
func (b *Book) Close() error {
	return b.f.Close()
}

// Sheets lists sheet names in workbook order.
func (b *Book) Sheets() []string {
	return b.f.GetSheetList()
}

// Table reads a sheet, treating its first row as the header. Cell values
// are raw so that dates arrive as serial numbers.
func (b *Book) Table(sheet string) (*records.Table, error) {
	idx, err := b.f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, &SheetNotFoundError{Path: b.path, Sheet: sheet}
	}

	rows, err := b.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, b.path, err)
	}
	if len(rows) == 0 {
		return records.NewTable(sheet, nil, nil), nil
	}
	return records.NewTable(sheet, rows[0], rows[1:]), nil
}

// FirstTable reads the first sheet of the workbook.
func (b *Book) FirstTable() (*records.Table, error) {
	sheets := b.Sheets()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", b.path)
	}
	return b.Table(sheets[0])
}

// ReadTables opens a workbook and reads the named sheets.
func ReadTables(path string, sheets ...string) (map[string]*records.Table, error) {
	b, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	out := make(map[string]*records.Table, len(sheets))
	for _, s := range sheets {
		t, err := b.Table(s)
		if err != nil {
			return nil, err
		}
		out[s] = t
	}
	return out, nil
}
