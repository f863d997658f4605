package workbook

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const maxColumnWidth = 120

// Sheet is one tab of an output workbook.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Options control report formatting.
type Options struct {
	// FreezeHeader keeps the header row visible while scrolling.
	FreezeHeader bool
	// HighlightTotals renders rows whose second column is "Total" bold on a
	// light blue fill.
	HighlightTotals bool
}

// ReportOptions is the formatting used for corrections reports.
var ReportOptions = Options{FreezeHeader: true, HighlightTotals: true}

// Write saves the sheets to path. Every sheet gets an autofilter on its
// header and column widths fitted to content.
func Write(path string, sheets []Sheet, opts Options) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", s.Name, err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", s.Name, err)
		}
		if err := writeSheet(f, s, opts); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, s Sheet, opts Options) error {
	header := make([]any, len(s.Columns))
	widths := make([]int, len(s.Columns))
	for i, c := range s.Columns {
		header[i] = c
		widths[i] = utf8.RuneCountInString(c)
	}
	if err := f.SetSheetRow(s.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", s.Name, err)
	}

	for r, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
			if i < len(widths) {
				if n := utf8.RuneCountInString(display(v)); n > widths[i] {
					widths[i] = n
				}
			}
		}
		if err := f.SetSheetRow(s.Name, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", r+2, s.Name, err)
		}
	}

	if len(s.Columns) == 0 {
		return nil
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.Name, col, col, float64(min(w+1, maxColumnWidth))); err != nil {
			return fmt.Errorf("failed to size column %s of %q: %w", col, s.Name, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(s.Columns))
	if err != nil {
		return err
	}
	if err := f.AutoFilter(s.Name, "A1:"+last+"1", []excelize.AutoFilterOptions{}); err != nil {
		return fmt.Errorf("failed to set autofilter on %q: %w", s.Name, err)
	}

	if opts.FreezeHeader {
		if err := f.SetPanes(s.Name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("failed to freeze header of %q: %w", s.Name, err)
		}
	}

	if opts.HighlightTotals && len(s.Columns) >= 2 {
		style, err := f.NewConditionalStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true, Color: "000000"},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"DEEAF0"}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("failed to create total style: %w", err)
		}
		end := min(3, len(s.Columns))
		endCol, _ := excelize.ColumnNumberToName(end)
		ref := fmt.Sprintf("A1:%s%d", endCol, len(s.Rows)+1)
		if err := f.SetConditionalFormat(s.Name, ref, []excelize.ConditionalFormatOptions{
			{Type: "formula", Criteria: `=$B1="Total"`, Format: style},
		}); err != nil {
			return fmt.Errorf("failed to highlight totals on %q: %w", s.Name, err)
		}
	}
	return nil
}

func display(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(x)
	}
}
