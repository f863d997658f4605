package workbook

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	err := Write(path, []Sheet{
		{
			Name:    "Corrections Summary",
			Columns: []string{"Module", "Update", "# of Entries", "Notification"},
			Rows: [][]any{
				{"Coalitions", "GI UPDATE1", 2, "Add an action plan."},
				{"Coalitions", "Total", 2, nil},
			},
		},
		{
			Name:    "Coalitions",
			Columns: []string{"coalition_id", "coalition_name"},
			Rows:    [][]any{{int64(7), "Healthy Eating Coalition"}},
		},
	}, ReportOptions)
	require.NoError(t, err)

	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, []string{"Corrections Summary", "Coalitions"}, b.Sheets())

	summary, err := b.Table("Corrections Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"Module", "Update", "# of Entries", "Notification"}, summary.Columns)
	assert.Equal(t, 2, summary.Len())
	assert.Equal(t, "Total", summary.Cell(1, "Update"))
	assert.Equal(t, "", summary.Cell(1, "Notification"))

	coalitions, err := b.Table("Coalitions")
	require.NoError(t, err)
	assert.Equal(t, "7", coalitions.Cell(0, "coalition_id"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	width, err := f.GetColWidth("Coalitions", "B")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Healthy Eating Coalition")+1), width)
}

func TestTable_MissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, Write(path, []Sheet{{Name: "Coalition Data", Columns: []string{"coalition_id"}}}, Options{}))

	_, err := ReadTables(path, "Members")
	require.Error(t, err)

	var nf *SheetNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "Members", nf.Sheet)
}

func TestWrite_NoSheets(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "empty.xlsx"), nil, Options{})
	assert.Error(t, err)
}
