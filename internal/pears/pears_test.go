package pears

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pears-cleaning/internal/records"
	"pears-cleaning/internal/workbook"
)

func writeCoalitionExport(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, CoalitionExport)
	err := workbook.Write(path, []workbook.Sheet{
		{
			Name: SheetCoalitions,
			Columns: []string{"coalition_id", "coalition_name", "reported_by", "reported_by_email", "created", "modified",
				"coalition_unit", "action_plan_name", "program_area", "relationship_depth", "on_hiatus_custom_data",
				"snap_ed_grant_goals_custom_data_Access", "snap_ed_grant_goals_custom_data_Policy"},
			Rows: [][]any{
				{101, "Healthy Dixon", "Kim Lee", "klee@example.edu", 44835, 44836, "Lee (County)", "", "SNAP-Ed", "Coalition", "No", 1, 0},
				{102, "Food Council", "Ana Ruiz", "aruiz@example.edu", 44840, 44841, "Unit 5", "Plan", "SNAP-Ed", "", "", 0, 0},
			},
		},
		{
			Name:    SheetMembers,
			Columns: []string{"member_id", "coalition_id", "name", "type", "site_id"},
			Rows:    [][]any{{9, 101, "Mary Smith", "Community members/individuals", ""}},
		},
	}, workbook.Options{})
	require.NoError(t, err)
	return path
}

func TestLoadCoalitions(t *testing.T) {
	path := writeCoalitionExport(t, t.TempDir())

	d, err := LoadCoalitions(path)
	require.NoError(t, err)
	require.Len(t, d.Coalitions, 2)
	require.Len(t, d.Members, 1)

	c := d.Coalitions[0]
	assert.Equal(t, int64(101), c.ID)
	assert.Nil(t, c.ActionPlanName)
	assert.Equal(t, "Access", *c.SNAPEdGrantGoals)
	assert.Equal(t, "No", *c.OnHiatus)
	assert.Equal(t, "klee@example.edu", c.Email())
	require.NotNil(t, c.Created)
	assert.Equal(t, time.Date(2022, time.October, 1, 0, 0, 0, 0, time.UTC), c.Created.UTC())

	assert.Nil(t, d.Coalitions[1].SNAPEdGrantGoals)
	assert.Nil(t, d.Members[0].SiteID)
	assert.True(t, d.Columns[SheetCoalitions]["snap_ed_grant_goals"])
	assert.True(t, d.Columns[SheetCoalitions]["on_hiatus"])
}

func TestDecodeSessions_MissingColumn(t *testing.T) {
	tbl := records.NewTable(SheetSessions, []string{"session_id", "program_id"}, [][]string{{"1", "2"}})

	_, err := DecodeSessions(tbl)

	var se *records.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Missing, "start_date_with_time")
}

func TestDecodeMembers_BadID(t *testing.T) {
	tbl := records.NewTable(SheetMembers, []string{"member_id", "coalition_id", "name", "type", "site_id"},
		[][]string{{"x", "2", "", "", ""}})

	_, err := DecodeMembers(tbl)

	var ve *records.ValueError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "member_id", ve.Column)
}

func TestCoalitionIDDigits(t *testing.T) {
	s := func(v string) *string { return &v }

	assert.Equal(t, "1234", *CoalitionIDDigits(s("Coalition #1234")))
	assert.Equal(t, "77", *CoalitionIDDigits(s("77")))
	assert.Nil(t, CoalitionIDDigits(s("none")))
	assert.Nil(t, CoalitionIDDigits(nil))
}

func TestExportsIn(t *testing.T) {
	p := ExportsIn("/data")
	assert.Equal(t, filepath.Join("/data", "PSE_Site_Activity_Export.xlsx"), p.SiteActivities)
	assert.Equal(t, filepath.Join("/data", "Coalition_Survey_Q2_Export.xlsx"), SurveyExport("/data", "Q2"))
}
