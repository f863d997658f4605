package fiscal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYear(t *testing.T) {
	assert.Equal(t, 2022, Year(date(2021, time.October, 1)))
	assert.Equal(t, 2022, Year(date(2022, time.September, 30)))
	assert.Equal(t, 2023, Year(date(2022, time.October, 1)))
}

func TestYearWindow_Contains(t *testing.T) {
	w := YearWindow(2022, time.UTC)
	assert.True(t, w.Contains(date(2021, time.October, 1)))
	assert.True(t, w.Contains(time.Date(2022, time.September, 30, 23, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(date(2021, time.September, 30)))
	assert.False(t, w.Contains(date(2022, time.October, 1)))
}

func TestReportWindow_UsesPreviousMonth(t *testing.T) {
	fy, w := ReportWindow(date(2022, time.October, 12))
	assert.Equal(t, 2022, fy)
	assert.Equal(t, date(2022, time.September, 30), w.End)

	fy, _ = ReportWindow(date(2022, time.November, 12))
	assert.Equal(t, 2023, fy)
}

func TestPreviousMonth(t *testing.T) {
	assert.Equal(t, date(2021, time.December, 1), PreviousMonth(date(2022, time.January, 31)))
}

func TestDeadline(t *testing.T) {
	d := Deadline(date(2022, time.October, 12), 19)
	assert.Equal(t, "Wednesday Oct 19, 2022", d.Format(DeadlineLayout))
}

func TestDeadline_ClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		now  time.Time
		day  int
		want string
	}{
		{date(2022, time.November, 12), 31, "Wednesday Nov 30, 2022"},
		{date(2023, time.February, 12), 30, "Tuesday Feb 28, 2023"},
		{date(2024, time.February, 12), 31, "Thursday Feb 29, 2024"},
		{date(2023, time.January, 12), 31, "Tuesday Jan 31, 2023"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			d := Deadline(tt.now, tt.day)
			assert.Equal(t, tt.want, d.Format(DeadlineLayout))
			assert.Equal(t, tt.now.Month(), d.Month())
			assert.Equal(t, 17, d.Hour())
		})
	}
}

func TestSurveyQuarter(t *testing.T) {
	q, err := SurveyQuarter(date(2022, time.January, 12))
	require.NoError(t, err)
	assert.Equal(t, Quarter{Code: "Q1", Label: "Quarter 1 (October-December)"}, q)

	q, err = SurveyQuarter(date(2022, time.October, 23))
	require.NoError(t, err)
	assert.Equal(t, "Q4", q.Code)

	_, err = SurveyQuarter(date(2022, time.February, 12))
	var qe *QuarterError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, time.January, qe.Month)
}
