// Package fiscal computes the reporting periods cleaning runs are scoped
// to. The fiscal year starts on October 1 and is named for the calendar
// year it ends in.
package fiscal

import (
	"fmt"
	"time"
)

// Year returns the fiscal year containing t.
func Year(t time.Time) int {
	if t.Month() >= time.October {
		return t.Year() + 1
	}
	return t.Year()
}

// Window is an inclusive date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// YearWindow is October 1 of the prior calendar year through September 30.
func YearWindow(fy int, loc *time.Location) Window {
	return Window{
		Start: time.Date(fy-1, time.October, 1, 0, 0, 0, 0, loc),
		End:   time.Date(fy, time.September, 30, 0, 0, 0, 0, loc),
	}
}

// Contains compares by calendar date, ignoring the time of day.
func (w Window) Contains(t time.Time) bool {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, w.Start.Location())
	return !d.Before(w.Start) && !d.After(w.End)
}

// PreviousMonth returns the first day of the month before now, which is
// the period a report run covers.
func PreviousMonth(now time.Time) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return first.AddDate(0, -1, 0)
}

// ReportWindow is the fiscal year of the month a run reports on.
func ReportWindow(now time.Time) (int, Window) {
	fy := Year(PreviousMonth(now))
	return fy, YearWindow(fy, now.Location())
}

// Deadline is the given day of the current month at 17:00. A day past the
// end of the month falls on its last day.
func Deadline(now time.Time, day int) time.Time {
	last := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	day = min(day, last)
	return time.Date(now.Year(), now.Month(), day, 17, 0, 0, 0, now.Location())
}

// DeadlineLayout renders deadlines as "Wednesday Oct 19, 2022".
const DeadlineLayout = "Monday Jan 02, 2006"

// Quarter identifies a fiscal quarter for survey collection.
type Quarter struct {
	Code  string
	Label string
}

var surveyQuarters = map[time.Month]Quarter{
	time.December:  {Code: "Q1", Label: "Quarter 1 (October-December)"},
	time.March:     {Code: "Q2", Label: "Quarter 2 (January-March)"},
	time.June:      {Code: "Q3", Label: "Quarter 3 (April-June)"},
	time.September: {Code: "Q4", Label: "Quarter 4 (July-September)"},
}

// QuarterError is returned when a quarterly run is started in a month that
// does not follow a quarter end.
type QuarterError struct {
	Month time.Month
}

func (e *QuarterError) Error() string {
	return fmt.Sprintf("%s does not close a fiscal quarter", e.Month)
}

// SurveyQuarter returns the quarter that ended with the previous month.
func SurveyQuarter(now time.Time) (Quarter, error) {
	m := PreviousMonth(now).Month()
	q, ok := surveyQuarters[m]
	if !ok {
		return Quarter{}, &QuarterError{Month: m}
	}
	return q, nil
}
