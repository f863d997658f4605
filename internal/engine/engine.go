// Package engine runs a module's rule table over its joined rows and
// produces the corrections table and summary for that module.
//
// A run evaluates every rule per row, joins the fired messages of each tab
// into one annotation, keeps rows with at least one annotation, collapses
// parent-only duplicates introduced by the child join and counts firings
// per update id.
package engine

import (
	"strings"
	"time"

	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/rules"
)

// Identity columns carried by every corrections table.
const (
	ColReportedBy      = "reported_by"
	ColReportedByEmail = "reported_by_email"
	ColUnit            = "unit"
)

// IdentityColumns are stripped from per-recipient views.
var IdentityColumns = []string{ColReportedBy, ColReportedByEmail, ColUnit}

// TotalUpdate labels the summary row counting corrections rows.
const TotalUpdate = "Total"

// Format controls how a cell is rendered in notifications.
type Format int

const (
	FormatText Format = iota
	FormatDate
	FormatDateTime
)

// Column is one output column. Tab columns take their value from the
// annotation of the tab with the same name.
type Column[R any] struct {
	Name   string
	Value  func(r R) any
	Tab    bool
	Format Format
}

// Col declares a value column.
func Col[R any](name string, value func(r R) any) Column[R] {
	return Column[R]{Name: name, Value: value}
}

// DateCol declares a date valued column rendered without a time.
func DateCol[R any](name string, value func(r R) any) Column[R] {
	return Column[R]{Name: name, Value: value, Format: FormatDate}
}

// DateTimeCol declares a timestamp column.
func DateTimeCol[R any](name string, value func(r R) any) Column[R] {
	return Column[R]{Name: name, Value: value, Format: FormatDateTime}
}

// TabCol places a tab annotation.
func TabCol[R any](tab string) Column[R] {
	return Column[R]{Name: tab, Tab: true}
}

// Value dereferences an optional field for display. Missing values become
// nil cells.
func Value[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// Owner identifies the staff member responsible for a row.
type Owner struct {
	Name  string
	Email string
	Unit  string
}

// Module is the declarative description of one module's cleaning.
type Module[R any] struct {
	// Name is the display name and the Module key of notification texts
	// unless TextModule is set.
	Name       string
	TextModule string
	// Sheet is the report tab name.
	Sheet string
	// Variant is used by rule cases that do not name one.
	Variant string
	Rules   []rules.Rule[R]
	Columns []Column[R]
	// EmailColumns selects the columns shown in notifications.
	EmailColumns []string
	// ParentID groups the rows that Dedupe collapses.
	ParentID func(r R) string
	Owner    func(r R) Owner
}

func (m Module[R]) textModule() string {
	if m.TextModule != "" {
		return m.TextModule
	}
	return m.Name
}

func (m Module[R]) variant() string {
	if m.Variant != "" {
		return m.Variant
	}
	return lookup.Notification1
}

// Input is a module's prepared rows plus the columns the export provided.
type Input[R any] struct {
	Rows    []R
	Columns rules.Columns
}

// Row is one corrections row.
type Row struct {
	ParentID string
	Owner    Owner
	Cells    []any
	Fired    []string
	// ChildFlagged is set when a child level rule fired on the row.
	ChildFlagged bool
}

// SummaryRow is one line of the corrections summary.
type SummaryRow struct {
	Module       string
	Update       string
	Entries      int
	Notification string
}

// Result is the output of one module run.
type Result struct {
	Module       string
	Sheet        string
	Columns      []string
	Formats      []Format
	EmailColumns []string
	Rows         []Row
	Summary      []SummaryRow
}

// Run compiles the module's rules against the loaded columns, then
// evaluates them. Compilation errors are returned before any row is
// evaluated.
func Run[R any](m Module[R], in Input[R], texts *lookup.NotificationTexts, now time.Time) (*Result, error) {
	compiled, err := rules.Compile(m.textModule(), m.variant(), m.Rules, in.Columns, texts)
	if err != nil {
		return nil, err
	}

	frame := rules.NewFrame(in.Rows, now)
	tabs := tabOrder(compiled)

	res := &Result{
		Module:       m.Name,
		Sheet:        m.Sheet,
		Columns:      make([]string, len(m.Columns)),
		Formats:      make([]Format, len(m.Columns)),
		EmailColumns: m.EmailColumns,
	}
	for i, c := range m.Columns {
		res.Columns[i] = c.Name
		res.Formats[i] = c.Format
	}

	var rows []Row
	for _, r := range in.Rows {
		messages := make(map[string][]string, len(tabs))
		var fired []string
		childFlagged := false
		for _, c := range compiled {
			msg := c.Evaluate(frame, r)
			if msg == nil {
				continue
			}
			fired = append(fired, c.ID)
			messages[c.Tab] = append(messages[c.Tab], *msg)
			if c.Level == rules.ChildLevel {
				childFlagged = true
			}
		}

		annotations := make(map[string]*string, len(tabs))
		for _, tab := range tabs {
			if a := Concat(messages[tab]); a != nil {
				annotations[tab] = a
			}
		}
		if len(annotations) == 0 {
			continue
		}

		cells := make([]any, len(m.Columns))
		for i, c := range m.Columns {
			if c.Tab {
				if a := annotations[c.Name]; a != nil {
					cells[i] = *a
				}
				continue
			}
			cells[i] = c.Value(r)
		}

		rows = append(rows, Row{
			ParentID:     m.ParentID(r),
			Owner:        m.Owner(r),
			Cells:        cells,
			Fired:        fired,
			ChildFlagged: childFlagged,
		})
	}

	res.Rows = Dedupe(rows)
	res.Summary = Summarize(m.Name, m.textModule(), m.variant(), compiled, res.Rows, texts)
	return res, nil
}

func tabOrder[R any](compiled []rules.Compiled[R]) []string {
	var tabs []string
	seen := make(map[string]bool)
	for _, c := range compiled {
		if !seen[c.Tab] {
			seen[c.Tab] = true
			tabs = append(tabs, c.Tab)
		}
	}
	return tabs
}

// Concat joins non-empty messages with newlines. The result is nil when
// nothing remains.
func Concat(messages []string) *string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m = strings.TrimSpace(m); m != "" {
			parts = append(parts, m)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	out := strings.Join(parts, "\n")
	return &out
}

// Dedupe collapses rows that only repeat their parent's flags. Within one
// parent id, if no row has a child level flag only the first row is kept.
// Otherwise the child flagged rows are kept, plus the first parent level
// row that fired an update none of them carries. Order is preserved.
func Dedupe(rows []Row) []Row {
	carried := make(map[string]map[string]bool)
	for _, r := range rows {
		if !r.ChildFlagged {
			continue
		}
		ids := carried[r.ParentID]
		if ids == nil {
			ids = make(map[string]bool)
			carried[r.ParentID] = ids
		}
		for _, id := range r.Fired {
			ids[id] = true
		}
	}

	out := make([]Row, 0, len(rows))
	kept := make(map[string]bool)
	for _, r := range rows {
		if ids, flagged := carried[r.ParentID]; flagged {
			if r.ChildFlagged {
				out = append(out, r)
				continue
			}
			if !kept[r.ParentID] && !coveredBy(r.Fired, ids) {
				kept[r.ParentID] = true
				out = append(out, r)
			}
			continue
		}
		if !kept[r.ParentID] {
			kept[r.ParentID] = true
			out = append(out, r)
		}
	}
	return out
}

func coveredBy(fired []string, ids map[string]bool) bool {
	for _, id := range fired {
		if !ids[id] {
			return false
		}
	}
	return true
}

// Summarize counts corrections rows per fired update id in rule order,
// skipping ids that never fired, and appends the Total row.
func Summarize[R any](module, textModule, variant string, compiled []rules.Compiled[R], rows []Row, texts *lookup.NotificationTexts) []SummaryRow {
	counts := make(map[string]int)
	for _, r := range rows {
		for _, id := range r.Fired {
			counts[id]++
		}
	}

	var out []SummaryRow
	for _, c := range compiled {
		if n := counts[c.ID]; n > 0 {
			out = append(out, SummaryRow{
				Module:       module,
				Update:       c.ID,
				Entries:      n,
				Notification: texts.Describe(textModule, c.ID, variant),
			})
		}
	}
	return append(out, SummaryRow{Module: module, Update: TotalUpdate, Entries: len(rows)})
}
