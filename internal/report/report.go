// Package report runs a registry of module cleaners and turns the results
// into the corrections workbook, the staff notifications and the run
// ledger entries.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/modules"
	"pears-cleaning/internal/notify"
	"pears-cleaning/internal/workbook"
)

// Summary sheet layout.
const (
	SummarySheet = "Corrections Summary"
	// ErrorUpdate marks a summary row standing in for a failed module.
	ErrorUpdate = "ERROR"
)

// SummaryColumns are the headers of the summary sheet.
var SummaryColumns = []string{"Module", "Update", "# of Entries", "Notification"}

// ModuleError is a module that could not be evaluated.
type ModuleError struct {
	Module string
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %s: %v", e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

// Evaluation is the outcome of running every module of a registry.
type Evaluation struct {
	// Results are in registration order. A failed module has a nil entry.
	Results []*engine.Result
	// Errors holds one entry per failed module, in registration order.
	Errors []*ModuleError
	names  []string
}

// Err joins the module errors, or returns nil when every module ran.
func (ev *Evaluation) Err() error {
	errs := make([]error, len(ev.Errors))
	for i, e := range ev.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Succeeded returns the results of the modules that ran.
func (ev *Evaluation) Succeeded() []*engine.Result {
	var out []*engine.Result
	for _, res := range ev.Results {
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}

// Failed lists the names of the modules that did not run.
func (ev *Evaluation) Failed() []string {
	var out []string
	for _, e := range ev.Errors {
		out = append(out, e.Module)
	}
	return out
}

// Evaluate runs every registered module in parallel. A failing module does
// not stop the others.
func Evaluate(ctx context.Context, reg *modules.Registry, ref *lookup.Reference, now time.Time) *Evaluation {
	cleaners := reg.List()
	results := make([]*engine.Result, len(cleaners))
	errs := make([]error, len(cleaners))

	var g errgroup.Group
	for i, c := range cleaners {
		i, c := i, c
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = c.Clean(ref, now)
			return nil
		})
	}
	_ = g.Wait()

	ev := &Evaluation{Results: results, names: reg.Names()}
	for i, err := range errs {
		if err != nil {
			results[i] = nil
			ev.Errors = append(ev.Errors, &ModuleError{Module: cleaners[i].Name(), Err: err})
		}
	}
	return ev
}

// Summary concatenates the module summaries in registration order. A
// failed module contributes a single ERROR row carrying its error.
func (ev *Evaluation) Summary() []engine.SummaryRow {
	failed := make(map[string]error, len(ev.Errors))
	for _, e := range ev.Errors {
		failed[e.Module] = e.Err
	}

	var out []engine.SummaryRow
	for i, res := range ev.Results {
		if res != nil {
			out = append(out, res.Summary...)
			continue
		}
		name := ev.names[i]
		out = append(out, engine.SummaryRow{Module: name, Update: ErrorUpdate, Notification: failed[name].Error()})
	}
	return out
}

// Sheets lays out the corrections workbook: the summary followed by one
// sheet per module that ran.
func (ev *Evaluation) Sheets() []workbook.Sheet {
	summary := workbook.Sheet{Name: SummarySheet, Columns: SummaryColumns}
	for _, s := range ev.Summary() {
		summary.Rows = append(summary.Rows, []any{s.Module, s.Update, s.Entries, s.Notification})
	}

	sheets := []workbook.Sheet{summary}
	for _, res := range ev.Succeeded() {
		s := workbook.Sheet{Name: res.Sheet, Columns: res.Columns}
		for _, r := range res.Rows {
			s.Rows = append(s.Rows, r.Cells)
		}
		sheets = append(sheets, s)
	}
	return sheets
}

// FormerSheets lays out the former staff workbook, one sheet per module
// with rows.
func FormerSheets(tables []notify.Table) []workbook.Sheet {
	var sheets []workbook.Sheet
	for _, t := range tables {
		if t.Empty() {
			continue
		}
		sheets = append(sheets, workbook.Sheet{Name: t.Sheet, Columns: t.Columns, Rows: t.Rows})
	}
	return sheets
}

// Corrections is the number of corrections rows across the results.
func Corrections(results []*engine.Result) int {
	n := 0
	for _, res := range results {
		n += len(res.Rows)
	}
	return n
}
