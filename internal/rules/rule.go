// Package rules defines correction rules: pure predicates over a module's
// joined rows, each tied to a Platform tab, a stable update id and one or
// more notification variants.
package rules

import (
	"errors"
	"fmt"
	"time"

	"pears-cleaning/internal/fiscal"
	"pears-cleaning/internal/lookup"
)

// Level says whether a rule describes the parent record or one of its
// children. Child level firings keep a joined row from being collapsed
// into its parent during deduplication.
type Level int

const (
	ParentLevel Level = iota
	ChildLevel
)

// Field names a source column a rule reads.
type Field struct {
	Sheet  string
	Column string
}

// On lists fields of one sheet.
func On(sheet string, columns ...string) []Field {
	out := make([]Field, len(columns))
	for i, c := range columns {
		out[i] = Field{Sheet: sheet, Column: c}
	}
	return out
}

// Frame is the evaluation context shared by every rule of one module run.
type Frame[R any] struct {
	Rows       []R
	Now        time.Time
	FiscalYear int
	Window     fiscal.Window

	memo map[*tally]map[string]int
}

// NewFrame prepares rows for evaluation at the given instant.
func NewFrame[R any](rows []R, now time.Time) *Frame[R] {
	fy, w := fiscal.ReportWindow(now)
	return &Frame[R]{Rows: rows, Now: now, FiscalYear: fy, Window: w, memo: make(map[*tally]map[string]int)}
}

// Predicate decides whether a rule fires on one row.
type Predicate[R any] func(f *Frame[R], r R) bool

// Case is one notification variant of a rule.
type Case[R any] struct {
	Variant string
	When    Predicate[R]
}

// Rule is a declarative correction check. When several cases fire the
// last declared one decides the message.
type Rule[R any] struct {
	ID     string
	Tab    string
	Level  Level
	Fields []Field
	Cases  []Case[R]
}

// When is a rule with a single case using the module's default variant.
func When[R any](p Predicate[R]) []Case[R] {
	return []Case[R]{{When: p}}
}

// Row lifts a row-local test into a predicate.
func Row[R any](fn func(r R) bool) Predicate[R] {
	return func(_ *Frame[R], r R) bool { return fn(r) }
}

// And fires when every predicate does.
func And[R any](ps ...Predicate[R]) Predicate[R] {
	return func(f *Frame[R], r R) bool {
		for _, p := range ps {
			if !p(f, r) {
				return false
			}
		}
		return true
	}
}

type tally struct{ _ byte }

// Duplicated fires when the row's key is shared with at least one other
// row in the frame. Rows for which key reports ok=false never match.
func Duplicated[R any](key func(r R) (string, bool)) Predicate[R] {
	id := &tally{}
	return func(f *Frame[R], r R) bool {
		k, ok := key(r)
		if !ok {
			return false
		}
		counts, seen := f.memo[id]
		if !seen {
			counts = make(map[string]int)
			for _, other := range f.Rows {
				if otherKey, has := key(other); has {
					counts[otherKey]++
				}
			}
			f.memo[id] = counts
		}
		return counts[k] > 1
	}
}

// MissingFieldError is returned at registration when a rule reads a column
// the loaded export does not have.
type MissingFieldError struct {
	Module string
	Rule   string
	Field  Field
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("module %q rule %q reads %q from sheet %q, which the export does not provide",
		e.Module, e.Rule, e.Field.Column, e.Field.Sheet)
}

// Columns is the set of loaded columns per sheet.
type Columns map[string]map[string]bool

// Has reports whether the sheet provides the column.
func (c Columns) Has(f Field) bool { return c[f.Sheet][f.Column] }

// Compiled is a rule bound to its resolved notification texts.
type Compiled[R any] struct {
	Rule[R]
	Messages []string
}

// Compile validates rules against the loaded columns and resolves their
// notification texts. Every problem found is reported.
func Compile[R any](module, defaultVariant string, rs []Rule[R], cols Columns, texts *lookup.NotificationTexts) ([]Compiled[R], error) {
	var errs []error
	out := make([]Compiled[R], 0, len(rs))
	ids := make(map[string]bool, len(rs))
	for _, r := range rs {
		if ids[r.ID] {
			errs = append(errs, fmt.Errorf("module %q declares rule %q twice", module, r.ID))
			continue
		}
		ids[r.ID] = true

		for _, f := range r.Fields {
			if !cols.Has(f) {
				errs = append(errs, &MissingFieldError{Module: module, Rule: r.ID, Field: f})
			}
		}

		c := Compiled[R]{Rule: r, Messages: make([]string, len(r.Cases))}
		for i, cs := range r.Cases {
			variant := cs.Variant
			if variant == "" {
				variant = defaultVariant
			}
			msg, err := texts.Lookup(module, r.ID, variant)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			c.Messages[i] = msg
		}
		out = append(out, c)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluate returns the message of the last firing case, or nil.
func (c Compiled[R]) Evaluate(f *Frame[R], r R) *string {
	var msg *string
	for i, cs := range c.Cases {
		if cs.When(f, r) {
			m := c.Messages[i]
			msg = &m
		}
	}
	return msg
}
