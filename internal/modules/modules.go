// Package modules declares the cleaning of each Platform module: how its
// export is scoped, enriched and joined, the rules evaluated over the
// joined rows, and the columns of its corrections table.
//
// Modules are registered in a Registry, which the report runners iterate in
// registration order:
//
//	reg := modules.Monthly(pears.ExportsIn(dir))
//	for _, c := range reg.List() {
//		res, err := c.Clean(ref, now)
//	}
package modules

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/pears"
	"pears-cleaning/internal/rules"
)

// Cleaner loads one module's export and runs its rules.
type Cleaner interface {
	Name() string
	Sheet() string
	Clean(ref *lookup.Reference, now time.Time) (*engine.Result, error)
}

// cleaner binds a loader, a prepare step and a rule table for one record type.
type cleaner[D any, R any] struct {
	name    string
	sheet   string
	load    func() (D, error)
	prepare func(d D, ref *lookup.Reference) engine.Input[R]
	module  func(ref *lookup.Reference) engine.Module[R]
}

func (c *cleaner[D, R]) Name() string  { return c.name }
func (c *cleaner[D, R]) Sheet() string { return c.sheet }

func (c *cleaner[D, R]) Clean(ref *lookup.Reference, now time.Time) (*engine.Result, error) {
	d, err := c.load()
	if err != nil {
		return nil, err
	}
	return engine.Run(c.module(ref), c.prepare(d, ref), ref.Texts, now)
}

// Registry holds the cleaners of one report in registration order.
type Registry struct {
	mu       sync.RWMutex
	cleaners map[string]Cleaner
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{cleaners: make(map[string]Cleaner)}
}

// Register adds a cleaner. Names must be unique.
func (r *Registry) Register(c Cleaner) error {
	if c == nil {
		return fmt.Errorf("cleaner cannot be nil")
	}
	name := c.Name()
	if name == "" {
		return fmt.Errorf("cleaner name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cleaners[name]; exists {
		return fmt.Errorf("module %s is already registered", name)
	}
	r.cleaners[name] = c
	r.order = append(r.order, name)
	return nil
}

// Get returns the named cleaner.
func (r *Registry) Get(name string) (Cleaner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cleaners[name]
	if !ok {
		return nil, fmt.Errorf("module %s not found", name)
	}
	return c, nil
}

// List returns the cleaners in registration order.
func (r *Registry) List() []Cleaner {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Cleaner, len(r.order))
	for i, name := range r.order {
		out[i] = r.cleaners[name]
	}
	return out
}

// Names returns the registered module names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

func mustRegister(r *Registry, cs ...Cleaner) *Registry {
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Monthly registers the five monthly modules.
func Monthly(paths pears.ExportPaths) *Registry {
	return mustRegister(NewRegistry(),
		NewCoalitions(paths.Coalitions),
		NewIndirectActivities(paths.IndirectActivities),
		NewPartnerships(paths.Partnerships),
		NewProgramActivities(paths.ProgramActivities),
		NewSiteActivities(paths.SiteActivities),
	)
}

// Tabs shared by several modules.
const (
	TabGeneral    = "GENERAL INFORMATION TAB UPDATES"
	TabCustomData = "CUSTOM DATA TAB UPDATES"
	TabEvaluation = "EVALUATION TAB UPDATES"
)

// PlaceholderName marks Platform records created as placeholders.
const PlaceholderName = "abc placeholder"

var fold = cases.Fold()

// isTestRecord reports names containing "test" in any case.
func isTestRecord(name *string) bool {
	return name != nil && strings.Contains(fold.String(*name), "test")
}

func text(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func id(n int64) string { return strconv.FormatInt(n, 10) }

func owner(m pears.Meta, unit *string) engine.Owner {
	return engine.Owner{Name: m.Name(), Email: m.Email(), Unit: text(unit)}
}

// columns adapts the loaded export columns for rule compilation.
func columns(c pears.Columns) rules.Columns {
	return rules.Columns(c)
}

// Shared display columns.
func identity[R any](m func(R) pears.Meta, unit func(R) *string) []engine.Column[R] {
	return []engine.Column[R]{
		engine.Col(engine.ColReportedBy, func(r R) any { return engine.Value(m(r).ReportedBy) }),
		engine.Col(engine.ColReportedByEmail, func(r R) any { return engine.Value(m(r).ReportedByEmail) }),
		engine.DateTimeCol("created", func(r R) any { return engine.Value(m(r).Created) }),
		engine.DateTimeCol("modified", func(r R) any { return engine.Value(m(r).Modified) }),
		engine.Col(engine.ColUnit, func(r R) any { return engine.Value(unit(r)) }),
	}
}

func concat[T any](parts ...[]T) []T {
	var out []T
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
