// Package notify splits corrections by the staff member responsible for
// them, decides where each notification points for help, renders the HTML
// bodies and delivers them, keeping a list of failed deliveries.
package notify

import (
	"slices"
	"sort"

	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/lookup"
)

// Recipient is a staff member who owns at least one corrections row.
type Recipient struct {
	Name  string
	Email string
	Unit  string
}

// Table is one module's corrections projected for a notification or the
// former staff workbook.
type Table struct {
	Module  string
	Sheet   string
	Columns []string
	Formats []engine.Format
	Rows    [][]any
}

// Empty reports a table without rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Notice is everything a current staff member is sent.
type Notice struct {
	Recipient Recipient
	Staff     lookup.StaffMember
	// Tables holds one entry per module, in module order. Modules with no
	// rows for the recipient are present but empty.
	Tables []Table
}

// Partition is the per-recipient split of a run's corrections.
type Partition struct {
	Current []Notice
	// Former holds, per module, the rows owned by anyone not on the current
	// staff list. Identity columns are kept so the rows can be reassigned.
	Former []Table
}

// HasFormer reports whether any module has former staff rows.
func (p *Partition) HasFormer() bool {
	for _, t := range p.Former {
		if !t.Empty() {
			return true
		}
	}
	return false
}

// Recipients lists the owners of every corrections row sorted by name and
// unit. Each email appears once; the first entry in sort order wins.
func Recipients(results []*engine.Result) []Recipient {
	var all []Recipient
	for _, res := range results {
		for _, r := range res.Rows {
			all = append(all, Recipient{Name: r.Owner.Name, Email: r.Owner.Email, Unit: r.Owner.Unit})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].Unit < all[j].Unit
	})

	seen := make(map[string]bool, len(all))
	out := make([]Recipient, 0, len(all))
	for _, r := range all {
		key := lookup.EmailKey(r.Email)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// Split partitions the results between current staff notices and the
// former staff tables. Every corrections row lands in exactly one of them.
func Split(results []*engine.Result, staff *lookup.Directory) *Partition {
	p := &Partition{}
	for _, rec := range Recipients(results) {
		member, ok := staff.Lookup(rec.Email)
		if !ok {
			continue
		}
		key := lookup.EmailKey(rec.Email)
		n := Notice{Recipient: rec, Staff: member}
		for _, res := range results {
			n.Tables = append(n.Tables, project(res, currentColumns(res), func(r engine.Row) bool {
				return lookup.EmailKey(r.Owner.Email) == key
			}))
		}
		p.Current = append(p.Current, n)
	}

	for _, res := range results {
		p.Former = append(p.Former, project(res, emailColumns(res), func(r engine.Row) bool {
			return !staff.IsCurrent(r.Owner.Email)
		}))
	}
	return p
}

func emailColumns(res *engine.Result) []string {
	if len(res.EmailColumns) > 0 {
		return res.EmailColumns
	}
	return res.Columns
}

// currentColumns drops the identity columns a recipient does not need.
func currentColumns(res *engine.Result) []string {
	var out []string
	for _, c := range emailColumns(res) {
		if !slices.Contains(engine.IdentityColumns, c) {
			out = append(out, c)
		}
	}
	return out
}

// project selects rows and columns of a result. Unknown column names are
// skipped.
func project(res *engine.Result, columns []string, keep func(engine.Row) bool) Table {
	t := Table{Module: res.Module, Sheet: res.Sheet}
	var idx []int
	for _, c := range columns {
		if i := slices.Index(res.Columns, c); i >= 0 {
			idx = append(idx, i)
			t.Columns = append(t.Columns, c)
			t.Formats = append(t.Formats, res.Formats[i])
		}
	}
	for _, r := range res.Rows {
		if !keep(r) {
			continue
		}
		cells := make([]any, len(idx))
		for j, i := range idx {
			cells[j] = r.Cells[i]
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}
