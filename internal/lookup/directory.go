package lookup

import (
	"strings"

	"pears-cleaning/internal/records"
)

// Staff list sheet names.
const (
	SheetSNAPEdStaff   = "SNAP-Ed Staff List"
	SheetHEATStaff     = "HEAT Project Staff"
	SheetStateOffice   = "FCS State Office"
	SheetCPHPStaff     = "CPHP Staff List"
	SheetFormerStaff   = "Former Staff"
	SheetRegionalStaff = "RE's and CD's"
)

// StaffSheets are the sheets BuildDirectory reads, in merge order.
var StaffSheets = []string{SheetSNAPEdStaff, SheetHEATStaff, SheetStateOffice, SheetCPHPStaff, SheetFormerStaff}

// StaffMember is one row of the consolidated current staff list.
type StaffMember struct {
	Email     string
	FirstName string
	LastName  string
	FullName  string
}

// Directory is the consolidated staff list plus the per-sheet membership
// used for scope filters and routing exceptions.
type Directory struct {
	members []StaffMember
	byEmail map[string]int
	sheets  map[string]map[string]bool
	former  map[string]bool
}

// ReorderName splits a "Last, First" name.
func ReorderName(name string) (first, last, full string) {
	name = clean(name)
	parts := strings.SplitN(name, ", ", 2)
	last = parts[0]
	if len(parts) == 2 {
		first = parts[1]
	}
	full = strings.TrimSpace(first + " " + last)
	return first, last, full
}

// EmailKey is the form emails are compared in.
func EmailKey(email string) string {
	return strings.ToLower(clean(email))
}

// BuildDirectory merges the staff sheets into one directory. Rows missing
// a name or email are dropped and exact duplicates collapse to one entry.
// Missing optional sheets are tolerated; formerDomain is appended to the
// NETID column of the former staff sheet.
func BuildDirectory(tables map[string]*records.Table, formerDomain string) (*Directory, error) {
	d := &Directory{
		byEmail: make(map[string]int),
		sheets:  make(map[string]map[string]bool),
		former:  make(map[string]bool),
	}

	seen := make(map[StaffMember]bool)
	add := func(sheet string, m StaffMember) {
		if m.Email == "" || m.FirstName == "" || m.LastName == "" {
			return
		}
		key := EmailKey(m.Email)
		if d.sheets[sheet] == nil {
			d.sheets[sheet] = make(map[string]bool)
		}
		d.sheets[sheet][key] = true
		if seen[m] {
			return
		}
		seen[m] = true
		if _, ok := d.byEmail[key]; !ok {
			d.byEmail[key] = len(d.members)
		}
		d.members = append(d.members, m)
	}

	for _, sheet := range []string{SheetSNAPEdStaff, SheetHEATStaff, SheetStateOffice} {
		t, ok := tables[sheet]
		if !ok {
			continue
		}
		schema := records.Schema{Sheet: sheet, Fields: []records.FieldSpec{records.Text("NAME"), records.Text("E-MAIL")}}
		if err := schema.Validate(t); err != nil {
			return nil, err
		}
		for i := 0; i < t.Len(); i++ {
			name, email := t.Cell(i, "NAME"), clean(t.Cell(i, "E-MAIL"))
			if name == "" {
				continue
			}
			first, last, full := ReorderName(name)
			add(sheet, StaffMember{Email: email, FirstName: first, LastName: last, FullName: full})
		}
	}

	if t, ok := tables[SheetCPHPStaff]; ok {
		schema := records.Schema{Sheet: SheetCPHPStaff, Fields: []records.FieldSpec{
			records.Text("Last Name"), records.Text("First Name"), records.Text("Email Address"),
		}}
		if err := schema.Validate(t); err != nil {
			return nil, err
		}
		for i := 0; i < t.Len(); i++ {
			first, last := clean(t.Cell(i, "First Name")), clean(t.Cell(i, "Last Name"))
			add(SheetCPHPStaff, StaffMember{
				Email:     clean(t.Cell(i, "Email Address")),
				FirstName: first,
				LastName:  last,
				FullName:  strings.TrimSpace(first + " " + last),
			})
		}
	}

	if t, ok := tables[SheetFormerStaff]; ok {
		schema := records.Schema{Sheet: SheetFormerStaff, Fields: []records.FieldSpec{records.Text("NETID")}}
		if err := schema.Validate(t); err != nil {
			return nil, err
		}
		for i := 0; i < t.Len(); i++ {
			if netID := clean(t.Cell(i, "NETID")); netID != "" {
				d.former[EmailKey(netID+formerDomain)] = true
			}
		}
	}

	return d, nil
}

// Members returns the consolidated current staff in merge order.
func (d *Directory) Members() []StaffMember { return d.members }

// Lookup finds a current staff member by email.
func (d *Directory) Lookup(email string) (StaffMember, bool) {
	i, ok := d.byEmail[EmailKey(email)]
	if !ok {
		return StaffMember{}, false
	}
	return d.members[i], true
}

// IsCurrent reports whether the email is on the consolidated current list.
// Anyone not current is former staff for routing purposes, even if the
// former staff sheet does not name them.
func (d *Directory) IsCurrent(email string) bool {
	_, ok := d.byEmail[EmailKey(email)]
	return ok
}

// IsFormer is the negation of IsCurrent. A stale entry on the former staff
// sheet never outranks current membership.
func (d *Directory) IsFormer(email string) bool { return !d.IsCurrent(email) }

// InSheet reports whether the email was listed on the named staff sheet.
func (d *Directory) InSheet(sheet, email string) bool {
	return d.sheets[sheet][EmailKey(email)]
}

// ListedFormer reports whether the email appears on the former staff sheet.
// Only module scope filters use this; routing goes through IsCurrent.
func (d *Directory) ListedFormer(email string) bool {
	return d.former[EmailKey(email)]
}
