package lookup

import (
	"strings"

	"pears-cleaning/internal/records"
)

// Contact is the regional specialist serving a unit.
type Contact struct {
	Name  string
	Email string
}

// RegionalContacts maps unit ids to their regional contact.
type RegionalContacts struct {
	byUnit map[string]Contact
}

// NewRegionalContacts builds the lookup from a unit keyed map.
func NewRegionalContacts(byUnit map[string]Contact) *RegionalContacts {
	rc := &RegionalContacts{byUnit: make(map[string]Contact, len(byUnit))}
	for unit, c := range byUnit {
		rc.byUnit[unitID(unit)] = c
	}
	return rc
}

// LoadRegionalContacts reads the "RE's and CD's" sheet. Names are stored
// "Last, First" with an optional ", Interim" marker, which is dropped.
func LoadRegionalContacts(t *records.Table) (*RegionalContacts, error) {
	schema := records.Schema{Sheet: t.Sheet, Fields: []records.FieldSpec{
		records.Text("UNIT #"), records.Text("REGIONAL EDUCATOR"), records.Text("RE E-MAIL"),
	}}
	if err := schema.Validate(t); err != nil {
		return nil, err
	}

	byUnit := make(map[string]Contact)
	for i := 0; i < t.Len(); i++ {
		unit := unitID(t.Cell(i, "UNIT #"))
		raw := strings.ReplaceAll(t.Cell(i, "REGIONAL EDUCATOR"), ", Interim", "")
		email := clean(t.Cell(i, "RE E-MAIL"))
		if unit == "" || raw == "" || email == "" {
			continue
		}
		if _, dup := byUnit[unit]; dup {
			continue
		}
		_, _, full := ReorderName(raw)
		byUnit[unit] = Contact{Name: full, Email: email}
	}
	return &RegionalContacts{byUnit: byUnit}, nil
}

// ForUnit returns the unit's contact, if any.
func (rc *RegionalContacts) ForUnit(unit string) (Contact, bool) {
	if rc == nil {
		return Contact{}, false
	}
	c, ok := rc.byUnit[unitID(unit)]
	return c, ok
}
