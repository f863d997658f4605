// Package lookup resolves the reference data a cleaning run is enriched
// with: county to unit mapping, the consolidated staff directory, regional
// contacts, notification texts and the given-name list.
//
// Every type here is built once at the start of a run and is read-only
// afterwards, so values may be shared between module pipelines.
package lookup

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"pears-cleaning/internal/records"
)

var unitDecorations = strings.NewReplacer(" (County)", "", " (District)", "", "Unit ", "")

// UnitCounties maps county names to the administrative unit serving them.
type UnitCounties struct {
	countyToUnit map[string]string
	units        map[string]bool
}

// NewUnitCounties builds the mapping from (county, unit) pairs.
func NewUnitCounties(pairs map[string]string) *UnitCounties {
	u := &UnitCounties{countyToUnit: make(map[string]string, len(pairs)), units: make(map[string]bool)}
	for county, unit := range pairs {
		county, unit = clean(county), clean(unit)
		if county == "" || unit == "" {
			continue
		}
		u.countyToUnit[county] = unit
		u.units[unit] = true
	}
	return u
}

// LoadUnitCounties reads a table with County and Unit # columns.
func LoadUnitCounties(t *records.Table) (*UnitCounties, error) {
	schema := records.Schema{Sheet: t.Sheet, Fields: []records.FieldSpec{records.Text("County"), records.Text("Unit #")}}
	if err := schema.Validate(t); err != nil {
		return nil, err
	}
	pairs := make(map[string]string, t.Len())
	for i := 0; i < t.Len(); i++ {
		pairs[t.Cell(i, "County")] = unitID(t.Cell(i, "Unit #"))
	}
	return NewUnitCounties(pairs), nil
}

// Normalize strips decorative suffixes and maps a county name to its unit.
// Known unit ids and unrecognized values are returned cleaned but otherwise
// unchanged. Nil stays nil.
func (u *UnitCounties) Normalize(value *string) *string {
	if value == nil {
		return nil
	}
	v := unitDecorations.Replace(clean(*value))
	if !u.units[v] {
		if unit, ok := u.countyToUnit[v]; ok {
			v = unit
		}
	}
	return &v
}

// IsUnit reports whether v is a known unit id.
func (u *UnitCounties) IsUnit(v string) bool { return u.units[v] }

// unitID renders numeric unit ids the way they appear in exports ("5.0" -> "5").
func unitID(v string) string {
	v = clean(v)
	if strings.HasSuffix(v, ".0") {
		return strings.TrimSuffix(v, ".0")
	}
	return v
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
