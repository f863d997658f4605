package pears

import (
	"fmt"
	"path/filepath"

	"pears-cleaning/internal/records"
	"pears-cleaning/internal/workbook"
)

// Columns is the set of loaded columns per sheet.
type Columns map[string]map[string]bool

func (c Columns) add(t *records.Table) {
	c[t.Sheet] = t.Fields()
}

type CoalitionData struct {
	Coalitions []Coalition
	Members    []CoalitionMember
	Columns    Columns
}

type IndirectActivityData struct {
	Activities []IndirectActivity
	Channels   []InterventionChannel
	Columns    Columns
}

type PartnershipData struct {
	Partnerships []Partnership
	Columns      Columns
}

type ProgramActivityData struct {
	Activities []ProgramActivity
	Sessions   []Session
	Columns    Columns
}

type SiteActivityData struct {
	Activities  []SiteActivity
	Assessments []Assessment
	Changes     []Change
	Columns     Columns
}

type SurveyData struct {
	Surveys []CoalitionSurvey
	Columns Columns
}

// read loads sheets and rewrites the custom fields of the parent sheet.
func read(path, parent string, sheets ...string) (map[string]*records.Table, Columns, error) {
	tables, err := workbook.ReadTables(path, append([]string{parent}, sheets...)...)
	if err != nil {
		return nil, nil, err
	}
	records.DecodeCustomFields(tables[parent], records.MultiSelectLabels)

	cols := make(Columns, len(tables))
	for _, t := range tables {
		cols.add(t)
	}
	return tables, cols, nil
}

// LoadCoalitions reads the coalition export.
func LoadCoalitions(path string) (*CoalitionData, error) {
	tables, cols, err := read(path, SheetCoalitions, SheetMembers)
	if err != nil {
		return nil, err
	}
	d := &CoalitionData{Columns: cols}
	if d.Coalitions, err = DecodeCoalitions(tables[SheetCoalitions]); err != nil {
		return nil, err
	}
	if d.Members, err = DecodeMembers(tables[SheetMembers]); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadIndirectActivities reads the indirect activity export.
func LoadIndirectActivities(path string) (*IndirectActivityData, error) {
	tables, cols, err := read(path, SheetIndirectActivities, SheetChannels)
	if err != nil {
		return nil, err
	}
	d := &IndirectActivityData{Columns: cols}
	if d.Activities, err = DecodeIndirectActivities(tables[SheetIndirectActivities]); err != nil {
		return nil, err
	}
	if d.Channels, err = DecodeChannels(tables[SheetChannels]); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadPartnerships reads the partnership export.
func LoadPartnerships(path string) (*PartnershipData, error) {
	tables, cols, err := read(path, SheetPartnerships)
	if err != nil {
		return nil, err
	}
	d := &PartnershipData{Columns: cols}
	if d.Partnerships, err = DecodePartnerships(tables[SheetPartnerships]); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadProgramActivities reads the program activity export.
func LoadProgramActivities(path string) (*ProgramActivityData, error) {
	tables, cols, err := read(path, SheetProgramActivities, SheetSessions)
	if err != nil {
		return nil, err
	}
	d := &ProgramActivityData{Columns: cols}
	if d.Activities, err = DecodeProgramActivities(tables[SheetProgramActivities]); err != nil {
		return nil, err
	}
	if d.Sessions, err = DecodeSessions(tables[SheetSessions]); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadSiteActivities reads the PSE site activity export.
func LoadSiteActivities(path string) (*SiteActivityData, error) {
	tables, cols, err := read(path, SheetPSE, SheetAssessments, SheetChanges)
	if err != nil {
		return nil, err
	}
	d := &SiteActivityData{Columns: cols}
	if d.Activities, err = DecodeSiteActivities(tables[SheetPSE]); err != nil {
		return nil, err
	}
	if d.Assessments, err = DecodeAssessments(tables[SheetAssessments]); err != nil {
		return nil, err
	}
	if d.Changes, err = DecodeChanges(tables[SheetChanges]); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadSurveys reads a coalition survey response export.
func LoadSurveys(path string) (*SurveyData, error) {
	tables, err := workbook.ReadTables(path, SheetSurveyResponses)
	if err != nil {
		return nil, err
	}
	t := tables[SheetSurveyResponses]
	d := &SurveyData{Columns: Columns{}}
	d.Columns.add(t)
	if d.Surveys, err = DecodeSurveys(t); err != nil {
		return nil, err
	}
	return d, nil
}

// ExportPaths locates the monthly module exports in a directory.
type ExportPaths struct {
	Coalitions         string
	IndirectActivities string
	Partnerships       string
	ProgramActivities  string
	SiteActivities     string
}

// ExportsIn returns the standard export file names under dir.
func ExportsIn(dir string) ExportPaths {
	return ExportPaths{
		Coalitions:         filepath.Join(dir, CoalitionExport),
		IndirectActivities: filepath.Join(dir, IndirectActivityExport),
		Partnerships:       filepath.Join(dir, PartnershipExport),
		ProgramActivities:  filepath.Join(dir, ProgramActivityExport),
		SiteActivities:     filepath.Join(dir, PSESiteActivityExport),
	}
}

// SurveyExport is the survey response file name for a quarter code.
func SurveyExport(dir, quarter string) string {
	return filepath.Join(dir, fmt.Sprintf("Coalition_Survey_%s_Export.xlsx", quarter))
}
