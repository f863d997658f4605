package modules

import (
	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/pears"
	"pears-cleaning/internal/rules"
)

const ModulePartnerships = "Partnerships"

// PartnershipRow is a partnership. Partnerships have no child records.
type PartnershipRow struct {
	pears.Partnership
}

// NewPartnerships cleans the partnership export at path.
func NewPartnerships(path string) Cleaner {
	return &cleaner[*pears.PartnershipData, PartnershipRow]{
		name:    ModulePartnerships,
		sheet:   ModulePartnerships,
		load:    func() (*pears.PartnershipData, error) { return pears.LoadPartnerships(path) },
		prepare: PreparePartnerships,
		module:  PartnershipsModule,
	}
}

// PreparePartnerships applies the SNAP-Ed scope and normalizes units.
func PreparePartnerships(d *pears.PartnershipData, ref *lookup.Reference) engine.Input[PartnershipRow] {
	var rows []PartnershipRow
	for _, p := range d.Partnerships {
		if !inSNAPEdScope(ref, p.ProgramArea, p.Email()) || isTestRecord(p.Name) {
			continue
		}
		p.Unit = ref.Units.Normalize(p.Unit)
		rows = append(rows, PartnershipRow{Partnership: p})
	}
	return engine.Input[PartnershipRow]{Rows: rows, Columns: columns(d.Columns)}
}

// PartnershipsModule is the partnership rule table.
func PartnershipsModule(_ *lookup.Reference) engine.Module[PartnershipRow] {
	row := rules.Row[PartnershipRow]
	return engine.Module[PartnershipRow]{
		Name:  ModulePartnerships,
		Sheet: ModulePartnerships,
		Rules: []rules.Rule[PartnershipRow]{
			{
				ID: "GI UPDATE1", Tab: TabGeneral,
				Fields: rules.On(pears.SheetPartnerships, "action_plan_name"),
				Cases:  rules.When(row(func(r PartnershipRow) bool { return r.ActionPlanName == nil })),
			},
			{
				ID: "GI UPDATE2", Tab: TabGeneral,
				Fields: rules.On(pears.SheetPartnerships, "is_direct_education_intervention", "is_pse_intervention"),
				Cases: rules.When(row(func(r PartnershipRow) bool {
					return rules.IntIs(r.DirectEducation, 0) && rules.IntIs(r.PSEIntervention, 0)
				})),
			},
			{
				ID: "GI UPDATE3", Tab: TabGeneral,
				Fields: rules.On(pears.SheetPartnerships, "program_area"),
				Cases:  rules.When(row(func(r PartnershipRow) bool { return rules.IsNot(r.ProgramArea, pears.ProgramAreaSNAPEd) })),
			},
			{
				ID: TabCustomData, Tab: TabCustomData,
				Fields: rules.On(pears.SheetPartnerships, "snap_ed_grant_goals"),
				Cases:  rules.When(row(func(r PartnershipRow) bool { return r.SNAPEdGrantGoals == nil })),
			},
			{
				ID: TabEvaluation, Tab: TabEvaluation,
				Fields: rules.On(pears.SheetPartnerships, "relationship_depth"),
				Cases:  rules.When(row(func(r PartnershipRow) bool { return r.RelationshipDepth == nil })),
			},
		},
		Columns: concat(
			[]engine.Column[PartnershipRow]{
				engine.Col("partnership_id", func(r PartnershipRow) any { return r.ID }),
				engine.Col("partnership_name", func(r PartnershipRow) any { return engine.Value(r.Name) }),
			},
			identity(func(r PartnershipRow) pears.Meta { return r.Meta }, func(r PartnershipRow) *string { return r.Unit }),
			[]engine.Column[PartnershipRow]{
				engine.TabCol[PartnershipRow](TabGeneral),
				engine.Col("action_plan_name", func(r PartnershipRow) any { return engine.Value(r.ActionPlanName) }),
				engine.Col("is_direct_education_intervention", func(r PartnershipRow) any { return engine.Value(r.DirectEducation) }),
				engine.Col("is_pse_intervention", func(r PartnershipRow) any { return engine.Value(r.PSEIntervention) }),
				engine.Col("program_area", func(r PartnershipRow) any { return engine.Value(r.ProgramArea) }),
				engine.TabCol[PartnershipRow](TabCustomData),
				engine.TabCol[PartnershipRow](TabEvaluation),
				engine.Col("relationship_depth", func(r PartnershipRow) any { return engine.Value(r.RelationshipDepth) }),
			},
		),
		EmailColumns: []string{
			"partnership_id", "partnership_name", engine.ColReportedBy, engine.ColReportedByEmail, engine.ColUnit,
			TabGeneral, "action_plan_name", "program_area", TabCustomData, TabEvaluation, "relationship_depth",
		},
		ParentID: func(r PartnershipRow) string { return id(r.ID) },
		Owner:    func(r PartnershipRow) engine.Owner { return owner(r.Meta, r.Unit) },
	}
}
