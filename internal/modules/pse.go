package modules

import (
	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/pears"
	"pears-cleaning/internal/rules"
)

const (
	ModuleSiteActivities = "PSE Site Activities"
	SheetSiteActivities  = "PSE"
	TabAssessments       = "NEEDS, READINESS & EFFECTIVENESS TAB UPDATES"
	TabChanges           = "CHANGES ADOPTED TAB UPDATES"

	needsAssessment = "Needs assessment/environmental scan"
	unitCPHP        = "CPHP"
)

// SiteActivityRow is a PSE site activity joined with one of its
// assessments.
type SiteActivityRow struct {
	pears.SiteActivity
	// SharedSite is set when another activity reports the same site.
	SharedSite bool
	HasChanges bool
	Assessment *pears.Assessment
}

// NewSiteActivities cleans the PSE site activity export at path.
func NewSiteActivities(path string) Cleaner {
	return &cleaner[*pears.SiteActivityData, SiteActivityRow]{
		name:    ModuleSiteActivities,
		sheet:   SheetSiteActivities,
		load:    func() (*pears.SiteActivityData, error) { return pears.LoadSiteActivities(path) },
		prepare: PrepareSiteActivities,
		module:  SiteActivitiesModule,
	}
}

// PrepareSiteActivities drops test and placeholder sites, marks shared
// sites and adopted changes, and left joins assessments.
func PrepareSiteActivities(d *pears.SiteActivityData, ref *lookup.Reference) engine.Input[SiteActivityRow] {
	var activities []pears.SiteActivity
	sites := make(map[int64]int)
	for _, a := range d.Activities {
		if isTestRecord(a.Name) || rules.Is(a.SiteName, PlaceholderName) {
			continue
		}
		a.Unit = ref.Units.Normalize(a.Unit)
		activities = append(activities, a)
		if a.SiteID != nil {
			sites[*a.SiteID]++
		}
	}

	changed := make(map[int64]bool)
	for _, c := range d.Changes {
		changed[c.PSEID] = true
	}
	assessments := make(map[int64][]pears.Assessment)
	for _, a := range d.Assessments {
		assessments[a.PSEID] = append(assessments[a.PSEID], a)
	}

	var rows []SiteActivityRow
	for _, a := range activities {
		base := SiteActivityRow{
			SiteActivity: a,
			SharedSite:   a.SiteID != nil && sites[*a.SiteID] > 1,
			HasChanges:   changed[a.ID],
		}
		as := assessments[a.ID]
		if len(as) == 0 {
			rows = append(rows, base)
			continue
		}
		for i := range as {
			r := base
			r.Assessment = &as[i]
			rows = append(rows, r)
		}
	}
	return engine.Input[SiteActivityRow]{Rows: rows, Columns: columns(d.Columns)}
}

// SiteActivitiesModule is the PSE site activity rule table.
func SiteActivitiesModule(_ *lookup.Reference) engine.Module[SiteActivityRow] {
	row := rules.Row[SiteActivityRow]
	needs := func(fn func(a *pears.Assessment) bool) rules.Predicate[SiteActivityRow] {
		return row(func(r SiteActivityRow) bool {
			return r.Assessment != nil && rules.Is(r.Assessment.Type, needsAssessment) && fn(r.Assessment)
		})
	}
	assessmentValue := func(fn func(a *pears.Assessment) any) func(SiteActivityRow) any {
		return func(r SiteActivityRow) any {
			if r.Assessment == nil {
				return nil
			}
			return fn(r.Assessment)
		}
	}

	return engine.Module[SiteActivityRow]{
		Name:  ModuleSiteActivities,
		Sheet: SheetSiteActivities,
		Rules: []rules.Rule[SiteActivityRow]{
			{
				ID: "GI UPDATE1", Tab: TabGeneral,
				Fields: rules.On(pears.SheetPSE, "start_fiscal_year", "planning_stage_sites_contacted_and_agreed_to_participate"),
				Cases: rules.When[SiteActivityRow](func(f *rules.Frame[SiteActivityRow], r SiteActivityRow) bool {
					return !rules.IntIs(r.StartFiscalYear, int64(f.FiscalYear)) && rules.IntIs(r.PlanningStage, 1)
				}),
			},
			{
				ID: "GI UPDATE2", Tab: TabGeneral,
				Fields: rules.On(pears.SheetPSE, "program_area"),
				Cases:  rules.When(row(func(r SiteActivityRow) bool { return rules.Is(r.ProgramArea, pears.ProgramAreaFCS) })),
			},
			{
				ID: "GI UPDATE3", Tab: TabGeneral,
				Fields: rules.On(pears.SheetPSE, "site_id", "pse_unit"),
				Cases:  rules.When(row(func(r SiteActivityRow) bool { return r.SharedSite && rules.IsNot(r.Unit, unitCPHP) })),
			},
			{
				ID: "GI UPDATE4", Tab: TabGeneral,
				Fields: rules.On(pears.SheetPSE, "intervention"),
				Cases:  rules.When(row(func(r SiteActivityRow) bool { return rules.IsNot(r.Intervention, communityNetwork) })),
			},
			{
				ID: TabCustomData, Tab: TabCustomData,
				Fields: rules.On(pears.SheetPSE, "snap_ed_grant_goals"),
				Cases:  rules.When(row(func(r SiteActivityRow) bool { return r.SNAPEdGrantGoals == nil })),
			},
			{
				ID: "NRE UPDATE1", Tab: TabAssessments, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetAssessments, "assessment_type", "assessment_tool", "baseline_score"),
				Cases: rules.When(needs(func(a *pears.Assessment) bool {
					return a.BaselineScore == nil && !rules.Contains(a.Tool, "SLAQ")
				})),
			},
			{
				ID: "NRE UPDATE2", Tab: TabAssessments, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetAssessments, "assessment_type", "baseline_date"),
				Cases:  rules.When(needs(func(a *pears.Assessment) bool { return a.BaselineDate == nil })),
			},
			{
				ID: "NRE UPDATE3", Tab: TabAssessments, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetAssessments, "assessment_type", "follow_up_date", "follow_up_score"),
				Cases:  rules.When(needs(func(a *pears.Assessment) bool { return a.FollowUpDate != nil && a.FollowUpScore == nil })),
			},
			{
				ID: "NRE UPDATE4", Tab: TabAssessments, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetAssessments, "assessment_type", "follow_up_date", "follow_up_score"),
				Cases:  rules.When(needs(func(a *pears.Assessment) bool { return a.FollowUpDate == nil && a.FollowUpScore != nil })),
			},
			{
				ID: TabChanges, Tab: TabChanges,
				Fields: concat(rules.On(pears.SheetChanges, "change_id"), rules.On(pears.SheetPSE, "total_reach")),
				Cases:  rules.When(row(func(r SiteActivityRow) bool { return r.HasChanges && r.TotalReach == nil })),
			},
		},
		Columns: concat(
			[]engine.Column[SiteActivityRow]{
				engine.Col("pse_id", func(r SiteActivityRow) any { return r.ID }),
				engine.Col("site_name", func(r SiteActivityRow) any { return engine.Value(r.SiteName) }),
				engine.Col("name", func(r SiteActivityRow) any { return engine.Value(r.Name) }),
			},
			identity(func(r SiteActivityRow) pears.Meta { return r.Meta }, func(r SiteActivityRow) *string { return r.Unit }),
			[]engine.Column[SiteActivityRow]{
				engine.TabCol[SiteActivityRow](TabGeneral),
				engine.Col("start_fiscal_year", func(r SiteActivityRow) any { return engine.Value(r.StartFiscalYear) }),
				engine.Col("planning_stage_sites_contacted_and_agreed_to_participate", func(r SiteActivityRow) any {
					return engine.Value(r.PlanningStage)
				}),
				engine.Col("program_area", func(r SiteActivityRow) any { return engine.Value(r.ProgramArea) }),
				engine.Col("site_id", func(r SiteActivityRow) any { return engine.Value(r.SiteID) }),
				engine.Col("intervention", func(r SiteActivityRow) any { return engine.Value(r.Intervention) }),
				engine.TabCol[SiteActivityRow](TabCustomData),
				engine.TabCol[SiteActivityRow](TabAssessments),
				engine.Col("assessment_id", assessmentValue(func(a *pears.Assessment) any { return a.ID })),
				engine.Col("assessment_type", assessmentValue(func(a *pears.Assessment) any { return engine.Value(a.Type) })),
				engine.Col("baseline_score", assessmentValue(func(a *pears.Assessment) any { return engine.Value(a.BaselineScore) })),
				engine.DateCol("baseline_date", assessmentValue(func(a *pears.Assessment) any { return engine.Value(a.BaselineDate) })),
				engine.DateCol("follow_up_date", assessmentValue(func(a *pears.Assessment) any { return engine.Value(a.FollowUpDate) })),
				engine.Col("follow_up_score", assessmentValue(func(a *pears.Assessment) any { return engine.Value(a.FollowUpScore) })),
				engine.TabCol[SiteActivityRow](TabChanges),
				engine.Col("total_reach", func(r SiteActivityRow) any { return engine.Value(r.TotalReach) }),
			},
		),
		EmailColumns: []string{
			"pse_id", "site_name", engine.ColReportedBy, engine.ColReportedByEmail, engine.ColUnit,
			TabGeneral, "start_fiscal_year", "planning_stage_sites_contacted_and_agreed_to_participate",
			"program_area", "site_id", "intervention", TabCustomData, TabAssessments,
			"baseline_score", "baseline_date", "follow_up_date", "follow_up_score", TabChanges, "total_reach",
		},
		ParentID: func(r SiteActivityRow) string { return id(r.ID) },
		Owner:    func(r SiteActivityRow) engine.Owner { return owner(r.Meta, r.Unit) },
	}
}
