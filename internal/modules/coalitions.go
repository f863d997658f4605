package modules

import (
	"strings"

	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/pears"
	"pears-cleaning/internal/rules"
)

const (
	ModuleCoalitions = "Coalitions"
	TabMembers       = "COALITION MEMBERS TAB UPDATES"

	memberTypeIndividuals = "Community members/individuals"
)

// memberNameExclusions mark organization names that happen to start with a
// given name.
var memberNameExclusions = []string{
	"University", "Hospital", "YMCA", "Center", "County", "Elementary",
	"Foundation", "Church", "Club", "Daycare", "Housing", "SNAP-Ed",
}

// CoalitionRow is a coalition joined with one of its members.
type CoalitionRow struct {
	pears.Coalition
	MemberCount int
	Member      *pears.CoalitionMember
}

// NewCoalitions cleans the coalition export at path.
func NewCoalitions(path string) Cleaner {
	return &cleaner[*pears.CoalitionData, CoalitionRow]{
		name:    ModuleCoalitions,
		sheet:   ModuleCoalitions,
		load:    func() (*pears.CoalitionData, error) { return pears.LoadCoalitions(path) },
		prepare: PrepareCoalitions,
		module:  CoalitionsModule,
	}
}

// inSNAPEdScope keeps SNAP-Ed records plus those of SNAP-Ed staff, who
// sometimes pick the wrong program area, and of listed former staff.
func inSNAPEdScope(ref *lookup.Reference, programArea *string, email string) bool {
	return rules.Is(programArea, pears.ProgramAreaSNAPEd) ||
		ref.Staff.InSheet(lookup.SheetSNAPEdStaff, email) ||
		ref.Staff.ListedFormer(email)
}

// PrepareCoalitions scopes, normalizes and left joins members.
func PrepareCoalitions(d *pears.CoalitionData, ref *lookup.Reference) engine.Input[CoalitionRow] {
	members := make(map[int64][]pears.CoalitionMember)
	for _, m := range d.Members {
		members[m.CoalitionID] = append(members[m.CoalitionID], m)
	}

	var rows []CoalitionRow
	for _, c := range d.Coalitions {
		if !inSNAPEdScope(ref, c.ProgramArea, c.Email()) || isTestRecord(c.Name) {
			continue
		}
		c.Unit = ref.Units.Normalize(c.Unit)

		ms := members[c.ID]
		if len(ms) == 0 {
			rows = append(rows, CoalitionRow{Coalition: c})
			continue
		}
		for i := range ms {
			rows = append(rows, CoalitionRow{Coalition: c, MemberCount: len(ms), Member: &ms[i]})
		}
	}
	return engine.Input[CoalitionRow]{Rows: rows, Columns: columns(d.Columns)}
}

// looksLikePersonalName flags member names made of a given name and one
// other word that is not an organization term.
func looksLikePersonalName(names *lookup.NameList, name *string) bool {
	if name == nil {
		return false
	}
	if strings.Count(*name, " ") != 1 || rules.Contains(name, memberNameExclusions...) {
		return false
	}
	return names.ContainsNameFollowedBySpace(*name)
}

// CoalitionsModule is the coalition rule table.
func CoalitionsModule(ref *lookup.Reference) engine.Module[CoalitionRow] {
	row := rules.Row[CoalitionRow]
	return engine.Module[CoalitionRow]{
		Name:  ModuleCoalitions,
		Sheet: ModuleCoalitions,
		Rules: []rules.Rule[CoalitionRow]{
			{
				ID: "GI UPDATE1", Tab: TabGeneral,
				Fields: rules.On(pears.SheetCoalitions, "action_plan_name"),
				Cases:  rules.When(row(func(r CoalitionRow) bool { return r.ActionPlanName == nil })),
			},
			{
				ID: "GI UPDATE2", Tab: TabGeneral,
				Fields: rules.On(pears.SheetCoalitions, "program_area"),
				Cases:  rules.When(row(func(r CoalitionRow) bool { return rules.IsNot(r.ProgramArea, pears.ProgramAreaSNAPEd) })),
			},
			{
				ID: TabCustomData, Tab: TabCustomData,
				Fields: rules.On(pears.SheetCoalitions, "snap_ed_grant_goals"),
				Cases:  rules.When(row(func(r CoalitionRow) bool { return r.SNAPEdGrantGoals == nil })),
			},
			{
				ID: "CM UPDATE1", Tab: TabMembers,
				Fields: rules.On(pears.SheetMembers, "member_id"),
				Cases:  rules.When(row(func(r CoalitionRow) bool { return r.MemberCount == 0 })),
			},
			{
				ID: "CM UPDATE2", Tab: TabMembers, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetMembers, "type", "site_id"),
				Cases: rules.When(row(func(r CoalitionRow) bool {
					return r.Member != nil && rules.IsNot(r.Member.Type, memberTypeIndividuals) && r.Member.SiteID == nil
				})),
			},
			{
				ID: "CM UPDATE3", Tab: TabMembers, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetMembers, "name"),
				Cases: rules.When(row(func(r CoalitionRow) bool {
					return r.Member != nil && looksLikePersonalName(ref.Names, r.Member.Name)
				})),
			},
		},
		Columns: concat(
			[]engine.Column[CoalitionRow]{
				engine.Col("coalition_id", func(r CoalitionRow) any { return r.ID }),
				engine.Col("coalition_name", func(r CoalitionRow) any { return engine.Value(r.Name) }),
			},
			identity(func(r CoalitionRow) pears.Meta { return r.Meta }, func(r CoalitionRow) *string { return r.Unit }),
			[]engine.Column[CoalitionRow]{
				engine.TabCol[CoalitionRow](TabGeneral),
				engine.Col("action_plan_name", func(r CoalitionRow) any { return engine.Value(r.ActionPlanName) }),
				engine.Col("program_area", func(r CoalitionRow) any { return engine.Value(r.ProgramArea) }),
				engine.TabCol[CoalitionRow](TabCustomData),
				engine.TabCol[CoalitionRow](TabMembers),
				engine.Col("# of Members", func(r CoalitionRow) any { return r.MemberCount }),
				engine.Col("member_id", func(r CoalitionRow) any {
					if r.Member == nil {
						return nil
					}
					return r.Member.ID
				}),
				engine.Col("member_name", func(r CoalitionRow) any {
					if r.Member == nil {
						return nil
					}
					return engine.Value(r.Member.Name)
				}),
				engine.Col("site_id", func(r CoalitionRow) any {
					if r.Member == nil {
						return nil
					}
					return engine.Value(r.Member.SiteID)
				}),
			},
		),
		EmailColumns: []string{
			"coalition_id", "coalition_name", engine.ColReportedBy, engine.ColReportedByEmail, engine.ColUnit,
			TabGeneral, "action_plan_name", "program_area", TabCustomData, TabMembers,
			"# of Members", "member_name", "site_id",
		},
		ParentID: func(r CoalitionRow) string { return id(r.ID) },
		Owner:    func(r CoalitionRow) engine.Owner { return owner(r.Meta, r.Unit) },
	}
}
