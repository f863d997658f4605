package modules

import (
	"fmt"

	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/pears"
	"pears-cleaning/internal/rules"
)

const (
	ModuleProgramActivities = "Program Activities"
	TabSNAPEdCustomData     = "SNAP-ED CUSTOM DATA TAB UPDATES"
	TabDemographics         = "DEMOGRAPHICS TAB UPDATES"

	communityNetwork  = "SNAP-Ed Community Network"
	minSessionMinutes = 20
)

var otherSettings = []string{"Other places people", "Other settings people"}

// Stream says which program area a program activity row is cleaned for.
type Stream int

const (
	StreamSNAPEd Stream = iota
	StreamFCS
)

// ProgramActivityRow is a program activity joined with one of its
// sessions. FCS stream rows carry no session.
type ProgramActivityRow struct {
	pears.ProgramActivity
	Stream              Stream
	SessionCount        int
	SessionParticipants int64
	Session             *pears.Session
}

func (r ProgramActivityRow) snapEd() bool { return r.Stream == StreamSNAPEd }

// NewProgramActivities cleans the program activity export at path.
func NewProgramActivities(path string) Cleaner {
	return &cleaner[*pears.ProgramActivityData, ProgramActivityRow]{
		name:    ModuleProgramActivities,
		sheet:   ModuleProgramActivities,
		load:    func() (*pears.ProgramActivityData, error) { return pears.LoadProgramActivities(path) },
		prepare: PrepareProgramActivities,
		module:  ProgramActivitiesModule,
	}
}

// PrepareProgramActivities joins SNAP-Ed activities with their sessions and
// appends the Family Consumer Science activities after them.
func PrepareProgramActivities(d *pears.ProgramActivityData, ref *lookup.Reference) engine.Input[ProgramActivityRow] {
	sessions := make(map[int64][]pears.Session)
	for _, s := range d.Sessions {
		sessions[s.ProgramID] = append(sessions[s.ProgramID], s)
	}

	var snapEd, fcs []ProgramActivityRow
	for _, a := range d.Activities {
		if isTestRecord(a.Name) || rules.Is(a.Name, PlaceholderName) {
			continue
		}
		a.Unit = ref.Units.Normalize(a.Unit)

		if rules.Contains(a.ProgramAreas, pears.ProgramAreaFCS) {
			fcs = append(fcs, ProgramActivityRow{ProgramActivity: a, Stream: StreamFCS})
		}
		if !rules.Contains(a.ProgramAreas, pears.ProgramAreaSNAPEd) {
			continue
		}

		ss := sessions[a.ID]
		base := ProgramActivityRow{ProgramActivity: a, Stream: StreamSNAPEd, SessionCount: len(ss)}
		for _, s := range ss {
			if s.NumParticipants != nil {
				base.SessionParticipants += *s.NumParticipants
			}
		}
		if len(ss) == 0 {
			snapEd = append(snapEd, base)
			continue
		}
		for i := range ss {
			r := base
			r.Session = &ss[i]
			snapEd = append(snapEd, r)
		}
	}
	return engine.Input[ProgramActivityRow]{Rows: append(snapEd, fcs...), Columns: columns(d.Columns)}
}

// ProgramActivitiesModule is the program activity rule table.
func ProgramActivitiesModule(_ *lookup.Reference) engine.Module[ProgramActivityRow] {
	row := rules.Row[ProgramActivityRow]
	snapEd := func(fn func(r ProgramActivityRow) bool) rules.Predicate[ProgramActivityRow] {
		return row(func(r ProgramActivityRow) bool { return r.snapEd() && fn(r) })
	}
	sessionValue := func(fn func(s *pears.Session) any) func(ProgramActivityRow) any {
		return func(r ProgramActivityRow) any {
			if r.Session == nil {
				return nil
			}
			return fn(r.Session)
		}
	}
	pastSession := func(f *rules.Frame[ProgramActivityRow], s *pears.Session) bool {
		return s.StartDateWithTime != nil && s.StartDateWithTime.Before(f.Now)
	}

	return engine.Module[ProgramActivityRow]{
		Name:  ModuleProgramActivities,
		Sheet: ModuleProgramActivities,
		Rules: []rules.Rule[ProgramActivityRow]{
			{
				ID: "GI UPDATE1", Tab: TabGeneral, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetSessions, "start_date"),
				Cases: rules.When[ProgramActivityRow](func(f *rules.Frame[ProgramActivityRow], r ProgramActivityRow) bool {
					return r.Session != nil && r.Session.StartDate != nil && !f.Window.Contains(*r.Session.StartDate)
				}),
			},
			{
				ID: "GI UPDATE2", Tab: TabGeneral, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetSessions, "start_date_with_time", "num_participants"),
				Cases: []rules.Case[ProgramActivityRow]{
					{Variant: lookup.Notification1, When: func(f *rules.Frame[ProgramActivityRow], r ProgramActivityRow) bool {
						return r.Session != nil && pastSession(f, r.Session) && r.Session.NumParticipants == nil
					}},
					{Variant: lookup.Notification2, When: func(f *rules.Frame[ProgramActivityRow], r ProgramActivityRow) bool {
						return r.Session != nil && pastSession(f, r.Session) && rules.IntIs(r.Session.NumParticipants, 0)
					}},
				},
			},
			{
				// Duplicate sessions describe the activity's schedule, so they
				// do not keep a session row apart from its parent.
				ID: "GI UPDATE3", Tab: TabGeneral,
				Fields: rules.On(pears.SheetSessions, "program_id", "start_date_with_time"),
				Cases: rules.When(rules.Duplicated(func(r ProgramActivityRow) (string, bool) {
					if r.Session == nil {
						return "", false
					}
					return fmt.Sprint(r.Session.ProgramID, "\x00", engine.Value(r.Session.StartDateWithTime)), true
				})),
			},
			{
				ID: "GI UPDATE4", Tab: TabGeneral, Level: rules.ChildLevel,
				Fields: rules.On(pears.SheetSessions, "length"),
				Cases: rules.When(snapEd(func(r ProgramActivityRow) bool {
					return r.Session == nil || r.Session.Length == nil || *r.Session.Length < minSessionMinutes
				})),
			},
			{
				ID: TabCustomData, Tab: TabCustomData,
				Fields: concat(
					rules.On(pears.SheetProgramActivities, "snap_ed_grant_goals", "snap_ed_special_projects"),
					rules.On(pears.SheetProgramActivities, "fcs_program_team", "fcs_grant_goals"),
				),
				Cases: []rules.Case[ProgramActivityRow]{
					{Variant: lookup.Notification1, When: snapEd(func(r ProgramActivityRow) bool { return r.SNAPEdGrantGoals == nil })},
					{Variant: lookup.Notification2, When: snapEd(func(r ProgramActivityRow) bool {
						return rules.Contains(r.SNAPEdSpecialProjects, "None") && rules.IsNot(r.SNAPEdSpecialProjects, "None")
					})},
					{Variant: lookup.Notification1, When: row(func(r ProgramActivityRow) bool {
						return r.Stream == StreamFCS && rules.Contains(r.FCSProgramTeam, pears.ProgramAreaSNAPEd) && r.FCSGrantGoals == nil
					})},
				},
			},
			{
				ID: "SCD UPDATE1", Tab: TabSNAPEdCustomData,
				Fields: rules.On(pears.SheetProgramActivities, "intervention"),
				Cases: []rules.Case[ProgramActivityRow]{
					{Variant: lookup.Notification1, When: snapEd(func(r ProgramActivityRow) bool { return r.Intervention == nil })},
					{Variant: lookup.Notification2, When: snapEd(func(r ProgramActivityRow) bool {
						return r.Intervention != nil && *r.Intervention != communityNetwork
					})},
				},
			},
			{
				ID: "SCD UPDATE2", Tab: TabSNAPEdCustomData,
				Fields: rules.On(pears.SheetProgramActivities, "setting"),
				Cases:  rules.When(snapEd(func(r ProgramActivityRow) bool { return rules.Contains(r.Setting, otherSettings...) })),
			},
			{
				ID: TabDemographics, Tab: TabDemographics,
				Fields: concat(
					rules.On(pears.SheetProgramActivities, "participants_total"),
					rules.On(pears.SheetSessions, "num_participants"),
				),
				Cases: rules.When(snapEd(func(r ProgramActivityRow) bool {
					return r.SessionCount > 1 && rules.IntIs(r.ParticipantsTotal, r.SessionParticipants)
				})),
			},
		},
		Columns: concat(
			[]engine.Column[ProgramActivityRow]{
				engine.Col("program_id", func(r ProgramActivityRow) any { return r.ID }),
				engine.Col("name", func(r ProgramActivityRow) any { return engine.Value(r.Name) }),
			},
			identity(func(r ProgramActivityRow) pears.Meta { return r.Meta }, func(r ProgramActivityRow) *string { return r.Unit }),
			[]engine.Column[ProgramActivityRow]{
				engine.Col("program_areas", func(r ProgramActivityRow) any { return engine.Value(r.ProgramAreas) }),
				engine.TabCol[ProgramActivityRow](TabGeneral),
				engine.Col("session_id", sessionValue(func(s *pears.Session) any { return s.ID })),
				engine.DateTimeCol("start_date_with_time", sessionValue(func(s *pears.Session) any { return engine.Value(s.StartDateWithTime) })),
				engine.Col("length", sessionValue(func(s *pears.Session) any { return engine.Value(s.Length) })),
				engine.Col("num_participants", sessionValue(func(s *pears.Session) any { return engine.Value(s.NumParticipants) })),
				engine.TabCol[ProgramActivityRow](TabCustomData),
				engine.Col("snap_ed_grant_goals", func(r ProgramActivityRow) any { return engine.Value(r.SNAPEdGrantGoals) }),
				engine.Col("snap_ed_special_projects", func(r ProgramActivityRow) any { return engine.Value(r.SNAPEdSpecialProjects) }),
				engine.Col("fcs_program_team", func(r ProgramActivityRow) any { return engine.Value(r.FCSProgramTeam) }),
				engine.Col("fcs_grant_goals", func(r ProgramActivityRow) any { return engine.Value(r.FCSGrantGoals) }),
				engine.TabCol[ProgramActivityRow](TabSNAPEdCustomData),
				engine.Col("intervention", func(r ProgramActivityRow) any { return engine.Value(r.Intervention) }),
				engine.Col("setting", func(r ProgramActivityRow) any { return engine.Value(r.Setting) }),
				engine.TabCol[ProgramActivityRow](TabDemographics),
				engine.Col("participants_total", func(r ProgramActivityRow) any { return engine.Value(r.ParticipantsTotal) }),
				engine.Col("primary_curriculum", func(r ProgramActivityRow) any { return engine.Value(r.PrimaryCurriculum) }),
			},
		),
		EmailColumns: []string{
			"program_id", "name", engine.ColReportedBy, engine.ColReportedByEmail, engine.ColUnit,
			TabGeneral, "session_id", "start_date_with_time", "length", "num_participants",
			TabCustomData, TabSNAPEdCustomData, "intervention", "setting", TabDemographics, "primary_curriculum",
		},
		ParentID: func(r ProgramActivityRow) string {
			if r.Stream == StreamFCS {
				return "fcs:" + id(r.ID)
			}
			return id(r.ID)
		},
		Owner:    func(r ProgramActivityRow) engine.Owner { return owner(r.Meta, r.Unit) },
	}
}
