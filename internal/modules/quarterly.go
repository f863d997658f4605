package modules

import (
	"sync"

	"pears-cleaning/internal/engine"
	"pears-cleaning/internal/fiscal"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/pears"
	"pears-cleaning/internal/rules"
)

const (
	ModuleCoalitionSurveys = "Coalition Surveys"
	// Survey corrections are worded as program activity updates because
	// surveys are entered against a program activity.
	TextModuleCoalitionSurveys = ModuleProgramActivities
	TabUpdates                 = "UPDATES"
)

// Relationship depths that require a quarterly coalition survey.
var surveyedDepths = []string{"Coalition", "Collaboration", "Coordination"}

// quarterlySource loads the coalition and survey exports once for both
// quarterly cleaners, which may run concurrently.
type quarterlySource struct {
	coalitionPath string
	surveyPath    string
	quarter       fiscal.Quarter

	once       sync.Once
	coalitions *pears.CoalitionData
	surveys    *pears.SurveyData
	err        error
}

type quarterlyData struct {
	Quarter    fiscal.Quarter
	Coalitions *pears.CoalitionData
	Surveys    *pears.SurveyData
}

func (s *quarterlySource) load() (*quarterlyData, error) {
	s.once.Do(func() {
		if s.coalitions, s.err = pears.LoadCoalitions(s.coalitionPath); s.err != nil {
			return
		}
		s.surveys, s.err = pears.LoadSurveys(s.surveyPath)
	})
	if s.err != nil {
		return nil, s.err
	}
	return &quarterlyData{Quarter: s.quarter, Coalitions: s.coalitions, Surveys: s.surveys}, nil
}

// Quarterly registers the coalition survey cleaners for quarter q.
func Quarterly(coalitionPath, surveyPath string, q fiscal.Quarter) *Registry {
	src := &quarterlySource{coalitionPath: coalitionPath, surveyPath: surveyPath, quarter: q}
	return mustRegister(NewRegistry(),
		&cleaner[*quarterlyData, SurveyedCoalitionRow]{
			name:    ModuleCoalitions,
			sheet:   ModuleCoalitions,
			load:    src.load,
			prepare: func(d *quarterlyData, ref *lookup.Reference) engine.Input[SurveyedCoalitionRow] {
				return PrepareSurveyedCoalitions(d.Coalitions, d.Surveys, d.Quarter, ref)
			},
			module: SurveyedCoalitionsModule,
		},
		&cleaner[*quarterlyData, SurveyRow]{
			name:    ModuleCoalitionSurveys,
			sheet:   ModuleCoalitionSurveys,
			load:    src.load,
			prepare: func(d *quarterlyData, ref *lookup.Reference) engine.Input[SurveyRow] {
				return PrepareSurveys(d.Coalitions, d.Surveys, d.Quarter, ref)
			},
			module: SurveysModule,
		},
	)
}

// quarterSurveys returns the non-test responses filed for quarter q.
func quarterSurveys(surveys []pears.CoalitionSurvey, q fiscal.Quarter) []pears.CoalitionSurvey {
	var out []pears.CoalitionSurvey
	for _, s := range surveys {
		if !rules.Is(s.Quarter, q.Label) || isTestRecord(s.CoalitionName) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// quarterCoalitions returns the non-test SNAP-Ed and FCS coalitions.
func quarterCoalitions(coalitions []pears.Coalition) []pears.Coalition {
	var out []pears.Coalition
	for _, c := range coalitions {
		if !rules.In(c.ProgramArea, pears.ProgramAreaSNAPEd, pears.ProgramAreaFCS) || isTestRecord(c.Name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SurveyedCoalitionRow is a coalition with whether it was surveyed this
// quarter.
type SurveyedCoalitionRow struct {
	pears.Coalition
	Surveyed bool
}

// PrepareSurveyedCoalitions marks the coalitions that have a survey
// response for quarter q.
func PrepareSurveyedCoalitions(cd *pears.CoalitionData, sd *pears.SurveyData, q fiscal.Quarter, ref *lookup.Reference) engine.Input[SurveyedCoalitionRow] {
	surveyed := make(map[string]bool)
	for _, s := range quarterSurveys(sd.Surveys, q) {
		if s.CoalitionID != nil {
			surveyed[*s.CoalitionID] = true
		}
	}

	var rows []SurveyedCoalitionRow
	for _, c := range quarterCoalitions(cd.Coalitions) {
		c.Unit = ref.Units.Normalize(c.Unit)
		rows = append(rows, SurveyedCoalitionRow{Coalition: c, Surveyed: surveyed[id(c.ID)]})
	}
	return engine.Input[SurveyedCoalitionRow]{Rows: rows, Columns: columns(cd.Columns)}
}

// SurveyedCoalitionsModule flags coalitions missing their quarterly survey.
func SurveyedCoalitionsModule(_ *lookup.Reference) engine.Module[SurveyedCoalitionRow] {
	return engine.Module[SurveyedCoalitionRow]{
		Name:    ModuleCoalitions,
		Sheet:   ModuleCoalitions,
		Variant: lookup.Notification,
		Rules: []rules.Rule[SurveyedCoalitionRow]{
			{
				ID: TabUpdates, Tab: TabUpdates,
				Fields: rules.On(pears.SheetCoalitions, "relationship_depth", "on_hiatus"),
				Cases: rules.When(rules.Row(func(r SurveyedCoalitionRow) bool {
					return rules.In(r.RelationshipDepth, surveyedDepths...) && !r.Surveyed && rules.IsNot(r.OnHiatus, "Yes")
				})),
			},
		},
		Columns: []engine.Column[SurveyedCoalitionRow]{
			engine.Col("coalition_id", func(r SurveyedCoalitionRow) any { return r.ID }),
			engine.Col("coalition_name", func(r SurveyedCoalitionRow) any { return engine.Value(r.Name) }),
			engine.Col(engine.ColReportedBy, func(r SurveyedCoalitionRow) any { return engine.Value(r.ReportedBy) }),
			engine.Col(engine.ColReportedByEmail, func(r SurveyedCoalitionRow) any { return engine.Value(r.ReportedByEmail) }),
			engine.Col(engine.ColUnit, func(r SurveyedCoalitionRow) any { return engine.Value(r.Unit) }),
			engine.Col("relationship_depth", func(r SurveyedCoalitionRow) any { return engine.Value(r.RelationshipDepth) }),
			engine.Col("on_hiatus", func(r SurveyedCoalitionRow) any { return engine.Value(r.OnHiatus) }),
			engine.TabCol[SurveyedCoalitionRow](TabUpdates),
		},
		ParentID: func(r SurveyedCoalitionRow) string { return id(r.ID) },
		Owner:    func(r SurveyedCoalitionRow) engine.Owner { return owner(r.Meta, r.Unit) },
	}
}

// SurveyRow is a survey response with whether its coalition id names a
// known coalition.
type SurveyRow struct {
	pears.CoalitionSurvey
	KnownCoalition bool
	// StaffName is the directory name of the responding staff member.
	StaffName string
}

// PrepareSurveys keeps quarter q's responses and resolves their coalition
// ids against the coalition export.
func PrepareSurveys(cd *pears.CoalitionData, sd *pears.SurveyData, q fiscal.Quarter, ref *lookup.Reference) engine.Input[SurveyRow] {
	known := make(map[string]bool)
	for _, c := range quarterCoalitions(cd.Coalitions) {
		known[id(c.ID)] = true
	}

	var rows []SurveyRow
	for _, s := range quarterSurveys(sd.Surveys, q) {
		r := SurveyRow{CoalitionSurvey: s, KnownCoalition: s.CoalitionID != nil && known[*s.CoalitionID]}
		if m, ok := ref.Staff.Lookup(text(s.ReportedByEmail)); ok {
			r.StaffName = m.FullName
		}
		rows = append(rows, r)
	}
	return engine.Input[SurveyRow]{Rows: rows, Columns: columns(sd.Columns)}
}

// SurveysModule flags responses whose coalition id matches no coalition.
func SurveysModule(_ *lookup.Reference) engine.Module[SurveyRow] {
	return engine.Module[SurveyRow]{
		Name:       ModuleCoalitionSurveys,
		TextModule: TextModuleCoalitionSurveys,
		Sheet:      ModuleCoalitionSurveys,
		Variant:    lookup.Notification,
		Rules: []rules.Rule[SurveyRow]{
			{
				ID: TabEvaluation, Tab: TabEvaluation,
				Fields: rules.On(pears.SheetSurveyResponses, pears.SurveyCoalitionID),
				Cases:  rules.When(rules.Row(func(r SurveyRow) bool { return !r.KnownCoalition })),
			},
		},
		Columns: []engine.Column[SurveyRow]{
			engine.Col("program_id", func(r SurveyRow) any { return engine.Value(r.ProgramID) }),
			engine.Col("program_name", func(r SurveyRow) any { return engine.Value(r.ProgramName) }),
			engine.Col("response_id", func(r SurveyRow) any { return engine.Value(r.ResponseID) }),
			engine.Col(engine.ColReportedByEmail, func(r SurveyRow) any { return engine.Value(r.ReportedByEmail) }),
			engine.Col("coalition_id", func(r SurveyRow) any { return engine.Value(r.CoalitionID) }),
			engine.Col("coalition_name", func(r SurveyRow) any { return engine.Value(r.CoalitionName) }),
			engine.Col("survey_quarter", func(r SurveyRow) any { return engine.Value(r.Quarter) }),
			engine.TabCol[SurveyRow](TabEvaluation),
		},
		EmailColumns: []string{
			"program_id", "program_name", engine.ColReportedByEmail, "coalition_id", "coalition_name",
			"survey_quarter", TabEvaluation,
		},
		// Several responses may share a program activity, so each response
		// is its own record.
		ParentID: func(r SurveyRow) string {
			if r.ResponseID == nil {
				return ""
			}
			return id(*r.ResponseID)
		},
		Owner: func(r SurveyRow) engine.Owner {
			return engine.Owner{Name: r.StaffName, Email: text(r.ReportedByEmail)}
		},
	}
}
