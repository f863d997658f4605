package pears

import (
	"fmt"
	"regexp"

	"pears-cleaning/internal/records"
)

var (
	meta = []records.FieldSpec{
		records.Text("reported_by"),
		records.Text("reported_by_email"),
		records.Date("created"),
		records.Date("modified"),
	}

	CoalitionSchema = schema(SheetCoalitions, true,
		records.Int("coalition_id"),
		records.Text("coalition_name"),
		records.Text("coalition_unit"),
		records.Text("action_plan_name"),
		records.Text("program_area"),
		records.Optional(records.Text("snap_ed_grant_goals")),
		records.Optional(records.Text("relationship_depth")),
		records.Optional(records.Text("on_hiatus")),
	)
	MemberSchema = schema(SheetMembers, false,
		records.Int("member_id"),
		records.Int("coalition_id"),
		records.Text("name"),
		records.Text("type"),
		records.Int("site_id"),
	)
	IndirectActivitySchema = schema(SheetIndirectActivities, true,
		records.Int("activity_id"),
		records.Text("title"),
		records.Date("start_date"),
		records.Date("end_date"),
		records.Text("unit"),
		records.Text("type"),
		records.Text("program_area"),
		records.Optional(records.Text("snap_ed_grant_goals")),
	)
	ChannelSchema = schema(SheetChannels, false,
		records.Int("activity_id"),
		records.Text("activity"),
		records.Int("channel_id"),
		records.Text("channel"),
		records.Text("description"),
		records.Int("site_id"),
		records.Text("site_name"),
		records.Int("reach"),
		records.Int("newly_reached"),
	)
	PartnershipSchema = schema(SheetPartnerships, true,
		records.Int("partnership_id"),
		records.Text("partnership_name"),
		records.Text("partnership_unit"),
		records.Text("action_plan_name"),
		records.Int("is_direct_education_intervention"),
		records.Text("program_area"),
		records.Int("is_pse_intervention"),
		records.Text("relationship_depth"),
		records.Optional(records.Text("snap_ed_grant_goals")),
	)
	ProgramActivitySchema = schema(SheetProgramActivities, true,
		records.Int("program_id"),
		records.Text("name"),
		records.Text("program_areas"),
		records.Text("unit"),
		records.Text("intervention"),
		records.Text("setting"),
		records.Text("primary_curriculum"),
		records.Int("participants_total"),
		records.Optional(records.Text("snap_ed_grant_goals")),
		records.Optional(records.Text("snap_ed_special_projects")),
		records.Optional(records.Text("fcs_program_team")),
		records.Optional(records.Text("fcs_grant_goals")),
	)
	SessionSchema = schema(SheetSessions, false,
		records.Int("session_id"),
		records.Int("program_id"),
		records.Date("start_date"),
		records.Date("start_date_with_time"),
		records.Float("length"),
		records.Int("num_participants"),
	)
	SiteActivitySchema = schema(SheetPSE, true,
		records.Int("pse_id"),
		records.Int("site_id"),
		records.Text("site_name"),
		records.Text("name"),
		records.Int("start_fiscal_year"),
		records.Int("planning_stage_sites_contacted_and_agreed_to_participate"),
		records.Int("total_reach"),
		records.Text("pse_unit"),
		records.Text("program_area"),
		records.Text("intervention"),
		records.Optional(records.Text("snap_ed_grant_goals")),
	)
	AssessmentSchema = schema(SheetAssessments, false,
		records.Int("pse_id"),
		records.Int("assessment_id"),
		records.Text("assessment_type"),
		records.Text("assessment_tool"),
		records.Float("baseline_score"),
		records.Date("baseline_date"),
		records.Date("follow_up_date"),
		records.Float("follow_up_score"),
	)
	ChangeSchema = schema(SheetChanges, false,
		records.Int("pse_id"),
		records.Int("change_id"),
	)
)

// Survey response columns as the Platform labels them.
const (
	SurveyProgramID     = "Program Activity ID"
	SurveyProgramName   = "Program Name"
	SurveyResponseID    = "Unique PEARS ID of Response"
	SurveyStaffEmail    = "staff_email"
	SurveyCoalitionID   = "What is the Coalition ID from the PEARS Coalition module that corresponds to this survey?"
	SurveyCoalitionName = "coalition_name"
	SurveyQuarter       = "For which Quarter are you completing this survey?&nbsp;"
)

var SurveySchema = schema(SheetSurveyResponses, false,
	records.Int(SurveyProgramID),
	records.Text(SurveyProgramName),
	records.Int(SurveyResponseID),
	records.Text(SurveyStaffEmail),
	records.Text(SurveyCoalitionID),
	records.Text(SurveyCoalitionName),
	records.Text(SurveyQuarter),
)

func schema(sheet string, withMeta bool, fields ...records.FieldSpec) records.Schema {
	s := records.Schema{Sheet: sheet}
	if withMeta {
		s.Fields = append(s.Fields, meta...)
	}
	s.Fields = append(s.Fields, fields...)
	return s
}

// decode validates the table against the schema before converting rows.
func decode[T any](s records.Schema, t *records.Table, fn func(r *records.Row) T) ([]T, error) {
	if err := s.Validate(t); err != nil {
		return nil, err
	}
	out, err := records.Decode(t, fn)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.Sheet, err)
	}
	return out, nil
}

func readMeta(r *records.Row) Meta {
	return Meta{
		ReportedBy:      r.Text("reported_by"),
		ReportedByEmail: r.Text("reported_by_email"),
		Created:         r.Time("created"),
		Modified:        r.Time("modified"),
	}
}

func DecodeCoalitions(t *records.Table) ([]Coalition, error) {
	return decode(CoalitionSchema, t, func(r *records.Row) Coalition {
		return Coalition{
			Meta:              readMeta(r),
			ID:                r.ID("coalition_id"),
			Name:              r.Text("coalition_name"),
			Unit:              r.Text("coalition_unit"),
			ActionPlanName:    r.Text("action_plan_name"),
			ProgramArea:       r.Text("program_area"),
			SNAPEdGrantGoals:  r.Text("snap_ed_grant_goals"),
			RelationshipDepth: r.Text("relationship_depth"),
			OnHiatus:          r.Text("on_hiatus"),
		}
	})
}

func DecodeMembers(t *records.Table) ([]CoalitionMember, error) {
	return decode(MemberSchema, t, func(r *records.Row) CoalitionMember {
		return CoalitionMember{
			ID:          r.ID("member_id"),
			CoalitionID: r.ID("coalition_id"),
			Name:        r.Text("name"),
			Type:        r.Text("type"),
			SiteID:      r.Int("site_id"),
		}
	})
}

func DecodeIndirectActivities(t *records.Table) ([]IndirectActivity, error) {
	return decode(IndirectActivitySchema, t, func(r *records.Row) IndirectActivity {
		return IndirectActivity{
			Meta:             readMeta(r),
			ID:               r.ID("activity_id"),
			Title:            r.Text("title"),
			StartDate:        r.Time("start_date"),
			EndDate:          r.Time("end_date"),
			Unit:             r.Text("unit"),
			Type:             r.Text("type"),
			ProgramArea:      r.Text("program_area"),
			SNAPEdGrantGoals: r.Text("snap_ed_grant_goals"),
		}
	})
}

func DecodeChannels(t *records.Table) ([]InterventionChannel, error) {
	return decode(ChannelSchema, t, func(r *records.Row) InterventionChannel {
		return InterventionChannel{
			ActivityID:   r.ID("activity_id"),
			Activity:     r.Text("activity"),
			ID:           r.ID("channel_id"),
			Channel:      r.Text("channel"),
			Description:  r.Text("description"),
			SiteID:       r.Int("site_id"),
			SiteName:     r.Text("site_name"),
			Reach:        r.Int("reach"),
			NewlyReached: r.Int("newly_reached"),
		}
	})
}

func DecodePartnerships(t *records.Table) ([]Partnership, error) {
	return decode(PartnershipSchema, t, func(r *records.Row) Partnership {
		return Partnership{
			Meta:              readMeta(r),
			ID:                r.ID("partnership_id"),
			Name:              r.Text("partnership_name"),
			Unit:              r.Text("partnership_unit"),
			ActionPlanName:    r.Text("action_plan_name"),
			DirectEducation:   r.Int("is_direct_education_intervention"),
			ProgramArea:       r.Text("program_area"),
			PSEIntervention:   r.Int("is_pse_intervention"),
			RelationshipDepth: r.Text("relationship_depth"),
			SNAPEdGrantGoals:  r.Text("snap_ed_grant_goals"),
		}
	})
}

func DecodeProgramActivities(t *records.Table) ([]ProgramActivity, error) {
	return decode(ProgramActivitySchema, t, func(r *records.Row) ProgramActivity {
		return ProgramActivity{
			Meta:                  readMeta(r),
			ID:                    r.ID("program_id"),
			Name:                  r.Text("name"),
			ProgramAreas:          r.Text("program_areas"),
			Unit:                  r.Text("unit"),
			Intervention:          r.Text("intervention"),
			Setting:               r.Text("setting"),
			PrimaryCurriculum:     r.Text("primary_curriculum"),
			ParticipantsTotal:     r.Int("participants_total"),
			SNAPEdGrantGoals:      r.Text("snap_ed_grant_goals"),
			SNAPEdSpecialProjects: r.Text("snap_ed_special_projects"),
			FCSProgramTeam:        r.Text("fcs_program_team"),
			FCSGrantGoals:         r.Text("fcs_grant_goals"),
		}
	})
}

func DecodeSessions(t *records.Table) ([]Session, error) {
	return decode(SessionSchema, t, func(r *records.Row) Session {
		return Session{
			ID:                r.ID("session_id"),
			ProgramID:         r.ID("program_id"),
			StartDate:         r.Time("start_date"),
			StartDateWithTime: r.Time("start_date_with_time"),
			Length:            r.Float("length"),
			NumParticipants:   r.Int("num_participants"),
		}
	})
}

func DecodeSiteActivities(t *records.Table) ([]SiteActivity, error) {
	return decode(SiteActivitySchema, t, func(r *records.Row) SiteActivity {
		return SiteActivity{
			Meta:             readMeta(r),
			ID:               r.ID("pse_id"),
			SiteID:           r.Int("site_id"),
			SiteName:         r.Text("site_name"),
			Name:             r.Text("name"),
			StartFiscalYear:  r.Int("start_fiscal_year"),
			PlanningStage:    r.Int("planning_stage_sites_contacted_and_agreed_to_participate"),
			TotalReach:       r.Int("total_reach"),
			Unit:             r.Text("pse_unit"),
			ProgramArea:      r.Text("program_area"),
			Intervention:     r.Text("intervention"),
			SNAPEdGrantGoals: r.Text("snap_ed_grant_goals"),
		}
	})
}

func DecodeAssessments(t *records.Table) ([]Assessment, error) {
	return decode(AssessmentSchema, t, func(r *records.Row) Assessment {
		return Assessment{
			PSEID:         r.ID("pse_id"),
			ID:            r.ID("assessment_id"),
			Type:          r.Text("assessment_type"),
			Tool:          r.Text("assessment_tool"),
			BaselineScore: r.Float("baseline_score"),
			BaselineDate:  r.Time("baseline_date"),
			FollowUpDate:  r.Time("follow_up_date"),
			FollowUpScore: r.Float("follow_up_score"),
		}
	})
}

func DecodeChanges(t *records.Table) ([]Change, error) {
	return decode(ChangeSchema, t, func(r *records.Row) Change {
		return Change{PSEID: r.ID("pse_id"), ID: r.ID("change_id")}
	})
}

var digits = regexp.MustCompile(`\d+`)

// CoalitionIDDigits extracts the first run of digits staff typed as a
// coalition id. It returns nil when there is none.
func CoalitionIDDigits(v *string) *string {
	if v == nil {
		return nil
	}
	d := digits.FindString(*v)
	if d == "" {
		return nil
	}
	return &d
}

func DecodeSurveys(t *records.Table) ([]CoalitionSurvey, error) {
	return decode(SurveySchema, t, func(r *records.Row) CoalitionSurvey {
		return CoalitionSurvey{
			ProgramID:       r.Int(SurveyProgramID),
			ProgramName:     r.Text(SurveyProgramName),
			ResponseID:      r.Int(SurveyResponseID),
			ReportedByEmail: r.Text(SurveyStaffEmail),
			CoalitionID:     CoalitionIDDigits(r.Text(SurveyCoalitionID)),
			CoalitionName:   r.Text(SurveyCoalitionName),
			Quarter:         r.Text(SurveyQuarter),
		}
	})
}
