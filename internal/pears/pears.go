// Package pears defines the typed records of the Platform's module exports
// and decodes them from loaded sheets. Optional values are pointers and are
// nil when the export cell is empty.
package pears

import "time"

// Export workbooks and their sheets.
const (
	CoalitionExport         = "Coalition_Export.xlsx"
	IndirectActivityExport  = "Indirect_Activity_Export.xlsx"
	PartnershipExport       = "Partnership_Export.xlsx"
	ProgramActivityExport   = "Program_Activities_Export.xlsx"
	PSESiteActivityExport   = "PSE_Site_Activity_Export.xlsx"
	SheetCoalitions         = "Coalition Data"
	SheetMembers            = "Members"
	SheetIndirectActivities = "Indirect Activity Data"
	SheetChannels           = "Intervention Channels"
	SheetPartnerships       = "Partnership Data"
	SheetProgramActivities  = "Program Activity Data"
	SheetSessions           = "Sessions"
	SheetPSE                = "PSE Data"
	SheetAssessments        = "Needs, Readiness, Effectiveness"
	SheetChanges            = "Changes"
	SheetSurveyResponses    = "Response Data"
)

// Program areas referenced by scope filters and rules.
const (
	ProgramAreaSNAPEd = "SNAP-Ed"
	ProgramAreaFCS    = "Family Consumer Science"
)

// Meta is carried by every module record.
type Meta struct {
	ReportedBy      *string
	ReportedByEmail *string
	Created         *time.Time
	Modified        *time.Time
}

// Email returns the reporter email or "".
func (m Meta) Email() string {
	if m.ReportedByEmail == nil {
		return ""
	}
	return *m.ReportedByEmail
}

// Name returns the reporter name or "".
func (m Meta) Name() string {
	if m.ReportedBy == nil {
		return ""
	}
	return *m.ReportedBy
}

type Coalition struct {
	Meta
	ID                int64
	Name              *string
	Unit              *string
	ActionPlanName    *string
	ProgramArea       *string
	SNAPEdGrantGoals  *string
	RelationshipDepth *string
	OnHiatus          *string
}

type CoalitionMember struct {
	ID          int64
	CoalitionID int64
	Name        *string
	Type        *string
	SiteID      *int64
}

type IndirectActivity struct {
	Meta
	ID               int64
	Title            *string
	StartDate        *time.Time
	EndDate          *time.Time
	Unit             *string
	Type             *string
	ProgramArea      *string
	SNAPEdGrantGoals *string
}

type InterventionChannel struct {
	ActivityID   int64
	Activity     *string
	ID           int64
	Channel      *string
	Description  *string
	SiteID       *int64
	SiteName     *string
	Reach        *int64
	NewlyReached *int64
}

type Partnership struct {
	Meta
	ID                int64
	Name              *string
	Unit              *string
	ActionPlanName    *string
	DirectEducation   *int64
	ProgramArea       *string
	PSEIntervention   *int64
	RelationshipDepth *string
	SNAPEdGrantGoals  *string
}

type ProgramActivity struct {
	Meta
	ID                    int64
	Name                  *string
	ProgramAreas          *string
	Unit                  *string
	Intervention          *string
	Setting               *string
	PrimaryCurriculum     *string
	ParticipantsTotal     *int64
	SNAPEdGrantGoals      *string
	SNAPEdSpecialProjects *string
	FCSProgramTeam        *string
	FCSGrantGoals         *string
}

type Session struct {
	ID                int64
	ProgramID         int64
	StartDate         *time.Time
	StartDateWithTime *time.Time
	Length            *float64
	NumParticipants   *int64
}

// SiteActivity is a PSE site activity.
type SiteActivity struct {
	Meta
	ID               int64
	SiteID           *int64
	SiteName         *string
	Name             *string
	StartFiscalYear  *int64
	PlanningStage    *int64
	TotalReach       *int64
	Unit             *string
	ProgramArea      *string
	Intervention     *string
	SNAPEdGrantGoals *string
}

// Assessment is a needs, readiness or effectiveness assessment of a site
// activity.
type Assessment struct {
	PSEID         int64
	ID            int64
	Type          *string
	Tool          *string
	BaselineScore *float64
	BaselineDate  *time.Time
	FollowUpDate  *time.Time
	FollowUpScore *float64
}

// Change is an adopted PSE change.
type Change struct {
	PSEID int64
	ID    int64
}

// CoalitionSurvey is one coalition survey response.
type CoalitionSurvey struct {
	ProgramID       *int64
	ProgramName     *string
	ResponseID      *int64
	ReportedByEmail *string
	// CoalitionID holds only the digits staff entered for the coalition.
	CoalitionID     *string
	CoalitionName   *string
	Quarter         *string
}
