package report

import (
	"fmt"
	"time"

	"pears-cleaning/internal/config"
	"pears-cleaning/internal/fiscal"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/modules"
	"pears-cleaning/internal/notify"
	"pears-cleaning/internal/pears"
	"pears-cleaning/internal/store"
)

// Job is one report: the modules it cleans and how its output is named.
type Job struct {
	Kind     notify.Kind
	RunKind  store.RunKind
	Period   string
	Registry *modules.Registry
	Deadline time.Time

	// Workbook and FormerWorkbook are file names without directory.
	Workbook       string
	FormerWorkbook string

	ReportSubject string
	FormerSubject string
	NoticeSubject func(n notify.Notice) string
}

// MonthlyJob covers the month before now.
func MonthlyJob(now time.Time, paths pears.ExportPaths, cfg config.ReportConfig) Job {
	month := fiscal.PreviousMonth(now)
	label := month.Format("Jan-2006")
	period := month.Format("2006-01")
	return Job{
		Kind:           notify.Monthly,
		RunKind:        store.MonthlyRun,
		Period:         period,
		Registry:       modules.Monthly(paths),
		Deadline:       fiscal.Deadline(now, cfg.MonthlyDeadlineDay),
		Workbook:       "Monthly PEARS Corrections " + period + ".xlsx",
		FormerWorkbook: "Former Staff PEARS Updates " + period + ".xlsx",
		ReportSubject:  "Monthly PEARS Corrections " + label,
		FormerSubject:  "Former Staff PEARS Updates " + period,
		NoticeSubject: func(n notify.Notice) string {
			return fmt.Sprintf("PEARS Entries Updates %s, Unit %s, %s", label, n.Recipient.Unit, n.Staff.FullName)
		},
	}
}

// QuarterlyJob covers the fiscal quarter that closed with the previous
// month. It fails outside the months that follow a quarter.
func QuarterlyJob(now time.Time, coalitionPath, surveyDir string, cfg config.ReportConfig) (Job, error) {
	q, err := fiscal.SurveyQuarter(now)
	if err != nil {
		return Job{}, err
	}
	surveyPath := surveyDir
	if surveyPath == "" || isDir(surveyPath) {
		surveyPath = pears.SurveyExport(surveyDir, q.Code)
	}
	return Job{
		Kind:           notify.Quarterly,
		RunKind:        store.QuarterlyRun,
		Period:         q.Code,
		Registry:       modules.Quarterly(coalitionPath, surveyPath, q),
		Deadline:       fiscal.Deadline(now, cfg.QuarterlyDeadlineDay),
		Workbook:       "Quarterly Coalition Survey Entry " + q.Code + ".xlsx",
		FormerWorkbook: "Former Staff Coalition Survey Entry " + q.Code + ".xlsx",
		ReportSubject:  "Quarterly Coalition Survey Entry " + q.Code,
		FormerSubject:  "Former Staff Coalition Survey Entry " + q.Code,
		NoticeSubject: func(n notify.Notice) string {
			return fmt.Sprintf("Coalition Survey Entry %s, %s", q.Code, n.Staff.FullName)
		},
	}, nil
}

// Sources maps the reference configuration to the files a run of kind
// reads.
func Sources(cfg config.ReferenceConfig, kind notify.Kind) lookup.Sources {
	sheet := lookup.SheetMonthlyTexts
	if kind == notify.Quarterly {
		sheet = lookup.SheetQuarterlyTexts
	}
	return lookup.Sources{
		StaffList:           cfg.StaffList,
		UnitCounties:        cfg.UnitCounties,
		UpdateNotifications: cfg.UpdateNotifications,
		NotificationSheet:   sheet,
		NamesList:           cfg.NamesList,
		FormerStaffDomain:   cfg.FormerStaffDomain,
	}
}
