package store

import (
	"time"

	"github.com/lib/pq"
)

// RunKind names the report a run produced.
type RunKind string

const (
	MonthlyRun   RunKind = "monthly"
	QuarterlyRun RunKind = "quarterly"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning RunStatus = "RUNNING"
	// RunSucceeded means every module ran.
	RunSucceeded RunStatus = "SUCCEEDED"
	// RunPartial means a workbook was written without some modules.
	RunPartial RunStatus = "PARTIAL"
	RunFailed  RunStatus = "FAILED"
)

// Run is one execution of a report.
type Run struct {
	RunID       string     `db:"run_id" json:"run_id"`
	Kind        RunKind    `db:"kind" json:"kind"`
	Period      string     `db:"period" json:"period"`
	Status      RunStatus  `db:"status" json:"status"`
	StartedAt   time.Time  `db:"started_at" json:"started_at"`
	FinishedAt  *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	Corrections int        `db:"corrections" json:"corrections"`
	Sent        int        `db:"notifications_sent" json:"notifications_sent"`
	// FailedModules lists the modules that could not be evaluated.
	FailedModules pq.StringArray `db:"failed_modules" json:"failed_modules"`
	Error         *string        `db:"error" json:"error,omitempty"`
}

// SummaryRow is one line of a run's corrections summary.
type SummaryRow struct {
	RunID        string `db:"run_id" json:"run_id"`
	Position     int    `db:"position" json:"position"`
	Module       string `db:"module" json:"module"`
	Update       string `db:"update_id" json:"update"`
	Entries      int    `db:"entries" json:"entries"`
	Notification string `db:"notification" json:"notification"`
}

// DeliveryFailure is a notification that could not be sent.
type DeliveryFailure struct {
	RunID     string    `db:"run_id" json:"run_id"`
	Position  int       `db:"position" json:"position"`
	Recipient string    `db:"recipient" json:"recipient"`
	Email     string    `db:"email" json:"email"`
	Subject   string    `db:"subject" json:"subject"`
	Error     string    `db:"error" json:"error"`
	FailedAt  time.Time `db:"failed_at" json:"failed_at"`
}
