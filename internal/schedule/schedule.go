// Package schedule decides which reports are due on a date and runs them
// from a daily cron tick.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pears-cleaning/internal/config"
)

// Report names a scheduled report.
type Report string

const (
	MonthlyCleaning   Report = "monthly"
	QuarterlyCleaning Report = "quarterly"
)

// Calendar is the day-of-month plan of each report.
type Calendar struct {
	MonthlyDay      int
	QuarterlyDays   []int
	QuarterlyMonths []int
}

// FromConfig builds the calendar from the schedule configuration.
func FromConfig(cfg config.ScheduleConfig) Calendar {
	return Calendar{
		MonthlyDay:      cfg.MonthlyDay,
		QuarterlyDays:   cfg.QuarterlyDays,
		QuarterlyMonths: cfg.QuarterlyMonths,
	}
}

// Due lists the reports scheduled on day, monthly first.
func (c Calendar) Due(day time.Time) []Report {
	var due []Report
	if day.Day() == c.MonthlyDay {
		due = append(due, MonthlyCleaning)
	}
	if slices.Contains(c.QuarterlyMonths, int(day.Month())) && slices.Contains(c.QuarterlyDays, day.Day()) {
		due = append(due, QuarterlyCleaning)
	}
	return due
}

// RunFunc runs one report for the given day.
type RunFunc func(ctx context.Context, day time.Time, r Report) error

// Daemon evaluates the calendar on every cron tick.
type Daemon struct {
	cron *cron.Cron
	cal  Calendar
	run  RunFunc
	log  *zap.Logger
	now  func() time.Time
}

// NewDaemon schedules the tick on spec, a standard five field cron
// expression. A tick still running when the next one fires is skipped.
func NewDaemon(spec string, cal Calendar, run RunFunc, log *zap.Logger) (*Daemon, error) {
	d := &Daemon{cal: cal, run: run, log: log, now: time.Now}
	logger := cron.PrintfLogger(zap.NewStdLog(log))
	d.cron = cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := d.cron.AddFunc(spec, func() {
		if err := d.Tick(context.Background(), d.now()); err != nil {
			d.log.Error("scheduled run failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return d, nil
}

// Tick runs every report due on now. Each report runs even if an earlier
// one failed; the failures are joined.
func (d *Daemon) Tick(ctx context.Context, now time.Time) error {
	due := d.cal.Due(now)
	if len(due) == 0 {
		d.log.Debug("nothing scheduled", zap.Time("day", now))
		return nil
	}

	var errs []error
	for _, r := range due {
		d.log.Info("running scheduled report", zap.String("report", string(r)), zap.Time("day", now))
		if err := d.run(ctx, now, r); err != nil {
			errs = append(errs, fmt.Errorf("%s report: %w", r, err))
		}
	}
	return errors.Join(errs...)
}

// Serve runs the cron scheduler until ctx is done, then waits for a tick
// in progress to finish.
func (d *Daemon) Serve(ctx context.Context) error {
	d.cron.Start()
	d.log.Info("scheduler started", zap.Int("entries", len(d.cron.Entries())))
	<-ctx.Done()
	<-d.cron.Stop().Done()
	d.log.Info("scheduler stopped")
	return nil
}
