package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pears-cleaning/internal/notify"
	"pears-cleaning/internal/pears"
	"pears-cleaning/internal/schedule"
)

// ScheduleCommand creates the schedule command.
func ScheduleCommand(a *App) *cobra.Command {
	var (
		date string
		days int
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show which reports are due",
		Long: `Prints the reports the scheduler runs on each day of a window, starting
from --date.

Examples:
  pears-cleaning schedule
  pears-cleaning schedule --date 2023-01-01 --days 31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := runDate(date)
			if err != nil {
				return err
			}
			printPlan(schedule.FromConfig(a.Config.Schedule), from, days)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "First day, YYYY-MM-DD (default: today)")
	cmd.Flags().IntVar(&days, "days", 1, "Number of days to show")

	return cmd
}

func printPlan(cal schedule.Calendar, from time.Time, days int) {
	fmt.Printf("🗓️  Report schedule from %s\n", from.Format("2006-01-02"))
	found := 0
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i)
		for _, r := range cal.Due(day) {
			fmt.Printf("   %s  %s\n", day.Format("2006-01-02"), r)
			found++
		}
	}
	if found == 0 {
		fmt.Println("   nothing scheduled")
	}
}

// ServeCommand creates the serve command.
func ServeCommand(a *App) *cobra.Command {
	var (
		fetchExports bool
		runNow       bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reports on their schedule",
		Long: `Starts the scheduler. On every tick of schedule.cron it checks which reports
are due that day, downloads that day's exports and runs the reports.
Stops on SIGINT or SIGTERM after the running report finishes.

Examples:
  pears-cleaning serve --config pears.yaml
  pears-cleaning serve --fetch=false --run-now`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a, fetchExports, runNow)
		},
	}

	cmd.Flags().BoolVar(&fetchExports, "fetch", true, "Download the day's exports from S3 before a report")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Check today's schedule once before waiting for the first tick")

	return cmd
}

func runServe(ctx context.Context, a *App, fetchExports, runNow bool) error {
	run := scheduledRun(a, fetchExports)
	d, err := schedule.NewDaemon(a.Config.Schedule.Cron, schedule.FromConfig(a.Config.Schedule), run, a.Log)
	if err != nil {
		return err
	}

	if runNow {
		if err := d.Tick(ctx, time.Now()); err != nil {
			a.Log.Error("scheduled run failed", zap.Error(err))
		}
	}
	fmt.Printf("⏰ Scheduler running on %q, press Ctrl+C to stop\n", a.Config.Schedule.Cron)
	return d.Serve(ctx)
}

// scheduledRun runs one due report with the configured inputs.
func scheduledRun(a *App, fetchExports bool) schedule.RunFunc {
	return func(ctx context.Context, day time.Time, r schedule.Report) error {
		if fetchExports {
			if err := runFetch(ctx, a, day.Format("2006-01-02")); err != nil {
				return err
			}
		}
		date := day.Format("2006-01-02")
		cfg := a.Config
		switch r {
		case schedule.MonthlyCleaning:
			var none referenceFlags
			return runMonthly(ctx, a, date, pears.ExportsIn(cfg.Exports.Dir), none.sources(cfg.Reference, notify.Monthly))
		case schedule.QuarterlyCleaning:
			var none referenceFlags
			surveys := cfg.Exports.SurveyExport
			if surveys == "" {
				surveys = cfg.Exports.Dir
			}
			return runQuarterly(ctx, a, date, pears.ExportsIn(cfg.Exports.Dir).Coalitions, surveys, none.sources(cfg.Reference, notify.Quarterly))
		default:
			return fmt.Errorf("unknown report %q", r)
		}
	}
}
