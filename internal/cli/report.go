package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pears-cleaning/internal/config"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/notify"
	"pears-cleaning/internal/pears"
	"pears-cleaning/internal/report"
)

// referenceFlags override the reference files of the configuration.
type referenceFlags struct {
	staffList           string
	unitCounties        string
	updateNotifications string
	namesList           string
}

func (f *referenceFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.staffList, "staff-list", "", "Staff list workbook (default: reference.staff_list)")
	cmd.Flags().StringVar(&f.unitCounties, "unit-counties", "", "Unit counties workbook (default: reference.unit_counties)")
	cmd.Flags().StringVar(&f.updateNotifications, "update-notifications", "", "Update notification texts workbook (default: reference.update_notifications)")
	cmd.Flags().StringVar(&f.namesList, "names-list", "", "Optional names list workbook (default: reference.names_list)")
}

func (f *referenceFlags) sources(cfg config.ReferenceConfig, kind notify.Kind) lookup.Sources {
	override(&cfg.StaffList, f.staffList)
	override(&cfg.UnitCounties, f.unitCounties)
	override(&cfg.UpdateNotifications, f.updateNotifications)
	override(&cfg.NamesList, f.namesList)
	return report.Sources(cfg, kind)
}

// outputFlags override the report output of the configuration.
type outputFlags struct {
	outputDir  string
	sendEmails bool
	date       string
}

func (f *outputFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Directory the workbooks are written to (default: report.output_dir)")
	cmd.Flags().BoolVar(&f.sendEmails, "send-emails", false, "Mail the notifications and reports (default: report.send_emails)")
	cmd.Flags().StringVar(&f.date, "date", "", "Run as if on this date, YYYY-MM-DD (default: today)")
}

func (f *outputFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	override(&cfg.Report.OutputDir, f.outputDir)
	if cmd.Flags().Changed("send-emails") {
		cfg.Report.SendEmails = f.sendEmails
	}
	return cfg.Validate()
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// MonthlyCommand creates the monthly command.
func MonthlyCommand(a *App) *cobra.Command {
	var (
		exportsDir string
		paths      pears.ExportPaths
		ref        referenceFlags
		out        outputFlags
	)

	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Clean the monthly module exports and send the corrections",
		Long: `Evaluates the data cleaning rules of the Coalitions, Indirect Activities,
Partnerships, Program Activities and PSE Site Activities exports for the
previous month. Writes the corrections workbook and, with --send-emails,
mails every staff member the records they need to update.

Each export defaults to its standard file name under --exports-dir.

Examples:
  pears-cleaning monthly --exports-dir ./exports
  pears-cleaning monthly --exports-dir ./exports --date 2022-10-12 --output-dir ./out
  pears-cleaning monthly --config pears.yaml --send-emails`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.apply(cmd, a.Config); err != nil {
				return err
			}
			override(&a.Config.Exports.Dir, exportsDir)
			return runMonthly(cmd.Context(), a, out.date, monthlyPaths(a.Config.Exports.Dir, paths), ref.sources(a.Config.Reference, notify.Monthly))
		},
	}

	cmd.Flags().StringVar(&exportsDir, "exports-dir", "", "Directory holding the module exports (default: exports.dir)")
	cmd.Flags().StringVar(&paths.Coalitions, "coalitions", "", "Coalitions export")
	cmd.Flags().StringVar(&paths.IndirectActivities, "indirect-activities", "", "Indirect Activities export")
	cmd.Flags().StringVar(&paths.Partnerships, "partnerships", "", "Partnerships export")
	cmd.Flags().StringVar(&paths.ProgramActivities, "program-activities", "", "Program Activities export")
	cmd.Flags().StringVar(&paths.SiteActivities, "site-activities", "", "PSE Site Activities export")
	ref.bind(cmd)
	out.bind(cmd)

	return cmd
}

// monthlyPaths fills the paths not given explicitly from dir.
func monthlyPaths(dir string, explicit pears.ExportPaths) pears.ExportPaths {
	paths := pears.ExportsIn(dir)
	override(&paths.Coalitions, explicit.Coalitions)
	override(&paths.IndirectActivities, explicit.IndirectActivities)
	override(&paths.Partnerships, explicit.Partnerships)
	override(&paths.ProgramActivities, explicit.ProgramActivities)
	override(&paths.SiteActivities, explicit.SiteActivities)
	return paths
}

func runMonthly(ctx context.Context, a *App, date string, paths pears.ExportPaths, src lookup.Sources) error {
	now, err := runDate(date)
	if err != nil {
		return err
	}

	fmt.Printf("📅 Monthly data cleaning for %s\n", now.Format("2006-01-02"))
	job := report.MonthlyJob(now, paths, a.Config.Report)
	outcome, err := a.execute(ctx, src, now, job)
	printOutcome(os.Stdout, outcome)
	if err != nil {
		return fmt.Errorf("monthly report failed: %w", err)
	}
	fmt.Println("✅ Monthly data cleaning complete")
	return nil
}

// QuarterlyCommand creates the quarterly command.
func QuarterlyCommand(a *App) *cobra.Command {
	var (
		coalitions string
		surveys    string
		ref        referenceFlags
		out        outputFlags
	)

	cmd := &cobra.Command{
		Use:   "quarterly",
		Short: "Clean the coalition survey responses of the last quarter",
		Long: `Checks that every active coalition reported a survey response for the
fiscal quarter that closed with the previous month, and flags responses
for coalitions that no longer exist. Only runs in the month after a
quarter closes (October, January, April and July).

--surveys accepts either the survey export or the directory holding
Coalition_Survey_<quarter>_Export.xlsx.

Examples:
  pears-cleaning quarterly --exports-dir ./exports
  pears-cleaning quarterly --coalitions ./exports/Coalition_Export.xlsx --surveys ./surveys
  pears-cleaning quarterly --date 2023-01-12 --send-emails`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := out.apply(cmd, a.Config); err != nil {
				return err
			}
			exportsDir, _ := cmd.Flags().GetString("exports-dir")
			override(&a.Config.Exports.Dir, exportsDir)
			if coalitions == "" {
				coalitions = pears.ExportsIn(a.Config.Exports.Dir).Coalitions
			}
			if surveys == "" {
				surveys = a.Config.Exports.SurveyExport
			}
			if surveys == "" {
				surveys = a.Config.Exports.Dir
			}
			return runQuarterly(cmd.Context(), a, out.date, coalitions, surveys, ref.sources(a.Config.Reference, notify.Quarterly))
		},
	}

	cmd.Flags().String("exports-dir", "", "Directory holding the module exports (default: exports.dir)")
	cmd.Flags().StringVar(&coalitions, "coalitions", "", "Coalitions export")
	cmd.Flags().StringVar(&surveys, "surveys", "", "Coalition survey export or its directory (default: exports.survey_export)")
	ref.bind(cmd)
	out.bind(cmd)

	return cmd
}

func runQuarterly(ctx context.Context, a *App, date, coalitions, surveys string, src lookup.Sources) error {
	now, err := runDate(date)
	if err != nil {
		return err
	}

	job, err := report.QuarterlyJob(now, coalitions, surveys, a.Config.Report)
	if err != nil {
		return err
	}
	fmt.Printf("📅 Quarterly survey cleaning for %s\n", job.Period)
	outcome, err := a.execute(ctx, src, now, job)
	printOutcome(os.Stdout, outcome)
	if err != nil {
		return fmt.Errorf("quarterly report failed: %w", err)
	}
	fmt.Println("✅ Quarterly survey cleaning complete")
	return nil
}
