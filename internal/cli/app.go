package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pears-cleaning/internal/config"
	"pears-cleaning/internal/datastore"
	"pears-cleaning/internal/fetch"
	"pears-cleaning/internal/logging"
	"pears-cleaning/internal/lookup"
	"pears-cleaning/internal/mail"
	"pears-cleaning/internal/metrics"
	"pears-cleaning/internal/notify"
	"pears-cleaning/internal/report"
)

// App is the state shared by the commands of one invocation.
type App struct {
	ConfigPath string
	LogLevel   string

	Config *config.Config
	Log    *zap.Logger

	// OpenStore defaults to the store selected by the environment.
	OpenStore func() (datastore.DataStore, error)
}

// RootCommand builds the pears-cleaning command tree.
func RootCommand(version string) *cobra.Command {
	a := &App{}

	root := &cobra.Command{
		Use:   "pears-cleaning",
		Short: "PEARS data cleaning and corrections reports",
		Long: `Fetches PEARS module exports, evaluates the data cleaning rules of each
module and sends every staff member the corrections they own.

Environment Variables:
  PEARS_STORE_TYPE       'memory' or 'postgresql' (default: postgresql when DB_CONN_STRING is set)
  DB_CONN_STRING         PostgreSQL connection string for the run ledger
  PEARS_SMTP_HOST        SMTP relay host
  PEARS_SMTP_USERNAME    SMTP username
  PEARS_SMTP_PASSWORD    SMTP password
  PEARS_S3_PROFILE       AWS shared config profile for the export bucket
  PEARS_PUSHGATEWAY_URL  Prometheus Pushgateway for run metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.Log != nil {
				_ = a.Log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.ConfigPath, "config", "", "Path to the YAML configuration file")
	root.PersistentFlags().StringVar(&a.LogLevel, "log-level", "", "Log level: debug, info, warn or error (overrides the config file)")

	root.AddCommand(
		MonthlyCommand(a),
		QuarterlyCommand(a),
		FetchCommand(a),
		ScheduleCommand(a),
		ServeCommand(a),
		InitDBCommand(a),
		HistoryCommand(a),
		VersionCommand(version),
	)
	return root
}

func (a *App) setup() error {
	if a.Config == nil {
		cfg, err := config.Load(a.ConfigPath)
		if err != nil {
			return err
		}
		a.Config = cfg
	}
	if a.LogLevel != "" {
		a.Config.LogLevel = a.LogLevel
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}
	if a.Log == nil {
		log, err := logging.New(a.Config.LogLevel)
		if err != nil {
			return err
		}
		a.Log = log
	}
	if a.OpenStore == nil {
		a.OpenStore = func() (datastore.DataStore, error) {
			return datastore.NewDataStore(config.GetDataStoreConfig())
		}
	}
	return nil
}

func (a *App) fetcher(ctx context.Context) (*fetch.Fetcher, error) {
	s3 := a.Config.S3
	return fetch.New(ctx, fetch.Options{
		Bucket:       s3.Bucket,
		Organization: s3.Organization,
		Profile:      s3.Profile,
		Region:       s3.Region,
	}, a.Log)
}

// execute runs one job with a fresh reference, ledger and metrics.
func (a *App) execute(ctx context.Context, src lookup.Sources, now time.Time, job report.Job) (*report.Outcome, error) {
	ref, err := lookup.Load(src)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}

	ds, err := a.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data store: %w", err)
	}
	defer ds.Close()

	m := a.Config.Mail
	runner := &report.Runner{
		Config:    a.Config,
		Reference: ref,
		Mailer: mail.NewSender(mail.Config{
			Host:     m.Host,
			Port:     m.Port,
			Username: m.Username,
			Password: m.Password,
			From:     m.From,
		}, a.Log),
		Store:   ds,
		Metrics: metrics.NewRecorder(),
		Log:     a.Log,
		Now:     func() time.Time { return now },
	}
	return runner.Run(ctx, job)
}

// runDate parses --date, defaulting to the current time.
func runDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: %w", value, err)
	}
	return day, nil
}

func printOutcome(w io.Writer, out *report.Outcome) {
	if out == nil {
		return
	}
	fmt.Fprintf(w, "🆔 Run ID: %s\n", out.RunID)
	fmt.Fprintf(w, "🎯 Status: %s\n", out.Status)
	if out.Workbook != "" {
		fmt.Fprintf(w, "📊 Workbook: %s\n", out.Workbook)
	}
	if out.FormerWorkbook != "" {
		fmt.Fprintf(w, "📁 Former staff workbook: %s\n", out.FormerWorkbook)
	}
	for _, s := range out.Evaluation.Summary() {
		fmt.Fprintf(w, "   %-22s %-45s %5d\n", s.Module, s.Update, s.Entries)
	}
	printFailures(w, out.Failures)
}

func printFailures(w io.Writer, failures []notify.Failure) {
	for _, f := range failures {
		fmt.Fprintf(w, "❌ %s <%s>: %s\n", f.Name, f.Email, f.Err)
	}
}
