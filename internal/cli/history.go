package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"pears-cleaning/internal/datastore"
)

// HistoryCommand creates the history command.
func HistoryCommand(a *App) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past cleaning runs from the run ledger",
		Long: `Lists the most recent cleaning runs with their status and counts. With
--run, prints the corrections summary and failed deliveries of one run.

Examples:
  pears-cleaning history
  pears-cleaning history --limit 5
  pears-cleaning history --run 2f0c6f0e-4a51-4c39-9d8e-4d1f3b0a9c11`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.OpenStore()
			if err != nil {
				return fmt.Errorf("failed to initialize data store: %w", err)
			}
			defer ds.Close()
			return RunHistory(cmd.Context(), ds, limit, runID)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show the summary of this run")

	return cmd
}

// RunHistory prints the run ledger.
func RunHistory(ctx context.Context, ds datastore.DataStore, limit int, runID string) error {
	if runID != "" {
		return printRun(ctx, ds, runID)
	}

	log.Printf("Fetching the last %d cleaning runs", limit)
	runs, err := ds.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	fmt.Printf("\n--- Cleaning Run History ---\n")
	fmt.Printf("📚 Found %d runs.\n\n", len(runs))

	for _, run := range runs {
		fmt.Printf("===========================================\n")
		fmt.Printf("📄 %s %s | Status: %s\n", run.Kind, run.Period, run.Status)
		fmt.Printf("🆔 Run ID: %s\n", run.RunID)
		fmt.Printf("📅 Started At: %s\n", run.StartedAt.Format(time.RFC3339))
		if run.FinishedAt != nil {
			fmt.Printf("🕐 Finished At: %s\n", run.FinishedAt.Format(time.RFC3339))
		}
		fmt.Printf("📊 Corrections: %d | 📨 Notifications Sent: %d\n", run.Corrections, run.Sent)
		if len(run.FailedModules) > 0 {
			fmt.Printf("⚠️  Failed Modules: %v\n", []string(run.FailedModules))
		}
		if run.Error != nil {
			fmt.Printf("❌ Error: %s\n", *run.Error)
		}
		fmt.Printf("===========================================\n\n")
	}

	return nil
}

func printRun(ctx context.Context, ds datastore.DataStore, runID string) error {
	summary, err := ds.GetRunSummary(ctx, runID)
	if err != nil {
		return err
	}
	failures, err := ds.GetRunFailures(ctx, runID)
	if err != nil {
		return err
	}

	fmt.Printf("\n--- Corrections Summary for Run: %s ---\n", runID)
	fmt.Printf("📚 Found %d summary rows.\n\n", len(summary))
	for _, s := range summary {
		fmt.Printf("%-22s %-50s %5d\n", s.Module, s.Update, s.Entries)
	}

	fmt.Printf("\n📨 Failed deliveries: %d\n", len(failures))
	for _, f := range failures {
		fmt.Printf("❌ %s <%s> %q: %s\n", f.Recipient, f.Email, f.Subject, f.Error)
	}
	return nil
}
