package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// FetchCommand creates the fetch command.
func FetchCommand(a *App) *cobra.Command {
	var (
		date string
		dst  string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the module exports delivered to S3",
		Long: `Downloads every export the PEARS Platform delivered to the exports bucket
on a date, under <organization>/YYYY/MM/DD/.

AWS credentials are read from the shared config, optionally with the
profile in PEARS_S3_PROFILE.

Examples:
  pears-cleaning fetch
  pears-cleaning fetch --date 2022-10-12 --dst ./exports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			override(&a.Config.Exports.Dir, dst)
			return runFetch(cmd.Context(), a, date)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Delivery date, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&dst, "dst", "", "Download directory (default: exports.dir)")

	return cmd
}

func runFetch(ctx context.Context, a *App, date string) error {
	day, err := runDate(date)
	if err != nil {
		return err
	}

	f, err := a.fetcher(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("☁️  Fetching exports of %s from s3://%s\n", day.Format("2006-01-02"), a.Config.S3.Bucket)
	paths, err := f.Download(ctx, day, a.Config.Exports.Dir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Printf("   📥 %s\n", p)
	}
	fmt.Printf("✅ Downloaded %d exports\n", len(paths))
	return nil
}
