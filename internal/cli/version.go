package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// VersionCommand creates the version command.
func VersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// The version needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pears-cleaning %s (%s)\n", version, runtime.Version())
		},
	}
}
