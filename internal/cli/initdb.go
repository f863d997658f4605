package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pears-cleaning/internal/datastore"
)

// InitDBCommand creates the init-db command.
func InitDBCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the run ledger schema",
		Long: `Creates the pears schema and the run ledger tables in the database named
by DB_CONN_STRING. Safe to run more than once.

Examples:
  DB_CONN_STRING=postgres://localhost:5432/pears?sslmode=disable pears-cleaning init-db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := a.OpenStore()
			if err != nil {
				return fmt.Errorf("failed to initialize data store: %w", err)
			}
			defer ds.Close()
			return RunInitDB(cmd.Context(), ds)
		},
	}
}

// RunInitDB creates the ledger schema.
func RunInitDB(ctx context.Context, ds datastore.DataStore) error {
	fmt.Println("🗄️  Initializing run ledger schema...")
	if err := ds.InitDB(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Println("✅ Run ledger schema ready")
	return nil
}
