package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/civicwatch/civicwatch/pkg/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	Long: `Apply any pending schema migrations to the configured database.

Migrations are embedded in the binary and tracked in the schema_migrations
table; already-applied migrations are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connectPool(ctx)
		if err != nil {
			return err
		}
		defer db.Close(pool)

		result, err := db.RunMigrations(ctx, pool)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		return printOutput(result, func() string {
			if len(result.Applied) == 0 {
				return "No pending migrations."
			}
			return fmt.Sprintf("Applied %d migration(s): %s",
				len(result.Applied), strings.Join(result.Applied, ", "))
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
