package cli

import (
	"fmt"

	"github.com/leandroluk/larago/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the users and posts schema",
		Long: `Apply the embedded migrations for the configured driver.

SQL drivers run goose migrations, Mongo gets its indexes, the memory driver
needs nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := sessionFrom(cmd)
			version, err := database.Migrate(cmd.Context(), s.driver, s.cfg.Database.Name)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			s.logger.Debug().Int64("version", version).Msg("migrated")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s database at version %d\n", s.cfg.Database.Driver, version)
			return nil
		},
	}
}
