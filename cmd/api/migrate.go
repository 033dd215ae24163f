package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/persistence"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	for _, sub := range []struct {
		command persistence.MigrationCommand
		short   string
	}{
		{persistence.MigrateUp, "Apply all pending migrations"},
		{persistence.MigrateDown, "Roll back the latest migration"},
		{persistence.MigrateStatus, "Print migration status"},
	} {
		command := sub.command
		cmd.AddCommand(&cobra.Command{
			Use:   string(command),
			Short: sub.short,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, logger := bootstrap()
				defer logger.Sync() //nolint:errcheck

				if cfg.Postgres.DSN == "" {
					return errors.New("POSTGRES_DSN is required for migrations")
				}
				pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
				if err != nil {
					return err
				}
				defer pg.Close()

				if err := persistence.Migrate(cmd.Context(), pg.PoolHandle(), logger, command); err != nil {
					return err
				}
				logger.Info("migration finished", zap.String("command", string(command)))
				return nil
			},
		})
	}
	return cmd
}
