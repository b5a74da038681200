package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"lms-exam-service/internal/config"
	"lms-exam-service/internal/infra/sqlstore"
	"lms-exam-service/internal/logging"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runMigrations(cmd.Context(), cfg)
		},
	}
}

func runMigrations(ctx context.Context, cfg config.Config) error {
	switch cfg.Database.Driver {
	case sqlstore.DriverPostgres, sqlstore.DriverSQLite:
	default:
		return fmt.Errorf("migrate: driver %q has no schema", cfg.Database.Driver)
	}
	db, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := sqlstore.Migrate(ctx, db)
	if err != nil {
		return err
	}
	logging.New(cfg.Log.Level, cfg.Log.Format).
		WithField("driver", cfg.Database.Driver).
		WithField("applied", applied).
		Info("migrations applied")
	return nil
}
