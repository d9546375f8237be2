package main

import (
	"fmt"
	"os"

	"github.com/ChinmayaKolhe/VicharManthan/internal/config"
	"github.com/ChinmayaKolhe/VicharManthan/internal/database"
	"github.com/ChinmayaKolhe/VicharManthan/internal/logging"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back the postgres schema",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(database.MigrateUp), string(database.MigrateDown)},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if cfg.StoreDriver != config.DriverPostgres {
		return fmt.Errorf("migrations only apply to the %s store, got %q", config.DriverPostgres, cfg.StoreDriver)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	direction := database.MigrateDirection(args[0])
	if err := database.Migrate(cfg.DatabaseDSN, direction); err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	logger.Info("migration complete", "direction", direction)
	return nil
}
