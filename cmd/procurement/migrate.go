package main

import (
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, zapLogger, err := bootstrap()
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	db, err := initDatabase(cfg.Database, cfg.Server.Mode)
	if err != nil {
		return err
	}
	if err := repository.AutoMigrate(db); err != nil {
		zapLogger.Error("Migration failed", zap.Error(err))
		return err
	}
	zapLogger.Info("Migration completed", zap.Int("models", len(repository.Models())))
	return nil
}
