package main

import (
	"context"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/config"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/repository"
	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/procurement/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedAdminUser     string
	seedAdminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert built-in permissions, roles and the admin account",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminUser, "admin-user", "admin", "admin username, empty to skip")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "", "admin password (env ADMIN_PASSWORD)")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
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
		return err
	}

	password := seedAdminPassword
	if password == "" {
		password = config.GetEnvOrDefault("ADMIN_PASSWORD", "admin123")
	}

	result, err := service.Seed(context.Background(), repository.NewRepositories(db), seedAdminUser, password)
	if err != nil {
		zapLogger.Error("Seed failed", zap.Error(err))
		return err
	}
	zapLogger.Info("Seed completed",
		zap.Int("permissions", result.Permissions),
		zap.Int("roles", result.Roles),
		zap.Bool("admin_created", result.AdminCreated),
	)
	return nil
}
