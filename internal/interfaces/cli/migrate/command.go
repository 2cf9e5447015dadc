// Package migrate implements the `migrate` command over the persistence
// models.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"hyperfleet/internal/infrastructure/config"
	"hyperfleet/internal/infrastructure/database"
	"hyperfleet/internal/infrastructure/persistence/models"
	"hyperfleet/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema management",
		Long:  `Apply the hyperfleet database schema using gorm auto-migration.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

	cmd.AddCommand(newUpCommand())

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Create or update all tables",
		RunE:  runUp,
	}
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if err := database.Get().AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.NewLogger().Infow("schema migrated", "environment", env)
	return nil
}
