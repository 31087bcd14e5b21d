package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/cli"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/config"
	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version,
including the seeded card catalog.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dbPath := expandPath(cfg.Storage.DatabasePath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if status {
		version, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Database %s at schema version %d (latest %d)",
			dbPath, version, storage.ExpectedSchemaVersion)))
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess("Database migrations completed."))
	return nil
}
