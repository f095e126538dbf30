// ABOUTME: CLI command for moving an account between storage backends.
// ABOUTME: Copies the signed-in account from the configured backend to another one.
package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/healthdash/internal/storage"
)

var (
	migrateTo          string
	migrateDataDir     string
	migrateDatabaseURL string
	migrateDryRun      bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy your account to another storage backend",
	Long: `Copy the signed-in account, with its readings, profile and reports, from the
configured backend to another one. IDs and timestamps are kept. Report files
stay where they are.

USAGE:

  healthdash migrate --to badger --dry-run   # Preview what would be copied
  healthdash migrate --to badger             # Copy into ~/.local/share/healthdash/badger
  healthdash migrate --to postgres --database-url postgres://localhost/healthdash

AFTER MIGRATION:

  Point the config at the new backend:
    HEALTHDASH_BACKEND=badger healthdash dashboard
  or set "backend" in ~/.config/healthdash/config.json.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := requireSession()
		if err != nil {
			return err
		}

		target := *cfg
		target.Backend = migrateTo
		if migrateDataDir != "" {
			target.DataDir = migrateDataDir
		}
		if migrateDatabaseURL != "" {
			target.DatabaseURL = migrateDatabaseURL
		}
		if target.GetBackend() == cfg.GetBackend() && target.GetDataDir() == cfg.GetDataDir() &&
			target.DatabaseURL == cfg.DatabaseURL {
			return fmt.Errorf("destination is the current %s backend", cfg.GetBackend())
		}

		if migrateDryRun {
			data, err := repo.GetAllData(cmd.Context(), sess.UserID)
			if err != nil {
				return err
			}
			color.Yellow("Dry run - no changes made")
			fmt.Printf("  Would copy %s to %s: %d readings, %d reports, profile: %t\n",
				sess.Email, target.GetBackend(), len(data.Samples), len(data.Reports), data.Profile != nil)
			return nil
		}

		if target.GetBackend() == "badger" {
			dir := filepath.Join(target.GetDataDir(), "badger")
			if full, err := storage.IsDirNonEmpty(dir); err == nil && full {
				color.New(color.Faint).Printf("  %s already holds data; other accounts there are kept\n", dir)
			}
		}

		dst, err := target.OpenStorage(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open destination: %w", err)
		}
		defer dst.Close()

		summary, err := storage.MigrateUser(cmd.Context(), repo, dst, sess.UserID)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		color.Green("✓ Migrated %s to %s", sess.Email, target.GetBackend())
		fmt.Printf("  %d readings, %d reports", summary.Samples, summary.Reports)
		if summary.Profile {
			fmt.Print(", profile")
		}
		fmt.Println()
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "destination backend: sqlite, postgres or badger")
	migrateCmd.Flags().StringVar(&migrateDataDir, "data-dir", "", "destination data directory (sqlite, badger)")
	migrateCmd.Flags().StringVar(&migrateDatabaseURL, "database-url", "", "destination connection string (postgres)")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview migration without making changes")
	_ = migrateCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(migrateCmd)
}
