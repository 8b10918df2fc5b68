package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/story-cms-api/internal/database"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the schema of the postgres backend",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(ctx, func(db *database.DB, path string) error {
				if err := db.RunMigrations(path); err != nil {
					return err
				}
				return printVersion(cmd, db, path)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(ctx, func(db *database.DB, path string) error {
				if err := db.MigrateDown(path); err != nil {
					return err
				}
				return printVersion(cmd, db, path)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "goto <version>",
		Short: "Migrate up or down to a specific version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}
			return withDatabase(ctx, func(db *database.DB, path string) error {
				if err := db.MigrateToVersion(path, uint(version)); err != nil {
					return err
				}
				return printVersion(cmd, db, path)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(ctx, func(db *database.DB, path string) error {
				return printVersion(cmd, db, path)
			})
		},
	})

	return cmd
}

func withDatabase(ctx *commandContext, fn func(db *database.DB, migrationsPath string) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	db, err := database.New(&cfg.Database, ctx.logger())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db, cfg.MigrationsPath)
}

func printVersion(cmd *cobra.Command, db *database.DB, migrationsPath string) error {
	version, dirty, err := db.Version(migrationsPath)
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (%s)\n", version, state)
	return nil
}
