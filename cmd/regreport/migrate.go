package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/registration.report/internal/store"
)

// withSchema opens the curve database without migrating it.
func (a *app) withSchema(fn func(*store.DB) error) error {
	db, err := store.OpenUnmigrated(a.cfg.GetDBPath())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the curve database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSchema(func(db *store.DB) error {
				if err := db.MigrateUp(store.Migrations()); err != nil {
					return err
				}
				return printVersion(cmd, db)
			})
		},
	}, &cobra.Command{
		Use:   "down",
		Short: "Roll back one migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSchema(func(db *store.DB) error {
				if err := db.MigrateDown(store.Migrations()); err != nil {
					return err
				}
				return printVersion(cmd, db)
			})
		},
	}, &cobra.Command{
		Use:   "version",
		Short: "Print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSchema(func(db *store.DB) error {
				return printVersion(cmd, db)
			})
		},
	}, &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations (clears the dirty flag)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return a.withSchema(func(db *store.DB) error {
				if err := db.MigrateForce(store.Migrations(), v); err != nil {
					return err
				}
				return printVersion(cmd, db)
			})
		},
	})
	return cmd
}

func printVersion(cmd *cobra.Command, db *store.DB) error {
	v, dirty, err := db.MigrateVersion(store.Migrations())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", v, dirty)
	return nil
}
