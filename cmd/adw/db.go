package main

import (
	"fmt"

	"github.com/c360studio/adw/issue"
	"github.com/spf13/cobra"
)

func dbCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the shared issue database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := resolveDSN()
			if err != nil {
				return err
			}
			return issue.Migrate(cmd.Context(), dsn)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := resolveDSN()
			if err != nil {
				return err
			}
			return issue.Rollback(cmd.Context(), dsn)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print migration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := resolveDSN()
			if err != nil {
				return err
			}
			return issue.MigrationStatus(cmd.Context(), dsn)
		},
	})

	newCmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new timestamped migration file",
		Args:  cobra.ExactArgs(1),
	}
	dir := newCmd.Flags().String("dir", "issue/migrations", "Directory for the migration file")
	newCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := issue.NewMigration(*dir, args[0]); err != nil {
			return err
		}
		fmt.Printf("Created migration %s in %s\n", args[0], *dir)
		return nil
	}
	cmd.AddCommand(newCmd)

	return cmd
}

// resolveDSN loads config and resolves the Postgres connection string.
func resolveDSN() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.DSN()
}
