package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateSteps int

func init() {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openLocal()
			if err != nil {
				return err
			}
			defer env.close()

			version, dirty, err := env.db.MigrationVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Version: %d, Dirty: %v\n", version, dirty)
			return nil
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if migrateSteps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}
			env, err := openLocal()
			if err != nil {
				return err
			}
			defer env.close()

			if err := env.db.MigrateSteps(-migrateSteps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %d migration(s)\n", migrateSteps)
			return nil
		},
	}
	downCmd.Flags().IntVar(&migrateSteps, "steps", 1, "Number of migrations to roll back")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Inspect or roll back the database schema; opening the database applies pending migrations",
	}
	migrateCmd.AddCommand(versionCmd, downCmd)
	rootCmd.AddCommand(migrateCmd)
}
