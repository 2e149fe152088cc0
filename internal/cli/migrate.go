package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCmd создаёт команды управления схемой БД.
func NewMigrateCmd(backendFn func() (Backend, error), outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				backend, err := backendFn()
				if err != nil {
					return err
				}
				defer backend.Close()

				version, err := backend.MigrateUp()
				if err != nil {
					return err
				}
				outputFn().Success(fmt.Sprintf("Schema is at version %d", version))
				return nil
			},
		},
		newMigrateDownCmd(backendFn, outputFn),
	)

	return cmd
}

func newMigrateDownCmd(backendFn func() (Backend, error), outputFn func() *Output) *cobra.Command {
	var steps int
	var all bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				steps = 0
			} else if steps < 1 {
				return fmt.Errorf("--steps must be at least 1 (use --all to roll back everything)")
			}

			backend, err := backendFn()
			if err != nil {
				return err
			}
			defer backend.Close()

			version, err := backend.MigrateDown(steps)
			if err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Schema is at version %d", version))
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	cmd.Flags().BoolVar(&all, "all", false, "Roll back all migrations")

	return cmd
}
