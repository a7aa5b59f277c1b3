package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "History database management",
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := historyDatabase(cmd)
			if err != nil {
				return err
			}
			d, err := openDB(dsn)
			if err != nil {
				return err
			}
			defer d.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s).\n", d.Dialect())
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all recorded audit runs (destructive!)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			dsn, err := historyDatabase(cmd)
			if err != nil {
				return err
			}
			d, err := openDB(dsn)
			if err != nil {
				return err
			}
			defer d.Close()
			if err := d.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History database reset.")
			return nil
		},
	}
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")

	cmd.AddCommand(migrateCmd)
	cmd.AddCommand(resetCmd)
	return cmd
}
