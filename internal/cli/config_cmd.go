package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/auditgate/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and inspect the gate configuration",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, dir)
			if err != nil {
				return err
			}

			errs := config.Validate(cfg)
			if len(errs) == 0 {
				cmd.Println("Configuration is valid.")
				return nil
			}

			cmd.Println("Validation errors:")
			for _, e := range errs {
				cmd.Printf("  - %s\n", e)
			}
			return fmt.Errorf("config has %d validation error(s)", len(errs))
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration: flags over file over defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, dir)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg)

			data, err := config.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshalling config: %w", err)
			}

			cmd.Print(string(data))
			return nil
		},
	}

	cmd.AddCommand(validateCmd)
	cmd.AddCommand(showCmd)
	return cmd
}
