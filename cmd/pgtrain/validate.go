package main

import (
	"github.com/samuelfneumann/pgcore/config"
	"github.com/spf13/cobra"
)

// newValidateCmd returns the command that validates a configuration
func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a training configuration",
		Long: `Validate a training configuration without training.

Examples:
  # Validate a configuration file
  pgtrain validate --config cartpole.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cmd.Printf("configuration is valid: %v policy, baseline: %v\n",
				cfg.Policy.Type, cfg.Agent.UseBaseline)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"path to the YAML configuration file")

	return cmd
}
