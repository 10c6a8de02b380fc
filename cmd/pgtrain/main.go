// Command pgtrain runs policy gradient updates on recorded
// trajectories.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd returns the pgtrain command with all subcommands
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pgtrain",
		Short: "Run policy gradient updates on recorded trajectories",
		Long: `pgtrain trains a policy, and optionally a value baseline, with
vanilla policy gradient updates on a batch of recorded trajectories.

Configuration is read from a YAML file and may be overridden with
PGCORE_ prefixed environment variables, e.g. PGCORE_AGENT_GAMMA=0.95.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newTrainCmd())
	root.AddCommand(newValidateCmd())
	return root
}
