package cli

import (
	"fmt"

	"github.com/malbeclabs/netsim/internal/scenario"
	"github.com/spf13/cobra"
)

// ValidateCmd parses and validates a scenario file without running it.
type ValidateCmd struct{}

func NewValidateCmd() *ValidateCmd { return &ValidateCmd{} }

func (c *ValidateCmd) Command() *cobra.Command {
	var scenarioPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse and validate a scenario file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if scenarioPath == "" {
				return fmt.Errorf("--scenario is required")
			}
			s, err := scenario.Load(scenarioPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scenario valid: %d cable(s), %d hub(s), %d bridge(s), %d host(s)\n",
				len(s.Cables), len(s.Hubs), len(s.Bridges), len(s.Hosts))
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to the scenario YAML file")
	return cmd
}
