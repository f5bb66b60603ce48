package cli

import (
	"fmt"

	"github.com/malbeclabs/netsim/internal/scenario"
	"github.com/malbeclabs/netsim/internal/simmetrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// RunCmd constructs a scenario's topology, advances the engine, and prints
// a final one-shot state report — the ARP/routing/forward tables and
// queue depths a `Show` command would render in the (out-of-scope)
// interactive console, produced once instead of on demand.
type RunCmd struct{}

func NewRunCmd() *RunCmd { return &RunCmd{} }

func (c *RunCmd) Command() *cobra.Command {
	var scenarioPath, runFor, runTo string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario to completion or to a simulated deadline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if scenarioPath == "" {
				return fmt.Errorf("--scenario is required")
			}
			if runFor != "" && runTo != "" {
				return fmt.Errorf("--run-for and --run-to are mutually exclusive")
			}

			verbose, err := rootFlag(cmd, "verbose")
			if err != nil {
				return err
			}
			levels, err := rootStringSlice(cmd, "log-level")
			if err != nil {
				return err
			}
			log, err := newLogger(cmd, levels, verbose)
			if err != nil {
				return err
			}

			s, err := scenario.Load(scenarioPath)
			if err != nil {
				return err
			}

			metrics := simmetrics.New(prometheus.NewRegistry())
			top, err := scenario.Build(s, log, metrics)
			if err != nil {
				return fmt.Errorf("building scenario: %w", err)
			}

			switch {
			case runFor != "":
				d, err := parseTimeToken(runFor)
				if err != nil {
					return err
				}
				top.Engine.RunUntil(top.Engine.Now() + d)
			case runTo != "":
				target, err := parseTimeToken(runTo)
				if err != nil {
					return err
				}
				if target <= top.Engine.Now() {
					return fmt.Errorf("--run-to target must be > current simulated time")
				}
				top.Engine.RunUntil(target)
			default:
				top.Engine.RunAll()
			}

			printReport(cmd, top)
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to the scenario YAML file")
	cmd.Flags().StringVar(&runFor, "run-for", "", "advance the engine by a duration (<int><ns|µs|ms|s>) then report")
	cmd.Flags().StringVar(&runTo, "run-to", "", "advance the engine to an absolute simulated time then report")
	return cmd
}
