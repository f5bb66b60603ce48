// Package cli implements netsimd's cobra command tree: run, validate, and
// version, grounded on the monorepo's other cobra CLIs
// (controlplane/telemetry/internal/data/cli.Run,
// e2e/internal/devnet/cmd.NewStartCmd) — a root command with persistent
// flags and subcommands returning *cobra.Command.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/malbeclabs/netsim/internal/simlog"
	"github.com/spf13/cobra"
)

// ExitCode is the process exit status Run returns, mirroring the
// telemetry-data CLI's ExitCode type.
type ExitCode int

const (
	exitCodeSuccess ExitCode = 0
	exitCodeError   ExitCode = 1
)

// Run builds and executes the root command, returning the process exit
// code.
func Run() ExitCode {
	rootCmd := &cobra.Command{
		Use:   "netsimd",
		Short: "Discrete-event simulator for a physical/802.3/IPv4 network.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set every output level in the logger's mask")

	var levels []string
	rootCmd.PersistentFlags().StringSliceVar(&levels, "log-level", nil,
		"output levels to record in the logger's mask: Simulation|Physical|Arp|Datalink|Icmp|Network")

	rootCmd.AddCommand(
		NewRunCmd().Command(),
		NewValidateCmd().Command(),
		NewVersionCmd().Command(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCodeError
	}
	return exitCodeSuccess
}

// newLogger builds the structured JSON logger every subcommand shares: it
// logs at Debug and carries the simlog bitfield as its "mask" attribute.
// --verbose sets every output level in addition to any explicitly named
// ones. The simulator's log calls do not consult the mask.
func newLogger(cmd *cobra.Command, levelNames []string, verbose bool) (*slog.Logger, error) {
	mask, err := simlog.ParseLevels(levelNames)
	if err != nil {
		return nil, err
	}
	if verbose {
		mask |= simlog.Simulation | simlog.Physical | simlog.Datalink | simlog.Network
	}
	return simlog.New(os.Stdout, mask), nil
}

func rootFlag(cmd *cobra.Command, name string) (bool, error) {
	return cmd.Root().PersistentFlags().GetBool(name)
}

func rootStringSlice(cmd *cobra.Command, name string) ([]string, error) {
	return cmd.Root().PersistentFlags().GetStringSlice(name)
}
