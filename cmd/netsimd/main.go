// Command netsimd is the one-shot driver for the network simulator: it
// loads a scenario YAML file (internal/scenario), runs the discrete-event
// engine to completion or to a requested simulated deadline, and prints a
// final state report rather than exposing an interactive console.
package main

import (
	"os"

	"github.com/malbeclabs/netsim/internal/cli"
)

func main() {
	os.Exit(int(cli.Run()))
}
