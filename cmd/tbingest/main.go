// Command tbingest loads testbed telemetry streams into SQLite.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tbingest/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
