// Command rrgate records the gateway workload into a journal, replays it,
// and inspects recordings.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/rrgate/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
