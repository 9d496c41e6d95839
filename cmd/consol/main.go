// Command consol builds, validates and runs group consolidation workflows.
package main

import (
	"fmt"
	"os"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
