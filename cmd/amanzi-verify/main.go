// Command amanzi-verify runs Amanzi verification suites.
package main

import (
	"fmt"
	"os"

	"github.com/amanzi/verification/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
