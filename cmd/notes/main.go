// Command notes is the command-line front end of the multi-tenant note store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/notes/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
