package main

import (
	"os"

	"github.com/GoSim-25-26J-441/docgen-client/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
