// Package main is the entry point for the timelock CLI.
package main

import (
	"os"

	"github.com/mrz1836/timelock/internal/cli"
)

// Set at build time with -ldflags "-X main.version=...".
//
//nolint:gochecknoglobals // build information injected by the linker
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	err := cli.Execute(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
