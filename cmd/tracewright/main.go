// Package main is the entry point for the tracewright debugger.
package main

import (
	"fmt"
	"os"

	"github.com/dshills/tracewright/cmd/tracewright/commands"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd := commands.NewCommand(commands.BuildInfo{Version: version, Commit: commit, Date: date})
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
