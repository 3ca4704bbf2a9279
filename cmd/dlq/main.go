// Package main implements the dfg-linearity-query CLI (dlq).
// It provides commands for analyzing hardware DFG dumps for linearity,
// exporting annotated subgraphs, and comparing analysis runs.
package main

import (
	"os"

	"github.com/l3aro/dfg-linearity-query/cmd/dlq/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.RootCmd.Version = version
	commands.RootCmd.SetVersionTemplate(`dlq version {{.Version}}
`)

	if err := commands.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
