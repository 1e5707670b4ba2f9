// ABOUTME: Main entry point for the vidchat CLI
// ABOUTME: Sets version info and executes the Cobra root command
package main

import (
	"fmt"
	"os"

	"github.com/harper/vidchat/cmd/vidchat/commands"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
