// Command skhoot is the CLI front-end over the four cores: Unified
// Search, Content Extraction, Terminal Sessions, and Disk Analysis.
// Grounded on the teacher's cmd/root.go root-command-plus-global-flags
// shape; each subcommand builds the orchestrator it needs in its own
// RunE.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "skhoot",
	Short: "Search, browse, terminal, and disk tools for an AI assistant backend",
	Long: `skhoot exposes the Unified Search Core, Content Extraction Core,
Terminal Session Core, and Disk Analyzer Core as standalone CLI
operations for local use and scripting.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(); it only needs to happen
// once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging (SKHOOT_LOG_LEVEL=debug)")
}

func main() {
	if verboseFlagSet() {
		os.Setenv("SKHOOT_LOG_LEVEL", "debug")
	}
	Execute()
}

// verboseFlagSet does a cheap pre-parse scan for -v/--verbose so the log
// level env var is set before cobra parses flags and any command
// constructs a logger.
func verboseFlagSet() bool {
	for _, a := range os.Args[1:] {
		if a == "-v" || a == "--verbose" {
			return true
		}
	}
	return false
}
