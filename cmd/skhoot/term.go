package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skhoot/internal/sessions"
)

var termManager *sessions.Manager

func getTermManager() *sessions.Manager {
	if termManager == nil {
		termManager = sessions.New()
	}
	return termManager
}

var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Create and drive pseudo-terminal sessions",
}

var termCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new terminal session and print its id",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := getTermManager().Create(sessions.Config{})
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var termWriteCmd = &cobra.Command{
	Use:   "write [session-id] [text]",
	Short: "Write text (followed by a newline) to a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getTermManager().Write(args[0], args[1])
	},
}

var termReadCmd = &cobra.Command{
	Use:   "read [session-id]",
	Short: "Read buffered output from a session since the last read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := getTermManager().Read(args[0])
		if err != nil {
			return err
		}
		for _, l := range lines {
			fmt.Printf("[%s] %s\n", l.Stream, l.Content)
		}
		return nil
	},
}

var termListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active sessions (hibernated sessions are not listed)",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(getTermManager().List())
	},
}

var termCloseCmd = &cobra.Command{
	Use:   "close [session-id]",
	Short: "Terminate a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getTermManager().Close(args[0])
	},
}

var termResizeCmd = &cobra.Command{
	Use:   "resize [session-id] [cols] [rows]",
	Short: "Resize a session's pseudo-terminal",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var cols, rows int
		if _, err := fmt.Sscanf(args[1], "%d", &cols); err != nil {
			return fmt.Errorf("invalid cols %q: %w", args[1], err)
		}
		if _, err := fmt.Sscanf(args[2], "%d", &rows); err != nil {
			return fmt.Errorf("invalid rows %q: %w", args[2], err)
		}
		return getTermManager().Resize(args[0], cols, rows)
	},
}

var termStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print pool capacity statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(getTermManager().Stats())
	},
}

func init() {
	termCmd.AddCommand(termCreateCmd, termWriteCmd, termReadCmd, termListCmd, termCloseCmd, termResizeCmd, termStatsCmd)
	rootCmd.AddCommand(termCmd)
}
