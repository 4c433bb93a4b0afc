package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skhoot/internal/clitools"
	"skhoot/internal/usc"
)

var (
	searchRoot      string
	searchMode      string
	searchIntent    string
	searchCurFile   string
	searchExtFilter string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Unified fuzzy+literal file search over a working tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchCommand,
}

func init() {
	searchCmd.Flags().StringVar(&searchRoot, "root", ".", "root directory to search")
	searchCmd.Flags().StringVar(&searchMode, "mode", "Auto", "search mode: Auto, NativeEngine, CliOnly, Hybrid")
	searchCmd.Flags().StringVar(&searchIntent, "intent", "", "caller intent hint: FindFile, FindContent")
	searchCmd.Flags().StringVar(&searchCurFile, "current-file", "", "file the caller is currently viewing, for suggestions")
	searchCmd.Flags().StringVar(&searchExtFilter, "ext", "", "drop fuzzy results whose file type doesn't match (case-insensitive)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearchCommand(cmd *cobra.Command, args []string) error {
	query := args[0]

	orch := usc.New(clitools.NewEngine())

	var sctx *usc.Context
	if searchIntent != "" || searchCurFile != "" || searchExtFilter != "" {
		sctx = &usc.Context{
			Intent:      usc.Intent(searchIntent),
			CurrentFile: searchCurFile,
			ExtFilter:   searchExtFilter,
		}
	}

	results := orch.Search(context.Background(), query, searchRoot, sctx, usc.Mode(searchMode))

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Printf("mode=%s results=%d time_ms=%d\n", results.Mode, len(results.MergedResults), results.TotalExecutionTimeMs)
	for _, r := range results.MergedResults {
		fmt.Printf("%6.3f  %-10s  %s\n", r.Relevance, r.SourceLabel, r.Path)
	}
	for _, s := range results.Suggestions {
		fmt.Printf("suggestion: %s (%s, confidence=%.2f)\n", s.Suggestion, s.Reason, s.Confidence)
	}
	return nil
}
