package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	gatherNResults int
	gatherTop      int
	gatherJSON     bool
)

var gatherCmd = &cobra.Command{
	Use:   "gather [query]",
	Short: "Search the web and gather page extracts for the top results",
	Args:  cobra.ExactArgs(1),
	RunE:  runGatherCommand,
}

func init() {
	gatherCmd.Flags().IntVar(&gatherNResults, "n", 10, "number of search results to return")
	gatherCmd.Flags().IntVar(&gatherTop, "top", 3, "number of top URLs to fetch and extract (capped at 5)")
	gatherCmd.Flags().BoolVar(&gatherJSON, "json", false, "print the response as JSON")
	rootCmd.AddCommand(gatherCmd)
}

func runGatherCommand(cmd *cobra.Command, args []string) error {
	orch := newCECOrchestrator()

	resp, err := orch.SearchAndGather(context.Background(), args[0], gatherNResults, gatherTop)
	if err != nil {
		return err
	}

	if gatherJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Printf("query=%q search_results=%d gathered_pages=%d search_ms=%d gather_ms=%d\n",
		resp.Query, len(resp.SearchResults), len(resp.GatheredPages), resp.TotalSearchTimeMs, resp.TotalGatherTimeMs)
	for _, r := range resp.SearchResults {
		fmt.Printf("  %.2f  %s\n", r.RelevanceScore, r.URL)
	}
	for _, p := range resp.GatheredPages {
		fmt.Printf("--- %s ---\n%s\n\n", p.FinalURL, p.Extraction.Text)
	}
	return nil
}
