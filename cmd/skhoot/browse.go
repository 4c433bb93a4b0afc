package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skhoot/internal/cec"
	"skhoot/internal/cec/searchprovider"
	"skhoot/internal/extractcache"
	"skhoot/internal/fetch"
	"skhoot/internal/render"
	"skhoot/internal/safety"
)

var (
	browseRenderEnabled bool
	browseRenderHostURL string
	browseJSON          bool
)

var browseCmd = &cobra.Command{
	Use:   "browse [url]",
	Short: "Fetch and extract the main content of a URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runBrowseCommand,
}

func init() {
	browseCmd.Flags().BoolVar(&browseRenderEnabled, "render", false, "fall back to browser rendering when HTTP extraction confidence is low")
	browseCmd.Flags().StringVar(&browseRenderHostURL, "render-host", "ws://127.0.0.1:8901/render", "render host websocket address")
	browseCmd.Flags().BoolVar(&browseJSON, "json", false, "print the extract as JSON")
	rootCmd.AddCommand(browseCmd)
}

func newCECOrchestrator() *cec.Orchestrator {
	validator := safety.New()
	fetcher := fetch.New(validator)
	cache := extractcache.New()
	bridge := render.New(browseRenderHostURL)
	providers := []searchprovider.Provider{
		searchprovider.NewHTTPProvider("https://duckduckgo.com/html/?q=%s"),
	}
	return cec.New(validator, fetcher, cache, bridge, providers)
}

func runBrowseCommand(cmd *cobra.Command, args []string) error {
	orch := newCECOrchestrator()

	extract, err := orch.Browse(context.Background(), args[0], browseRenderEnabled)
	if err != nil {
		return err
	}

	if browseJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(extract)
	}

	fmt.Printf("title: %s\n", extract.Metadata.Title)
	fmt.Printf("method: %s  confidence: %.2f  words: %d\n", extract.Extraction.Method, extract.Extraction.Confidence, extract.Extraction.WordCount)
	fmt.Println()
	fmt.Println(extract.Extraction.Text)
	return nil
}
