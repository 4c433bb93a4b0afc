package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skhoot/internal/dac"
)

var (
	diskMaxDepth  int
	diskMinSize   int64
	diskExcludes  []string
	diskFollowSym bool
	diskJSON      bool
)

var diskCmd = &cobra.Command{
	Use:   "disk [paths...]",
	Short: "Scan directories, categorize content, and surface cleanup candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDiskCommand,
}

func init() {
	diskCmd.Flags().IntVar(&diskMaxDepth, "max-depth", 0, "maximum recursion depth, 0 = unbounded")
	diskCmd.Flags().Int64Var(&diskMinSize, "min-size", 0, "minimum file size in bytes to include")
	diskCmd.Flags().StringSliceVar(&diskExcludes, "exclude", nil, "substring patterns to exclude")
	diskCmd.Flags().BoolVar(&diskFollowSym, "follow-symlinks", false, "follow symlinks while scanning")
	diskCmd.Flags().BoolVar(&diskJSON, "json", false, "print analyses as JSON")
	rootCmd.AddCommand(diskCmd)
}

func runDiskCommand(cmd *cobra.Command, args []string) error {
	core := dac.New()

	cfg := dac.Config{
		Paths:            args,
		MinSizeThreshold: diskMinSize,
		ExcludePatterns:  diskExcludes,
		FollowSymlinks:   diskFollowSym,
	}
	if diskMaxDepth > 0 {
		cfg.MaxDepth = &diskMaxDepth
	}

	analyses, err := core.Analyze(context.Background(), cfg)
	if err != nil {
		return err
	}

	if diskJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analyses)
	}

	categories := core.Categorize(analyses)
	fmt.Println("categories:")
	for name, summary := range categories {
		fmt.Printf("  %-16s total=%d files=%d\n", name, summary.TotalSize, summary.FileCount)
	}

	candidates := core.CleanupCandidates(analyses, diskMinSize)
	fmt.Println("cleanup candidates:")
	for _, c := range candidates {
		fmt.Printf("  %10d  %-8s  %-6s  %s  (%s)\n", c.Size, c.Category, c.Safety, c.Path, c.Rationale)
	}
	return nil
}
