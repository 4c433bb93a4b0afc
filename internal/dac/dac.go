// Package dac implements the Disk Analyzer Core Orchestrator: it wires
// the Directory Scanner (internal/diskscan) and the Classifier
// (internal/classifier) into the three public operations analyze,
// categorize, and cleanup_candidates. Grounded on
// _examples/original_source/backend/src/disk_analyzer/categorizer.rs's
// categorize_files/identify_cleanup_candidates tree walks, ported from
// recursion over &PathAnalysis to the same shape over diskscan.PathAnalysis.
package dac

import (
	"context"
	"sort"

	"skhoot/internal/classifier"
	"skhoot/internal/diskscan"
)

// Config is the caller-facing analysis request: spec §6 DAC.analyze.
type Config struct {
	Paths            []string
	MaxDepth         *int
	MinSizeThreshold int64
	ExcludePatterns  []string
	FollowSymlinks   bool
}

// CategorySummary aggregates size/count/membership for one plain
// category bucket (spec §6 DAC.categorize).
type CategorySummary struct {
	Category  string
	TotalSize int64
	FileCount int
	Items     []string
}

// CleanupCandidate is spec §3's Cleanup Candidate.
type CleanupCandidate struct {
	Path             string
	Size             int64
	Category         classifier.Category
	Safety           classifier.Safety
	Rationale        string
	EstimatedSavings int64
}

// Core wires the scanner and classifier together.
type Core struct {
	scanner    *diskscan.Scanner
	classifier *classifier.Classifier
}

// New returns a ready Core with default scanner/classifier instances.
func New() *Core {
	return &Core{scanner: diskscan.New(), classifier: classifier.New()}
}

// Analyze scans every configured root and returns one PathAnalysis tree
// per root, per spec §4.13.
func (c *Core) Analyze(ctx context.Context, cfg Config) ([]diskscan.PathAnalysis, error) {
	scanCfg := diskscan.Config{
		MaxDepth:         cfg.MaxDepth,
		MinSizeThreshold: cfg.MinSizeThreshold,
		ExcludePatterns:  cfg.ExcludePatterns,
		FollowSymlinks:   cfg.FollowSymlinks,
	}
	return c.scanner.ScanPaths(ctx, cfg.Paths, scanCfg)
}

// Categorize buckets every node of every analysis tree by its plain
// category (spec §4.14's determine_category, which never consults the
// system pattern list).
func (c *Core) Categorize(analyses []diskscan.PathAnalysis) map[string]*CategorySummary {
	out := make(map[string]*CategorySummary)

	var walk func(a diskscan.PathAnalysis)
	walk = func(a diskscan.PathAnalysis) {
		category := c.classifier.DetermineCategory(a.Path)
		summary, ok := out[category]
		if !ok {
			summary = &CategorySummary{Category: category}
			out[category] = summary
		}
		summary.TotalSize += a.TotalSize
		summary.FileCount += a.FileCount
		summary.Items = append(summary.Items, a.Path)

		for _, sub := range a.Subdirectories {
			walk(sub)
		}
	}

	for _, a := range analyses {
		walk(a)
	}
	return out
}

// CleanupCandidates walks every analysis tree emitting a candidate for
// any node whose total_size >= minSize and whose (category, safety)
// classification is not the default (Other, Maybe) — spec §4.14. A node
// under minSize prunes its whole subtree, matching the original's
// early-return-before-recursing behavior.
func (c *Core) CleanupCandidates(analyses []diskscan.PathAnalysis, minSize int64) []CleanupCandidate {
	var candidates []CleanupCandidate

	var walk func(a diskscan.PathAnalysis)
	walk = func(a diskscan.PathAnalysis) {
		if a.TotalSize < minSize {
			return
		}

		category, safety, rationale := c.classifier.ClassifyForCleanup(a.Path)
		if !(category == classifier.CategoryOther && safety == classifier.SafetyMaybe) {
			candidates = append(candidates, CleanupCandidate{
				Path:             a.Path,
				Size:             a.TotalSize,
				Category:         category,
				Safety:           safety,
				Rationale:        rationale,
				EstimatedSavings: a.TotalSize,
			})
		}

		for _, sub := range a.Subdirectories {
			walk(sub)
		}
	}

	for _, a := range analyses {
		walk(a)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Size > candidates[j].Size
	})
	return candidates
}
