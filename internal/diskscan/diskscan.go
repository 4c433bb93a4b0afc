// Package diskscan implements the Directory Scanner: a recursive,
// depth-bounded walk of one or more roots collecting (size, mtime) per
// file and per-subtree totals. Grounded verbatim on
// _examples/original_source/backend/src/disk_analyzer/scanner.rs
// (scan_path/scan_path_blocking control flow, depth-limit and
// exclude-pattern semantics ported 1:1; tokio::task::spawn_blocking
// becomes a plain goroutine handoff here, the nearest Go idiom for
// "offload blocking I/O off the scheduling goroutine").
package diskscan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"skhoot/internal/core/logging"
)

// ErrDepthLimitExceeded is returned when a root itself is already at or
// past the configured depth limit.
var ErrDepthLimitExceeded = errors.New("diskscan: depth limit exceeded")

// Config bounds a scan.
type Config struct {
	MaxDepth         *int // nil = unbounded
	MinSizeThreshold int64
	ExcludePatterns  []string
	FollowSymlinks   bool
}

// FileMetadata is the apparent size and modification time of one file.
type FileMetadata struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// PathAnalysis is one node of the scanned tree: spec §3 Path Analysis.
type PathAnalysis struct {
	Path           string
	Depth          int
	Files          []FileMetadata
	Subdirectories []PathAnalysis
	TotalSize      int64
	FileCount      int
	DirectoryCount int
}

func (a *PathAnalysis) recalcTotals() {
	var total int64
	fileCount := len(a.Files)
	dirCount := len(a.Subdirectories)
	for _, f := range a.Files {
		total += f.Size
	}
	for _, sub := range a.Subdirectories {
		total += sub.TotalSize
		fileCount += sub.FileCount
		dirCount += sub.DirectoryCount
	}
	a.TotalSize = total
	a.FileCount = fileCount
	a.DirectoryCount = dirCount
}

// Scanner walks directory trees.
type Scanner struct {
	logger zerolog.Logger
}

// New returns a ready Scanner.
func New() *Scanner {
	return &Scanner{logger: logging.New("diskscan")}
}

// ScanPaths scans every root independently; a root that fails
// recoverably (not found, access denied, already past the depth limit)
// is logged and skipped rather than aborting the whole batch.
func (s *Scanner) ScanPaths(ctx context.Context, roots []string, cfg Config) ([]PathAnalysis, error) {
	results := make([]PathAnalysis, 0, len(roots))
	for _, root := range roots {
		analysis, err := s.ScanPath(ctx, root, cfg, 0)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", root).Msg("skipping path")
			continue
		}
		results = append(results, analysis)
	}
	return results, nil
}

// ScanPath scans a single root at the given starting depth, offloading
// the blocking filesystem walk onto its own goroutine so the caller's
// goroutine stays free to observe ctx cancellation.
func (s *Scanner) ScanPath(ctx context.Context, path string, cfg Config, depth int) (PathAnalysis, error) {
	if cfg.MaxDepth != nil && depth >= *cfg.MaxDepth {
		return PathAnalysis{}, ErrDepthLimitExceeded
	}
	if _, err := os.Stat(path); err != nil {
		return PathAnalysis{}, err
	}

	type result struct {
		analysis PathAnalysis
		err      error
	}
	done := make(chan result, 1)
	go func() {
		a, err := s.scanBlocking(path, cfg, depth)
		done <- result{a, err}
	}()

	select {
	case <-ctx.Done():
		return PathAnalysis{}, ctx.Err()
	case r := <-done:
		return r.analysis, r.err
	}
}

func (s *Scanner) scanBlocking(path string, cfg Config, depth int) (PathAnalysis, error) {
	analysis := PathAnalysis{Path: path, Depth: depth}

	info, err := os.Lstat(path)
	if err != nil {
		return analysis, err
	}

	if !info.IsDir() {
		fm, err := extractFileMetadata(path)
		if err != nil {
			return analysis, err
		}
		if fm.Size >= cfg.MinSizeThreshold {
			analysis.Files = append(analysis.Files, fm)
		}
		analysis.recalcTotals()
		return analysis, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsPermission(err) {
			return analysis, err
		}
		return analysis, err
	}

	for _, entry := range entries {
		entryPath := filepath.Join(path, entry.Name())

		if shouldExclude(entryPath, cfg.ExcludePatterns) {
			continue
		}

		entryInfo, err := entry.Info()
		if err != nil {
			s.logger.Warn().Err(err).Str("path", entryPath).Msg("failed to read entry metadata")
			continue
		}

		if entryInfo.Mode()&os.ModeSymlink != 0 && !cfg.FollowSymlinks {
			continue
		}

		if entryInfo.IsDir() {
			if cfg.MaxDepth != nil && depth+1 >= *cfg.MaxDepth {
				continue
			}
			subdir, err := s.scanBlocking(entryPath, cfg, depth+1)
			if err != nil {
				s.logger.Warn().Err(err).Str("path", entryPath).Msg("failed to scan subdirectory")
				continue
			}
			analysis.Subdirectories = append(analysis.Subdirectories, subdir)
		} else {
			fm, err := extractFileMetadata(entryPath)
			if err != nil {
				s.logger.Warn().Err(err).Str("path", entryPath).Msg("failed to extract file metadata")
				continue
			}
			if fm.Size >= cfg.MinSizeThreshold {
				analysis.Files = append(analysis.Files, fm)
			}
		}
	}

	analysis.recalcTotals()
	return analysis, nil
}

func extractFileMetadata(path string) (FileMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileMetadata{}, err
	}
	return FileMetadata{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

func shouldExclude(path string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}
