// Package fuzzyfile implements the Fuzzy File Engine: a parallel
// gitignore-aware directory walk scoring every file against a query,
// retaining the top K matches per worker via a bounded min-heap, merged
// into a single global top-K list. Grounded on the original
// file_search.rs (CHECK_INTERVAL cancellation polling, per-worker
// BestMatchesList idea ported to container/heap).
package fuzzyfile

import (
	"container/heap"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sahilm/fuzzy"
)

// CheckInterval is how often (in walked entries) a worker polls the
// cancellation flag.
const CheckInterval = 1024

// Config controls one fuzzy search.
type Config struct {
	Root           string
	Pattern        string
	MaxResults     int
	Workers        int
	RespectGitignore bool
	IncludeHidden  bool
	FollowSymlinks bool
	IncludeGlobs   []string
	ExcludeGlobs   []string
	WithHighlights bool
}

// DefaultConfig mirrors the original's sane defaults.
func DefaultConfig(root, pattern string) Config {
	return Config{
		Root:             root,
		Pattern:          pattern,
		MaxResults:       50,
		Workers:          4,
		RespectGitignore: true,
	}
}

// Match is one scored file.
type Match struct {
	Score            int
	AbsolutePath     string
	RelativePath     string
	FileName         string
	Size             int64
	FileType         string
	HighlightIndices []int
}

// Handle lets a caller cancel an in-flight search.
type Handle struct {
	cancelled atomic.Bool
}

// Cancel sets the shared cancellation flag; workers observe it at the
// next poll point.
func (h *Handle) Cancel() { h.cancelled.Store(true) }

// Search walks cfg.Root in parallel, scoring every file against
// cfg.Pattern, and returns the merged top-K matches sorted by score
// descending then relative path ascending.
func Search(ctx context.Context, cfg Config, handle *Handle) []Match {
	if handle == nil {
		handle = &Handle{}
	}
	if strings.TrimSpace(cfg.Pattern) == "" {
		return nil
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	paths := make(chan string, 256)
	var wg sync.WaitGroup
	heaps := make([]*matchHeap, workers)
	for i := range heaps {
		heaps[i] = &matchHeap{}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(cfg, paths, heaps[id], handle)
		}(w)
	}

	go func() {
		defer close(paths)
		walk(ctx, cfg, paths, handle)
	}()

	wg.Wait()

	if handle.cancelled.Load() {
		return nil
	}

	merged := mergeHeaps(heaps, cfg.MaxResults)
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].RelativePath < merged[j].RelativePath
	})

	if cfg.WithHighlights {
		for i := range merged {
			merged[i].HighlightIndices = highlightIndices(cfg.Pattern, merged[i].FileName)
		}
	}

	return merged
}

func walk(ctx context.Context, cfg Config, out chan<- string, handle *Handle) {
	ignoreMatcher := loadGitignore(cfg)
	count := 0
	_ = filepath.WalkDir(cfg.Root, func(path string, d os.DirEntry, err error) error {
		count++
		if count%CheckInterval == 0 {
			if handle.cancelled.Load() || ctx.Err() != nil {
				return filepath.SkipAll
			}
		}
		if err != nil {
			return nil // per-entry error tolerance
		}
		if d.IsDir() {
			if !cfg.IncludeHidden && isHidden(d.Name()) && path != cfg.Root {
				return filepath.SkipDir
			}
			if cfg.RespectGitignore && ignoreMatcher(path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !cfg.IncludeHidden && isHidden(d.Name()) {
			return nil
		}
		if !cfg.FollowSymlinks {
			info, infoErr := d.Info()
			if infoErr == nil && info.Mode()&os.ModeSymlink != 0 {
				return nil
			}
		}
		if cfg.RespectGitignore && ignoreMatcher(path, false) {
			return nil
		}
		if !globsMatch(cfg, path) {
			return nil
		}
		select {
		case out <- path:
		case <-ctx.Done():
			return filepath.SkipAll
		}
		return nil
	})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

func globsMatch(cfg Config, path string) bool {
	base := filepath.Base(path)
	if len(cfg.ExcludeGlobs) > 0 {
		for _, g := range cfg.ExcludeGlobs {
			if ok, _ := filepath.Match(g, base); ok {
				return false
			}
		}
	}
	if len(cfg.IncludeGlobs) == 0 {
		return true
	}
	for _, g := range cfg.IncludeGlobs {
		if ok, _ := filepath.Match(g, base); ok {
			return true
		}
	}
	return false
}

func worker(cfg Config, paths <-chan string, h *matchHeap, handle *Handle) {
	count := 0
	for path := range paths {
		count++
		if count%CheckInterval == 0 && handle.cancelled.Load() {
			continue
		}
		rel, err := filepath.Rel(cfg.Root, path)
		if err != nil {
			rel = path
		}
		name := filepath.Base(path)
		score := fuzzyScore(cfg.Pattern, name, rel)
		if score <= 0 {
			continue
		}

		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}

		m := Match{
			Score:        score,
			AbsolutePath: path,
			RelativePath: rel,
			FileName:     name,
			Size:         size,
			FileType:     strings.TrimPrefix(filepath.Ext(name), "."),
		}

		if h.Len() < cfg.MaxResults {
			heap.Push(h, m)
		} else if h.Len() > 0 && score > (*h)[0].Score {
			heap.Pop(h)
			heap.Push(h, m)
		}
	}
}

// fuzzyScore scores name (and falls back to rel) against pattern using
// smart-case subsequence matching.
func fuzzyScore(pattern, name, rel string) int {
	matches := fuzzy.Find(pattern, []string{name})
	if len(matches) > 0 {
		return matches[0].Score
	}
	matches = fuzzy.Find(pattern, []string{rel})
	if len(matches) > 0 {
		return matches[0].Score
	}
	return 0
}

func highlightIndices(pattern, name string) []int {
	matches := fuzzy.Find(pattern, []string{name})
	if len(matches) == 0 {
		return nil
	}
	idx := append([]int(nil), matches[0].MatchedIndexes...)
	sort.Ints(idx)
	out := idx[:0]
	seen := map[int]bool{}
	for _, i := range idx {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out
}

// matchHeap is a size-K min-heap keyed on Score, so popping removes the
// current minimum — the element to evict when a higher-scoring match
// arrives.
type matchHeap []Match

func (h matchHeap) Len() int            { return len(h) }
func (h matchHeap) Less(i, j int) bool  { return h[i].Score < h[j].Score }
func (h matchHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *matchHeap) Push(x interface{}) { *h = append(*h, x.(Match)) }
func (h *matchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func mergeHeaps(heaps []*matchHeap, k int) []Match {
	global := &matchHeap{}
	for _, h := range heaps {
		for _, m := range *h {
			if global.Len() < k {
				heap.Push(global, m)
			} else if global.Len() > 0 && m.Score > (*global)[0].Score {
				heap.Pop(global)
				heap.Push(global, m)
			}
		}
	}
	return []Match(*global)
}

func loadGitignore(cfg Config) func(path string, isDir bool) bool {
	patterns := readGitignorePatterns(cfg.Root)
	return func(path string, isDir bool) bool {
		rel, err := filepath.Rel(cfg.Root, path)
		if err != nil {
			return false
		}
		rel = filepath.ToSlash(rel)
		for _, p := range patterns {
			if matchesGitignorePattern(p, rel, isDir) {
				return true
			}
		}
		return false
	}
}

func readGitignorePatterns(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// matchesGitignorePattern supports the common subset of gitignore
// syntax: directory anchors (trailing "/"), "**" wildcards, and simple
// glob segments. Not a full implementation of the spec.
func matchesGitignorePattern(pattern, relPath string, isDir bool) bool {
	dirOnly := strings.HasSuffix(pattern, "/")
	pattern = strings.TrimSuffix(pattern, "/")
	if dirOnly && !isDir {
		return false
	}
	pattern = strings.TrimPrefix(pattern, "/")
	if strings.Contains(pattern, "**") {
		pattern = strings.ReplaceAll(pattern, "**", "*")
	}
	if ok, _ := filepath.Match(pattern, relPath); ok {
		return true
	}
	base := filepath.Base(relPath)
	if ok, _ := filepath.Match(pattern, base); ok {
		return true
	}
	return strings.HasPrefix(relPath, pattern+"/")
}
