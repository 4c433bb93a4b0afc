package dac

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"skhoot/internal/classifier"
)

func TestAnalyzeCategorizeCleanup(t *testing.T) {
	// Work relative to the temp dir: its absolute path (e.g. under /tmp)
	// would itself match the classifier's temporary-file patterns.
	t.Chdir(t.TempDir())
	root := "."

	cacheDir := filepath.Join(root, ".cache")
	mustMkdir(t, cacheDir)
	mustWrite(t, filepath.Join(cacheDir, "blob.bin"), 5000)

	downloadsDir := filepath.Join(root, "Downloads")
	mustMkdir(t, downloadsDir)
	mustWrite(t, filepath.Join(downloadsDir, "movie.mp4"), 8000)

	docsDir := filepath.Join(root, "Documents")
	mustMkdir(t, docsDir)
	mustWrite(t, filepath.Join(docsDir, "notes.txt"), 100)

	core := New()
	analyses, err := core.Analyze(context.Background(), Config{Paths: []string{root}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(analyses) != 1 {
		t.Fatalf("expected 1 root analysis, got %d", len(analyses))
	}

	cats := core.Categorize(analyses)
	if _, ok := cats["caches"]; !ok {
		t.Errorf("expected a caches category, got %v", keys(cats))
	}
	if _, ok := cats["downloads"]; !ok {
		t.Errorf("expected a downloads category, got %v", keys(cats))
	}

	candidates := core.CleanupCandidates(analyses, 1000)
	foundCache, foundDownloads := false, false
	for _, c := range candidates {
		if c.Path == cacheDir {
			foundCache = true
			if c.Category != classifier.CategoryCache || c.Safety != classifier.SafetySafe {
				t.Errorf("cache candidate: got (%v, %v)", c.Category, c.Safety)
			}
		}
		if c.Path == downloadsDir {
			foundDownloads = true
			if c.Category != classifier.CategoryOldDownloads || c.Safety != classifier.SafetyMaybe {
				t.Errorf("downloads candidate: got (%v, %v)", c.Category, c.Safety)
			}
		}
	}
	if !foundCache {
		t.Error("expected cache dir in cleanup candidates")
	}
	if !foundDownloads {
		t.Error("expected downloads dir in cleanup candidates")
	}

	// Sorted descending by size: downloads (8000) must precede cache (5000).
	var downloadsIdx, cacheIdx = -1, -1
	for i, c := range candidates {
		if c.Path == downloadsDir {
			downloadsIdx = i
		}
		if c.Path == cacheDir {
			cacheIdx = i
		}
	}
	if downloadsIdx == -1 || cacheIdx == -1 || downloadsIdx > cacheIdx {
		t.Errorf("expected descending size order, got %+v", candidates)
	}
}

func TestCleanupCandidatesPrunesUndersizedSubtree(t *testing.T) {
	root := t.TempDir()
	cacheDir := filepath.Join(root, ".cache")
	mustMkdir(t, cacheDir)
	mustWrite(t, filepath.Join(cacheDir, "small.bin"), 10)

	core := New()
	analyses, err := core.Analyze(context.Background(), Config{Paths: []string{root}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	candidates := core.CleanupCandidates(analyses, 1_000_000)
	if len(candidates) != 0 {
		t.Errorf("expected no candidates below min_size, got %+v", candidates)
	}
}

func keys(m map[string]*CategorySummary) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
}

func mustWrite(t *testing.T, path string, size int) {
	t.Helper()
	data := make([]byte, size)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}
