package diskscan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestScanEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	s := New()

	analysis, err := s.ScanPath(context.Background(), dir, Config{}, 0)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}
	if len(analysis.Files) != 0 || len(analysis.Subdirectories) != 0 || analysis.TotalSize != 0 {
		t.Errorf("expected empty analysis, got %+v", analysis)
	}
}

func TestScanWithFiles(t *testing.T) {
	dir := t.TempDir()
	must(t, os.WriteFile(filepath.Join(dir, "file1.txt"), []byte("Hello"), 0o644))
	must(t, os.WriteFile(filepath.Join(dir, "file2.txt"), []byte("World"), 0o644))

	s := New()
	analysis, err := s.ScanPath(context.Background(), dir, Config{}, 0)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}
	if len(analysis.Files) != 2 {
		t.Errorf("expected 2 files, got %d", len(analysis.Files))
	}
	if analysis.TotalSize <= 0 {
		t.Errorf("expected positive total size")
	}
}

func TestDepthLimiting(t *testing.T) {
	dir := t.TempDir()
	level3 := filepath.Join(dir, "level1", "level2", "level3")
	must(t, os.MkdirAll(level3, 0o755))
	must(t, os.WriteFile(filepath.Join(level3, "deep.txt"), []byte("deep"), 0o644))

	maxDepth := 2
	s := New()
	analysis, err := s.ScanPath(context.Background(), dir, Config{MaxDepth: &maxDepth}, 0)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}
	var walk func(a PathAnalysis)
	walk = func(a PathAnalysis) {
		if a.Depth >= maxDepth {
			t.Errorf("node at depth %d admitted but max_depth=%d", a.Depth, maxDepth)
		}
		for _, sub := range a.Subdirectories {
			walk(sub)
		}
	}
	walk(analysis)
}

func TestApparentSizeCalculation(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 1000)
	for i := range content {
		content[i] = 'A'
	}
	must(t, os.WriteFile(filepath.Join(dir, "test.txt"), content, 0o644))

	s := New()
	analysis, err := s.ScanPath(context.Background(), dir, Config{}, 0)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}
	if len(analysis.Files) != 1 || analysis.Files[0].Size != 1000 {
		t.Errorf("expected a single 1000-byte file, got %+v", analysis.Files)
	}
	if analysis.TotalSize != 1000 {
		t.Errorf("TotalSize = %d, want 1000", analysis.TotalSize)
	}
}

func TestExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	must(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("keep"), 0o644))
	must(t, os.WriteFile(filepath.Join(dir, "exclude.log"), []byte("exclude"), 0o644))
	cacheDir := filepath.Join(dir, ".cache")
	must(t, os.MkdirAll(cacheDir, 0o755))
	must(t, os.WriteFile(filepath.Join(cacheDir, "cached.txt"), []byte("cached"), 0o644))

	s := New()
	cfg := Config{ExcludePatterns: []string{".cache", ".log"}}
	analysis, err := s.ScanPath(context.Background(), dir, cfg, 0)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}
	if len(analysis.Files) != 1 || analysis.Files[0].Path != filepath.Join(dir, "keep.txt") {
		t.Errorf("expected only keep.txt, got %+v", analysis.Files)
	}
}

func TestTotalSizeInvariant(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	must(t, os.MkdirAll(sub, 0o755))
	must(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("12345"), 0o644))
	must(t, os.WriteFile(filepath.Join(sub, "b.txt"), []byte("1234567890"), 0o644))

	s := New()
	analysis, err := s.ScanPath(context.Background(), dir, Config{}, 0)
	if err != nil {
		t.Fatalf("ScanPath: %v", err)
	}

	var expect func(a PathAnalysis) int64
	expect = func(a PathAnalysis) int64 {
		var total int64
		for _, f := range a.Files {
			total += f.Size
		}
		for _, d := range a.Subdirectories {
			total += expect(d)
		}
		if total != a.TotalSize {
			t.Errorf("node %q: total_size=%d, computed=%d", a.Path, a.TotalSize, total)
		}
		return total
	}
	expect(analysis)
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
