package fuzzyfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files []string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
}

func TestSearchEmptyQueryReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, []string{"main.go"})
	cfg := DefaultConfig(dir, "")
	matches := Search(context.Background(), cfg, nil)
	assert.Empty(t, matches)
}

func TestSearchFindsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, []string{"internal/usc/usc.go", "internal/usc/usc_test.go", "README.md"})

	cfg := DefaultConfig(dir, "uscgo")
	matches := Search(context.Background(), cfg, nil)
	require.NotEmpty(t, matches)
	for _, m := range matches {
		assert.NotEmpty(t, m.RelativePath)
	}
}

func TestSearchCancellationReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, []string{"a.go", "b.go"})
	h := &Handle{}
	h.Cancel()

	cfg := DefaultConfig(dir, "a")
	matches := Search(context.Background(), cfg, h)
	assert.Empty(t, matches)
}

func TestSearchSortedByScoreDescThenPathAsc(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, []string{"zzz_match.go", "aaa_match.go"})
	cfg := DefaultConfig(dir, "match")
	matches := Search(context.Background(), cfg, nil)
	for i := 1; i < len(matches); i++ {
		if matches[i-1].Score == matches[i].Score {
			assert.LessOrEqual(t, matches[i-1].RelativePath, matches[i].RelativePath)
		} else {
			assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
		}
	}
}
