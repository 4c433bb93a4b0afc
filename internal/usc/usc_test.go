package usc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skhoot/internal/clitools"
	"skhoot/internal/fuzzyfile"
)

func toFuzzyMatches(stubs []matchStub) []fuzzyfile.Match {
	out := make([]fuzzyfile.Match, len(stubs))
	for i, s := range stubs {
		out[i] = fuzzyfile.Match{RelativePath: s.RelativePath, Score: s.Score}
	}
	return out
}

func writeTree(t *testing.T, root string, files []string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("package main\n"), 0o644))
	}
}

func TestDetermineModeShortQueryGoesNative(t *testing.T) {
	assert.Equal(t, ModeNativeEngine, DetermineMode("ab", ModeAuto, nil))
}

func TestDetermineModeGlobCharsGoCliOnly(t *testing.T) {
	assert.Equal(t, ModeCliOnly, DetermineMode("foo*bar", ModeAuto, nil))
	assert.Equal(t, ModeCliOnly, DetermineMode(`"exact phrase"`, ModeAuto, nil))
}

func TestDetermineModeIntentOverrides(t *testing.T) {
	assert.Equal(t, ModeCliOnly, DetermineMode("longenough", ModeAuto, &Context{Intent: IntentFindContent}))
	assert.Equal(t, ModeNativeEngine, DetermineMode("longenough", ModeAuto, &Context{Intent: IntentFindFile}))
}

func TestDetermineModeDefaultsToHybrid(t *testing.T) {
	assert.Equal(t, ModeHybrid, DetermineMode("longenough", ModeAuto, nil))
}

func TestDetermineModeExplicitModePassesThrough(t *testing.T) {
	assert.Equal(t, ModeCliOnly, DetermineMode("anything", ModeCliOnly, nil))
}

func TestSearchEmptyQueryReturnsEmptyResults(t *testing.T) {
	o := New(nil)
	res := o.Search(context.Background(), "  ", t.TempDir(), nil, ModeAuto)
	assert.Empty(t, res.MergedResults)
	assert.Empty(t, res.Suggestions)
}

func TestSearchNativeEngineFindsFiles(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, []string{"internal/usc/orchestrator.go"})

	o := New(nil)
	res := o.Search(context.Background(), "orchestratorgo", dir, nil, ModeNativeEngine)
	require.NotEmpty(t, res.MergedResults)
	assert.Equal(t, "fuzzy", res.MergedResults[0].SourceLabel)
}

func TestMergeResultsDedupesFirstOccurrenceWinsAndSortsDescending(t *testing.T) {
	cli := []clitools.Hit{{Path: "a.go", Line: 1, Content: "match"}}
	fuzzy := []matchStub{
		{RelativePath: "a.go", Score: 900},
		{RelativePath: "b.go", Score: 500},
	}
	merged := mergeResults(toFuzzyMatches(fuzzy), cli, "")

	require.Len(t, merged, 2)
	assert.Equal(t, "a.go", merged[0].Path)
	assert.Equal(t, "cli", merged[0].SourceLabel)
	assert.Equal(t, 1.0, merged[0].Relevance)
	assert.Equal(t, "b.go", merged[1].Path)
	assert.InDelta(t, 0.45, merged[1].Relevance, 1e-9)
}

func TestShouldSuggestFileSearchDetectsIndicatorsAndExtensions(t *testing.T) {
	assert.True(t, ShouldSuggestFileSearch("where is the config file?"))
	assert.True(t, ShouldSuggestFileSearch("open main.go"))
	assert.True(t, ShouldSuggestFileSearch("look in src/handlers"))
	assert.False(t, ShouldSuggestFileSearch("what does this function do"))
}

func TestGenerateSuggestionsEmptyResultsSuggestsContentSearchAndExpansion(t *testing.T) {
	suggestions := generateSuggestions("longquery", nil, nil)
	require.GreaterOrEqual(t, len(suggestions), 2)
	assert.Equal(t, "no results", suggestions[0].Reason)
}

func TestCancelSearchIsIdempotent(t *testing.T) {
	o := New(nil)
	h := &Handle{ID: "x", Status: StatusRunning, cancel: nil}
	o.register(h)
	o.CancelSearch("x")
	assert.Equal(t, StatusCancelled, o.active["x"].Status)
	o.CancelSearch("x") // no panic, no-op
	assert.Equal(t, StatusCancelled, o.active["x"].Status)
	o.CancelSearch("missing")
}

func TestHistoryBoundedAtMax(t *testing.T) {
	o := New(nil)
	for i := 0; i < maxHistory+10; i++ {
		o.addHistory(historyEntry{ID: "h"})
	}
	assert.Len(t, o.History(), maxHistory)
}

// matchStub keeps this test file decoupled from fuzzyfile's internal
// heap machinery while still exercising the real merge function against
// fuzzyfile.Match values.
type matchStub struct {
	RelativePath string
	Score        int
}
