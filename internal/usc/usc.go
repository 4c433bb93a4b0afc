// Package usc implements the Unified Search Core Orchestrator: mode
// selection, concurrent hybrid execution, relevance-normalized
// merge/dedup/sort, suggestion generation, bounded history, and a
// cancellable active-search registry. Grounded on the original
// search_manager.rs (normalization constants, suggestion templates) and
// on the teacher's cmd/search.go merge/dedup/sort shape.
package usc

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"skhoot/internal/clitools"
	"skhoot/internal/core/ids"
	"skhoot/internal/fuzzyfile"
)

// Mode selects which engine(s) run a search.
type Mode string

const (
	ModeNativeEngine Mode = "NativeEngine"
	ModeCliOnly      Mode = "CliOnly"
	ModeHybrid       Mode = "Hybrid"
	ModeAuto         Mode = "Auto"
)

// Intent hints the caller's goal, used by Auto mode selection.
type Intent string

const (
	IntentFindFile    Intent = "FindFile"
	IntentFindContent Intent = "FindContent"
)

// Context carries optional caller hints.
type Context struct {
	Intent      Intent
	CurrentFile string
	ExtFilter   string // if set, fuzzy results of a different file type are dropped after merge
}

// MergedResult is USC's unified representation of one hit.
type MergedResult struct {
	Path        string
	Relevance   float64
	SourceLabel string
	FileType    string
	Size        int64
	Snippet     string
	LineNumber  int
}

// Suggestion is a ranked follow-up hint.
type Suggestion struct {
	Suggestion string
	Reason     string
	Confidence float64
}

// Status is a search handle's lifecycle state.
type Status string

const (
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

// Handle is the registration record for an in-flight search.
type Handle struct {
	ID        string
	Query     string
	Mode      Mode
	StartedAt time.Time
	Status    Status
	cancel    *fuzzyfile.Handle
}

// Results is the response shape of USC.search.
type Results struct {
	SearchID             string
	Query                string
	Mode                 Mode
	FileResults          []fuzzyfile.Match
	CliResults           []clitools.Hit
	MergedResults        []MergedResult
	TotalExecutionTimeMs int64
	Suggestions          []Suggestion
}

type historyEntry struct {
	ID         string
	Query      string
	Mode       Mode
	NumResults int
	Duration   time.Duration
	Timestamp  time.Time
}

const maxHistory = 1000

// Orchestrator owns the active-search registry and bounded history.
type Orchestrator struct {
	Fuzzy   *fuzzyfile.Config // base config template (Root overridden per-call)
	CliTool *clitools.Engine

	mu      sync.Mutex
	active  map[string]*Handle
	history []historyEntry

	SuggestionsEnabled bool
}

// New builds an Orchestrator; a fresh instance owns its own registry and
// history, per the "no process-wide singletons" design note.
func New(cli *clitools.Engine) *Orchestrator {
	return &Orchestrator{
		CliTool:            cli,
		active:             make(map[string]*Handle),
		SuggestionsEnabled: true,
	}
}

// DetermineMode implements the Auto heuristic table.
func DetermineMode(query string, mode Mode, ctx *Context) Mode {
	if mode != ModeAuto {
		return mode
	}
	if len(query) < 3 {
		return ModeNativeEngine
	}
	if strings.ContainsAny(query, `"*?`) {
		return ModeCliOnly
	}
	if ctx != nil {
		switch ctx.Intent {
		case IntentFindContent:
			return ModeCliOnly
		case IntentFindFile:
			return ModeNativeEngine
		}
	}
	return ModeHybrid
}

// Search runs a unified search per the mode-selection and merge rules.
func (o *Orchestrator) Search(ctx context.Context, query, root string, sctx *Context, requestedMode Mode) Results {
	start := time.Now()

	if strings.TrimSpace(query) == "" {
		return Results{SearchID: ids.New(), Query: query, Mode: requestedMode, MergedResults: []MergedResult{}, Suggestions: []Suggestion{}}
	}

	mode := DetermineMode(query, requestedMode, sctx)

	handle := &Handle{ID: ids.New(), Query: query, Mode: mode, StartedAt: start, Status: StatusRunning, cancel: &fuzzyfile.Handle{}}
	o.register(handle)
	defer o.finish(handle, StatusCompleted)

	var fileResults []fuzzyfile.Match
	var cliResults []clitools.Hit

	switch mode {
	case ModeNativeEngine:
		fileResults = o.runFuzzy(ctx, query, root, handle)
	case ModeCliOnly:
		cliResults = o.runCli(ctx, query, root)
	case ModeHybrid:
		fileResults, cliResults = o.runHybrid(ctx, query, root, handle)
	}
	// Auto arm: if native-engine-only ran and came back empty, fall back
	// to CLI-only, matching the original's actual (stronger) behavior.
	if mode == ModeNativeEngine && len(fileResults) == 0 && requestedMode == ModeAuto {
		cliResults = o.runCli(ctx, query, root)
	}

	merged := mergeResults(fileResults, cliResults, extFilter(sctx))

	var suggestions []Suggestion
	if o.SuggestionsEnabled {
		suggestions = generateSuggestions(query, merged, sctx)
	}

	duration := time.Since(start)
	o.addHistory(historyEntry{ID: handle.ID, Query: query, Mode: mode, NumResults: len(merged), Duration: duration, Timestamp: start})

	return Results{
		SearchID:             handle.ID,
		Query:                query,
		Mode:                 mode,
		FileResults:          fileResults,
		CliResults:           cliResults,
		MergedResults:        merged,
		TotalExecutionTimeMs: duration.Milliseconds(),
		Suggestions:          suggestions,
	}
}

func extFilter(sctx *Context) string {
	if sctx == nil {
		return ""
	}
	return sctx.ExtFilter
}

func (o *Orchestrator) runFuzzy(ctx context.Context, query, root string, handle *Handle) []fuzzyfile.Match {
	cfg := fuzzyfile.DefaultConfig(root, query)
	if o.Fuzzy != nil {
		cfg = *o.Fuzzy
		cfg.Root = root
		cfg.Pattern = query
	}
	return fuzzyfile.Search(ctx, cfg, handle.cancel)
}

func (o *Orchestrator) runCli(ctx context.Context, query, root string) []clitools.Hit {
	if o.CliTool == nil {
		return nil
	}
	hits, err := o.CliTool.SearchFiles(ctx, root, query, clitools.Config{})
	if err != nil {
		return nil
	}
	return hits
}

// runHybrid joins both engines concurrently. Neither branch returns an
// error worth aborting the other for — both already degrade to an empty
// result slice on failure — so the errgroup is used purely for its
// context-scoped goroutine join, not its error propagation.
func (o *Orchestrator) runHybrid(ctx context.Context, query, root string, handle *Handle) ([]fuzzyfile.Match, []clitools.Hit) {
	var fileResults []fuzzyfile.Match
	var cliResults []clitools.Hit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fileResults = o.runFuzzy(gctx, query, root, handle)
		return nil
	})
	g.Go(func() error {
		cliResults = o.runCli(gctx, query, root)
		return nil
	})
	_ = g.Wait()
	return fileResults, cliResults
}

// mergeResults implements §4.10's merge policy: CLI results score 1.0,
// fuzzy results are raw_score/1000 scaled by 0.9, deduplicated by path
// (first occurrence wins, favoring the higher-priority CLI source),
// sorted by relevance descending.
func mergeResults(fileResults []fuzzyfile.Match, cliResults []clitools.Hit, extFilter string) []MergedResult {
	seen := make(map[string]bool)
	var out []MergedResult

	for _, h := range cliResults {
		if seen[h.Path] {
			continue
		}
		seen[h.Path] = true
		out = append(out, MergedResult{
			Path:        h.Path,
			Relevance:   1.0,
			SourceLabel: "cli",
			LineNumber:  h.Line,
			Snippet:     h.Content,
		})
	}

	for _, m := range fileResults {
		if seen[m.RelativePath] {
			continue
		}
		seen[m.RelativePath] = true
		if extFilter != "" && !strings.EqualFold(m.FileType, extFilter) {
			continue
		}
		out = append(out, MergedResult{
			Path:        m.RelativePath,
			Relevance:   (float64(m.Score) / 1000.0) * 0.9,
			SourceLabel: "fuzzy",
			FileType:    m.FileType,
			Size:        m.Size,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Relevance, out[j].Relevance
		if math.IsNaN(ri) || math.IsNaN(rj) {
			return false
		}
		return ri > rj
	})

	return out
}

var extensionLikeToken = regexp.MustCompile(`\.\w{1,4}\b`)

// ShouldSuggestFileSearch is the pure intent predicate of §4.10.
func ShouldSuggestFileSearch(prompt string) bool {
	lower := strings.ToLower(prompt)
	indicators := []string{"find file", "where is", "show me", "locate", "search for file"}
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	if extensionLikeToken.MatchString(prompt) {
		return true
	}
	pathLike := []string{"src/", "lib/", "/"}
	for _, p := range pathLike {
		if strings.Contains(prompt, p) {
			return true
		}
	}
	if strings.Contains(prompt, `\`) {
		return true
	}
	return false
}

func generateSuggestions(query string, merged []MergedResult, sctx *Context) []Suggestion {
	var suggestions []Suggestion

	if len(merged) > 50 {
		suggestions = append(suggestions, Suggestion{
			Suggestion: "narrow your search by file type or directory",
			Reason:     "too many results",
			Confidence: 0.8,
		})
	}

	if len(merged) == 0 {
		suggestions = append(suggestions, Suggestion{
			Suggestion: "try a content search instead",
			Reason:     "no results",
			Confidence: 0.7,
		})
		if len(query) > 3 {
			suggestions = append(suggestions, Suggestion{
				Suggestion: fuzzyExpand(query),
				Reason:     "fuzzy expansion",
				Confidence: 0.6,
			})
		}
	}

	if sctx != nil && sctx.CurrentFile != "" {
		dir := parentDir(sctx.CurrentFile)
		if dir != "" && !strings.Contains(query, dir) {
			suggestions = append(suggestions, Suggestion{
				Suggestion: fmt.Sprintf("%s %s", query, dir),
				Reason:     "search near current file",
				Confidence: 0.9,
			})
		}
	}

	return suggestions
}

func fuzzyExpand(query string) string {
	var b strings.Builder
	for i, r := range query {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parentDir(path string) string {
	idx := strings.LastIndexAny(path, `/\`)
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}

func (o *Orchestrator) register(h *Handle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active[h.ID] = h
}

func (o *Orchestrator) finish(h *Handle, status Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if existing, ok := o.active[h.ID]; ok && existing.Status == StatusRunning {
		existing.Status = status
	}
}

// CancelSearch transitions a Running handle to Cancelled; idempotent.
func (o *Orchestrator) CancelSearch(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	h, ok := o.active[id]
	if !ok || h.Status != StatusRunning {
		return
	}
	h.Status = StatusCancelled
	if h.cancel != nil {
		h.cancel.Cancel()
	}
}

func (o *Orchestrator) addHistory(e historyEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = append(o.history, e)
	if len(o.history) > maxHistory {
		o.history = o.history[len(o.history)-maxHistory:]
	}
}

// History returns a copy of the retained search history, oldest first.
func (o *Orchestrator) History() []historyEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]historyEntry, len(o.history))
	copy(out, o.history)
	return out
}
