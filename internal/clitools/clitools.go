// Package clitools implements the External Tool Engine: capability
// probing of fd/ripgrep/find/grep, delegating file- or content-search to
// whichever is present with the documented fallback order. Grounded on
// the original cli_engine.rs fallback chains.
package clitools

import (
	"bufio"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	coreerrors "skhoot/internal/core/errors"
)

// Hit is one parsed line of tool output.
type Hit struct {
	Path    string
	Line    int
	Content string
}

// Config bounds a single invocation.
type Config struct {
	TimeoutSeconds int
	MaxResults     int
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) maxResults() int {
	if c.MaxResults <= 0 {
		return 200
	}
	return c.MaxResults
}

// Engine delegates to external tools, probed fresh on every call so a
// tool installed or removed after construction is picked up without
// restarting the process.
type Engine struct{}

// NewEngine returns a ready Engine. It does not probe tool availability
// itself — each search call probes at call time.
func NewEngine() *Engine {
	return &Engine{}
}

// availability is one call's snapshot of which external tools are on PATH.
type availability struct {
	hasFd   bool
	hasRg   bool
	hasFind bool
	hasGrep bool
}

func probe() availability {
	return availability{
		hasFd:   probeVersion("fd"),
		hasRg:   probeVersion("rg"),
		hasFind: probeVersion("find"),
		hasGrep: probeVersion("grep"),
	}
}

func probeVersion(tool string) bool {
	cmd := exec.Command(tool, "--version")
	return cmd.Run() == nil
}

// SearchFiles searches for files by name/glob pattern under root,
// preferring fd, then rg --files filtered client-side, then find.
func (e *Engine) SearchFiles(ctx context.Context, root, pattern string, cfg Config) ([]Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	avail := probe()
	switch {
	case avail.hasFd:
		return e.runFd(ctx, root, pattern, cfg)
	case avail.hasRg:
		return e.runRgFiles(ctx, root, pattern, cfg)
	case avail.hasFind:
		return e.runFind(ctx, root, pattern, cfg)
	default:
		return nil, coreerrors.UnknownTool("file search: none of fd, rg, find available")
	}
}

// SearchContent searches file contents for pattern under root, preferring
// ripgrep, then grep.
func (e *Engine) SearchContent(ctx context.Context, root, pattern string, cfg Config) ([]Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	avail := probe()
	switch {
	case avail.hasRg:
		return e.runRgContent(ctx, root, pattern, cfg)
	case avail.hasGrep:
		return e.runGrep(ctx, root, pattern, cfg)
	default:
		return nil, coreerrors.UnknownTool("content search: neither rg nor grep available")
	}
}

func (e *Engine) runFd(ctx context.Context, root, pattern string, cfg Config) ([]Hit, error) {
	args := []string{"--type", "f", "--max-results", strconv.Itoa(cfg.maxResults()), pattern, root}
	return linesToPathHits(runCommand(ctx, "fd", args...))
}

func (e *Engine) runRgFiles(ctx context.Context, root, pattern string, cfg Config) ([]Hit, error) {
	out, err := runCommand(ctx, "rg", "--files", root)
	if err != nil {
		return nil, err
	}
	re, reErr := regexp.Compile("(?i)" + regexp.QuoteMeta(pattern))
	if reErr != nil {
		re = nil
	}
	var hits []Hit
	for _, line := range splitLines(out) {
		if re == nil || re.MatchString(line) {
			hits = append(hits, Hit{Path: line})
			if len(hits) >= cfg.maxResults() {
				break
			}
		}
	}
	return hits, nil
}

func (e *Engine) runFind(ctx context.Context, root, pattern string, cfg Config) ([]Hit, error) {
	out, err := runCommand(ctx, "find", root, "-iname", "*"+pattern+"*")
	if err != nil {
		return nil, err
	}
	lines := splitLines(out)
	if len(lines) > cfg.maxResults() {
		lines = lines[:cfg.maxResults()]
	}
	hits := make([]Hit, 0, len(lines))
	for _, l := range lines {
		hits = append(hits, Hit{Path: l})
	}
	return hits, nil
}

func (e *Engine) runRgContent(ctx context.Context, root, pattern string, cfg Config) ([]Hit, error) {
	out, err := runCommand(ctx, "rg", "--line-number", "--no-heading", "--color", "never", pattern, root)
	if err != nil {
		if exitCode(err) == 1 {
			return nil, nil // "no matches" is not an error
		}
		return nil, err
	}
	return parseLineNumberedOutput(out, cfg.maxResults()), nil
}

func (e *Engine) runGrep(ctx context.Context, root, pattern string, cfg Config) ([]Hit, error) {
	out, err := runCommand(ctx, "grep", "-r", "-n", pattern, root)
	if err != nil {
		if exitCode(err) == 1 {
			return nil, nil
		}
		return nil, err
	}
	return parseLineNumberedOutput(out, cfg.maxResults()), nil
}

func exitCode(err error) int {
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	return -1
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return string(out), err
		}
		return "", coreerrors.ExecutionFailed(name, err)
	}
	return string(out), nil
}

func splitLines(s string) []string {
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func linesToPathHits(out string, err error) ([]Hit, error) {
	if err != nil {
		return nil, err
	}
	lines := splitLines(out)
	hits := make([]Hit, 0, len(lines))
	for _, l := range lines {
		hits = append(hits, Hit{Path: l})
	}
	return hits, nil
}

// parseLineNumberedOutput parses "path:line:content" lines emitted by
// rg/grep into structured hits.
func parseLineNumberedOutput(out string, max int) []Hit {
	var hits []Hit
	for _, line := range splitLines(out) {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			continue
		}
		lineNo, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		hits = append(hits, Hit{Path: parts[0], Line: lineNo, Content: parts[2]})
		if len(hits) >= max {
			break
		}
	}
	return hits
}
