// Package cec implements the CEC Orchestrator: browse(url, render_enabled)
// and search_and_gather(query, n_results, gather_top). Grounded on the
// teacher's worker-pool/rate-limited fetch loop in requests_crawler.go,
// generalized to the browse pipeline of fetch -> metadata -> readability
// -> optional render -> cache.
package cec

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	coreerrors "skhoot/internal/core/errors"
	"skhoot/internal/core/logging"
	"skhoot/internal/extractcache"
	"skhoot/internal/fetch"
	"skhoot/internal/metadata"
	"skhoot/internal/readability"
	"skhoot/internal/render"
	"skhoot/internal/safety"
	"skhoot/internal/cec/searchprovider"
)

const (
	renderConfidenceGate = 0.5
	cacheConfidenceGate  = 0.3
	fallbackPrefixLen    = 10000
	gatherHardCap        = 5
	gatherConcurrency    = 5
)

// Orchestrator ties together the safety validator, fetcher, metadata
// merger, readability extractor, extract cache, and render bridge into
// the two CEC operations.
type Orchestrator struct {
	Fetcher    *fetch.Fetcher
	Validator  *safety.Validator
	Cache      *extractcache.Cache
	Bridge     *render.Bridge
	Providers  []searchprovider.Provider
}

// New builds an Orchestrator from its collaborators.
func New(validator *safety.Validator, fetcher *fetch.Fetcher, cache *extractcache.Cache, bridge *render.Bridge, providers []searchprovider.Provider) *Orchestrator {
	return &Orchestrator{
		Fetcher:   fetcher,
		Validator: validator,
		Cache:     cache,
		Bridge:    bridge,
		Providers: providers,
	}
}

// Browse runs the full §4.7 pipeline for one URL.
func (o *Orchestrator) Browse(ctx context.Context, rawURL string, renderEnabled bool) (PageExtract, error) {
	log := logging.New("cec")
	totalStart := time.Now()

	if cached, ok := o.Cache.Get(rawURL); ok {
		return pageExtractFromCache(cached), nil
	}

	canonical, err := safety.Canonicalize(rawURL)
	if err != nil {
		return PageExtract{}, err
	}

	if err := o.Validator.Validate(ctx, canonical); err != nil {
		return PageExtract{}, err
	}

	fetchResult, err := o.Fetcher.Fetch(ctx, canonical)
	if err != nil {
		return PageExtract{}, err
	}

	meta, err := metadata.Extract(fetchResult.HTML)
	if err != nil {
		return PageExtract{}, coreerrors.Internal("metadata extraction failed", err)
	}

	extractStart := time.Now()
	extraction, err := readability.Extract(fetchResult.HTML)
	if err != nil {
		return PageExtract{}, coreerrors.Internal("readability extraction failed", err)
	}
	extractDur := time.Since(extractStart)

	if extraction.Text == "" {
		extraction = fallbackExtraction(fetchResult.HTML)
	}

	page := PageExtract{
		URL:           rawURL,
		FinalURL:      fetchResult.FinalURL,
		Status:        fetchResult.Status,
		ContentType:   fetchResult.ContentType,
		Metadata:      meta,
		Extraction:    extraction,
		FetchDuration: fetchResult.FetchDuration,
		ExtractDur:    extractDur,
	}

	if extraction.Confidence < renderConfidenceGate && renderEnabled && o.Bridge != nil && o.Bridge.Available(ctx) {
		if rendered, rerr := o.tryRender(ctx, canonical, page); rerr == nil && rendered.Extraction.Confidence > page.Extraction.Confidence {
			page = rendered
		} else if rerr != nil {
			log.Warn().Err(rerr).Str("url", rawURL).Msg("render fallback failed, keeping http result")
		}
	}

	page.TotalDuration = time.Since(totalStart)

	if page.Cacheable() {
		o.Cache.Put(rawURL, extractToCacheEntry(page))
	}

	return page, nil
}

func (o *Orchestrator) tryRender(ctx context.Context, canonical string, httpPage PageExtract) (PageExtract, error) {
	result, err := o.Bridge.Render(ctx, canonical, render.WaitDOMContentLoaded, 20*time.Second)
	if err != nil {
		return PageExtract{}, err
	}

	meta, err := metadata.Extract(result.HTML)
	if err != nil {
		return PageExtract{}, coreerrors.Internal("metadata extraction on rendered html failed", err)
	}
	extraction, err := readability.Extract(result.HTML)
	if err != nil {
		return PageExtract{}, coreerrors.Internal("readability extraction on rendered html failed", err)
	}
	if extraction.Text == "" {
		extraction = fallbackExtraction(result.HTML)
	} else {
		extraction.Method = readability.MethodBrowserRender
	}

	rendered := httpPage
	rendered.FinalURL = result.FinalURL
	rendered.Metadata = meta
	rendered.Extraction = extraction
	return rendered, nil
}

func fallbackExtraction(rawHTML string) readability.Extraction {
	prefix := rawHTML
	if len(prefix) > fallbackPrefixLen {
		prefix = prefix[:fallbackPrefixLen]
	}
	return readability.Extraction{
		Text:       prefix,
		WordCount:  0,
		Confidence: 0.0,
		Method:     readability.MethodFallback,
	}
}

// SearchAndGather races search providers, then fans out bounded-concurrency
// browses over the top gather_top (capped at 5) result URLs.
func (o *Orchestrator) SearchAndGather(ctx context.Context, query string, nResults, gatherTop int) (SearchGatherResponse, error) {
	searchStart := time.Now()
	results, err := o.raceProviders(ctx, query, nResults)
	if err != nil {
		return SearchGatherResponse{}, err
	}
	searchDur := time.Since(searchStart)

	if gatherTop > gatherHardCap {
		gatherTop = gatherHardCap
	}
	urls := make([]string, 0, gatherTop)
	for i := 0; i < gatherTop && i < len(results); i++ {
		urls = append(urls, results[i].URL)
	}

	gatherStart := time.Now()
	pages := o.gather(ctx, urls)
	gatherDur := time.Since(gatherStart)

	return SearchGatherResponse{
		Query:             query,
		SearchResults:     results,
		GatheredPages:     pages,
		TotalSearchTimeMs: searchDur.Milliseconds(),
		TotalGatherTimeMs: gatherDur.Milliseconds(),
	}, nil
}

// raceProviders runs every configured provider concurrently, returning
// the first success; if all fail, the last error is propagated.
func (o *Orchestrator) raceProviders(ctx context.Context, query string, nResults int) ([]searchprovider.Result, error) {
	if len(o.Providers) == 0 {
		return nil, coreerrors.Internal("no search providers configured", nil)
	}

	type outcome struct {
		results []searchprovider.Result
		err     error
	}
	ch := make(chan outcome, len(o.Providers))
	providerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, p := range o.Providers {
		p := p
		go func() {
			results, err := p.Search(providerCtx, query, nResults)
			ch <- outcome{results: results, err: err}
		}()
	}

	var lastErr error
	for i := 0; i < len(o.Providers); i++ {
		out := <-ch
		if out.err == nil {
			if len(out.results) > nResults {
				out.results = out.results[:nResults]
			}
			return out.results, nil
		}
		lastErr = out.err
	}
	return nil, lastErr
}

func (o *Orchestrator) gather(ctx context.Context, urls []string) []PageExtract {
	log := logging.New("cec")
	sem := semaphore.NewWeighted(gatherConcurrency)

	type indexed struct {
		idx  int
		page PageExtract
		ok   bool
	}
	ch := make(chan indexed, len(urls))

	for i, u := range urls {
		i, u := i, u
		if err := sem.Acquire(ctx, 1); err != nil {
			ch <- indexed{idx: i, ok: false}
			continue
		}
		go func() {
			defer sem.Release(1)
			page, err := o.Browse(ctx, u, false)
			if err != nil {
				log.Warn().Err(err).Str("url", u).Msg("gather browse failed, dropping")
				ch <- indexed{idx: i, ok: false}
				return
			}
			ch <- indexed{idx: i, page: page, ok: true}
		}()
	}

	collected := make([]indexed, 0, len(urls))
	for range urls {
		collected = append(collected, <-ch)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].idx < collected[j].idx })

	pages := make([]PageExtract, 0, len(collected))
	for _, c := range collected {
		if c.ok {
			pages = append(pages, c.page)
		}
	}
	return pages
}

func pageExtractFromCache(entry extractcache.PageExtract) PageExtract {
	return PageExtract{
		URL:           entry.URL,
		FinalURL:      entry.FinalURL,
		Status:        entry.Status,
		Metadata:      entry.Metadata,
		Extraction:    entry.Extraction,
		FetchDuration: entry.FetchDuration,
		ExtractDur:    entry.ExtractDur,
	}
}

func extractToCacheEntry(p PageExtract) extractcache.PageExtract {
	return extractcache.PageExtract{
		URL:           p.URL,
		FinalURL:      p.FinalURL,
		Status:        p.Status,
		Metadata:      p.Metadata,
		Extraction:    p.Extraction,
		FetchDuration: p.FetchDuration,
		ExtractDur:    p.ExtractDur,
	}
}

// BridgeRenderAdapter adapts *render.Bridge to searchprovider.RenderSearcher
// so the webview search provider can reuse the same bridge browse() uses.
type BridgeRenderAdapter struct {
	Bridge *render.Bridge
}

func (a BridgeRenderAdapter) Render(ctx context.Context, url string, waitMode string, timeout time.Duration) (string, string, error) {
	result, err := a.Bridge.Render(ctx, url, render.WaitMode(waitMode), timeout)
	if err != nil {
		return "", "", err
	}
	return result.HTML, result.FinalURL, nil
}
