// Package searchprovider implements the two CEC search providers that
// race in search_and_gather: an HTTP-search provider (colly-driven, gated
// by robots.txt) and a render-backed provider that asks the Render
// Bridge to execute the search in a real browser. Grounded on the
// teacher's colly_crawler.go collector shape and requests_crawler.go's
// robots.txt caching.
package searchprovider

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/temoto/robotstxt"

	coreerrors "skhoot/internal/core/errors"
)

// Result is one search hit, scored by rank per the spec formula
// 0.95 - 0.05*index (clamped >= 0).
type Result struct {
	Title          string
	URL            string
	Snippet        string
	PublishedDate  string
	RelevanceScore float64
}

// Provider races against its siblings in search_and_gather's
// first-success combinator.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, nResults int) ([]Result, error)
}

// robotsCache is a dual-layer (in-flight + TTL) cache of parsed
// robots.txt files, grounded on requests_crawler.go's single-flight
// pattern.
type robotsCache struct {
	mu      sync.Mutex
	entries map[string]*robotsEntry
	ttl     time.Duration
}

type robotsEntry struct {
	group     *robotstxt.Group
	fetchedAt time.Time
	inflight  chan struct{}
}

func newRobotsCache() *robotsCache {
	return &robotsCache{entries: make(map[string]*robotsEntry), ttl: time.Hour}
}

func (c *robotsCache) allowed(ctx context.Context, rawURL, userAgent string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Scheme + "://" + u.Host

	c.mu.Lock()
	entry, ok := c.entries[host]
	fresh := false
	if ok {
		select {
		case <-entry.inflight:
			fresh = time.Since(entry.fetchedAt) < c.ttl
		default:
			fresh = true // another caller is fetching it; wait for that result
		}
	}
	if fresh {
		c.mu.Unlock()
		<-entry.inflight
		if entry.group == nil {
			return true
		}
		return entry.group.Test(u.Path)
	}
	entry = &robotsEntry{inflight: make(chan struct{})}
	c.entries[host] = entry
	c.mu.Unlock()

	defer close(entry.inflight)

	resp, err := fetchRobots(ctx, host+"/robots.txt")
	if err != nil {
		entry.fetchedAt = time.Now()
		return true // no robots.txt => allow
	}
	robotsData, err := robotstxt.FromBytes(resp)
	if err != nil {
		entry.fetchedAt = time.Now()
		return true
	}
	entry.group = robotsData.FindGroup(userAgent)
	entry.fetchedAt = time.Now()
	return entry.group.Test(u.Path)
}

func fetchRobots(ctx context.Context, robotsURL string) ([]byte, error) {
	c := colly.NewCollector()
	var body []byte
	var fetchErr error
	c.OnResponse(func(r *colly.Response) { body = r.Body })
	c.OnError(func(r *colly.Response, err error) { fetchErr = err })
	if err := c.Visit(robotsURL); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	return body, nil
}

const userAgent = "skhoot-search/1.0 (+content-extraction-core)"

// HTTPProvider queries a configurable search engine results page and
// parses structural CSS selectors, normalizing redirect wrappers and
// decoding HTML entities.
type HTTPProvider struct {
	// SearchURL formats as fmt.Sprintf(SearchURL, url.QueryEscape(query)).
	SearchURL string
	robots    *robotsCache
}

// NewHTTPProvider builds an HTTP-search provider against a search engine
// results page template.
func NewHTTPProvider(searchURLTemplate string) *HTTPProvider {
	return &HTTPProvider{SearchURL: searchURLTemplate, robots: newRobotsCache()}
}

func (p *HTTPProvider) Name() string { return "http-search" }

func (p *HTTPProvider) Search(ctx context.Context, query string, nResults int) ([]Result, error) {
	target := fmt.Sprintf(p.SearchURL, url.QueryEscape(query))

	if !p.robots.allowed(ctx, target, userAgent) {
		return nil, coreerrors.PermissionDenied("robots.txt disallows " + target)
	}

	var results []Result
	var visitErr error

	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.OnHTML("a.result__a, a.result-title, h3 a", func(e *colly.HTMLElement) {
		if len(results) >= nResults {
			return
		}
		href := resolveRedirect(e.Attr("href"))
		title := html.UnescapeString(strings.TrimSpace(e.Text))
		if href == "" || title == "" {
			return
		}
		snippet := html.UnescapeString(strings.TrimSpace(e.DOM.Parent().Find(".result__snippet, .snippet").Text()))
		idx := len(results)
		score := 0.95 - 0.05*float64(idx)
		if score < 0 {
			score = 0
		}
		results = append(results, Result{
			Title:          title,
			URL:            href,
			Snippet:        snippet,
			RelevanceScore: score,
		})
	})
	c.OnError(func(r *colly.Response, err error) { visitErr = err })

	if err := c.Visit(target); err != nil {
		return nil, coreerrors.HttpError(0, target)
	}
	c.Wait()
	if visitErr != nil {
		return nil, coreerrors.Wrap(coreerrors.CodeHttpError, "search request failed", visitErr)
	}

	if len(results) > nResults {
		results = results[:nResults]
	}
	return results, nil
}

var redirectParam = regexp.MustCompile(`(?:uddg|url|q)=([^&]+)`)

// resolveRedirect extracts the nested destination parameter from a
// search engine's redirect wrapper URL, if present.
func resolveRedirect(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if m := redirectParam.FindStringSubmatch(href); len(m) == 2 {
		if decoded, err := url.QueryUnescape(m[1]); err == nil {
			return decoded
		}
	}
	return href
}

// RenderSearcher is satisfied by internal/render.Bridge; kept as a narrow
// interface here to avoid a dependency from searchprovider -> render ->
// ... back into CEC.
type RenderSearcher interface {
	Render(ctx context.Context, url string, waitMode string, timeout time.Duration) (html string, finalURL string, err error)
}

// WebViewProvider delegates the search itself to the Render Bridge,
// navigating to a search engine URL in a real browser and parsing the
// resulting HTML the same way HTTPProvider does, via goquery.
type WebViewProvider struct {
	SearchURL string
	Renderer  RenderSearcher
	Timeout   time.Duration
}

func NewWebViewProvider(searchURLTemplate string, renderer RenderSearcher) *WebViewProvider {
	return &WebViewProvider{SearchURL: searchURLTemplate, Renderer: renderer, Timeout: 15 * time.Second}
}

func (p *WebViewProvider) Name() string { return "webview-search" }

func (p *WebViewProvider) Search(ctx context.Context, query string, nResults int) ([]Result, error) {
	target := fmt.Sprintf(p.SearchURL, url.QueryEscape(query))

	rendered, _, err := p.Renderer.Render(ctx, target, "DomContentLoaded", p.Timeout)
	if err != nil {
		return nil, coreerrors.RenderFailed(target, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return nil, coreerrors.Internal("parse rendered search page", err)
	}

	var results []Result
	doc.Find("a.result__a, a.result-title, h3 a").Each(func(i int, s *goquery.Selection) {
		if len(results) >= nResults {
			return
		}
		href, _ := s.Attr("href")
		href = resolveRedirect(href)
		title := html.UnescapeString(strings.TrimSpace(s.Text()))
		if href == "" || title == "" {
			return
		}
		idx := len(results)
		score := 0.95 - 0.05*float64(idx)
		if score < 0 {
			score = 0
		}
		results = append(results, Result{Title: title, URL: href, RelevanceScore: score})
	})

	return results, nil
}
