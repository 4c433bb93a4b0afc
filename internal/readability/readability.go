// Package readability extracts main article text from HTML by scoring
// candidate containers on word density and emitting their paragraph-like
// children. Grounded on the original content_extractor.rs, including the
// exact confidence formula.
package readability

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/kennygrant/sanitize"
	"golang.org/x/net/html"

	"skhoot/internal/core/logging"
)

// Method names the extraction strategy that produced a result.
type Method string

const (
	MethodDensity       Method = "Density"
	MethodReadability   Method = "Readability"
	MethodBrowserRender Method = "BrowserRender"
	MethodFallback      Method = "Fallback"
)

// Extraction is the content-extraction portion of a Page Extract.
type Extraction struct {
	Text       string
	WordCount  int
	Confidence float64
	Method     Method
}

var strippedTags = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"header": true, "aside": true, "form": true, "svg": true,
}

var containerSelectors = []string{"article", "main", "div", "section"}
var blockSelectors = "p, h1, h2, h3, li"

// Extract runs the density-scoring extraction over rawHTML.
func Extract(rawHTML string) (Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Extraction{}, err
	}

	stripNoise(doc.Selection)

	best, bestTag := selectBestContainer(doc)

	xpathAgrees := true
	if best != nil {
		if agree, xerr := xpathDensityCrossCheck(rawHTML, bestTag); xerr == nil {
			xpathAgrees = agree
			if !agree {
				logging.New("readability").Debug().Str("container", bestTag).Msg("xpath density pass picked a different container")
			}
		}
	}

	var text string
	if best != nil {
		text = extractParagraphs(best)
	}
	if strings.TrimSpace(text) == "" {
		text = extractParagraphs(doc.Selection)
	}

	if strings.TrimSpace(text) == "" {
		return Extraction{Text: "", WordCount: 0, Confidence: 0, Method: MethodFallback}, nil
	}

	words := wordCount(text)
	confidence := computeConfidence(words, len(text), len(rawHTML))
	// The XPath pass is an independent container selection; when it
	// disagrees with the goquery density pass, the primary region is
	// more likely a false positive, so the confidence is discounted.
	if !xpathAgrees {
		confidence -= xpathDisagreementPenalty
		if confidence < 0 {
			confidence = 0
		}
	}

	return Extraction{
		Text:       text,
		WordCount:  words,
		Confidence: confidence,
		Method:     MethodDensity,
	}, nil
}

// xpathDisagreementPenalty is subtracted from confidence when the
// htmlquery/XPath density pass selects a different primary container
// than the goquery density pass.
const xpathDisagreementPenalty = 0.1

func stripNoise(root *goquery.Selection) {
	for tag := range strippedTags {
		root.Find(tag).Remove()
	}
}

func selectBestContainer(doc *goquery.Document) (*goquery.Selection, string) {
	var best *goquery.Selection
	var bestTag string
	var bestScore float64 = -1

	for _, sel := range containerSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := normalizeWhitespace(s.Text())
			words := wordCount(text)
			score := density(words, len(text))
			if score > bestScore {
				bestScore = score
				best = s
				bestTag = sel
			}
		})
	}
	return best, bestTag
}

func density(words, textLength int) float64 {
	denom := textLength
	if denom < 1 {
		denom = 1
	}
	return float64(words) * (float64(words) / float64(denom))
}

func extractParagraphs(root *goquery.Selection) string {
	var paragraphs []string
	root.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		para := normalizeParagraph(s.Text())
		if para == "" {
			return
		}
		if wordCount(para) <= 3 {
			return
		}
		paragraphs = append(paragraphs, para)
	})
	return strings.Join(paragraphs, "\n\n")
}

func normalizeParagraph(text string) string {
	cleaned := sanitize.Accents(text)
	return normalizeWhitespace(cleaned)
}

func normalizeWhitespace(text string) string {
	fields := strings.Fields(text)
	return strings.TrimSpace(strings.Join(fields, " "))
}

func wordCount(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return len(strings.Fields(text))
}

// computeConfidence implements the exact word-count tiers and
// text/HTML-ratio adjustment from the original extractor.
func computeConfidence(words, textLen, htmlLen int) float64 {
	var base float64
	switch {
	case words > 800:
		base = 0.9
	case words >= 300:
		base = 0.7 + (float64(words-300)/500)*0.2
	case words >= 120:
		base = 0.5 + (float64(words-120)/180)*0.2
	default:
		base = (float64(words) / 120) * 0.5
	}

	denom := htmlLen
	if denom < 1 {
		denom = 1
	}
	ratio := float64(textLen) / float64(denom)

	switch {
	case ratio > 0.3:
		base += 0.1
	case ratio < 0.1:
		base -= 0.1
	}

	if base < 0 {
		base = 0
	}
	if base > 1 {
		base = 1
	}
	return base
}

// xpathDensityCrossCheck re-selects candidate containers via XPath and
// returns true if the htmlquery-selected primary region agrees with the
// goquery-selected one on tag name, used as a secondary sanity check for
// ambiguous documents (callers may ignore the result).
func xpathDensityCrossCheck(rawHTML string, goqueryTag string) (bool, error) {
	doc, err := htmlquery.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return false, err
	}
	nodes := htmlquery.Find(doc, "//article|//main|//div|//section")
	var best *html.Node
	var bestScore float64 = -1
	for _, n := range nodes {
		text := normalizeWhitespace(htmlquery.InnerText(n))
		words := wordCount(text)
		score := density(words, len(text))
		if score > bestScore {
			bestScore = score
			best = n
		}
	}
	if best == nil {
		return false, nil
	}
	return best.Data == goqueryTag, nil
}
