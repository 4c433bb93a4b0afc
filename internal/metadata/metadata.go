// Package metadata implements the metadata merger: three partial
// extractions (Open Graph, JSON-LD, plain meta/title/link) merged by
// priority Open Graph > JSON-LD > plain. Grounded on the original Rust
// metadata_extractor.rs.
package metadata

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Metadata is the merged, de-duplicated page metadata.
type Metadata struct {
	Title         string
	Description   string
	Author        string
	PublishedDate string
	CanonicalURL  string
	PrimaryImage  string
	Images        []string
}

type partial struct {
	title, description, author, publishedDate, canonicalURL string
	primaryImage                                             string
	images                                                    []string
}

// Extract parses html once and returns the priority-merged metadata.
func Extract(html string) (Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Metadata{}, err
	}

	og := extractOpenGraph(doc)
	jsonld := extractJSONLD(doc)
	plain := extractPlain(doc)

	// Lowest priority first so higher-priority non-empty fields overwrite.
	merged := partial{}
	for _, p := range []partial{plain, jsonld, og} {
		mergeInto(&merged, p)
	}

	images := dedupPreserveOrder(merged.images)
	primary := merged.primaryImage
	if primary == "" && len(images) > 0 {
		primary = images[0]
	}

	return Metadata{
		Title:         merged.title,
		Description:   merged.description,
		Author:        merged.author,
		PublishedDate: merged.publishedDate,
		CanonicalURL:  merged.canonicalURL,
		PrimaryImage:  primary,
		Images:        images,
	}, nil
}

func mergeInto(dst *partial, src partial) {
	if src.title != "" {
		dst.title = src.title
	}
	if src.description != "" {
		dst.description = src.description
	}
	if src.author != "" {
		dst.author = src.author
	}
	if src.publishedDate != "" {
		dst.publishedDate = src.publishedDate
	}
	if src.canonicalURL != "" {
		dst.canonicalURL = src.canonicalURL
	}
	if src.primaryImage != "" {
		dst.primaryImage = src.primaryImage
	}
	dst.images = append(dst.images, src.images...)
}

func extractOpenGraph(doc *goquery.Document) partial {
	var p partial
	doc.Find("meta[property]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		switch prop {
		case "og:title":
			p.title = content
		case "og:description":
			p.description = content
		case "og:image":
			if p.primaryImage == "" {
				p.primaryImage = content
			}
			p.images = append(p.images, content)
		case "og:url":
			p.canonicalURL = content
		case "article:published_time":
			p.publishedDate = content
		case "article:author":
			p.author = content
		}
	})
	return p
}

type ldEntry map[string]interface{}

func extractJSONLD(doc *goquery.Document) partial {
	var p partial
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		var raw interface{}
		if err := json.UnmarshalFromString(text, &raw); err != nil {
			return
		}
		for _, entry := range flattenLD(raw) {
			applyLDEntry(&p, entry)
		}
	})
	return p
}

// flattenLD flattens @graph arrays and top-level arrays into a flat list
// of object entries.
func flattenLD(raw interface{}) []ldEntry {
	var out []ldEntry
	switch v := raw.(type) {
	case map[string]interface{}:
		if graph, ok := v["@graph"]; ok {
			out = append(out, flattenLD(graph)...)
			return out
		}
		out = append(out, ldEntry(v))
	case []interface{}:
		for _, item := range v {
			out = append(out, flattenLD(item)...)
		}
	}
	return out
}

func applyLDEntry(p *partial, e ldEntry) {
	if title, ok := stringField(e, "headline"); ok {
		p.title = title
	} else if title, ok := stringField(e, "name"); ok && p.title == "" {
		p.title = title
	}
	if date, ok := stringField(e, "datePublished"); ok {
		p.publishedDate = date
	}
	if author, ok := e["author"]; ok {
		if name := authorName(author); name != "" {
			p.author = name
		}
	}
	if image, ok := e["image"]; ok {
		urls := imageURLs(image)
		if p.primaryImage == "" && len(urls) > 0 {
			p.primaryImage = urls[0]
		}
		p.images = append(p.images, urls...)
	}
}

func stringField(e ldEntry, key string) (string, bool) {
	v, ok := e[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func authorName(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		if name, ok := t["name"].(string); ok {
			return name
		}
	case []interface{}:
		for _, item := range t {
			if name := authorName(item); name != "" {
				return name
			}
		}
	}
	return ""
}

func imageURLs(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case map[string]interface{}:
		if url, ok := t["url"].(string); ok {
			return []string{url}
		}
	case []interface{}:
		var out []string
		for _, item := range t {
			out = append(out, imageURLs(item)...)
		}
		return out
	}
	return nil
}

func extractPlain(doc *goquery.Document) partial {
	var p partial
	p.title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		switch strings.ToLower(name) {
		case "description":
			p.description = content
		case "author":
			p.author = content
		case "date", "publish_date", "publication_date":
			p.publishedDate = content
		}
	})
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		p.canonicalURL = strings.TrimSpace(href)
	}
	return p
}

func dedupPreserveOrder(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it == "" {
			continue
		}
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
