package cec

import (
	"time"

	"skhoot/internal/cec/searchprovider"
	"skhoot/internal/metadata"
	"skhoot/internal/readability"
)

// PageExtract is the primary output of CEC.browse: the union of fetch
// metadata, Metadata, and Content Extraction.
type PageExtract struct {
	URL           string
	FinalURL      string
	Status        int
	ContentType   string
	Metadata      metadata.Metadata
	Extraction    readability.Extraction
	FetchDuration time.Duration
	ExtractDur    time.Duration
	TotalDuration time.Duration
}

// Cacheable reports whether this extract should be stored, per the 0.3
// confidence gate.
func (p PageExtract) Cacheable() bool {
	return p.Extraction.Confidence >= 0.3
}

// SearchGatherResponse is the result of CEC.search_and_gather.
type SearchGatherResponse struct {
	Query             string
	SearchResults     []searchprovider.Result
	GatheredPages     []PageExtract
	TotalSearchTimeMs int64
	TotalGatherTimeMs int64
}
