package cec

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skhoot/internal/extractcache"
	"skhoot/internal/fetch"
	"skhoot/internal/safety"
)

func allowAllValidator() *safety.Validator {
	return safety.NewWithChecker(fakeResolver{}, func(net.IP) bool { return true })
}

type fakeResolver struct{}

func (fakeResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return nil, nil
}

func TestBrowseCachesHighConfidenceExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := "<html><head><title>T</title></head><body><article><p>"
		for i := 0; i < 200; i++ {
			body += "word "
		}
		body += "</p></article></body></html>"
		w.Write([]byte(body))
	}))
	defer srv.Close()

	validator := allowAllValidator()
	orch := New(validator, fetch.New(validator), extractcache.New(), nil, nil)

	page, err := orch.Browse(context.Background(), srv.URL, false)
	require.NoError(t, err)
	assert.True(t, page.Extraction.WordCount > 0)

	cached, ok := orch.Cache.Get(srv.URL)
	if page.Cacheable() {
		assert.True(t, ok)
		assert.Equal(t, page.Metadata.Title, cached.Metadata.Title)
	}
}

func TestBrowseRejectsSsrfTarget(t *testing.T) {
	blockAll := safety.NewWithChecker(fakeResolver{}, func(net.IP) bool { return false })
	orch := New(blockAll, fetch.New(blockAll), extractcache.New(), nil, nil)

	_, err := orch.Browse(context.Background(), "http://10.0.0.1/", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SsrfViolation")
}
