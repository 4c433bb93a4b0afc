package extractcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skhoot/internal/metadata"
)

func TestPutThenGetReturnsEqualValue(t *testing.T) {
	c := New()
	v := PageExtract{URL: "https://example.test/a", Metadata: metadata.Metadata{Title: "A"}}
	c.Put("https://example.test/a", v)

	got, ok := c.Get("https://example.test/a")
	require.True(t, ok)
	assert.Equal(t, v.Metadata.Title, got.Metadata.Title)
}

func TestGetEvictsExpiredEntries(t *testing.T) {
	fixed := time.Now()
	c := New().WithLimits(DefaultMaxSize, 10*time.Millisecond)
	c.now = func() time.Time { return fixed }

	c.Put("https://example.test/a", PageExtract{URL: "a"})
	c.now = func() time.Time { return fixed.Add(time.Second) }

	_, ok := c.Get("https://example.test/a")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Size())
}

func TestPutEvictsLRUOldestWhenOverCapacity(t *testing.T) {
	c := New().WithLimits(300, time.Hour)

	c.Put("https://example.test/a", PageExtract{URL: "a", Metadata: metadata.Metadata{Title: "aaaaaaaaaa"}})
	c.Put("https://example.test/b", PageExtract{URL: "b", Metadata: metadata.Metadata{Title: "bbbbbbbbbb"}})
	c.Put("https://example.test/c", PageExtract{URL: "c", Metadata: metadata.Metadata{Title: "cccccccccc"}})

	_, aok := c.Get("https://example.test/a")
	_, cok := c.Get("https://example.test/c")
	assert.False(t, aok, "oldest entry should have been evicted")
	assert.True(t, cok)
	assert.LessOrEqual(t, c.Size(), int64(300))
}

func TestPutDropsEntryLargerThanMaxSize(t *testing.T) {
	c := New().WithLimits(10, time.Hour)
	c.Put("https://example.test/a", PageExtract{URL: "a", Metadata: metadata.Metadata{Title: "way too big for the cap"}})
	assert.Equal(t, 0, c.Len())
}
