// Package extractcache implements the Extract Cache: a TTL- and
// size-bounded LRU keyed by SHA-256(url). Grounded on the original
// cache_manager.rs, including the 128-byte per-entry overhead constant.
package extractcache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"skhoot/internal/metadata"
	"skhoot/internal/readability"
)

const (
	// DefaultMaxSize is the default aggregate cache size cap (100 MiB).
	DefaultMaxSize = 100 * 1024 * 1024
	// DefaultTTL is the default entry lifetime.
	DefaultTTL = 60 * time.Minute
	// entryOverhead is the fixed per-entry bookkeeping size.
	entryOverhead = 128
)

// PageExtract mirrors the union of Metadata, Content Extraction and fetch
// metadata that CEC produces per URL.
type PageExtract struct {
	URL           string
	FinalURL      string
	Status        int
	Metadata      metadata.Metadata
	Extraction    readability.Extraction
	FetchDuration time.Duration
	ExtractDur    time.Duration
}

type entry struct {
	key       string
	value     PageExtract
	cachedAt  time.Time
	sizeBytes int64
	elem      *list.Element
}

// Cache is a TTL + size-bounded LRU keyed by sha256(url).
type Cache struct {
	mu          sync.Mutex
	maxSize     int64
	ttl         time.Duration
	currentSize int64
	entries     map[string]*entry
	order       *list.List // front = most recently inserted, back = oldest (by cached_at)
	now         func() time.Time
}

// New builds a Cache with the spec defaults.
func New() *Cache {
	return &Cache{
		maxSize: DefaultMaxSize,
		ttl:     DefaultTTL,
		entries: make(map[string]*entry),
		order:   list.New(),
		now:     time.Now,
	}
}

// WithLimits overrides maxSize/ttl, for tests and callers that need
// smaller bounds.
func (c *Cache) WithLimits(maxSize int64, ttl time.Duration) *Cache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxSize = maxSize
	c.ttl = ttl
	return c
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func estimateSize(v PageExtract) int64 {
	size := len(v.URL) + len(v.FinalURL) + len(v.Metadata.Title) +
		len(v.Metadata.Description) + len(v.Metadata.Author) +
		len(v.Metadata.PublishedDate) + len(v.Metadata.CanonicalURL) +
		len(v.Extraction.Text)
	for _, img := range v.Metadata.Images {
		size += len(img)
	}
	return int64(size) + entryOverhead
}

// Get first evicts all expired entries, then returns a present unexpired
// value. A hit does not reorder the entry: eviction is LRU by cached_at,
// not by access, so reading an entry must not extend its life.
func (c *Cache) Get(url string) (PageExtract, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpiredLocked()

	e, ok := c.entries[cacheKey(url)]
	if !ok {
		return PageExtract{}, false
	}
	return e.value, true
}

// Put inserts or replaces the entry for url, evicting expired and then
// LRU-oldest entries as needed to respect maxSize.
func (c *Cache) Put(url string, value PageExtract) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := estimateSize(value)
	if size > c.maxSize {
		return
	}

	c.evictExpiredLocked()

	k := cacheKey(url)
	if old, ok := c.entries[k]; ok {
		c.removeLocked(old)
	}

	for c.currentSize+size > c.maxSize && c.order.Len() > 0 {
		oldest := c.order.Back()
		c.removeLocked(oldest.Value.(*entry))
	}

	e := &entry{key: k, value: value, cachedAt: c.now(), sizeBytes: size}
	e.elem = c.order.PushFront(e)
	c.entries[e.key] = e
	c.currentSize += size
}

func (c *Cache) evictExpiredLocked() {
	now := c.now()
	for el := c.order.Back(); el != nil; {
		e := el.Value.(*entry)
		prev := el.Prev()
		if now.Sub(e.cachedAt) > c.ttl {
			c.removeLocked(e)
		}
		el = prev
	}
}

func (c *Cache) removeLocked(e *entry) {
	if _, ok := c.entries[e.key]; !ok {
		return
	}
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
	c.currentSize -= e.sizeBytes
}

// Size returns the current aggregate size in bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// Len returns the number of live entries (including possibly-expired
// ones not yet swept).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
