// Package cache provides an in-memory TTL cache for fetched pages so that
// pagination probing and re-runs against partially crawled sites do not
// refetch identical URLs.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/pkg/models"
)

// PageCache stores fetched pages keyed by URL
type PageCache interface {
	Get(key string) (*models.Page, bool)
	Set(key string, page *models.Page, ttl time.Duration)
	Clear()
}

type entry struct {
	key       string
	page      *models.Page
	expiresAt time.Time
}

// MemoryCache is a size-bounded LRU cache with per-entry TTL
type MemoryCache struct {
	mu      sync.Mutex
	store   map[string]*list.Element
	lru     *list.List
	maxSize int64
	size    int64
}

// NewMemoryCache creates a cache bounded to maxSizeBytes of page HTML
func NewMemoryCache(maxSizeBytes int64) *MemoryCache {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 50 * 1024 * 1024
	}
	return &MemoryCache{
		store:   make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSizeBytes,
	}
}

// Get returns the cached page for key if present and unexpired
func (c *MemoryCache) Get(key string) (*models.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.store[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.remove(el)
		return nil, false
	}
	c.lru.MoveToFront(el)
	log.Debug().Str("key", key).Msg("Page cache hit")
	return e.page, true
}

// Set stores a page under key for ttl, evicting least recently used entries
// when over the size bound
func (c *MemoryCache) Set(key string, page *models.Page, ttl time.Duration) {
	if page == nil {
		return
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.store[key]; ok {
		c.remove(el)
	}

	sz := entrySize(page)
	for c.size+sz > c.maxSize && c.lru.Len() > 0 {
		c.remove(c.lru.Back())
	}

	el := c.lru.PushFront(&entry{key: key, page: page, expiresAt: time.Now().Add(ttl)})
	c.store[key] = el
	c.size += sz
}

// Clear drops all entries
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*list.Element)
	c.lru = list.New()
	c.size = 0
}

// remove must be called with the lock held
func (c *MemoryCache) remove(el *list.Element) {
	e := el.Value.(*entry)
	c.lru.Remove(el)
	delete(c.store, e.key)
	c.size -= entrySize(e.page)
}

func entrySize(p *models.Page) int64 {
	return int64(len(p.HTML)+len(p.Title)) + 512
}
