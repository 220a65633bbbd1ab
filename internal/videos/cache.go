package videos

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
)

// Lister lists video records.
type Lister interface {
	List(ctx context.Context, query models.VideoQuery) ([]models.VideoRecord, error)
}

// maxFeedEntries bounds the cache, since search strings make the key space open-ended.
const maxFeedEntries = 256

type cacheEntry struct {
	videos  []models.VideoRecord
	expires time.Time
}

// FeedCache wraps a Lister with a TTL-based in-memory cache for public listings.
// Owner listings are never cached.
type FeedCache struct {
	base Lister
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewFeedCache returns a Lister that caches public listings for the provided TTL.
func NewFeedCache(base Lister, ttl time.Duration) *FeedCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &FeedCache{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]cacheEntry),
	}
}

// List returns a cached public listing when available, otherwise it delegates to the
// underlying lister and stores the result.
func (c *FeedCache) List(ctx context.Context, query models.VideoQuery) ([]models.VideoRecord, error) {
	if query.OwnerID != "" {
		return c.base.List(ctx, query)
	}

	key := feedKey(query)
	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.videos, nil
	}

	videos, err := c.base.List(ctx, query)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.storeLocked(key, cacheEntry{videos: videos, expires: now.Add(c.ttl)}, now)
	c.mu.Unlock()

	return videos, nil
}

// storeLocked evicts expired entries before writing, and starts over when the cache is
// still full of live ones.
func (c *FeedCache) storeLocked(key string, entry cacheEntry, now time.Time) {
	for k, e := range c.items {
		if !now.Before(e.expires) {
			delete(c.items, k)
		}
	}
	if len(c.items) >= maxFeedEntries {
		c.items = make(map[string]cacheEntry)
	}
	c.items[key] = entry
}

func (c *FeedCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Invalidate drops every cached listing.
func (c *FeedCache) Invalidate() {
	c.mu.Lock()
	c.items = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func feedKey(q models.VideoQuery) string {
	folder := "-"
	if q.FolderID != nil {
		folder = *q.FolderID
	}
	return fmt.Sprintf("%s|%t|%s|%s|%s|%d", folder, q.Root, q.Filter, q.Sort, q.Search, q.Limit)
}
