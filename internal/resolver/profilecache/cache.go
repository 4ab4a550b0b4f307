// Package profilecache memoizes deep-fetch results keyed by (source, reference).
//
// The in-memory layer lives as long as the Cache value; callers decide whether
// that is one run or the whole process. An optional Store persists profiles
// across processes with a freshness TTL.
package profilecache

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"probate-resolver/internal/common/logger"
	"probate-resolver/internal/models"
)

// Origin tells where a Fetch result came from.
type Origin string

const (
	OriginMemory Origin = "memory"
	OriginStore  Origin = "store"
	OriginSource Origin = "source"
	OriginFailed Origin = "failed"
)

// Fetcher performs the real deep fetch on a miss. A nil profile with a nil
// error is a valid "nothing there" answer and is memoized; an error is not.
type Fetcher func(ctx context.Context) (*models.DetailProfile, error)

// Store is a persisted profile layer.
type Store interface {
	Load(ctx context.Context, key models.ProfileKey) (*models.DetailProfile, bool, error)
	Save(ctx context.Context, key models.ProfileKey, profile *models.DetailProfile) error
}

// Stats counts lookups since the cache was created.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// Cache is safe for concurrent use. Concurrent fetches of the same key share
// one call to the Fetcher.
type Cache struct {
	mu      sync.RWMutex
	entries map[models.ProfileKey]*models.DetailProfile
	group   singleflight.Group
	store   Store
	logger  logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache. store may be nil.
func New(store Store, log logger.Logger) *Cache {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Cache{
		entries: make(map[models.ProfileKey]*models.DetailProfile),
		store:   store,
		logger:  log,
	}
}

// Get returns a memoized profile without fetching.
func (c *Cache) Get(key models.ProfileKey) (*models.DetailProfile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[key]
	return p, ok
}

func (c *Cache) put(key models.ProfileKey, p *models.DetailProfile) {
	c.mu.Lock()
	c.entries[key] = p
	c.mu.Unlock()
}

type fetchResult struct {
	profile *models.DetailProfile
	origin  Origin
}

// Fetch returns the profile for key, calling fetch at most once per key for
// the lifetime of the cache unless fetch fails.
func (c *Cache) Fetch(ctx context.Context, key models.ProfileKey, fetch Fetcher) (*models.DetailProfile, Origin) {
	if p, ok := c.Get(key); ok {
		c.hits.Add(1)
		return p, OriginMemory
	}

	v, _, _ := c.group.Do(key.String(), func() (interface{}, error) {
		if p, ok := c.Get(key); ok {
			return fetchResult{profile: p, origin: OriginMemory}, nil
		}

		if c.store != nil {
			p, ok, err := c.store.Load(ctx, key)
			if err != nil {
				c.logger.Warn("profile store load failed", map[string]interface{}{
					"key":   key.String(),
					"error": err.Error(),
				})
			} else if ok {
				c.put(key, p)
				return fetchResult{profile: p, origin: OriginStore}, nil
			}
		}

		p, err := fetch(ctx)
		if err != nil {
			c.logger.Debug("deep fetch failed, not memoized", map[string]interface{}{
				"key":   key.String(),
				"error": err.Error(),
			})
			return fetchResult{origin: OriginFailed}, nil
		}
		c.put(key, p)

		if p != nil && c.store != nil {
			if err := c.store.Save(ctx, key, p); err != nil {
				c.logger.Warn("profile store save failed", map[string]interface{}{
					"key":   key.String(),
					"error": err.Error(),
				})
			}
		}
		return fetchResult{profile: p, origin: OriginSource}, nil
	})

	res := v.(fetchResult)
	if res.origin == OriginMemory || res.origin == OriginStore {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return res.profile, res.origin
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{Entries: n, Hits: c.hits.Load(), Misses: c.misses.Load()}
}
