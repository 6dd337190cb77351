package refdata

import (
	"context"
	"sync"
	"time"

	"github.com/yegors/flightrecon/internal/config"
	"github.com/yegors/flightrecon/pkg/logger"
)

// Fetcher loads one reference list
type Fetcher interface {
	Fetch(ctx context.Context, kind Kind) (any, error)
}

type entry struct {
	data      any
	expiresAt time.Time
}

// Cache keeps fetched reference lists until they expire
type Cache struct {
	fetcher Fetcher
	expiry  time.Duration
	entries map[Kind]entry
	now     func() time.Time
	logger  *logger.Logger
	mu      sync.RWMutex
}

// NewCache creates a reference data cache in front of a fetcher
func NewCache(fetcher Fetcher, cfg config.ReferenceConfig, log *logger.Logger) *Cache {
	return &Cache{
		fetcher: fetcher,
		expiry:  time.Duration(cfg.CacheExpiryMinutes) * time.Minute,
		entries: make(map[Kind]entry),
		now:     time.Now,
		logger:  log.Named("refdata-cache"),
	}
}

// Get returns the cached list, fetching it when absent or expired.
// A failed refresh is returned as an error; the stale entry is not served.
func (c *Cache) Get(ctx context.Context, kind Kind) (any, error) {
	c.mu.RLock()
	e, ok := c.entries[kind]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return e.data, nil
	}

	data, err := c.fetcher.Fetch(ctx, kind)
	if err != nil {
		return nil, err
	}

	now := c.now()
	c.mu.Lock()
	c.entries[kind] = entry{data: data, expiresAt: now.Add(c.expiry)}
	c.mu.Unlock()

	c.logger.Debug("Reference data cached",
		logger.String("kind", string(kind)),
		logger.Time("expires_at", now.Add(c.expiry)))
	return data, nil
}

// IsExpired reports whether a list needs refetching
func (c *Cache) IsExpired(kind Kind) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[kind]
	return !ok || !c.now().Before(e.expiresAt)
}

// Invalidate drops every cached list
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Kind]entry)
}
