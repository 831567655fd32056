package menu

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a loaded menu is served before it is refreshed.
const DefaultCacheTTL = 5 * time.Minute

// Cache serves a menu from memory and refreshes it after the TTL. When a
// refresh fails the last good menu is kept.
type Cache struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu       sync.Mutex
	menu     Menu
	loaded   bool
	loadedAt time.Time
}

// NewCache wraps loader. A non-positive ttl uses DefaultCacheTTL.
func NewCache(loader Loader, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{loader: loader, ttl: ttl, now: time.Now, logger: logger}
}

// Load returns the cached menu, refreshing it when it is stale.
func (c *Cache) Load(ctx context.Context) (Menu, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded && c.now().Sub(c.loadedAt) < c.ttl {
		return c.menu, nil
	}

	m, err := c.loader.Load(ctx)
	if err != nil {
		if c.loaded {
			c.logger.Warn("menu refresh failed, serving cached menu", "error", err, "age", c.now().Sub(c.loadedAt))
			return c.menu, nil
		}
		return Menu{}, err
	}

	c.menu = m
	c.loaded = true
	c.loadedAt = c.now()
	return m, nil
}
