package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/spam-verdict/internal/core"
	"go.uber.org/zap"
)

// MemoryCache is an in-memory implementation of core.CacheRepository
type MemoryCache struct {
	entries     map[string]core.CacheEntry
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

// NewMemoryCache creates a new in-memory cache. A positive cleanupFreq starts
// a background sweep of expired entries.
func NewMemoryCache(logger *zap.Logger, cleanupFreq time.Duration) *MemoryCache {
	cache := &MemoryCache{
		entries:     make(map[string]core.CacheEntry),
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	if cleanupFreq > 0 {
		go runCleanup(cache, cleanupFreq, cache.stopCh, logger)
	}

	return cache
}

// Get retrieves a live entry
func (c *MemoryCache) Get(ctx context.Context, fingerprint string) (*core.CacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[fingerprint]
	if !ok || !c.now().Before(entry.ExpiresAt) {
		return nil, core.ErrCacheMiss
	}

	return &entry, nil
}

// Set stores a cache entry
func (c *MemoryCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.Fingerprint] = *entry
	return nil
}

// Delete removes a cache entry
func (c *MemoryCache) Delete(ctx context.Context, fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, fingerprint)
	return nil
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expiredCount := 0
	for key, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
			expiredCount++
		}
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	return nil
}

// Len returns the number of stored entries, expired or not
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
