package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mikey/spam-verdict/internal/adapters/cache"
	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates cache repositories based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateCacheRepository creates a cache repository based on the configuration.
// It returns nil when caching is disabled.
func (f *CacheFactory) CreateCacheRepository() (core.CacheRepository, error) {
	if !f.IsCacheEnabled() {
		return nil, nil
	}

	cacheType := f.cfg.GetString("cache.type")
	cleanupFreq, err := f.cfg.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return nil, err
	}

	switch cacheType {
	case "memory":
		return cache.NewMemoryCache(f.logger, cleanupFreq), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("cache.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return cache.NewSQLiteCache(sqlitePath, f.logger, cleanupFreq)
	case "mysql":
		return cache.NewMySQLCache(f.cfg.GetString("cache.mysql_dsn"), f.logger, cleanupFreq)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheType)
	}
}

// GetCacheTTL returns the configured cache TTL
func (f *CacheFactory) GetCacheTTL() (time.Duration, error) {
	return f.cfg.GetDuration("cache.ttl")
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetBool("cache.enabled")
}
