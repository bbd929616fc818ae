package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mikey/spam-verdict/internal/core"
	"go.uber.org/zap"
)

// verdictRow mirrors a row of the verdict_cache table
type verdictRow struct {
	Fingerprint string    `db:"fingerprint"`
	Label       int       `db:"label"`
	Score       float64   `db:"score"`
	ModelUsed   string    `db:"model_used"`
	LastSeen    time.Time `db:"last_seen"`
	ExpiresAt   time.Time `db:"expires_at"`
}

// sqlCache implements core.CacheRepository over any sqlx driver. The dialect
// only differs in the schema and the upsert statement.
type sqlCache struct {
	db          *sqlx.DB
	logger      *zap.Logger
	upsertQuery string
	stopCh      chan struct{}
	stopOnce    sync.Once
	now         func() time.Time
}

func newSQLCache(db *sqlx.DB, logger *zap.Logger, schema []string, upsertQuery string, cleanupFreq time.Duration) (*sqlCache, error) {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	cache := &sqlCache{
		db:          db,
		logger:      logger,
		upsertQuery: upsertQuery,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	if cleanupFreq > 0 {
		go runCleanup(cache, cleanupFreq, cache.stopCh, logger)
	}

	return cache, nil
}

// Get retrieves a live entry
func (c *sqlCache) Get(ctx context.Context, fingerprint string) (*core.CacheEntry, error) {
	var row verdictRow
	err := c.db.GetContext(ctx, &row, c.db.Rebind(`
		SELECT fingerprint, label, score, model_used, last_seen, expires_at
		FROM verdict_cache
		WHERE fingerprint = ? AND expires_at > ?
	`), fingerprint, c.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	return &core.CacheEntry{
		Fingerprint: row.Fingerprint,
		Label:       core.Label(row.Label),
		Score:       row.Score,
		ModelUsed:   row.ModelUsed,
		LastSeen:    row.LastSeen,
		ExpiresAt:   row.ExpiresAt,
	}, nil
}

// Set stores a cache entry, replacing any existing one
func (c *sqlCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	_, err := c.db.NamedExecContext(ctx, c.upsertQuery, verdictRow{
		Fingerprint: entry.Fingerprint,
		Label:       int(entry.Label),
		Score:       entry.Score,
		ModelUsed:   entry.ModelUsed,
		LastSeen:    entry.LastSeen.UTC(),
		ExpiresAt:   entry.ExpiresAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *sqlCache) Delete(ctx context.Context, fingerprint string) error {
	_, err := c.db.ExecContext(ctx, c.db.Rebind(`DELETE FROM verdict_cache WHERE fingerprint = ?`), fingerprint)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *sqlCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, c.db.Rebind(`DELETE FROM verdict_cache WHERE expires_at <= ?`), c.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (c *sqlCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close cache database", zap.Error(err))
		}
	})
}
