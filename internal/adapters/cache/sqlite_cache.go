package cache

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS verdict_cache (
		fingerprint TEXT PRIMARY KEY,
		label INTEGER NOT NULL,
		score REAL NOT NULL,
		model_used TEXT NOT NULL,
		last_seen TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_verdict_expires_at ON verdict_cache(expires_at)`,
}

const sqliteUpsert = `
	INSERT OR REPLACE INTO verdict_cache (fingerprint, label, score, model_used, last_seen, expires_at)
	VALUES (:fingerprint, :label, :score, :model_used, :last_seen, :expires_at)
`

// SQLiteCache is a SQLite implementation of core.CacheRepository
type SQLiteCache struct {
	*sqlCache
}

// NewSQLiteCache opens (or creates) the cache database at dbPath
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	cache, err := newSQLCache(db, logger, sqliteSchema, sqliteUpsert, cleanupFreq)
	if err != nil {
		return nil, err
	}

	logger.Info("Connected to SQLite cache", zap.String("file", dbPath))
	return &SQLiteCache{sqlCache: cache}, nil
}
