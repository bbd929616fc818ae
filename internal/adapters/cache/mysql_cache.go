package cache

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS verdict_cache (
		fingerprint CHAR(64) PRIMARY KEY,
		label TINYINT NOT NULL,
		score DOUBLE NOT NULL,
		model_used VARCHAR(255) NOT NULL,
		last_seen DATETIME(6) NOT NULL,
		expires_at DATETIME(6) NOT NULL,
		INDEX idx_verdict_expires_at (expires_at)
	)`,
}

const mysqlUpsert = `
	INSERT INTO verdict_cache (fingerprint, label, score, model_used, last_seen, expires_at)
	VALUES (:fingerprint, :label, :score, :model_used, :last_seen, :expires_at)
	ON DUPLICATE KEY UPDATE
		label = VALUES(label),
		score = VALUES(score),
		model_used = VALUES(model_used),
		last_seen = VALUES(last_seen),
		expires_at = VALUES(expires_at)
`

// MySQLCache is a MySQL implementation of core.CacheRepository. The DSN must
// set parseTime=true so timestamps scan into time.Time.
type MySQLCache struct {
	*sqlCache
}

// NewMySQLCache connects to MySQL and ensures the cache table exists
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	cache, err := newSQLCache(db, logger, mysqlSchema, mysqlUpsert, cleanupFreq)
	if err != nil {
		return nil, err
	}

	return &MySQLCache{sqlCache: cache}, nil
}
