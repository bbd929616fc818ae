package cache

import (
	"context"
	"time"

	"github.com/mikey/spam-verdict/internal/core"
	"go.uber.org/zap"
)

// runCleanup calls repo.Cleanup every freq until stopCh is closed
func runCleanup(repo core.CacheRepository, freq time.Duration, stopCh <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := repo.Cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}
