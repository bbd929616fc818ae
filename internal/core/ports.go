package core

import (
	"context"
)

// Classifier is the narrow predict capability the service depends on.
// Implementations may be a hand-built model over the feature vector or an
// opaque remote model.
type Classifier interface {
	// Predict labels a single sample
	Predict(ctx context.Context, sample *Sample) (*Prediction, error)
}

// CacheRepository defines the interface for caching verdicts by content fingerprint
type CacheRepository interface {
	// Get retrieves a live entry, or ErrCacheMiss
	Get(ctx context.Context, fingerprint string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, fingerprint string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
