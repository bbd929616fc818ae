package di

import (
	"go.uber.org/dig"

	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/factory"
	"github.com/mikey/spam-verdict/internal/logging"
	"github.com/mikey/spam-verdict/internal/ports"
)

// BuildContainer creates the container of the long-running service. An empty
// configPath searches the default locations.
func BuildContainer(configPath string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.NewFromFile(configPath)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideClassification(container); err != nil {
		return nil, err
	}

	// Register cache
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}

	// Register service config
	if err := container.Provide(func(cfg *config.Config, f *factory.CacheFactory) (core.ServiceConfig, error) {
		ttl, err := f.GetCacheTTL()
		if err != nil {
			return core.ServiceConfig{}, err
		}
		return core.ServiceConfig{
			CacheEnabled: f.IsCacheEnabled(),
			CacheTTL:     ttl,
			Threshold:    cfg.GetFloat64("spam.threshold"),
		}, nil
	}); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}
