package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/factory"
	"github.com/mikey/spam-verdict/internal/features"
	"github.com/mikey/spam-verdict/internal/utils"
	"github.com/mikey/spam-verdict/internal/whitelist"
)

// provideClassification registers everything needed to build a
// ClassifierService except the cache and the service config, which differ per
// binary.
func provideClassification(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return err
	}

	// Register text processor and feature extractor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.TextProcessorFactory) *features.Extractor {
		return f.CreateExtractor()
	}); err != nil {
		return err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return err
	}

	// Register whitelist
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.SenderPolicy {
		domains := cfg.GetStringSlice("spam.whitelisted_domains")
		if len(domains) > 0 {
			logger.Info("Loaded whitelisted domains", zap.Strings("domains", domains))
		}
		return whitelist.NewChecker(domains, logger)
	}); err != nil {
		return err
	}

	// Register classifier service
	return container.Provide(core.NewClassifierService)
}

// provideUncachedService registers a disabled cache for one-shot binaries
func provideUncachedService(container *dig.Container) error {
	if err := container.Provide(func() core.CacheRepository {
		return nil
	}); err != nil {
		return err
	}
	return container.Provide(func(cfg *config.Config) core.ServiceConfig {
		return core.ServiceConfig{
			Threshold: cfg.GetFloat64("spam.threshold"),
		}
	})
}
