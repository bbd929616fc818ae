package factory

import (
	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/features"
	"github.com/mikey/spam-verdict/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates the text handling components
type TextProcessorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreateExtractor creates the feature extractor from features.* settings
func (f *TextProcessorFactory) CreateExtractor() *features.Extractor {
	extractor := features.NewExtractor(f.cfg.GetFeatures())
	f.logger.Debug("Feature extractor ready",
		zap.Strings("keywords", extractor.Keywords()),
		zap.Strings("suspicious_domains", extractor.SuspiciousDomains()))
	return extractor
}
