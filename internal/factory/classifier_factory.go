package factory

import (
	"fmt"

	"github.com/mikey/spam-verdict/internal/adapters/bedrock"
	"github.com/mikey/spam-verdict/internal/adapters/gemini"
	"github.com/mikey/spam-verdict/internal/adapters/linear"
	"github.com/mikey/spam-verdict/internal/adapters/openai"
	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/utils"
	"go.uber.org/zap"
)

// ClassifierFactory creates the configured classifier
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates a classifier based on classifier.provider
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	provider := f.cfg.GetClassifier().Provider
	f.logger.Info("Creating classifier", zap.String("provider", provider))

	switch provider {
	case "linear":
		linearCfg, err := f.cfg.GetLinear()
		if err != nil {
			return nil, err
		}
		return linear.NewClassifier(linearCfg.Weights, linearCfg.Bias, linearCfg.Threshold, f.logger)
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
	case "openai":
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClient()
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", provider)
	}
}
