package openai

import (
	"fmt"

	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Factory creates new instances of OpenAIClient
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for OpenAIClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClient creates a new OpenAIClient
func (f *Factory) CreateClient() (core.Classifier, error) {
	openaiCfg := f.cfg.GetOpenAI()
	if openaiCfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	return NewOpenAIClient(
		openai.NewClient(openaiCfg.APIKey),
		openaiCfg.ModelName,
		openaiCfg.MaxTokens,
		openaiCfg.Temperature,
		openaiCfg.TopP,
		openaiCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
