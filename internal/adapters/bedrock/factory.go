package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/utils"
	"go.uber.org/zap"
)

// Factory creates Bedrock clients
type Factory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new Bedrock factory
func NewFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClient creates a new Bedrock client
func (f *Factory) CreateClient() (core.Classifier, error) {
	bedrockCfg := f.cfg.GetBedrock()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(bedrockCfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return NewBedrockClient(
		bedrockruntime.NewFromConfig(awsCfg),
		bedrockCfg.ModelName,
		bedrockCfg.MaxTokens,
		bedrockCfg.Temperature,
		bedrockCfg.TopP,
		bedrockCfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	), nil
}
