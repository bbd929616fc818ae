package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/spam-verdict/internal/adapters/llm"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/utils"
	"go.uber.org/zap"
)

// contentGenerator is the part of *genai.GenerativeModel the classifier uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiClient is an implementation of core.Classifier using Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         contentGenerator
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiClient wraps a configured generative model. client may be nil when
// the caller owns its lifecycle.
func NewGeminiClient(
	client *genai.Client,
	model contentGenerator,
	modelName string,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *GeminiClient {
	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Predict asks Gemini for a verdict
func (c *GeminiClient) Predict(ctx context.Context, sample *core.Sample) (*core.Prediction, error) {
	prompt := llm.BuildPrompt(sample, c.textProcessor, c.maxBodySize)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	parsed, err := llm.ParseResponse(text)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Gemini verdict received",
		zap.String("model", c.modelName),
		zap.Bool("is_spam", parsed.IsSpam))

	return parsed.ToPrediction(c.modelName, ""), nil
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
