package openai

import (
	"context"
	"fmt"

	"github.com/mikey/spam-verdict/internal/adapters/llm"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// chatCompleter is the part of *openai.Client the classifier uses
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient is an implementation of core.Classifier using OpenAI chat models
type OpenAIClient struct {
	client        chatCompleter
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewOpenAIClient creates a new OpenAI classifier
func NewOpenAIClient(
	client chatCompleter,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Predict asks the chat model for a verdict
func (c *OpenAIClient) Predict(ctx context.Context, sample *core.Sample) (*core.Prediction, error) {
	prompt := llm.BuildPrompt(sample, c.textProcessor, c.maxBodySize)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: llm.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	parsed, err := llm.ParseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("OpenAI verdict received",
		zap.String("model", c.modelName),
		zap.String("processing_id", resp.ID),
		zap.Bool("is_spam", parsed.IsSpam))

	return parsed.ToPrediction(c.modelName, resp.ID), nil
}
