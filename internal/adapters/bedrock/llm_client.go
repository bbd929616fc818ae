package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/spam-verdict/internal/adapters/llm"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/utils"
	"go.uber.org/zap"
)

// modelInvoker is the part of *bedrockruntime.Client the classifier uses
type modelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient is an implementation of core.Classifier using Amazon Bedrock
type BedrockClient struct {
	client        modelInvoker
	modelID       string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewBedrockClient creates a new Bedrock classifier
func NewBedrockClient(
	client modelInvoker,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *BedrockClient {
	return &BedrockClient{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Predict invokes the Bedrock model and parses its verdict
func (c *BedrockClient) Predict(ctx context.Context, sample *core.Sample) (*core.Prediction, error) {
	prompt := llm.BuildPrompt(sample, c.textProcessor, c.maxBodySize)

	payload, err := c.requestPayload(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	text, err := c.responseText(resp.Body)
	if err != nil {
		return nil, err
	}

	parsed, err := llm.ParseResponse(text)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Bedrock verdict received",
		zap.String("model", c.modelID),
		zap.Bool("is_spam", parsed.IsSpam))

	return parsed.ToPrediction(c.modelID, ""), nil
}

// requestPayload builds the model-family specific request body
func (c *BedrockClient) requestPayload(prompt string) ([]byte, error) {
	switch {
	case c.isAnthropicModel():
		return json.Marshal(map[string]interface{}{
			"prompt":               "\n\nHuman: " + prompt + "\n\nAssistant:",
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	case c.isAmazonTitanModel():
		return json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	default:
		return json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
}

// responseText extracts the generated text from the model-family specific response
func (c *BedrockClient) responseText(body []byte) (string, error) {
	switch {
	case c.isAnthropicModel():
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	case c.isAmazonTitanModel():
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	default:
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(body, &genericResp); err != nil {
			return string(body), nil
		}
		for _, candidate := range []string{genericResp.Output, genericResp.Text, genericResp.Response} {
			if candidate != "" {
				return candidate, nil
			}
		}
		return string(body), nil
	}
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *BedrockClient) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *BedrockClient) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
