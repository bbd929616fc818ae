package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/features"
	"github.com/mikey/spam-verdict/internal/utils"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	resp openai.ChatCompletionResponse
	err  error
	req  openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func newTestClient(fake *fakeCompleter) *OpenAIClient {
	logger := zap.NewNop()
	return NewOpenAIClient(fake, "gpt-4", 100, 0.1, 0.9, 1024, logger, utils.NewTextProcessor(logger))
}

func TestPredict(t *testing.T) {
	fake := &fakeCompleter{resp: openai.ChatCompletionResponse{
		ID: "chatcmpl-1",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: `{"is_spam": true, "score": 0.95, "confidence": 0.9, "explanation": "prize scam"}`}},
		},
	}}
	client := newTestClient(fake)

	p, err := client.Predict(context.Background(), &core.Sample{
		Features: features.Features{NumURLs: 1},
		Email:    &core.Email{Subject: "You won", Body: "claim at http://bit.ly/x"},
	})
	require.NoError(t, err)

	assert.Equal(t, core.LabelSpam, p.Label)
	assert.Equal(t, 0.95, p.Score)
	assert.Equal(t, "gpt-4", p.ModelUsed)
	assert.Equal(t, "chatcmpl-1", p.ProcessingID)

	require.Len(t, fake.req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, fake.req.Messages[0].Role)
	assert.Contains(t, fake.req.Messages[1].Content, "Subject: You won")
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, fake.req.ResponseFormat.Type)
}

func TestPredictErrors(t *testing.T) {
	client := newTestClient(&fakeCompleter{err: errors.New("rate limited")})
	_, err := client.Predict(context.Background(), &core.Sample{})
	assert.ErrorContains(t, err, "rate limited")

	client = newTestClient(&fakeCompleter{})
	_, err = client.Predict(context.Background(), &core.Sample{})
	assert.ErrorContains(t, err, "empty response")

	client = newTestClient(&fakeCompleter{resp: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "not json"}}},
	}})
	_, err = client.Predict(context.Background(), &core.Sample{})
	assert.Error(t, err)
}
