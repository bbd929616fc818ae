package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeModel struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func respond(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func newTestClient(model *fakeModel) *GeminiClient {
	logger := zap.NewNop()
	return NewGeminiClient(nil, model, "gemini-pro", 512, logger, utils.NewTextProcessor(logger))
}

func TestPredict(t *testing.T) {
	model := &fakeModel{resp: respond(
		genai.Text(`{"is_spam": false, "score": 0.05,`),
		genai.Text(` "confidence": 0.7, "explanation": "newsletter"}`),
	)}
	client := newTestClient(model)

	p, err := client.Predict(context.Background(), &core.Sample{Email: &core.Email{Subject: "Weekly digest"}})
	require.NoError(t, err)

	assert.Equal(t, core.LabelHam, p.Label)
	assert.Equal(t, 0.05, p.Score)
	assert.Equal(t, "newsletter", p.Explanation)
	assert.Equal(t, "gemini-pro", p.ModelUsed)

	require.Len(t, model.parts, 1)
	assert.Contains(t, string(model.parts[0].(genai.Text)), "Subject: Weekly digest")
	assert.NoError(t, client.Close())
}

func TestPredictErrors(t *testing.T) {
	_, err := newTestClient(&fakeModel{err: errors.New("quota")}).Predict(context.Background(), &core.Sample{})
	assert.ErrorContains(t, err, "quota")

	_, err = newTestClient(&fakeModel{resp: &genai.GenerateContentResponse{}}).Predict(context.Background(), &core.Sample{})
	assert.ErrorContains(t, err, "empty response")
}
