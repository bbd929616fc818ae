// Package llm holds the prompt and response handling shared by the remote
// model classifiers.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/utils"
)

// SystemPrompt is sent as the system role where the provider supports one
const SystemPrompt = "You are a spam detection system. Respond only with JSON."

const promptFormat = `You are a spam detection system. Analyze the following email and determine if it's spam.
Respond with a JSON object containing:
- is_spam: boolean (true if spam, false if not)
- score: number between 0 and 1 (higher means more likely to be spam)
- confidence: number between 0 and 1 (how confident you are in your assessment)
- explanation: string (brief explanation of why you think it's spam or not)

Signals already extracted from the text:
- URLs: %d
- URLs on link-shortener domains: %d
- spam keywords present: %d

Email:
From: %s
To: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// Response is the JSON object the models are asked to return
type Response struct {
	IsSpam      bool    `json:"is_spam"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// BuildPrompt renders the classification prompt for a sample. The body is
// truncated to maxBodySize bytes and sanitized.
func BuildPrompt(sample *core.Sample, tp *utils.TextProcessor, maxBodySize int) string {
	var from, to, subject, body string
	if sample.Email != nil {
		from = sample.Email.From
		to = summarizeRecipients(sample.Email.To)
		subject = sample.Email.Subject
		body = sample.Email.Body
	} else {
		body = sample.Text
	}

	f := sample.Features
	return fmt.Sprintf(promptFormat,
		f.NumURLs, f.NumSuspiciousDomains, f.NumSpamKeywords,
		from, to, tp.SanitizeUTF8(subject), tp.ProcessText(body, maxBodySize))
}

func summarizeRecipients(to []string) string {
	if len(to) == 0 {
		return ""
	}
	if len(to) == 1 {
		return to[0]
	}
	return fmt.Sprintf("%s and %d others", to[0], len(to)-1)
}

// ParseResponse decodes the model output. Text around the outermost JSON
// object is ignored.
func ParseResponse(text string) (*Response, error) {
	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err == nil {
		return &resp, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("failed to extract JSON from LLM response")
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return &resp, nil
}

// ToPrediction converts a parsed response into a core prediction
func (r *Response) ToPrediction(model, processingID string) *core.Prediction {
	return &core.Prediction{
		Label:        core.LabelFromBool(r.IsSpam),
		Score:        r.Score,
		Confidence:   r.Confidence,
		Explanation:  r.Explanation,
		ModelUsed:    model,
		ProcessingID: processingID,
	}
}
