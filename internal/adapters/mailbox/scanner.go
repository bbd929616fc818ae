// Package mailbox fetches recent messages from a remote mailbox and runs them
// through the classifier.
package mailbox

import (
	"context"
	"fmt"
	"io"

	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/ports"
	"go.uber.org/zap"
)

// ScanResult is the outcome for one fetched message
type ScanResult struct {
	Email  *core.Email
	Result *core.ClassificationResult
	Err    error
}

// Scanner classifies the newest messages of a mail source
type Scanner struct {
	source  ports.MailSource
	service *core.ClassifierService
	logger  *zap.Logger
}

// NewScanner creates a new Scanner
func NewScanner(source ports.MailSource, service *core.ClassifierService, logger *zap.Logger) *Scanner {
	return &Scanner{
		source:  source,
		service: service,
		logger:  logger,
	}
}

// Scan fetches up to limit messages and classifies each. Source failures are
// returned as is; per-message classifier failures land on their ScanResult.
func (s *Scanner) Scan(ctx context.Context, limit int) ([]ScanResult, error) {
	emails, err := s.source.FetchRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	batch := s.service.ClassifyBatch(ctx, emails)
	results := make([]ScanResult, len(batch))
	spam := 0
	for i, b := range batch {
		results[i] = ScanResult{Email: b.Email, Result: b.Result, Err: b.Err}
		if b.Err == nil && b.Result.IsSpam() {
			spam++
		}
	}

	s.logger.Info("Mailbox scan complete",
		zap.Int("scanned", len(results)),
		zap.Int("spam", spam))

	return results, nil
}

// WriteReport prints one block per result
func WriteReport(w io.Writer, results []ScanResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No messages found.")
		return
	}
	for _, r := range results {
		fmt.Fprintf(w, "Subject: %s\n", r.Email.Subject)
		if r.Err != nil {
			fmt.Fprintf(w, "Error: %v\n\n", r.Err)
			continue
		}
		fmt.Fprintf(w, "Prediction: %s (score %.4f)\n\n", r.Result.Verdict, r.Result.Score)
	}
}
