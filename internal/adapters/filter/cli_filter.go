package filter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/features"
	"github.com/mikey/spam-verdict/internal/utils"
	"go.uber.org/zap"
)

// CliFilter implements a command-line interface for spam detection
type CliFilter struct {
	service *core.ClassifierService
	logger  *zap.Logger
	verbose bool
	out     io.Writer
}

// NewCliFilter creates a new CLI filter writing its report to stdout
func NewCliFilter(service *core.ClassifierService, logger *zap.Logger, verbose bool) (*CliFilter, error) {
	return &CliFilter{
		service: service,
		logger:  logger,
		verbose: verbose,
		out:     os.Stdout,
	}, nil
}

// SetOutput redirects the report
func (f *CliFilter) SetOutput(w io.Writer) {
	f.out = w
}

// ProcessEmail classifies an email and prints a report
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", email.From)
	fmt.Fprintf(f.out, "To: %s\n", strings.Join(email.To, ", "))
	fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.Body))

	if f.verbose {
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", utils.Preview(email.Body, 500))
	}

	fmt.Fprintf(f.out, "\n=== Analysis ===\n")
	startTime := time.Now()
	result, err := f.service.Classify(ctx, email)
	if err != nil {
		f.logger.Error("Failed to classify email", zap.Error(err))
		fmt.Fprintf(f.out, "Error: %v\n", err)
		return nil, err
	}
	duration := time.Since(startTime)

	fmt.Fprintf(f.out, "\n=== Features ===\n")
	values := result.Features.Map()
	for _, name := range features.FeatureNames() {
		fmt.Fprintf(f.out, "%s: %d\n", name, values[name])
	}

	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Verdict: %s\n", result.Verdict)
	fmt.Fprintf(f.out, "Spam score: %.4f\n", result.Score)
	fmt.Fprintf(f.out, "Confidence: %.4f\n", result.Confidence)
	fmt.Fprintf(f.out, "Explanation: %s\n", result.Explanation)
	fmt.Fprintf(f.out, "Model used: %s\n", result.ModelUsed)
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)

	return result, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
