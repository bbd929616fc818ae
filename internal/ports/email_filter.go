package ports

import (
	"context"

	"github.com/mikey/spam-verdict/internal/core"
)

// EmailFilter is a front-end that feeds emails into the classifier service
type EmailFilter interface {
	// ProcessEmail classifies an email and returns the result
	ProcessEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error)

	// Start starts the front-end
	Start() error

	// Stop stops the front-end
	Stop() error
}
