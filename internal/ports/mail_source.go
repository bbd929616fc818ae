package ports

import (
	"context"

	"github.com/mikey/spam-verdict/internal/core"
)

// MailSource fetches recent messages from a mail provider. Implementations are
// read-only.
type MailSource interface {
	// FetchRecent returns up to limit of the newest messages, newest first
	FetchRecent(ctx context.Context, limit int) ([]*core.Email, error)
}
