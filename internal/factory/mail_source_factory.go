package factory

import (
	"fmt"

	"github.com/mikey/spam-verdict/internal/adapters/mailbox"
	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/ports"
	"go.uber.org/zap"
)

// MailSourceFactory creates mail sources based on configuration
type MailSourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewMailSourceFactory creates a new mail source factory
func NewMailSourceFactory(cfg *config.Config, logger *zap.Logger) *MailSourceFactory {
	return &MailSourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateMailSource creates a mail source based on mailbox.provider
func (f *MailSourceFactory) CreateMailSource() (ports.MailSource, error) {
	provider := f.cfg.GetString("mailbox.provider")

	switch provider {
	case "gmail":
		return mailbox.NewGmailSource(f.cfg.GetGmail(), f.logger), nil
	case "imap":
		return mailbox.NewIMAPSource(f.cfg.GetIMAP(), f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported mailbox provider: %s", provider)
	}
}
