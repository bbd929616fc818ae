package mailbox

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/mailparse"
	"github.com/mikey/spam-verdict/internal/utils"
	"go.uber.org/zap"
)

// imapClient is the subset of the go-imap client used by IMAPSource
type imapClient interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Logout() error
}

// IMAPSource reads recent messages from an IMAP mailbox over TLS
type IMAPSource struct {
	cfg    config.IMAPConfig
	logger *zap.Logger
	dial   func(addr string) (imapClient, error)
}

// NewIMAPSource creates a new IMAP mail source
func NewIMAPSource(cfg config.IMAPConfig, logger *zap.Logger) *IMAPSource {
	return &IMAPSource{
		cfg:    cfg,
		logger: logger,
		dial: func(addr string) (imapClient, error) {
			c, err := client.DialTLS(addr, nil)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

// FetchRecent returns up to limit of the newest messages, newest first
func (s *IMAPSource) FetchRecent(ctx context.Context, limit int) ([]*core.Email, error) {
	if limit <= 0 {
		return []*core.Email{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := s.dial(s.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer func() {
		if err := c.Logout(); err != nil {
			s.logger.Debug("IMAP logout failed", zap.Error(err))
		}
	}()

	if err := c.Login(s.cfg.Username, s.cfg.Password); err != nil {
		return nil, fmt.Errorf("failed to log in to IMAP server: %w", err)
	}

	mbox, err := c.Select(s.cfg.Mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", s.cfg.Mailbox, err)
	}
	if mbox.Messages == 0 {
		return []*core.Email{}, nil
	}

	from := uint32(1)
	if mbox.Messages > uint32(limit) {
		from = mbox.Messages - uint32(limit) + 1
	}
	seqset := new(imap.SeqSet)
	seqset.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, limit)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	emails := make([]*core.Email, 0, limit)
	for msg := range messages {
		emails = append(emails, s.toEmail(msg, section))
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	// Sequence numbers ascend with age
	for i, j := 0, len(emails)-1; i < j; i, j = i+1, j-1 {
		emails[i], emails[j] = emails[j], emails[i]
	}

	s.logger.Debug("Fetched IMAP messages",
		zap.String("mailbox", s.cfg.Mailbox),
		zap.Int("count", len(emails)))

	return emails, nil
}

func (s *IMAPSource) toEmail(msg *imap.Message, section *imap.BodySectionName) *core.Email {
	email := &core.Email{}
	if body := msg.GetBody(section); body != nil {
		parsed, err := mailparse.Parse(body)
		if err != nil {
			s.logger.Warn("Failed to parse message body",
				zap.Uint32("seq_num", msg.SeqNum),
				zap.Error(err))
		} else {
			email = parsed
		}
	}

	if env := msg.Envelope; env != nil {
		if email.Subject == "" {
			email.Subject = mailparse.DecodeHeader(env.Subject)
		}
		if email.From == "" && len(env.From) > 0 {
			email.From = env.From[0].Address()
		}
		if email.MessageID == "" {
			email.MessageID = env.MessageId
		}
		if email.ReceivedAt.IsZero() {
			email.ReceivedAt = env.Date
		}
	}

	email.Body = utils.FirstRunes(email.Body, s.cfg.SnippetSize)
	return email
}
