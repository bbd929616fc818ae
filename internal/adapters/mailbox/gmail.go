package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/core"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSource reads recent messages through the Gmail API with read-only scope
type GmailSource struct {
	cfg     config.GmailConfig
	logger  *zap.Logger
	service *gmail.Service
}

// NewGmailSource creates a Gmail source that authenticates on first use
func NewGmailSource(cfg config.GmailConfig, logger *zap.Logger) *GmailSource {
	return &GmailSource{
		cfg:    cfg,
		logger: logger,
	}
}

// NewGmailSourceWithService creates a Gmail source around an existing API client
func NewGmailSourceWithService(svc *gmail.Service, cfg config.GmailConfig, logger *zap.Logger) *GmailSource {
	return &GmailSource{
		cfg:     cfg,
		logger:  logger,
		service: svc,
	}
}

// connect builds the API client from stored OAuth2 credentials
func (s *GmailSource) connect(ctx context.Context) (*gmail.Service, error) {
	if s.service != nil {
		return s.service, nil
	}

	b, err := os.ReadFile(s.cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client credentials: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client credentials: %w", err)
	}

	tok, err := tokenFromFile(s.cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth token: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client: %w", err)
	}

	s.service = svc
	return svc, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// FetchRecent returns up to limit of the newest messages using their snippets
// as body text
func (s *GmailSource) FetchRecent(ctx context.Context, limit int) ([]*core.Email, error) {
	if limit <= 0 {
		return []*core.Email{}, nil
	}

	svc, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	call := svc.Users.Messages.List(s.cfg.User).MaxResults(int64(limit)).Context(ctx)
	if s.cfg.Query != "" {
		call = call.Q(s.cfg.Query)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	emails := make([]*core.Email, 0, len(resp.Messages))
	for _, ref := range resp.Messages {
		msg, err := svc.Users.Messages.Get(s.cfg.User, ref.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to get message %s: %w", ref.Id, err)
		}
		emails = append(emails, gmailToEmail(msg))
	}

	s.logger.Debug("Fetched Gmail messages",
		zap.String("user", s.cfg.User),
		zap.Int("count", len(emails)))

	return emails, nil
}

func gmailToEmail(msg *gmail.Message) *core.Email {
	email := &core.Email{
		MessageID: msg.Id,
		Body:      html.UnescapeString(msg.Snippet),
		Headers:   make(map[string][]string),
	}
	if msg.InternalDate > 0 {
		email.ReceivedAt = time.UnixMilli(msg.InternalDate)
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			email.Headers[h.Name] = append(email.Headers[h.Name], h.Value)
			switch {
			case strings.EqualFold(h.Name, "Subject") && email.Subject == "":
				email.Subject = h.Value
			case strings.EqualFold(h.Name, "From") && email.From == "":
				email.From = h.Value
			}
		}
	}

	return email
}
