package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/features"
	"github.com/mikey/spam-verdict/internal/mailparse"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix is used when subject rewriting is enabled without a prefix
const DefaultSubjectPrefix = "[SPAM] "

// PostfixFilter implements a Postfix content filter
type PostfixFilter struct {
	service  *core.ClassifierService
	logger   *zap.Logger
	cfg      config.PostfixConfig
	server   *smtp.Server
	listener net.Listener
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(service *core.ClassifierService, logger *zap.Logger, cfg config.PostfixConfig) *PostfixFilter {
	if cfg.SubjectPrefix == "" && cfg.ModifySubject {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if cfg.ClassifyTimeout <= 0 {
		cfg.ClassifyTimeout = 30 * time.Second
	}

	return &PostfixFilter{
		service: service,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50

	ln, err := net.Listen("tcp", f.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.cfg.ListenAddress, err)
	}
	f.listener = ln

	f.logger.Info("Postfix filter started", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound listen address once started
func (f *PostfixFilter) Addr() net.Addr {
	if f.listener == nil {
		return nil
	}
	return f.listener.Addr()
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail classifies an email without touching SMTP
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.ClassificationResult, error) {
	return f.service.Classify(ctx, email)
}

// verdictHeaders renders the headers prepended to a filtered message
func (f *PostfixFilter) verdictHeaders(result *core.ClassificationResult, analysisErr error) []headerField {
	fields := []headerField{
		{f.cfg.SpamHeader, fmt.Sprintf("%t", result.IsSpam())},
		{f.cfg.ScoreHeader, fmt.Sprintf("%.4f", result.Score)},
		{f.cfg.VerdictHeader, string(result.Verdict)},
		{f.cfg.FeaturesHeader, formatFeatures(result.Features)},
	}
	if analysisErr != nil {
		fields = append(fields, headerField{"X-Spam-Analysis-Error", headerValue(analysisErr.Error())})
	}
	return fields
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// headerValue flattens text onto a single header line
func headerValue(text string) string {
	return lineBreaks.Replace(text)
}

// reinject sends the processed email back to Postfix
func (f *PostfixFilter) reinject(sender string, recipients []string, data []byte) error {
	addr := net.JoinHostPort(f.cfg.ReinjectAddress, fmt.Sprintf("%d", f.cfg.ReinjectPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		accepted = true
	}
	if !accepted {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// handleMessage classifies a raw message and returns the rewritten bytes
func (f *PostfixFilter) handleMessage(ctx context.Context, sender string, recipients []string, raw []byte) ([]byte, *core.ClassificationResult, error) {
	email, err := mailparse.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, err
	}
	if sender != "" {
		email.From = sender
	}
	if len(recipients) > 0 {
		email.To = recipients
	}

	result, analysisErr := f.service.Classify(ctx, email)
	if analysisErr != nil {
		f.logger.Error("Failed to classify email",
			zap.Error(analysisErr),
			zap.String("sender", email.From))

		// Deliver unmarked rather than lose mail
		result = &core.ClassificationResult{
			Verdict:     core.VerdictHam,
			Label:       core.LabelHam,
			Explanation: fmt.Sprintf("Error during analysis: %v", analysisErr),
			Features:    f.service.ExtractFeatures(email),
			AnalyzedAt:  time.Now(),
			ModelUsed:   "error",
		}
	}

	if result.IsSpam() && f.cfg.BlockSpam && analysisErr == nil {
		f.logger.Info("Rejecting spam email",
			zap.String("from", email.From),
			zap.Float64("score", result.Score),
			zap.String("model", result.ModelUsed))
		return nil, result, &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as spam (score: %.2f)", result.Score),
		}
	}

	subject := ""
	if result.IsSpam() && f.cfg.ModifySubject {
		if !strings.HasPrefix(email.Subject, f.cfg.SubjectPrefix) {
			subject = f.cfg.SubjectPrefix + email.Subject
		}
	}

	return rewriteMessage(raw, f.verdictHeaders(result, analysisErr), subject), result, nil
}

type headerField struct {
	key   string
	value string
}

func formatFeatures(feats features.Features) string {
	values := feats.Map()
	parts := make([]string, 0, len(values))
	for _, name := range features.FeatureNames() {
		parts = append(parts, fmt.Sprintf("%s=%d", name, values[name]))
	}
	return strings.Join(parts, " ")
}

// rewriteMessage prepends added, drops incoming fields with the same keys and
// replaces the Subject when subject is non-empty. Field order and the body
// are preserved byte for byte.
func rewriteMessage(raw []byte, added []headerField, subject string) []byte {
	header, body := splitMessage(raw)

	drop := make(map[string]bool, len(added))
	for _, h := range added {
		drop[strings.ToLower(h.key)] = true
	}

	var out bytes.Buffer
	for _, h := range added {
		fmt.Fprintf(&out, "%s: %s\r\n", h.key, h.value)
	}

	encodedSubject := mime.QEncoding.Encode("utf-8", subject)
	subjectWritten := false
	for _, field := range splitFields(header) {
		key := strings.ToLower(strings.TrimSpace(string(field[:max(bytes.IndexByte(field, ':'), 0)])))
		switch {
		case drop[key]:
			continue
		case key == "subject" && subject != "":
			fmt.Fprintf(&out, "Subject: %s\r\n", encodedSubject)
			subjectWritten = true
		default:
			out.Write(field)
		}
	}
	if subject != "" && !subjectWritten {
		fmt.Fprintf(&out, "Subject: %s\r\n", encodedSubject)
	}

	out.Write(body)
	return out.Bytes()
}

// splitMessage cuts raw into the header block and the remainder, which starts
// with the blank separator line.
func splitMessage(raw []byte) ([]byte, []byte) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i+2], raw[i+2:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i+1], raw[i+1:]
	}
	return raw, []byte("\r\n")
}

// splitFields groups header lines with their folded continuations
func splitFields(header []byte) [][]byte {
	var fields [][]byte
	for len(header) > 0 {
		end := bytes.IndexByte(header, '\n')
		if end < 0 {
			end = len(header) - 1
		}
		line := header[:end+1]
		header = header[end+1:]

		if (line[0] == ' ' || line[0] == '\t') && len(fields) > 0 {
			last := fields[len(fields)-1]
			fields[len(fields)-1] = append(last[:len(last):len(last)], line...)
			continue
		}
		fields = append(fields, line)
	}
	return fields
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data classifies the message and hands it back to Postfix
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.filter.cfg.ClassifyTimeout)
	defer cancel()

	rewritten, result, err := s.filter.handleMessage(ctx, s.sender, s.recipients, raw)
	if err != nil {
		var smtpErr *smtp.SMTPError
		if !errors.As(err, &smtpErr) {
			s.filter.logger.Error("Failed to process message", zap.Error(err))
		}
		return err
	}

	if s.filter.cfg.ReinjectEnabled {
		if err := s.filter.reinject(s.sender, s.recipients, rewritten); err != nil {
			s.filter.logger.Error("Failed to send email back to Postfix",
				zap.Error(err),
				zap.String("sender", s.sender))
			return err
		}
	} else {
		s.filter.logger.Warn("Postfix reinjection disabled, message not delivered")
	}

	s.filter.logger.Info("Processed email",
		zap.String("from", s.sender),
		zap.String("verdict", string(result.Verdict)),
		zap.Float64("score", result.Score),
		zap.String("model", result.ModelUsed))

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
