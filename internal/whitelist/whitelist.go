package whitelist

import (
	"net/mail"
	"strings"

	"go.uber.org/zap"
)

// Checker decides whether a sender's domain bypasses classification
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make(map[string]struct{}, len(domains))
	list := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if _, ok := normalized[domain]; !ok {
			list = append(list, domain)
		}
		normalized[domain] = struct{}{}
	}

	if len(list) > 0 && logger != nil {
		logger.Info("Initialized whitelist checker", zap.Strings("domains", list))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// senderDomain extracts the lower-cased domain from a bare address or a
// "Name <addr>" header value
func senderDomain(from string) string {
	addr := strings.TrimSpace(from)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.Trim(addr[at+1:], "> "))
}

// IsWhitelisted checks if the sender's domain is in the whitelist
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	domain := senderDomain(from)
	if domain == "" {
		return false
	}

	if _, ok := c.domains[domain]; !ok {
		return false
	}

	if c.logger != nil {
		c.logger.Debug("Domain is whitelisted",
			zap.String("domain", domain),
			zap.String("email", from))
	}
	return true
}
