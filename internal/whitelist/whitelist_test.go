package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIsWhitelisted(t *testing.T) {
	c := NewChecker([]string{" Example.COM ", "", "trusted.org"}, zap.NewNop())

	tests := []struct {
		from string
		want bool
	}{
		{"alice@example.com", true},
		{"ALICE@EXAMPLE.COM", true},
		{"Alice <alice@example.com>", true},
		{"bob@trusted.org", true},
		{"bob@sub.trusted.org", false},
		{"mallory@evil.com", false},
		{"no-at-sign", false},
		{"trailing@", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.IsWhitelisted(tt.from), "from %q", tt.from)
	}
}

func TestEmptyWhitelist(t *testing.T) {
	c := NewChecker(nil, nil)
	assert.False(t, c.IsWhitelisted("alice@example.com"))
}
