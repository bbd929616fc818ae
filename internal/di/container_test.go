package di

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/spam-verdict/internal/adapters/filter"
	"github.com/mikey/spam-verdict/internal/adapters/httpapi"
	"github.com/mikey/spam-verdict/internal/adapters/mailbox"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsDefaults(t *testing.T) {
	flags := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-keywords", "free, offer,,", "-threshold", "0.8"})

	assert.Equal(t, "linear", flags.Provider)
	assert.Equal(t, "free, offer,,", flags.Keywords)
	assert.Equal(t, 0.8, flags.SpamThreshold)
}

func TestCreateConfigFromFlags(t *testing.T) {
	flags := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), []string{
		"-provider", "openai",
		"-openai-model", "gpt-4o",
		"-keywords", "free, offer,,",
		"-verbose",
	})

	cfg := createConfigFromFlags(flags)
	assert.Equal(t, "cli", cfg.GetString("server.filter_type"))
	assert.True(t, cfg.GetBool("cli.verbose"))
	assert.Equal(t, "openai", cfg.GetClassifier().Provider)
	assert.Equal(t, "gpt-4o", cfg.GetOpenAI().ModelName)
	assert.Equal(t, []string{"free", "offer"}, cfg.GetFeatures().Keywords)
	assert.NotEmpty(t, cfg.GetFeatures().SuspiciousDomains)
}

func TestBuildCLIContainer(t *testing.T) {
	flags := parseFlags(flag.NewFlagSet("test", flag.ContinueOnError), nil)

	container, err := BuildCLIContainer(flags)
	require.NoError(t, err)

	err = container.Invoke(func(service *core.ClassifierService, f ports.EmailFilter) {
		assert.NotNil(t, service)
		assert.IsType(t, &filter.CliFilter{}, f)
	})
	require.NoError(t, err)
}

func TestBuildContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  filter_type: http
  listen_address: 127.0.0.1:0
cache:
  enabled: true
  type: memory
  cleanup_frequency: 0s
spam:
  whitelisted_domains: [example.com]
logging:
  level: error
`), 0o600))

	container, err := BuildContainer(path)
	require.NoError(t, err)

	err = container.Invoke(func(cfg core.ServiceConfig, cache core.CacheRepository, f ports.EmailFilter) {
		assert.True(t, cfg.CacheEnabled)
		assert.NotNil(t, cache)
		assert.IsType(t, &httpapi.Server{}, f)
	})
	require.NoError(t, err)
}

func TestBuildScanContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mailbox:\n  provider: gmail\n"), 0o600))

	container, err := BuildScanContainer(&ScanFlags{ConfigFile: path, Provider: "imap", Limit: 3})
	require.NoError(t, err)

	err = container.Invoke(func(source ports.MailSource, scanner *mailbox.Scanner) {
		assert.IsType(t, &mailbox.IMAPSource{}, source)
		assert.NotNil(t, scanner)
	})
	require.NoError(t, err)
}
