package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mikey/spam-verdict/internal/features"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance from the default search paths
func New() (*Config, error) {
	return NewFromFile("")
}

// NewFromFile creates a configuration instance. When path is empty the
// default locations are searched and a missing file is not an error.
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/spam-verdict/")
		v.AddConfigPath("$HOME/.spam-verdict")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("SPAM_VERDICT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Feature extraction
	v.SetDefault("features.keywords", features.DefaultKeywords)
	v.SetDefault("features.suspicious_domains", features.DefaultSuspiciousDomains)

	// Classifier
	v.SetDefault("classifier.provider", "linear")
	v.SetDefault("linear.bias", -3.0)
	v.SetDefault("linear.threshold", 0.5)
	v.SetDefault("linear.weights", map[string]interface{}{
		features.NumURLs:              0.5,
		features.NumSuspiciousDomains: 2.0,
		features.NumSpamKeywords:      1.0,
	})

	// Server
	v.SetDefault("server.filter_type", "http")
	v.SetDefault("cli.verbose", false)
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.max_request_bytes", 1<<20)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.smtp_listen_address", "0.0.0.0:10025")
	v.SetDefault("server.classify_timeout", "30s")
	v.SetDefault("server.block_spam", false)
	v.SetDefault("server.headers.spam", "X-Spam-Status")
	v.SetDefault("server.headers.score", "X-Spam-Score")
	v.SetDefault("server.headers.verdict", "X-Spam-Verdict")
	v.SetDefault("server.headers.features", "X-Spam-Features")
	v.SetDefault("server.postfix.address", "127.0.0.1")
	v.SetDefault("server.postfix.port", 10026)
	v.SetDefault("server.postfix.enabled", true)
	v.SetDefault("server.modify_subject", false)
	v.SetDefault("server.subject_prefix", "[SPAM] ")

	// Bedrock
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Gemini
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// OpenAI
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Spam
	v.SetDefault("spam.threshold", 0.0)
	v.SetDefault("spam.whitelisted_domains", []string{})

	// Cache
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/verdict_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/spam_verdict?parseTime=true")

	// Mailbox
	v.SetDefault("mailbox.provider", "gmail")
	v.SetDefault("mailbox.limit", 10)
	v.SetDefault("mailbox.gmail.credentials_file", "credentials.json")
	v.SetDefault("mailbox.gmail.token_file", "token.json")
	v.SetDefault("mailbox.gmail.user", "me")
	v.SetDefault("mailbox.gmail.query", "")
	v.SetDefault("mailbox.imap.address", "imap.gmail.com:993")
	v.SetDefault("mailbox.imap.username", "")
	v.SetDefault("mailbox.imap.password", "")
	v.SetDefault("mailbox.imap.mailbox", "INBOX")
	v.SetDefault("mailbox.imap.snippet_size", 200)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration parses a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
