package config

import (
	"fmt"
	"time"

	"github.com/mikey/spam-verdict/internal/features"
	"github.com/spf13/cast"
)

// ClassifierConfig selects the classifier implementation
type ClassifierConfig struct {
	Provider string
}

// LinearConfig represents the configuration of the logistic feature model
type LinearConfig struct {
	Weights   map[string]float64
	Bias      float64
	Threshold float64
}

// LLMConfig is shared by the remote model providers
type LLMConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	LLMConfig
	Region string
}

// HTTPConfig represents the HTTP API configuration
type HTTPConfig struct {
	ListenAddress   string
	MaxRequestBytes int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// PostfixConfig represents the SMTP content filter configuration
type PostfixConfig struct {
	ListenAddress   string
	ClassifyTimeout time.Duration
	BlockSpam       bool
	SpamHeader      string
	ScoreHeader     string
	VerdictHeader   string
	FeaturesHeader  string
	ReinjectAddress string
	ReinjectPort    int
	ReinjectEnabled bool
	ModifySubject   bool
	SubjectPrefix   string
}

// GmailConfig configures the Gmail mail source
type GmailConfig struct {
	CredentialsFile string
	TokenFile       string
	User            string
	Query           string
}

// IMAPConfig configures the IMAP mail source
type IMAPConfig struct {
	Address     string
	Username    string
	Password    string
	Mailbox     string
	SnippetSize int
}

// GetFeatures returns the feature extractor lists
func (c *Config) GetFeatures() features.Config {
	return features.Config{
		Keywords:          c.GetStringSlice("features.keywords"),
		SuspiciousDomains: c.GetStringSlice("features.suspicious_domains"),
	}
}

// GetClassifier returns the classifier selection
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Provider: c.GetString("classifier.provider"),
	}
}

// GetLinear returns the logistic model configuration
func (c *Config) GetLinear() (LinearConfig, error) {
	raw := c.v.GetStringMap("linear.weights")
	weights := make(map[string]float64, len(raw))
	for name, value := range raw {
		w, err := cast.ToFloat64E(value)
		if err != nil {
			return LinearConfig{}, fmt.Errorf("invalid weight for %s: %w", name, err)
		}
		weights[name] = w
	}

	return LinearConfig{
		Weights:   weights,
		Bias:      c.GetFloat64("linear.bias"),
		Threshold: c.GetFloat64("linear.threshold"),
	}, nil
}

func (c *Config) getLLM(prefix string) LLMConfig {
	return LLMConfig{
		APIKey:      c.GetString(prefix + ".api_key"),
		ModelName:   c.GetString(prefix + ".model_name"),
		MaxTokens:   c.GetInt(prefix + ".max_tokens"),
		Temperature: float32(c.GetFloat64(prefix + ".temperature")),
		TopP:        float32(c.GetFloat64(prefix + ".top_p")),
		MaxBodySize: c.GetInt(prefix + ".max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	cfg := BedrockConfig{
		LLMConfig: c.getLLM("bedrock"),
		Region:    c.GetString("bedrock.region"),
	}
	cfg.ModelName = c.GetString("bedrock.model_id")
	return cfg
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() LLMConfig {
	return c.getLLM("gemini")
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() LLMConfig {
	return c.getLLM("openai")
}

// GetHTTP returns the HTTP API configuration
func (c *Config) GetHTTP() (HTTPConfig, error) {
	readTimeout, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return HTTPConfig{}, err
	}
	writeTimeout, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return HTTPConfig{}, err
	}
	return HTTPConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		MaxRequestBytes: c.GetInt64("server.max_request_bytes"),
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
	}, nil
}

// GetPostfix returns the SMTP content filter configuration
func (c *Config) GetPostfix() (PostfixConfig, error) {
	timeout, err := c.GetDuration("server.classify_timeout")
	if err != nil {
		return PostfixConfig{}, err
	}
	return PostfixConfig{
		ListenAddress:   c.GetString("server.smtp_listen_address"),
		ClassifyTimeout: timeout,
		BlockSpam:       c.GetBool("server.block_spam"),
		SpamHeader:      c.GetString("server.headers.spam"),
		ScoreHeader:     c.GetString("server.headers.score"),
		VerdictHeader:   c.GetString("server.headers.verdict"),
		FeaturesHeader:  c.GetString("server.headers.features"),
		ReinjectAddress: c.GetString("server.postfix.address"),
		ReinjectPort:    c.GetInt("server.postfix.port"),
		ReinjectEnabled: c.GetBool("server.postfix.enabled"),
		ModifySubject:   c.GetBool("server.modify_subject"),
		SubjectPrefix:   c.GetString("server.subject_prefix"),
	}, nil
}

// GetGmail returns the Gmail mail source configuration
func (c *Config) GetGmail() GmailConfig {
	return GmailConfig{
		CredentialsFile: c.GetString("mailbox.gmail.credentials_file"),
		TokenFile:       c.GetString("mailbox.gmail.token_file"),
		User:            c.GetString("mailbox.gmail.user"),
		Query:           c.GetString("mailbox.gmail.query"),
	}
}

// GetIMAP returns the IMAP mail source configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Address:     c.GetString("mailbox.imap.address"),
		Username:    c.GetString("mailbox.imap.username"),
		Password:    c.GetString("mailbox.imap.password"),
		Mailbox:     c.GetString("mailbox.imap.mailbox"),
		SnippetSize: c.GetInt("mailbox.imap.snippet_size"),
	}
}
