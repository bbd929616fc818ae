package di

import (
	"flag"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/factory"
	"github.com/mikey/spam-verdict/internal/logging"
	"github.com/mikey/spam-verdict/internal/ports"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Classifier flags
	Provider    string
	MaxTokens   int
	Temperature float64
	TopP        float64
	MaxBodySize int

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string

	// Feature flags
	Keywords          string
	SuspiciousDomains string

	// Spam detection flags
	SpamThreshold float64
	Whitelist     string

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	return parseFlags(flag.CommandLine, nil)
}

func parseFlags(fs *flag.FlagSet, args []string) *CLIFlags {
	flags := &CLIFlags{}

	// Classifier flags
	fs.StringVar(&flags.Provider, "provider", "linear", "Classifier (linear, bedrock, gemini, openai)")
	fs.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for LLM response")
	fs.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for LLM generation")
	fs.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for LLM generation")
	fs.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum email body size to send to LLM")

	// Bedrock flags
	fs.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	fs.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	fs.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	fs.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	fs.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	fs.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4", "OpenAI model name")

	// Feature flags
	fs.StringVar(&flags.Keywords, "keywords", "", "Comma-separated spam keywords (defaults if empty)")
	fs.StringVar(&flags.SuspiciousDomains, "suspicious-domains", "", "Comma-separated suspicious domains (defaults if empty)")

	// Spam detection flags
	fs.Float64Var(&flags.SpamThreshold, "threshold", 0, "Score threshold overriding the classifier label (0 keeps it)")
	fs.StringVar(&flags.Whitelist, "whitelist", "", "Comma-separated list of whitelisted domains")

	// Input flags
	fs.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	if fs == flag.CommandLine {
		flag.Parse()
	} else {
		_ = fs.Parse(args)
	}
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			cfg.GetViper().Set("server.filter_type", "cli")
			cfg.GetViper().Set("cli.verbose", flags.Verbose)
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideClassification(container); err != nil {
		return nil, err
	}
	if err := provideUncachedService(container); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set some cli specific settings
	v.Set("server.filter_type", "cli")
	v.Set("cli.verbose", flags.Verbose)

	v.Set("classifier.provider", flags.Provider)

	// Set provider-specific configuration
	switch flags.Provider {
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
		v.Set("bedrock.max_body_size", flags.MaxBodySize)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
		v.Set("gemini.max_body_size", flags.MaxBodySize)
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
		v.Set("openai.max_body_size", flags.MaxBodySize)
	}

	if list := splitList(flags.Keywords); len(list) > 0 {
		v.Set("features.keywords", list)
	}
	if list := splitList(flags.SuspiciousDomains); len(list) > 0 {
		v.Set("features.suspicious_domains", list)
	}

	v.Set("spam.threshold", flags.SpamThreshold)
	v.Set("spam.whitelisted_domains", splitList(flags.Whitelist))

	return config.NewFromViper(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
