package di

import (
	"flag"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/spam-verdict/internal/adapters/mailbox"
	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/factory"
	"github.com/mikey/spam-verdict/internal/logging"
	"github.com/mikey/spam-verdict/internal/ports"
)

// ScanFlags contains the command line flags of the mailbox scanner
type ScanFlags struct {
	ConfigFile string
	Provider   string
	Limit      int
	Verbose    bool
	JSONLog    bool
}

// ParseScanFlags parses the mailbox scanner flags
func ParseScanFlags() *ScanFlags {
	flags := &ScanFlags{}

	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file")
	flag.StringVar(&flags.Provider, "mailbox", "", "Mailbox provider (gmail, imap); overrides mailbox.provider")
	flag.IntVar(&flags.Limit, "limit", 0, "Number of recent messages to scan; overrides mailbox.limit")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")

	flag.Parse()
	return flags
}

// BuildScanContainer creates the container of the mailbox scanner
func BuildScanContainer(flags *ScanFlags) (*dig.Container, error) {
	container := dig.New()

	// Register logger
	if err := container.Provide(func() (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.NewFromFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if flags.Provider != "" {
			cfg.GetViper().Set("mailbox.provider", flags.Provider)
		}
		if flags.Limit > 0 {
			cfg.GetViper().Set("mailbox.limit", flags.Limit)
		}
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	if err := provideClassification(container); err != nil {
		return nil, err
	}
	if err := provideUncachedService(container); err != nil {
		return nil, err
	}

	// Register mail source and scanner
	if err := container.Provide(factory.NewMailSourceFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.MailSourceFactory) (ports.MailSource, error) {
		return f.CreateMailSource()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(source ports.MailSource, service *core.ClassifierService, logger *zap.Logger) *mailbox.Scanner {
		return mailbox.NewScanner(source, service, logger)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
