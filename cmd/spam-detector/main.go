package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/di"
	"github.com/mikey/spam-verdict/internal/mailparse"
	"github.com/mikey/spam-verdict/internal/ports"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(func(
		logger *zap.Logger,
		emailFilter ports.EmailFilter,
		classifier core.Classifier,
	) error {
		return run(flags, logger, emailFilter, classifier)
	}); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(flags *di.CLIFlags, logger *zap.Logger, emailFilter ports.EmailFilter, classifier core.Classifier) error {
	defer logger.Sync()

	if closer, ok := classifier.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close classifier", zap.Error(err))
			}
		}()
	}

	var emailReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	email, err := mailparse.Parse(emailReader)
	if err != nil {
		return err
	}

	_, err = emailFilter.ProcessEmail(context.Background(), email)
	return err
}
