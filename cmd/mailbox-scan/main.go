package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/spam-verdict/internal/adapters/mailbox"
	"github.com/mikey/spam-verdict/internal/config"
	"github.com/mikey/spam-verdict/internal/di"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseScanFlags()

	container, err := di.BuildScanContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		// Provider and auth failures are printed verbatim
		fmt.Printf("An error occurred: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg *config.Config, scanner *mailbox.Scanner) error {
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := scanner.Scan(ctx, cfg.GetInt("mailbox.limit"))
	if err != nil {
		return err
	}

	mailbox.WriteReport(os.Stdout, results)
	return nil
}
