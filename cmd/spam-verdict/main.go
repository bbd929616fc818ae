package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/di"
	"github.com/mikey/spam-verdict/internal/ports"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (searches default locations if empty)")
	flag.Parse()

	// Build the dependency injection container
	container, err := di.BuildContainer(*configFile)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	emailFilter ports.EmailFilter,
	classifier core.Classifier,
	cacheRepo core.CacheRepository,
) error {
	defer logger.Sync()

	if err := emailFilter.Start(); err != nil {
		logger.Error("Failed to start filter", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := emailFilter.Stop(); err != nil {
		logger.Error("Failed to stop filter", zap.Error(err))
	}

	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}

	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
