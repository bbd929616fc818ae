package logging

import (
	"fmt"
	"strings"

	"github.com/mikey/spam-verdict/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a configured level name to a zap level, defaulting to info
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger initializes a logger based on configuration
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	return build(ParseLevel(cfg.GetString("logging.level")), cfg.GetString("logging.format") == "json")
}

// InitConsoleLogger initializes a console-friendly logger for the CLI tools
func InitConsoleLogger(verbose bool, jsonFormat bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return build(level, jsonFormat)
}

func build(level zapcore.Level, jsonFormat bool) (*zap.Logger, error) {
	var logConfig zap.Config
	if jsonFormat {
		logConfig = zap.NewProductionConfig()
	} else {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}
