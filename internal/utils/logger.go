// Package utils provides logging and CSV helpers for the matchmaking engine.
package utils

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger instance. It discards output until InitLogger runs.
var Logger = zap.NewNop()

var initialized bool

// InitLogger builds the global logger at the given level. Unknown levels fall
// back to info. Inside Lambda the output is JSON on stdout; locally it is the
// colored console encoder.
func InitLogger(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); fn != "" {
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stdout"}
		cfg.InitialFields = map[string]interface{}{"function": fn}
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	Logger = logger.Named("matchmaking")
	initialized = true
	return nil
}

// GetLogger returns the global logger, initializing it at info level on first use.
func GetLogger() *zap.Logger {
	if !initialized {
		_ = InitLogger("info")
	}
	return Logger
}

// Sync flushes buffered entries.
func Sync() {
	if initialized {
		_ = Logger.Sync()
	}
}

// Field constructors re-exported for entry points that only import utils.
var (
	String = zap.String
	Int    = zap.Int
	Error  = zap.Error
)
