// Package logger holds the process-wide zap logger shared by every
// component. Init must run once at startup before Log is used.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the shared logger. It is nil until Init succeeds.
var Log *zap.Logger

// Init builds the global logger. With a log file set, production JSON
// output goes to the file and stdout; without one, the development
// console encoder is used. Unknown levels fall back to info.
func Init(level string, logFile string) error {
	var config zap.Config

	if logFile != "" {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{logFile, "stdout"}
	} else {
		config = zap.NewDevelopmentConfig()
	}

	switch level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	built, err := config.Build()
	if err != nil {
		return err
	}

	Log = built
	return nil
}

// Sync flushes any buffered entries. Safe to call before Init.
func Sync() error {
	if Log == nil {
		return nil
	}
	return Log.Sync()
}
