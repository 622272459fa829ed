package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger  = zap.NewNop()
	mu      sync.Mutex
	isSetup bool
)

// Options controls where and how verbosely the logger writes
type Options struct {
	Level   string // debug, info, warn, error
	LogFile string // JSON log file; empty keeps console output only
	Debug   bool   // forces debug level and mirrors file output to stderr
}

// SetupLogger initializes the package logger. Console output uses the zap
// development encoder; a log file gets JSON lines.
func SetupLogger(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	// Check if logger is already set up
	if isSetup {
		return nil
	}

	var cfg zap.Config
	if opts.LogFile != "" {
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{opts.LogFile}
		if opts.Debug {
			cfg.OutputPaths = append(cfg.OutputPaths, "stderr")
		}
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.DisableStacktrace = true
	}

	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}
	if opts.Debug {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	logger = l
	isSetup = true
	logger.Debug("logger started", zap.String("level", level.String()), zap.String("file", opts.LogFile))
	return nil
}

// CloseLogger flushes buffered entries and resets the logger to a no-op
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if isSetup {
		_ = logger.Sync()
		logger = zap.NewNop()
		isSetup = false
	}
}

// L returns the structured logger
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// LogInfo logs a formatted informational message
func LogInfo(format string, args ...interface{}) {
	L().Sugar().Infof(format, args...)
}

// DebugLog logs a formatted message at debug level
func DebugLog(format string, args ...interface{}) {
	L().Sugar().Debugf(format, args...)
}

// LogError logs a formatted error message
func LogError(format string, args ...interface{}) {
	L().Sugar().Errorf(format, args...)
}

// LogWarning logs a formatted warning message
func LogWarning(format string, args ...interface{}) {
	L().Sugar().Warnf(format, args...)
}

// LogFolderProcessed logs the outcome of one folder run
func LogFolderProcessed(folder string, success bool, err error) {
	if success {
		L().Info("folder processed", zap.String("folder", folder))
		return
	}
	L().Error("folder failed", zap.String("folder", folder), zap.Error(err))
}
