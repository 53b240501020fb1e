package logging

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConsoleLoggerConfig holds configuration for console logging
type ConsoleLoggerConfig struct {
	// Level is the minimum log level
	Level Level
	// JSON selects the production JSON encoder instead of the development one
	JSON bool
	// OutputPath is "stderr", "stdout" or a file path (default stderr)
	OutputPath string
}

// ConsoleLogger implements Logger on top of zap
type ConsoleLogger struct {
	z *zap.Logger
}

// NewConsoleLogger builds a zap-backed logger writing to the console
func NewConsoleLogger(config ConsoleLoggerConfig) (*ConsoleLogger, error) {
	var zc zap.Config
	if config.JSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zc.DisableStacktrace = true
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel(config.Level))

	output := config.OutputPath
	if output == "" {
		output = "stderr"
	}
	zc.OutputPaths = []string{output}
	zc.ErrorOutputPaths = []string{"stderr"}

	z, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build console logger: %w", err)
	}
	return &ConsoleLogger{z: z}, nil
}

// NewConsoleLoggerFromZap wraps an existing zap logger
func NewConsoleLoggerFromZap(z *zap.Logger) *ConsoleLogger {
	return &ConsoleLogger{z: z}
}

// Debug logs a debug message
func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.z.Debug(msg, zapFields(fields)...)
}

// Info logs an info message
func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.z.Info(msg, zapFields(fields)...)
}

// Warn logs a warning message
func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.z.Warn(msg, zapFields(fields)...)
}

// Error logs an error message
func (l *ConsoleLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	zf := zapFields(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	l.z.Error(msg, zf...)
}

// WithFields returns a logger with additional fields
func (l *ConsoleLogger) WithFields(fields Fields) Logger {
	return &ConsoleLogger{z: l.z.With(zapFields(fields)...)}
}

// Close flushes buffered entries
func (l *ConsoleLogger) Close() error {
	// Sync on a terminal returns EINVAL on some platforms; nothing is lost.
	_ = l.z.Sync()
	return nil
}

func zapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func zapFields(fields Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	zf := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}
	return zf
}
