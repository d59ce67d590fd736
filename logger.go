package appcore

import (
	"log/slog"
)

// Logger defines the interface for core logging.
// The orchestration core uses structured logging with key-value pairs so
// implementing applications can control how core logs appear.
//
// The Logger interface uses variadic arguments in key-value pairs:
//
//	logger.Info("message", "key1", "value1", "key2", "value2")
//
// This approach is compatible with popular structured logging libraries
// like slog, logrus, zap, and others.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	// Used for normal lifecycle events like module initialization.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	// Used for failures that are isolated rather than fatal, such as a
	// single module failing to initialize.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	// Used for detailed diagnostics like resolved initialization order.
	Debug(msg string, args ...any)
}

// SlogLogger adapts a *slog.Logger to the core Logger interface.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps the given slog logger. A nil argument wraps
// slog.Default().
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
