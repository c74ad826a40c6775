// Package logger provides logging abstractions for tolcan.
// It supports standard library log/slog and allows custom logger implementations.
package logger

import "log/slog"

// Logger is the structured logging interface used throughout tolcan.
// Implementations receive a message followed by alternating key-value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoopLogger discards everything. It is the default when no logger is
// configured, keeping the disabled-logging path free of overhead.
type NoopLogger struct{}

// Debug does nothing.
func (NoopLogger) Debug(_ string, _ ...any) {}

// Info does nothing.
func (NoopLogger) Info(_ string, _ ...any) {}

// Warn does nothing.
func (NoopLogger) Warn(_ string, _ ...any) {}

// Error does nothing.
func (NoopLogger) Error(_ string, _ ...any) {}

// SlogAdapter implements Logger on top of a *slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps an slog.Logger. The logger must not be nil.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Debug logs at debug level.
func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }

// Info logs at info level.
func (a *SlogAdapter) Info(msg string, args ...any) { a.logger.Info(msg, args...) }

// Warn logs at warn level.
func (a *SlogAdapter) Warn(msg string, args ...any) { a.logger.Warn(msg, args...) }

// Error logs at error level.
func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
