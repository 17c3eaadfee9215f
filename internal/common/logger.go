// Package common holds the logging plumbing shared by the runtime, the program
// and the command line.
package common

import "log/slog"

// LoggerMixin gives a type a replaceable logger that falls back to slog.Default.
type LoggerMixin struct {
	Logger *slog.Logger
}

// NewLoggerMixin creates a mixin tagged with component.
func NewLoggerMixin(logger *slog.Logger, component string) LoggerMixin {
	return LoggerMixin{Logger: Component(logger, component)}
}

// SetLogger replaces the logger. nil is ignored.
func (l *LoggerMixin) SetLogger(logger *slog.Logger) {
	if logger != nil {
		l.Logger = logger
	}
}

// GetLogger returns the logger.
func (l *LoggerMixin) GetLogger() *slog.Logger {
	if l.Logger == nil {
		l.Logger = slog.Default()
	}
	return l.Logger
}

// Component returns logger, or the default logger, tagged with component.
func Component(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", component)
}
