// Package logging defines the leveled logger used outside the document core
// and a go-logger backed provider for it.
package logging

import (
	"context"
	"maps"
)

// Logger is the leveled logging contract used by services and commands
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// FieldsLogger is implemented by loggers that carry structured fields
type FieldsLogger interface {
	WithFields(fields map[string]any) Logger
}

// LoggerProvider hands out named loggers
type LoggerProvider interface {
	GetLogger(name string) Logger
}

const RootModule = "vrdx"

// ModuleLogger returns the provider's logger for module tagged with a module
// field. A nil provider yields a no-op logger.
func ModuleLogger(provider LoggerProvider, module string) Logger {
	if module == "" {
		module = RootModule
	}
	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}
	return WithFields(logger, map[string]any{"module": module})
}

// WithFields attaches fields when logger supports them and returns it
// unchanged otherwise
func WithFields(logger Logger, fields map[string]any) Logger {
	if logger == nil || len(fields) == 0 {
		return logger
	}
	if fl, ok := logger.(FieldsLogger); ok {
		return fl.WithFields(maps.Clone(fields))
	}
	return logger
}

// NoOp returns a logger that drops every entry
func NoOp() Logger {
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) Logger { return n }
func (n noopLogger) WithContext(context.Context) Logger { return n }
