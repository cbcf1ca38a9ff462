// Package logging adapts log/slog to the domain Logger interface.
package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/ochairo/releaser/internal/domain/interfaces"
)

// SlogLogger implements interfaces.Logger on top of a *slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// Options configures NewSlogLogger.
type Options struct {
	Verbose bool
	JSON    bool
}

// NewSlogLogger writes text (or JSON) records to w. Debug records are only
// emitted when Verbose is set.
func NewSlogLogger(w io.Writer, opts Options) *SlogLogger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return &SlogLogger{logger: slog.New(handler)}
}

// Wrap adapts an existing slog logger.
func Wrap(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: logger}
}

// Debug logs debug-level messages
func (l *SlogLogger) Debug(msg string, fields ...interfaces.Field) {
	l.log(slog.LevelDebug, msg, fields)
}

// Info logs informational messages
func (l *SlogLogger) Info(msg string, fields ...interfaces.Field) {
	l.log(slog.LevelInfo, msg, fields)
}

// Warn logs warning messages
func (l *SlogLogger) Warn(msg string, fields ...interfaces.Field) {
	l.log(slog.LevelWarn, msg, fields)
}

// Error logs error messages
func (l *SlogLogger) Error(msg string, fields ...interfaces.Field) {
	l.log(slog.LevelError, msg, fields)
}

func (l *SlogLogger) log(level slog.Level, msg string, fields []interfaces.Field) {
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			attrs = append(attrs, slog.String(f.Key, err.Error()))
			continue
		}
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}
