package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so call sites avoid importing log/slog directly.
type Attr = slog.Attr

// Value aliases slog.Value.
type Value = slog.Value

// Bool constructs a boolean attribute.
func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

// Duration constructs a duration attribute.
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Float64 constructs a float attribute.
func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

// Int constructs an int attribute.
func Int(key string, value int) Attr { return slog.Int(key, value) }

// Int64 constructs an int64 attribute.
func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

// String constructs a string attribute.
func String(key, value string) Attr { return slog.String(key, value) }

// Error wraps an error into the conventional "error" attribute. Nil errors
// produce an empty attribute that handlers skip.
func Error(err error) Attr {
	if err == nil {
		return Attr{}
	}
	return slog.String("error", err.Error())
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NoopHandler implements slog.Handler and drops all records.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }
func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler        { return NoopHandler{} }
func (NoopHandler) WithGroup(string) slog.Handler             { return NoopHandler{} }

// NewComponentLogger tags a child logger with a component attribute.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return nil
	}
	if component == "" {
		return logger
	}
	return logger.With(String(FieldComponent, component))
}
