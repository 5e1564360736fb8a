package logging

import (
	"context"
	"log/slog"

	"corpuskit/internal/services"
)

// Shared structured logging field names.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldTask      = "task"
	FieldPart      = "part"
	FieldClip      = "clip"
	FieldManifest  = "manifest"
	FieldCount     = "count"
	FieldDuration  = "duration"
)

// ContextFields extracts run metadata from ctx as logging attributes.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var attrs []Attr
	if runID, ok := services.RunIDFromContext(ctx); ok && runID != "" {
		attrs = append(attrs, String(FieldRunID, runID))
	}
	if task, ok := services.TaskFromContext(ctx); ok && task != "" {
		attrs = append(attrs, String(FieldTask, task))
	}
	return attrs
}

// WithContext returns a child logger carrying run metadata from ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return nil
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return logger.With(args...)
}
