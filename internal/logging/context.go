package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for run identifiers.
	FieldRunID = "run_id"
	// FieldModality is the standardized structured logging key for modality tags.
	FieldModality = "modality"
	// FieldSourceFile is the standardized structured logging key for the dataset-relative file path.
	FieldSourceFile = "source_file"
	// FieldOutcome is the standardized structured logging key for per-file outcomes.
	FieldOutcome = "outcome"
	// FieldEventType tags a log line with a machine-matchable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	modalityKey   contextKey = "modality"
	sourceFileKey contextKey = "source_file"
)

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, runIDKey)
}

// WithModality annotates context with the modality tag of the file in flight.
func WithModality(ctx context.Context, modality string) context.Context {
	if modality == "" {
		return ctx
	}
	return context.WithValue(ctx, modalityKey, modality)
}

// ModalityFromContext returns the modality tag if present.
func ModalityFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, modalityKey)
}

// WithSourceFile annotates context with the dataset-relative path of the file in flight.
func WithSourceFile(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceFileKey, path)
}

// SourceFileFromContext returns the source file if present.
func SourceFileFromContext(ctx context.Context) (string, bool) {
	return stringFromContext(ctx, sourceFileKey)
}

func stringFromContext(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if modality, ok := ModalityFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldModality, modality))
	}
	if path, ok := SourceFileFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSourceFile, path))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
