package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies WARN and ERROR lines for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldRequestID is the standardized key for HTTP request identifiers.
	FieldRequestID = "request_id"
	// FieldGroup names the configuration group a line refers to.
	FieldGroup = "group"
	// FieldField is the dotted path of a configuration field.
	FieldField = "field"
	// FieldOldValue and FieldNewValue record a rewritten configuration value.
	FieldOldValue = "old_value"
	FieldNewValue = "new_value"
	// FieldSubscriberID identifies a change-stream subscriber.
	FieldSubscriberID = "subscriber_id"
	// FieldChecksum is the document checksum after a write.
	FieldChecksum = "checksum"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID annotates context with a request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, rid))
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
