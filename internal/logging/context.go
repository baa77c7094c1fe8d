package logging

import (
	"context"
	"log/slog"

	"imgconv/internal/services"
)

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the structured logging key for session item identifiers.
	FieldItemID = "item_id"
	// FieldStage is the structured logging key for workflow stage names.
	FieldStage = "stage"
	// FieldCorrelationID is the structured logging key for per-invocation correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType names the kind of event a line records.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for the reader of a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldProgressPercent carries batch progress as a percentage.
	FieldProgressPercent = "progress_percent"
)

// ContextFields turns the services scope on ctx into log attributes.
func ContextFields(ctx context.Context) []slog.Attr {
	scope := services.ScopeFromContext(ctx)
	var fields []slog.Attr
	if scope.ItemID > 0 {
		fields = append(fields, slog.Int64(FieldItemID, scope.ItemID))
	}
	if scope.Stage != "" {
		fields = append(fields, slog.String(FieldStage, scope.Stage))
	}
	if scope.RequestID != "" {
		fields = append(fields, slog.String(FieldCorrelationID, scope.RequestID))
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
	return logger.With(attrsToArgs(fields)...)
}
