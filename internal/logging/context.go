package logging

import (
	"context"
	"log/slog"

	"hlsingest/internal/services"
)

// Standardized structured logging keys. FieldIdentity carries the
// deterministic item identity and FieldRunID correlates every line of one
// backlog run.
const (
	FieldComponent = "component"
	FieldIdentity  = "identity"
	FieldSourceURL = "source_url"
	FieldStage     = "stage"
	FieldRunID     = "run_id"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldErrorKind = "error_kind"
	FieldImpact    = "impact"
	FieldAlert     = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.IdentityFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldIdentity, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, rid))
	}
	if src, ok := services.SourceURLFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSourceURL, src))
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
