package services

import "context"

type contextKey string

const (
	identityKey  contextKey = "identity"
	stageKey     contextKey = "stage"
	runIDKey     contextKey = "run_id"
	sourceURLKey contextKey = "source_url"
)

// WithIdentity annotates context with the work item identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	if identity == "" {
		return ctx
	}
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext extracts the work item identity if present.
func IdentityFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(identityKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRunID annotates context with the identifier of the current backlog run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSourceURL annotates context with the work item's source URL.
func WithSourceURL(ctx context.Context, url string) context.Context {
	if url == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceURLKey, url)
}

// SourceURLFromContext extracts the source URL if present.
func SourceURLFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sourceURLKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
