package services

import "context"

type contextKey string

const (
	jobIDKey contextKey = "job_id"
	titleKey contextKey = "title"
	stepKey  contextKey = "step"
)

// WithJobID annotates context with the queue job identifier.
func WithJobID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the queue job identifier if present.
func JobIDFromContext(ctx context.Context) (int64, bool) {
	switch v := ctx.Value(jobIDKey).(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// WithTitle annotates context with the DVD title number being processed.
func WithTitle(ctx context.Context, title int) context.Context {
	if title <= 0 {
		return ctx
	}
	return context.WithValue(ctx, titleKey, title)
}

// TitleFromContext returns the title number if present.
func TitleFromContext(ctx context.Context) (int, bool) {
	if v, ok := ctx.Value(titleKey).(int); ok && v > 0 {
		return v, true
	}
	return 0, false
}

// WithStep annotates context with the pipeline step name.
func WithStep(ctx context.Context, step string) context.Context {
	if step == "" {
		return ctx
	}
	return context.WithValue(ctx, stepKey, step)
}

// StepFromContext returns the step name if present.
func StepFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stepKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
