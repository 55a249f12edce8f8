package services

import "context"

type contextKey int

const (
	candidateIDKey contextKey = iota
	stageKey
	requestIDKey
)

// WithCandidateID attaches a candidate identifier to the context.
func WithCandidateID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, candidateIDKey, id)
}

// CandidateIDFromContext extracts the candidate identifier, if any.
func CandidateIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(candidateIDKey).(string)
	return id, ok && id != ""
}

// WithStage attaches a pipeline stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext extracts the pipeline stage name, if any.
func StageFromContext(ctx context.Context) (string, bool) {
	stage, ok := ctx.Value(stageKey).(string)
	return stage, ok && stage != ""
}

// WithRequestID attaches a correlation identifier to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}
