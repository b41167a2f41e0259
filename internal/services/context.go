package services

import "context"

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	matrixKey contextKey = "matrix"
)

// WithRunID annotates context with the identifier of a single pipeline invocation.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the invocation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithMatrix annotates context with a human-readable label for the input matrix
// (usually the source file name).
func WithMatrix(ctx context.Context, label string) context.Context {
	if label == "" {
		return ctx
	}
	return context.WithValue(ctx, matrixKey, label)
}

// MatrixFromContext returns the matrix label if present.
func MatrixFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(matrixKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
