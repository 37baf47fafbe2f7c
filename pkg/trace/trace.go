package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type contextKey string

const TraceIDKey contextKey = "trace_id"

// GenerateTraceID generates a new random trace ID.
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext extracts the trace_id from ctx, or "" when unset.
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

// WithContext attaches a trace_id to ctx.
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}
