package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type sessionCtxKey struct{}
type workerCtxKey struct{}
type requestCtxKey struct{}

// WithSessionID attaches a run's session ID to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sessionID)
}

// SessionIDFromContext extracts the session ID, or "" when absent.
func SessionIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sessionCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithWorker attaches the currently dispatched worker name to the context.
func WithWorker(ctx context.Context, worker string) context.Context {
	return context.WithValue(ctx, workerCtxKey{}, worker)
}

// WorkerFromContext extracts the worker name, or "" when absent.
func WorkerFromContext(ctx context.Context) string {
	if w, ok := ctx.Value(workerCtxKey{}).(string); ok {
		return w
	}
	return ""
}

// WithRequestID attaches an HTTP request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext extracts the request ID, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// ContextFields extracts correlation fields from the context: the
// active trace span, session ID, worker name, and request ID. Handlers
// pass these to the logger so entries from one run line up.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if sessionID := SessionIDFromContext(ctx); sessionID != "" {
		fields = append(fields, zap.String("session_id", sessionID))
	}
	if worker := WorkerFromContext(ctx); worker != "" {
		fields = append(fields, zap.String("worker", worker))
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}

	return fields
}
