// Package reqctx carries the per-request identifiers that flow ambiently
// through a search: the trace id (for logs), the caller's session/user
// identifier as authenticated (hashed with identity.Hash by the consumers
// that use it for job ownership and push authorization), and the request id once
// a job exists. It replaces thread-local globals with values passed
// explicitly via context.Context, per the design note on async code paths.
package reqctx

import "context"

type contextKey string

const (
	keyTraceID      contextKey = "trace_id"
	keySessionHash  contextKey = "session_hash"
	keyUserHash     contextKey = "user_hash"
	keyRequestID    contextKey = "request_id"
)

// WithTraceID attaches a trace id to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, keyTraceID, traceID)
}

// TraceID extracts the trace id, if any.
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyTraceID).(string)
	return v, ok && v != ""
}

// WithSessionHash attaches the caller's session hash to ctx.
func WithSessionHash(ctx context.Context, sessionHash string) context.Context {
	return context.WithValue(ctx, keySessionHash, sessionHash)
}

// SessionHash extracts the session hash, if any.
func SessionHash(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keySessionHash).(string)
	return v, ok && v != ""
}

// WithUserHash attaches the caller's user hash to ctx.
func WithUserHash(ctx context.Context, userHash string) context.Context {
	return context.WithValue(ctx, keyUserHash, userHash)
}

// UserHash extracts the user hash, if any.
func UserHash(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyUserHash).(string)
	return v, ok && v != ""
}

// WithRequestID attaches the job's request id to ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID extracts the request id, if any.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok && v != ""
}
