package common

import "context"

// ContextKey represents a context key type
type ContextKey string

// Context keys
const (
	ContextKeyUID       ContextKey = "uid"
	ContextKeyRequestID ContextKey = "request_id"
)

// WithUID adds the authenticated user id to the context
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ContextKeyUID, uid)
}

// GetUID extracts the authenticated user id from the context
func GetUID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(ContextKeyUID).(string)
	return uid, ok
}

// WithRequestID adds the request id to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID extracts the request id from the context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}
