package context

import "context"

type ctxKey string

const (
	requestIDKey ctxKey = "obs_request_id"
	callerIDKey  ctxKey = "obs_caller_id"
	authTypeKey  ctxKey = "obs_auth_type"
)

// WithRequestID stores the inbound request identifier for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithCaller stores the resolved caller and how it authenticated.
func WithCaller(ctx context.Context, authType, callerID string) context.Context {
	if ctx == nil {
		return ctx
	}
	if callerID != "" {
		ctx = context.WithValue(ctx, callerIDKey, callerID)
	}
	if authType != "" {
		ctx = context.WithValue(ctx, authTypeKey, authType)
	}
	return ctx
}

func CallerFromContext(ctx context.Context) (string, string) {
	return stringValue(ctx, authTypeKey), stringValue(ctx, callerIDKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(key).(string); ok {
		return value
	}
	return ""
}
