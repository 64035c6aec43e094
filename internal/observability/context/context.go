package context

import (
	stdcontext "context"
	"strings"

	"github.com/smallbiznis/fincoach/internal/ownercontext"
)

type requestIDKey struct{}

// WithRequestID stores the inbound request identifier.
func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request identifier or "".
func RequestIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDKey{}).(string); ok {
		return value
	}
	return ""
}

// UserIDFromContext returns the authenticated user ID as a string or "".
func UserIDFromContext(ctx stdcontext.Context) string {
	id, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return ""
	}
	return id.String()
}
