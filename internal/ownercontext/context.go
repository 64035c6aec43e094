package ownercontext

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// OwnerContextKey is the request context key for the authenticated user ID.
type OwnerContextKey struct{}

// WithUserID stores the authenticated user ID in the context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, OwnerContextKey{}, userID)
}

// UserIDFromContext returns the authenticated user ID, if set.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}

	switch typed := ctx.Value(OwnerContextKey{}).(type) {
	case uuid.UUID:
		return typed, typed != uuid.Nil
	case string:
		parsed, err := uuid.Parse(strings.TrimSpace(typed))
		if err == nil && parsed != uuid.Nil {
			return parsed, true
		}
	}
	return uuid.Nil, false
}
