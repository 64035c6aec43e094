// Package correlation carries the per-turn identifier that ties together the
// log lines, spans and stored messages of a single chat exchange.
package correlation

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AttributeKey is the span attribute that holds the turn id.
const AttributeKey = attribute.Key("fincoach.turn_id")

type turnKey struct{}

// NewTurnID returns a lexically sortable id stamped with now.
func NewTurnID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// TurnIDFromContext returns the turn id stored on ctx, or "".
func TurnIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(turnKey{}).(string); ok {
		return val
	}
	return ""
}

// WithTurnID stores id on ctx and tags the active span with it.
func WithTurnID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	trace.SpanFromContext(ctx).SetAttributes(AttributeKey.String(id))
	return context.WithValue(ctx, turnKey{}, id)
}

// EnsureTurnID reuses the id already on ctx or mints a new one.
func EnsureTurnID(ctx context.Context, now time.Time) (context.Context, string) {
	if id := TurnIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewTurnID(now)
	return WithTurnID(ctx, id), id
}

// Timestamp extracts the creation time encoded in a turn id.
func Timestamp(id string) (time.Time, bool) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()).UTC(), true
}
