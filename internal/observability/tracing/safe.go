package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// Attributes that may carry user-authored or financial content.
var forbiddenAttributeKeys = map[attribute.Key]struct{}{
	"message":      {},
	"response":     {},
	"instruction":  {},
	"email":        {},
	"http.request": {},
	"http.body":    {},
}

// SafeAttributes drops attributes that could leak personal data into traces.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, forbidden := forbiddenAttributeKeys[attr.Key]; forbidden {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError strips the error chain down to its outermost message so wrapped
// provider bodies are not exported.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	type safe interface{ SafeMessage() string }
	var s safe
	if errors.As(err, &s) {
		return errors.New(s.SafeMessage())
	}
	return errors.New(err.Error())
}

// ExtractContext pulls propagated trace context from the carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
