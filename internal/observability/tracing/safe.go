package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// Prompts, asset URLs and tokens must never land on spans.
var forbiddenAttributeKeys = map[attribute.Key]struct{}{
	"prompt":        {},
	"asset_url":     {},
	"authorization": {},
	"api_key":       {},
	"raw_output":    {},
}

const maxErrorMessageLen = 256

// SafeAttributes drops attributes that may carry user content or secrets.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, forbidden := forbiddenAttributeKeys[attribute.Key(strings.ToLower(string(attr.Key)))]; forbidden {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

// SafeError returns a truncated copy of err suitable for span recording.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.TrimSpace(err.Error())
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return errors.New(msg)
}

// ExtractContext reads propagated trace headers into ctx.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
