package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/genstudio/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const httpTracerName = "genstudio/http"

// GinMiddleware opens one server span per request. Generation routes are
// tagged with the media kind and the caller's auth type once handlers ran;
// quota and rate-limit denials are marked on the span without failing it.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(httpTracerName)
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+strings.ToUpper(c.Request.Method), trace.WithSpanKind(trace.SpanKindServer))
		ctx = withRequestBaggage(ctx, span)

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		finishServerSpan(c, span, time.Since(start))
	}
}

func withRequestBaggage(ctx context.Context, span trace.Span) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		return ctx
	}
	span.SetAttributes(attribute.String("request_id", requestID))

	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}

func finishServerSpan(c *gin.Context, span trace.Span, elapsed time.Duration) {
	defer span.End()

	route := c.FullPath()
	if route == "" {
		route = "unknown"
	}
	status := c.Writer.Status()
	span.SetName("HTTP " + strings.ToUpper(c.Request.Method) + " " + route)

	attrs := []attribute.KeyValue{
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
		attribute.Int64("http.server_duration_ms", elapsed.Milliseconds()),
	}
	if kind := strings.TrimSpace(c.GetString("media_kind")); kind != "" {
		attrs = append(attrs, attribute.String("genstudio.media_kind", kind))
	}
	if authType := strings.TrimSpace(c.GetString("auth_type")); authType != "" {
		attrs = append(attrs, attribute.String("genstudio.auth_type", authType))
	}
	switch status {
	case http.StatusForbidden:
		attrs = append(attrs, attribute.String("genstudio.denied", "quota"))
	case http.StatusTooManyRequests:
		attrs = append(attrs, attribute.String("genstudio.denied", "rate_limit"))
	}
	span.SetAttributes(SafeAttributes(attrs...)...)

	if status < http.StatusInternalServerError {
		return
	}
	if lastErr := c.Errors.Last(); lastErr != nil {
		if safeErr := SafeError(lastErr.Err); safeErr != nil {
			span.RecordError(safeErr)
		}
	}
	span.SetStatus(codes.Error, "request error")
}
