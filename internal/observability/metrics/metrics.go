package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	generationRequests metric.Int64Counter
	providerFailures   metric.Int64Counter
	fallbackAttempts   metric.Int64Counter
	usageIncrements    metric.Int64Counter
	quotaDenied        metric.Int64Counter
	rateLimitAllowed   metric.Int64Counter
	rateLimitDenied    metric.Int64Counter
	providerLatency    metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "genstudio"
	}
	meter := provider.Meter(name)

	generationRequests, err := meter.Int64Counter("genstudio_generation_requests_total")
	if err != nil {
		return nil, err
	}
	providerFailures, err := meter.Int64Counter("genstudio_provider_failures_total")
	if err != nil {
		return nil, err
	}
	fallbackAttempts, err := meter.Int64Counter("genstudio_generation_fallback_total")
	if err != nil {
		return nil, err
	}
	usageIncrements, err := meter.Int64Counter("genstudio_usage_increments_total")
	if err != nil {
		return nil, err
	}
	quotaDenied, err := meter.Int64Counter("genstudio_quota_denied_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("genstudio_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("genstudio_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}
	providerLatency, err := meter.Float64Histogram("genstudio_provider_call_seconds", metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		generationRequests: generationRequests,
		providerFailures:   providerFailures,
		fallbackAttempts:   fallbackAttempts,
		usageIncrements:    usageIncrements,
		quotaDenied:        quotaDenied,
		rateLimitAllowed:   rateLimitAllowed,
		rateLimitDenied:    rateLimitDenied,
		providerLatency:    providerLatency,
	}, nil
}

// RecordGeneration counts a finished generation by media kind and outcome.
func (m *Metrics) RecordGeneration(ctx context.Context, mediaKind, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("media_kind", strings.TrimSpace(mediaKind)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.generationRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordProviderFailure counts provider call failures by classified kind.
func (m *Metrics) RecordProviderFailure(ctx context.Context, provider, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("error_kind", strings.TrimSpace(kind)),
	)
	m.providerFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordFallback(ctx context.Context, mediaKind, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("media_kind", strings.TrimSpace(mediaKind)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.fallbackAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordUsageIncrement(ctx context.Context, mediaKind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("media_kind", strings.TrimSpace(mediaKind)))
	m.usageIncrements.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordQuotaDenied(ctx context.Context, mediaKind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("media_kind", strings.TrimSpace(mediaKind)))
	m.quotaDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordProviderLatency observes the wall time of a single provider call.
func (m *Metrics) RecordProviderLatency(ctx context.Context, provider string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("provider", strings.TrimSpace(provider)))
	m.providerLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Caller ids and prompts never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"media_kind":  {},
	"outcome":     {},
	"provider":    {},
	"error_kind":  {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
