package observability

import (
	"testing"

	"github.com/smallbiznis/genstudio/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "HTTP")

	cfg := LoadConfig(config.Config{AppName: "", Environment: "production", AppVersion: "1.2.3"})

	assert.Equal(t, "genstudio", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())
}

func TestDebugInDevelopment(t *testing.T) {
	assert.True(t, Config{Environment: "local"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "debug"}.Debug())
}

func TestSplitConfigSharesServiceIdentity(t *testing.T) {
	out := splitConfig(Config{
		ServiceName:          "genstudio",
		Environment:          "production",
		Version:              "1.2.3",
		LogLevel:             "warn",
		OtelEnabled:          true,
		OtelExporterEndpoint: "collector:4317",
		OtelExporterProtocol: "grpc",
		OtelSamplingRatio:    0.5,
	})

	assert.Equal(t, "warn", out.Logger.Level)
	assert.False(t, out.Logger.IncludeStackOnError)
	assert.Equal(t, "1.2.3", out.Tracing.ServiceVersion)
	assert.Equal(t, 0.5, out.Tracing.SamplingRatio)
	assert.True(t, out.Metrics.Enabled)
	assert.Equal(t, "collector:4317", out.Metrics.ExporterEndpoint)
}
