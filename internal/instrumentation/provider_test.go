package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.NotNil(t, provider.Metrics(), "disabled provider still hands out a recorder")
	assert.NotNil(t, provider.Tracer("test"))
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name    string
		metrics string
		tracing string
	}{
		{name: "prometheus without tracing", metrics: ExporterPrometheus, tracing: ExporterNone},
		{name: "prometheus with stdout spans", metrics: ExporterPrometheus, tracing: ExporterStdout},
		{name: "stdout metrics", metrics: ExporterStdout, tracing: ExporterNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			provider, err := NewProvider(ctx, Config{
				ServiceName:       "test-service",
				ServiceVersion:    "1.0.0",
				Enabled:           true,
				MetricsExporter:   tt.metrics,
				TracingExporter:   tt.tracing,
				TraceSamplingRate: 1.0,
			})
			require.NoError(t, err)

			assert.True(t, provider.Enabled())
			assert.NotNil(t, provider.Metrics())
			assert.NotNil(t, provider.Tracer("test"))
			assert.NoError(t, provider.Shutdown(ctx))
		})
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{
			name:   "otlp metrics without endpoint",
			config: Config{Enabled: true, MetricsExporter: ExporterOTLP},
		},
		{
			name:   "unknown tracing exporter",
			config: Config{Enabled: true, MetricsExporter: ExporterPrometheus, TracingExporter: "zipkin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			assert.Error(t, err)
		})
	}
}

func TestServiceResource(t *testing.T) {
	res, err := serviceResource(context.Background(), Config{
		ServiceName:       "inboxtriage",
		ServiceVersion:    "1.2.3",
		ServiceInstanceID: "worker-1",
	})
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "inboxtriage", attrs[string(semconv.ServiceNameKey)])
	assert.Equal(t, "1.2.3", attrs[string(semconv.ServiceVersionKey)])
	assert.Equal(t, "worker-1", attrs[string(semconv.ServiceInstanceIDKey)])
}
