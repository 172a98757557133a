package observability

import (
	"context"
	"gatekeeper/internal/models"
	"gatekeeper/internal/version"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name          string
		metrics       bool
		tracing       bool
		expectTracer  bool
		expectMetrics bool
	}{
		{name: "metrics only", metrics: true, expectMetrics: true},
		{name: "tracing only", tracing: true, expectTracer: true},
		{name: "both enabled", metrics: true, tracing: true, expectTracer: true, expectMetrics: true},
		{name: "both disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := models.MetricsConfig{Enabled: tt.metrics, Path: "/metrics", Port: 9090}
			obs := models.ObservabilityConfig{
				ServiceName: "test-service",
				Tracing: models.TracingConfig{
					Enabled:    tt.tracing,
					Exporter:   "stdout",
					SampleRate: 1.0,
				},
			}

			provider, err := Setup(metrics, obs, version.Info{Version: "1.0.0"})
			require.NoError(t, err)
			require.NotNil(t, provider)
			assert.Equal(t, tt.expectTracer, provider.tracerProvider != nil)
			assert.Equal(t, tt.expectMetrics, provider.PrometheusExporter() != nil)

			assert.NoError(t, provider.Shutdown(context.Background()))
		})
	}
}

func TestSetup_DefaultServiceName(t *testing.T) {
	provider, err := Setup(models.MetricsConfig{}, models.ObservabilityConfig{}, version.GetInfo())
	require.NoError(t, err)
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSetup_InvalidExporter(t *testing.T) {
	obs := models.ObservabilityConfig{
		ServiceName: "test-service",
		Tracing: models.TracingConfig{
			Enabled:    true,
			Exporter:   "zipkin",
			SampleRate: 1.0,
		},
	}

	provider, err := Setup(models.MetricsConfig{}, obs, version.Info{})
	assert.Error(t, err)
	assert.Nil(t, provider)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestSetup_SamplerConfigurations(t *testing.T) {
	for _, rate := range []float64{1.0, 0.0, 0.25} {
		obs := models.ObservabilityConfig{
			ServiceName: "test",
			Tracing:     models.TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: rate},
		}

		provider, err := Setup(models.MetricsConfig{}, obs, version.Info{})
		require.NoError(t, err, "sample rate %v", rate)
		assert.NoError(t, provider.Shutdown(context.Background()))
	}
}

func TestProvider_ShutdownNilProviders(t *testing.T) {
	p := &Provider{}
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("DEPLOYMENT_ENV", "")
	assert.Equal(t, "development", getEnvironment())

	t.Setenv("DEPLOYMENT_ENV", "staging")
	assert.Equal(t, "staging", getEnvironment())

	t.Setenv("ENVIRONMENT", "production")
	assert.Equal(t, "production", getEnvironment())
}
