package observability

import (
	"context"
	"gatekeeper/internal/models"
	"gatekeeper/internal/version"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gatekeeper_observability_test_total",
	Help: "Counter registered by the metrics server test.",
})

func TestMetricsServer_ServesRegistry(t *testing.T) {
	metrics := models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}
	provider, err := Setup(metrics, models.ObservabilityConfig{ServiceName: "test"}, version.Info{})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	testCounter.Inc()

	ms := NewMetricsServer(metrics.Port, metrics.Path, provider)
	rec := httptest.NewRecorder()
	ms.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gatekeeper_observability_test_total")
}

func TestMetricsServer_StartAndShutdown(t *testing.T) {
	metrics := models.MetricsConfig{Enabled: true, Path: "/metrics"}
	provider, err := Setup(metrics, models.ObservabilityConfig{ServiceName: "test"}, version.Info{})
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	ms := NewMetricsServer(0, metrics.Path, provider)

	errCh := make(chan error, 1)
	go func() {
		errCh <- ms.Start()
	}()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, ms.Shutdown(ctx))
	assert.Equal(t, http.ErrServerClosed, <-errCh)
}

func TestNewMetricsServer_NilProvider(t *testing.T) {
	ms := NewMetricsServer(9090, "/metrics", nil)
	require.NotNil(t, ms)

	rec := httptest.NewRecorder()
	ms.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
