package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestHTTPMiddlewarePassesThrough(t *testing.T) {
	m, err := NewMetricsMiddleware(context.Background(), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	require.NoError(t, m.AddHTTPRequestResponseCounter("/journalists", http.MethodPost))

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/journalists", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestWrappedResponseWriterStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	w := WrapResponseWriter(rec)
	assert.Equal(t, http.StatusOK, w.Status())

	w.WriteHeader(http.StatusNotFound)
	w.WriteHeader(http.StatusOK)
	assert.Equal(t, http.StatusNotFound, w.Status())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouteAttributes(t *testing.T) {
	m, err := NewMetricsMiddleware(context.Background(), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	require.NoError(t, m.AddHTTPRequestResponseCounter("/journalists", http.MethodPost))

	attrs := m.routeAttributes(httptest.NewRequest(http.MethodPost, "/journalists", nil))
	assert.Equal(t, "/journalists", attrs[0].Value.AsString())
	assert.Equal(t, http.MethodPost, attrs[1].Value.AsString())

	attrs = m.routeAttributes(httptest.NewRequest(http.MethodGet, "/journalists", nil))
	assert.Equal(t, unmatchedRoute, attrs[0].Value.AsString())

	attrs = m.routeAttributes(httptest.NewRequest(http.MethodPost, "/random/path", nil))
	assert.Equal(t, unmatchedRoute, attrs[0].Value.AsString())
}

func TestAppMetricsWithMeter(t *testing.T) {
	appMetrics, err := NewAppMetricsWithMeter(context.Background(), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	assert.NotNil(t, appMetrics.HTTPMiddleware())
	assert.NotNil(t, appMetrics.KeyCacheMetrics())

	// externally managed metrics are never served by us
	assert.NoError(t, appMetrics.Expose(context.Background(), 0, ""))
	assert.NoError(t, appMetrics.Close())

	appMetrics.SubmissionMetrics().CountAccepted(time.Millisecond)
	appMetrics.SubmissionMetrics().CountRejected("decode_failure", time.Millisecond)
	appMetrics.KeyCacheMetrics().CountHit(context.Background())
}

func TestNilMetricsAreSafe(t *testing.T) {
	var s *SubmissionMetrics
	s.CountAccepted(time.Second)
	s.CountRejected("x", time.Second)

	var k *KeyCacheMetrics
	k.CountHit(context.Background())
	k.CountMiss(context.Background())
}
