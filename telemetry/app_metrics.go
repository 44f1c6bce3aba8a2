package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	defaultEndpoint = "/metrics"
	meterName       = "github.com/securedrop/trustchain"
)

// AppMetrics is metrics interface
type AppMetrics interface {
	Close() error
	Expose(ctx context.Context, port int, endpoint string) error
	HTTPMiddleware() *HTTPMiddleware
	SubmissionMetrics() *SubmissionMetrics
	KeyCacheMetrics() *KeyCacheMetrics
}

// defaultAppMetrics are core application metrics based on OpenTelemetry https://opentelemetry.io/
type defaultAppMetrics struct {
	gatherer          promclient.Gatherer
	server            *http.Server
	externallyManaged bool
	httpMiddleware    *HTTPMiddleware
	submissionMetrics *SubmissionMetrics
	keyCacheMetrics   *KeyCacheMetrics
}

// HTTPMiddleware returns metrics for the http api package
func (appMetrics *defaultAppMetrics) HTTPMiddleware() *HTTPMiddleware {
	return appMetrics.httpMiddleware
}

// SubmissionMetrics returns metrics for journalist key submissions
func (appMetrics *defaultAppMetrics) SubmissionMetrics() *SubmissionMetrics {
	return appMetrics.submissionMetrics
}

// KeyCacheMetrics returns metrics for the intermediate key cache
func (appMetrics *defaultAppMetrics) KeyCacheMetrics() *KeyCacheMetrics {
	return appMetrics.keyCacheMetrics
}

// Close stops the metrics HTTP server if Expose started one
func (appMetrics *defaultAppMetrics) Close() error {
	if appMetrics.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return appMetrics.server.Shutdown(ctx)
}

// Expose metrics on a given port and endpoint. If endpoint is empty a defaultEndpoint one will be used.
// Exposes metrics in the Prometheus format https://prometheus.io/
func (appMetrics *defaultAppMetrics) Expose(ctx context.Context, port int, endpoint string) error {
	if appMetrics.externallyManaged {
		return nil
	}
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	router := mux.NewRouter()
	router.Handle(endpoint, promhttp.HandlerFor(appMetrics.gatherer, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}

	appMetrics.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := appMetrics.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithContext(ctx).Errorf("metrics server error: %v", err)
		}
		log.WithContext(ctx).Info("metrics server stopped")
	}()

	log.WithContext(ctx).Infof("enabled application metrics and exposing on http://%s%s", listener.Addr().String(), endpoint)

	return nil
}

// NewDefaultAppMetrics creates metrics backed by a prometheus exporter on a private registry
// that also carries the Go runtime and process collectors. Call Expose to serve them.
func NewDefaultAppMetrics(ctx context.Context) (AppMetrics, error) {
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	appMetrics, err := newAppMetrics(ctx, provider.Meter(meterName))
	if err != nil {
		return nil, err
	}
	appMetrics.gatherer = registry
	return appMetrics, nil
}

// NewAppMetricsWithMeter creates AppMetrics using an externally provided meter.
// The caller is responsible for exposing metrics via HTTP. Expose() and Close() are no-ops.
func NewAppMetricsWithMeter(ctx context.Context, meter metric.Meter) (AppMetrics, error) {
	appMetrics, err := newAppMetrics(ctx, meter)
	if err != nil {
		return nil, err
	}
	appMetrics.externallyManaged = true
	return appMetrics, nil
}

func newAppMetrics(ctx context.Context, meter metric.Meter) (*defaultAppMetrics, error) {
	middleware, err := NewMetricsMiddleware(ctx, meter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize HTTP middleware metrics: %w", err)
	}

	submissionMetrics, err := NewSubmissionMetrics(ctx, meter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize submission metrics: %w", err)
	}

	keyCacheMetrics, err := NewKeyCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key cache metrics: %w", err)
	}

	return &defaultAppMetrics{
		httpMiddleware:    middleware,
		submissionMetrics: submissionMetrics,
		keyCacheMetrics:   keyCacheMetrics,
	}, nil
}
