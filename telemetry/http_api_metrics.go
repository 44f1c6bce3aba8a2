package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	httpRequestCounterName  = "trustchain.http.requests"
	httpResponseCounterName = "trustchain.http.responses"
	httpRequestDurationName = "trustchain.http.request.duration.ms"

	// unmatchedRoute labels requests to paths that were never registered so that random
	// paths cannot blow up metric cardinality
	unmatchedRoute = "unmatched"
)

// WrappedResponseWriter is a wrapper for http.ResponseWriter that allows the
// written HTTP status code to be captured for metrics reporting or logging purposes.
type WrappedResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

// WrapResponseWriter wraps w
func WrapResponseWriter(w http.ResponseWriter) *WrappedResponseWriter {
	return &WrappedResponseWriter{ResponseWriter: w}
}

// Status returns response status. A handler that never called WriteHeader answered 200.
func (rw *WrappedResponseWriter) Status() int {
	if !rw.wroteHeader {
		return http.StatusOK
	}
	return rw.status
}

// WriteHeader wraps http.ResponseWriter.WriteHeader method
func (rw *WrappedResponseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}

	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
	rw.wroteHeader = true
}

// HTTPMiddleware counts requests and responses and records request durations, labelled by
// route and method.
type HTTPMiddleware struct {
	ctx       context.Context
	requests  metric.Int64Counter
	responses metric.Int64Counter
	durations metric.Int64Histogram

	mu     sync.RWMutex
	routes map[string]struct{}
}

// NewMetricsMiddleware creates a new HTTPMiddleware
func NewMetricsMiddleware(ctx context.Context, meter metric.Meter) (*HTTPMiddleware, error) {
	requests, err := meter.Int64Counter(httpRequestCounterName, metric.WithUnit("1"),
		metric.WithDescription("HTTP requests by route and method"))
	if err != nil {
		return nil, err
	}

	responses, err := meter.Int64Counter(httpResponseCounterName, metric.WithUnit("1"),
		metric.WithDescription("HTTP responses by route, method and status code"))
	if err != nil {
		return nil, err
	}

	durations, err := meter.Int64Histogram(httpRequestDurationName, metric.WithUnit("milliseconds"))
	if err != nil {
		return nil, err
	}

	return &HTTPMiddleware{
		ctx:       ctx,
		requests:  requests,
		responses: responses,
		durations: durations,
		routes:    map[string]struct{}{},
	}, nil
}

// AddHTTPRequestResponseCounter registers an endpoint and method (GET, POST, etc) so that its
// requests are labelled with the endpoint instead of unmatchedRoute.
func (m *HTTPMiddleware) AddHTTPRequestResponseCounter(endpoint string, method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[routeKey(endpoint, method)] = struct{}{}
	return nil
}

func routeKey(endpoint, method string) string {
	return method + " " + endpoint
}

func (m *HTTPMiddleware) routeAttributes(r *http.Request) []attribute.KeyValue {
	route := r.URL.Path

	m.mu.RLock()
	_, ok := m.routes[routeKey(route, r.Method)]
	m.mu.RUnlock()

	if !ok {
		route = unmatchedRoute
	}
	return []attribute.KeyValue{
		attribute.String("route", route),
		attribute.String("method", r.Method),
	}
}

// Handler logs every request and response and adds them to metrics.
func (m *HTTPMiddleware) Handler(h http.Handler) http.Handler {
	fn := func(rw http.ResponseWriter, r *http.Request) {
		reqStart := time.Now()
		ctx := r.Context()
		log.WithContext(ctx).Tracef("HTTP request: %v %v", r.Method, r.URL)

		attrs := m.routeAttributes(r)
		m.requests.Add(m.ctx, 1, metric.WithAttributes(attrs...))

		w := WrapResponseWriter(rw)

		h.ServeHTTP(w, r)

		if w.Status() > 399 {
			log.WithContext(ctx).Errorf("HTTP response: %v %v status %v", r.Method, r.URL, w.Status())
		} else {
			log.WithContext(ctx).Tracef("HTTP response: %v %v status %v", r.Method, r.URL, w.Status())
		}

		statusAttr := attribute.String("status", strconv.Itoa(w.Status()))
		m.responses.Add(m.ctx, 1, metric.WithAttributes(append(attrs, statusAttr)...))

		reqTook := time.Since(reqStart)
		m.durations.Record(m.ctx, reqTook.Milliseconds(), metric.WithAttributes(attrs...))
		log.WithContext(ctx).Debugf("request %s %s took %d ms and finished with status %d", r.Method, r.URL.Path, reqTook.Milliseconds(), w.Status())
	}

	return http.HandlerFunc(fn)
}
