package telemetry

import (
	"context"
)

// MockAppMetrics mocks the AppMetrics interface. Unset funcs return zero values.
type MockAppMetrics struct {
	CloseFunc             func() error
	ExposeFunc            func(ctx context.Context, port int, endpoint string) error
	HTTPMiddlewareFunc    func() *HTTPMiddleware
	SubmissionMetricsFunc func() *SubmissionMetrics
	KeyCacheMetricsFunc   func() *KeyCacheMetrics
}

func (mock *MockAppMetrics) Close() error {
	if mock.CloseFunc != nil {
		return mock.CloseFunc()
	}
	return nil
}

func (mock *MockAppMetrics) Expose(ctx context.Context, port int, endpoint string) error {
	if mock.ExposeFunc != nil {
		return mock.ExposeFunc(ctx, port, endpoint)
	}
	return nil
}

func (mock *MockAppMetrics) HTTPMiddleware() *HTTPMiddleware {
	if mock.HTTPMiddlewareFunc != nil {
		return mock.HTTPMiddlewareFunc()
	}
	return nil
}

func (mock *MockAppMetrics) SubmissionMetrics() *SubmissionMetrics {
	if mock.SubmissionMetricsFunc != nil {
		return mock.SubmissionMetricsFunc()
	}
	return nil
}

func (mock *MockAppMetrics) KeyCacheMetrics() *KeyCacheMetrics {
	if mock.KeyCacheMetricsFunc != nil {
		return mock.KeyCacheMetricsFunc()
	}
	return nil
}
