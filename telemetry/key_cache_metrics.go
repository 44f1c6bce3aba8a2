package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// KeyCacheMetrics counts lookups of the intermediate verifying key
type KeyCacheMetrics struct {
	hitCounter  metric.Int64Counter
	missCounter metric.Int64Counter
}

// NewKeyCacheMetrics creates an instance of KeyCacheMetrics
func NewKeyCacheMetrics(meter metric.Meter) (*KeyCacheMetrics, error) {
	hitCounter, err := meter.Int64Counter("trustchain.keycache.hit.counter", metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	missCounter, err := meter.Int64Counter("trustchain.keycache.miss.counter", metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	return &KeyCacheMetrics{hitCounter: hitCounter, missCounter: missCounter}, nil
}

// CountHit counts a key served from the cache
func (metrics *KeyCacheMetrics) CountHit(ctx context.Context) {
	if metrics == nil {
		return
	}
	metrics.hitCounter.Add(ctx, 1)
}

// CountMiss counts a key that had to be read from the key store
func (metrics *KeyCacheMetrics) CountMiss(ctx context.Context) {
	if metrics == nil {
		return
	}
	metrics.missCounter.Add(ctx, 1)
}
