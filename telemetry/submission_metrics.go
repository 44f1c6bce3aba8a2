package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SubmissionMetrics counts journalist key submissions by outcome
type SubmissionMetrics struct {
	acceptedCounter metric.Int64Counter
	rejectedCounter metric.Int64Counter
	duration        metric.Int64Histogram
	ctx             context.Context
}

// NewSubmissionMetrics creates an instance of SubmissionMetrics
func NewSubmissionMetrics(ctx context.Context, meter metric.Meter) (*SubmissionMetrics, error) {
	acceptedCounter, err := meter.Int64Counter("trustchain.submission.accepted.counter", metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	rejectedCounter, err := meter.Int64Counter("trustchain.submission.rejected.counter", metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Int64Histogram("trustchain.submission.duration.micro", metric.WithUnit("microseconds"))
	if err != nil {
		return nil, err
	}

	return &SubmissionMetrics{
		acceptedCounter: acceptedCounter,
		rejectedCounter: rejectedCounter,
		duration:        duration,
		ctx:             ctx,
	}, nil
}

// CountAccepted counts a submission that was verified and stored
func (metrics *SubmissionMetrics) CountAccepted(duration time.Duration) {
	if metrics == nil {
		return
	}
	metrics.acceptedCounter.Add(metrics.ctx, 1)
	metrics.duration.Record(metrics.ctx, duration.Microseconds(),
		metric.WithAttributes(attribute.String("outcome", "accepted")))
}

// CountRejected counts a rejected submission, attributed with the failure kind
func (metrics *SubmissionMetrics) CountRejected(kind string, duration time.Duration) {
	if metrics == nil {
		return
	}
	metrics.rejectedCounter.Add(metrics.ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	metrics.duration.Record(metrics.ctx, duration.Microseconds(),
		metric.WithAttributes(attribute.String("outcome", "rejected")))
}
