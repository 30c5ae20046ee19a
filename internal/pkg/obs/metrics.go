package obs

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ServiceName is the instrumentation scope and the "service" log attribute.
const ServiceName = "metasync-service"

// Metrics holds the counters the propagation engine reports. Without a MeterProvider
// installed by the host process the global provider is a no-op.
type Metrics struct {
	productOutcomes       metric.Int64Counter
	runs                  metric.Int64Counter
	errorLogWriteFailures metric.Int64Counter
}

// NewMetrics registers the counters on the global meter provider.
func NewMetrics() *Metrics {
	return NewMetricsFrom(otel.GetMeterProvider())
}

// NewMetricsFrom registers the counters on mp.
func NewMetricsFrom(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(ServiceName)

	// Instrument creation only fails on invalid names; the names below are static.
	productOutcomes, _ := meter.Int64Counter("metasync.product.outcomes",
		metric.WithDescription("Per-product propagation outcomes by kind"))
	runs, _ := meter.Int64Counter("metasync.runs",
		metric.WithDescription("Propagation runs by terminal state"))
	logFailures, _ := meter.Int64Counter("metasync.error_log.write_failures",
		metric.WithDescription("Failures to append to the shared error log"))

	return &Metrics{
		productOutcomes:       productOutcomes,
		runs:                  runs,
		errorLogWriteFailures: logFailures,
	}
}

// ProductOutcome counts one per-product outcome.
func (m *Metrics) ProductOutcome(ctx context.Context, category, kind string) {
	if m == nil {
		return
	}
	m.productOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("outcome", kind),
	))
}

// RunFinished counts one run reaching a terminal state.
func (m *Metrics) RunFinished(ctx context.Context, category, state string) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("state", state),
	))
}

// ErrorLogWriteFailed escalates a lost error-log append.
func (m *Metrics) ErrorLogWriteFailed(ctx context.Context, entries int) {
	if m == nil {
		return
	}
	m.errorLogWriteFailures.Add(ctx, int64(entries))
}
