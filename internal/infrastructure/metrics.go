package infrastructure

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	// ServiceName identifies the service in metric resources.
	ServiceName = "stackdid"
	// MeterName is the instrumentation scope of the stacking metrics.
	MeterName = "stackdid"
)

// Metrics holds the instruments recorded during stack construction.
type Metrics struct {
	provider *sdkmetric.MeterProvider

	// StacksBuilt counts completed assemble-and-weight pipelines.
	StacksBuilt metric.Int64Counter
	// StackFailures counts pipelines that ended in a typed failure.
	StackFailures metric.Int64Counter
	// RowsStacked counts rows in assembled stacks.
	RowsStacked metric.Int64Counter
	// BuildDuration observes full pipeline durations in seconds.
	BuildDuration metric.Float64Histogram

	// HTTPHandler serves the Prometheus scrape endpoint.
	HTTPHandler http.Handler
}

// NewMetrics initializes an OpenTelemetry meter provider backed by a
// Prometheus exporter and registers the stacking instruments.
func NewMetrics(version string) (*Metrics, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter(MeterName)

	m := &Metrics{
		provider:    provider,
		HTTPHandler: promhttp.Handler(),
	}

	if m.StacksBuilt, err = meter.Int64Counter("stackdid_stacks_built_total",
		metric.WithDescription("Completed stack construction pipelines")); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	if m.StackFailures, err = meter.Int64Counter("stackdid_stack_failures_total",
		metric.WithDescription("Stack construction pipelines that failed")); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	if m.RowsStacked, err = meter.Int64Counter("stackdid_rows_stacked_total",
		metric.WithDescription("Rows emitted into assembled stacks")); err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	if m.BuildDuration, err = meter.Float64Histogram("stackdid_build_duration_seconds",
		metric.WithDescription("Full pipeline duration"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create histogram: %w", err)
	}

	return m, nil
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
