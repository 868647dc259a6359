// Package observability wires the otel metric SDK to the Prometheus registry
// and hands out spans from the global tracer provider.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

const shutdownTimeout = 5 * time.Second

// Observability records per-job outcomes. A nil or partially built value is
// safe to use: missing instruments are skipped.
type Observability struct {
	provider  *sdkmetric.MeterProvider
	tracer    trace.Tracer
	processed otelmetric.Int64Counter
	duration  otelmetric.Float64Histogram
}

// New installs a meter provider exporting to the default Prometheus
// registry. On exporter failure the returned value still traces and the
// error says why metrics are off.
func New(serviceName string) (*Observability, error) {
	o := &Observability{tracer: otel.Tracer(serviceName)}

	exporter, err := otelprom.New()
	if err != nil {
		return o, fmt.Errorf("prometheus exporter: %w", err)
	}
	o.provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(o.provider)

	meter := o.provider.Meter(serviceName)
	if o.processed, err = meter.Int64Counter(
		"onboarding.jobs.processed",
		otelmetric.WithDescription("Onboarding jobs processed, by task type and status"),
	); err != nil {
		return o, fmt.Errorf("jobs.processed instrument: %w", err)
	}
	if o.duration, err = meter.Float64Histogram(
		"onboarding.jobs.duration",
		otelmetric.WithDescription("Onboarding job handling time"),
		otelmetric.WithUnit("ms"),
	); err != nil {
		return o, fmt.Errorf("jobs.duration instrument: %w", err)
	}
	return o, nil
}

// StartSpan opens a span. Without an installed tracer provider it is a no-op.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("seller-onboarding")
	if o != nil && o.tracer != nil {
		tracer = o.tracer
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.processed == nil {
		return
	}
	o.processed.Add(ctx, 1, jobAttrs(taskType, status))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, d time.Duration, status string) {
	if o == nil || o.duration == nil {
		return
	}
	o.duration.Record(ctx, float64(d)/float64(time.Millisecond), jobAttrs(taskType, status))
}

func jobAttrs(taskType, status string) otelmetric.MeasurementOption {
	return otelmetric.WithAttributeSet(attribute.NewSet(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

// Shutdown flushes the meter provider.
func (o *Observability) Shutdown() {
	if o == nil || o.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = o.provider.Shutdown(ctx)
}
