package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "probate-resolver/resolver"

// Observability records per-tier resolution counts and durations through the
// otel meter, and opens spans on the global tracer.
type Observability struct {
	meterProvider      *metric.MeterProvider
	meter              otelmetric.Meter
	tracer             trace.Tracer
	resolutionCounter  otelmetric.Int64Counter
	resolutionDuration otelmetric.Float64Histogram
}

// New wires a meter provider backed by the prometheus exporter. On exporter
// failure it falls back to no-op instruments.
func New(serviceName string, log *zap.Logger) *Observability {
	if log == nil {
		log = zap.NewNop()
	}
	o := &Observability{tracer: otel.Tracer(instrumentationName)}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter, metrics disabled", zap.Error(err))
		o.meter = noop.NewMeterProvider().Meter(serviceName)
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
		otel.SetMeterProvider(o.meterProvider)
		o.meter = o.meterProvider.Meter(serviceName)
	}

	o.resolutionCounter, _ = o.meter.Int64Counter(
		"resolutions.processed",
		otelmetric.WithDescription("Number of resolution runs completed"),
	)
	o.resolutionDuration, _ = o.meter.Float64Histogram(
		"resolutions.duration",
		otelmetric.WithDescription("Resolution run duration"),
		otelmetric.WithUnit("ms"),
	)
	return o
}

// NewNoop returns an Observability that records nothing.
func NewNoop() *Observability {
	meter := noop.NewMeterProvider().Meter(instrumentationName)
	counter, _ := meter.Int64Counter("resolutions.processed")
	hist, _ := meter.Float64Histogram("resolutions.duration")
	return &Observability{
		meter:              meter,
		tracer:             otel.Tracer(instrumentationName),
		resolutionCounter:  counter,
		resolutionDuration: hist,
	}
}

// StartSpan opens a span named name as a child of ctx.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordResolution(ctx context.Context, tier string, found bool, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("tier", tier),
		attribute.Bool("found", found),
	)
	if o.resolutionCounter != nil {
		o.resolutionCounter.Add(ctx, 1, attrs)
	}
	if o.resolutionDuration != nil {
		o.resolutionDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
