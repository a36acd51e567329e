package observability

import (
	"context"
	"time"

	"dd-qualification/internal/common/config"
	"dd-qualification/internal/common/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	log            logger.Logger
}

// New wires the OpenTelemetry meter provider to the Prometheus exporter and,
// when a Jaeger endpoint is configured, a batching tracer provider. Both are
// installed globally so engine code can use otel.Tracer directly. Failures
// degrade to no-op instruments.
func New(cfg config.ObservabilityConfig, log logger.Logger) *Observability {
	o := &Observability{log: log}
	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err.Error()})
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
		otel.SetMeterProvider(o.meterProvider)
	}

	if cfg.JaegerEndpoint != "" {
		traceExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
		if err != nil {
			log.Warn("failed to create jaeger exporter", map[string]interface{}{"error": err.Error()})
		} else {
			o.tracerProvider = sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(traceExporter),
				sdktrace.WithResource(res),
				sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
			)
			otel.SetTracerProvider(o.tracerProvider)
		}
	}

	o.meter = otel.Meter(cfg.ServiceName)
	o.tracer = otel.Tracer(cfg.ServiceName)

	o.jobCounter, _ = o.meter.Int64Counter(
		"qualification.jobs.processed",
		otelmetric.WithDescription("Number of qualification jobs processed"),
	)
	o.jobDuration, _ = o.meter.Float64Histogram(
		"qualification.jobs.duration",
		otelmetric.WithDescription("Qualification job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	return o
}

// StartSpan opens a span on the service tracer.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

// Shutdown flushes pending spans and metric readers.
func (o *Observability) Shutdown(ctx context.Context) {
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			o.log.Warn("tracer provider shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			o.log.Warn("meter provider shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
