package observability

import (
	"context"
	"time"

	"realestate-assistant/internal/common/config"
	"realestate-assistant/internal/common/logger"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the OTel meter and tracer providers of the service.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	turnCounter    otelmetric.Int64Counter
	turnDuration   otelmetric.Float64Histogram
	log            logger.Logger
}

// New wires metrics into the default Prometheus registry and, when enabled,
// spans into Jaeger. Failures degrade to no-op instruments.
func New(serviceName string, tracing config.TracingConfig, log logger.Logger) *Observability {
	return newObservability(serviceName, tracing, log, promclient.DefaultRegisterer)
}

func newObservability(serviceName string, tracing config.TracingConfig, log logger.Logger, reg promclient.Registerer) *Observability {
	log = logger.ForComponent(log, "observability")
	o := &Observability{log: log, tracer: otel.Tracer(serviceName)}

	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err.Error()})
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter))
		otel.SetMeterProvider(o.meterProvider)
		meter := o.meterProvider.Meter(serviceName)

		o.turnCounter, _ = meter.Int64Counter(
			"assistant.turns",
			otelmetric.WithDescription("Number of assistant turns handled"),
		)
		o.turnDuration, _ = meter.Float64Histogram(
			"assistant.turn.duration",
			otelmetric.WithDescription("Assistant turn duration"),
			otelmetric.WithUnit("ms"),
		)
	}

	if tracing.Enabled {
		tp, err := newTracerProvider(serviceName, tracing)
		if err != nil {
			log.Warn("failed to create jaeger exporter", map[string]interface{}{"error": err.Error()})
		} else {
			o.tracerProvider = tp
			otel.SetTracerProvider(tp)
			o.tracer = tp.Tracer(serviceName)
		}
	}

	return o
}

// RecordTurn counts one turn and its duration.
func (o *Observability) RecordTurn(ctx context.Context, intent string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("intent", intent))
	if o.turnCounter != nil {
		o.turnCounter.Add(ctx, 1, attrs)
	}
	if o.turnDuration != nil {
		o.turnDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// StartSpan opens a span on the service tracer.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Tracer exposes the service tracer to components that create their own spans.
func (o *Observability) Tracer() trace.Tracer {
	return o.tracer
}

func (o *Observability) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			o.log.Warn("meter provider shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			o.log.Warn("tracer provider shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
