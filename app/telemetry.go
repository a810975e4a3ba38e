package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	metricsdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "vaultbook-devnet"
	environment = "devnet"
)

// TelemetryConfig holds the configuration for telemetry
type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	TraceEndpoint     string  `mapstructure:"trace-endpoint"`
	PrometheusEnabled bool    `mapstructure:"prometheus-enabled"`
	SampleRate        float64 `mapstructure:"sample-rate"`
}

// Telemetry owns the OpenTelemetry providers of the process.
type Telemetry struct {
	config    TelemetryConfig
	meter     metric.Meter
	shutdowns []func(context.Context) error
}

// InitTelemetry installs the tracer and meter providers cfg asks for. A
// disabled config leaves the global no-op providers in place.
func InitTelemetry(cfg TelemetryConfig, chainID string) (*Telemetry, error) {
	tel := &Telemetry{config: cfg, meter: otel.Meter(serviceName)}
	if !cfg.Enabled {
		return tel, nil
	}

	res := resource.NewSchemaless(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(Version),
		attribute.String("deployment.environment", environment),
		attribute.String("chain.id", chainID),
	)

	if cfg.TraceEndpoint != "" {
		if err := tel.installTracer(res); err != nil {
			return nil, errors.Join(err, tel.Shutdown(context.Background()))
		}
	}
	if cfg.PrometheusEnabled {
		if err := tel.installMeter(res); err != nil {
			return nil, errors.Join(err, tel.Shutdown(context.Background()))
		}
	}
	return tel, nil
}

// installTracer exports spans over OTLP/HTTP. Plain http endpoints are sent
// without TLS.
func (t *Telemetry) installTracer(res *resource.Resource) error {
	endpoint, err := url.Parse(t.config.TraceEndpoint)
	if err != nil || endpoint.Host == "" {
		return fmt.Errorf("invalid trace endpoint %q", t.config.TraceEndpoint)
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint.Host)}
	if endpoint.Path != "" && endpoint.Path != "/" {
		opts = append(opts, otlptracehttp.WithURLPath(endpoint.Path))
	}
	if endpoint.Scheme != "https" {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exp, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("otlp exporter: %w", err)
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(t.config.SampleRate))),
	)
	otel.SetTracerProvider(provider)
	t.shutdowns = append(t.shutdowns, provider.Shutdown)
	return nil
}

// installMeter exports instruments through the default prometheus registry,
// next to the vault module and gateway collectors.
func (t *Telemetry) installMeter(res *resource.Resource) error {
	exporter, err := prometheus.New()
	if err != nil {
		return fmt.Errorf("prometheus exporter: %w", err)
	}

	provider := metricsdk.NewMeterProvider(
		metricsdk.WithResource(res),
		metricsdk.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)
	t.meter = provider.Meter(serviceName)
	t.shutdowns = append(t.shutdowns, provider.Shutdown)
	return nil
}

// Meter returns the meter ledger instruments are created from.
func (t *Telemetry) Meter() metric.Meter {
	return t.meter
}

// Shutdown flushes and stops every installed provider, newest first.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.shutdowns) - 1; i >= 0; i-- {
		errs = append(errs, t.shutdowns[i](ctx))
	}
	t.shutdowns = nil
	return errors.Join(errs...)
}

// LedgerInstruments records ledger deliveries.
type LedgerInstruments struct {
	deliverCounter  metric.Int64Counter
	deliverDuration metric.Float64Histogram
	blockHeight     metric.Int64Gauge
}

// NewLedgerInstruments creates the ledger instruments on meter.
func NewLedgerInstruments(meter metric.Meter) (*LedgerInstruments, error) {
	deliverCounter, err := meter.Int64Counter(
		"vaultbook.ledger.deliver.total",
		metric.WithDescription("Total number of delivered operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	deliverDuration, err := meter.Float64Histogram(
		"vaultbook.ledger.deliver.processing_time",
		metric.WithDescription("Operation processing time"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	blockHeight, err := meter.Int64Gauge(
		"vaultbook.ledger.height",
		metric.WithDescription("Last committed height"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, err
	}

	return &LedgerInstruments{
		deliverCounter:  deliverCounter,
		deliverDuration: deliverDuration,
		blockHeight:     blockHeight,
	}, nil
}

// RecordDeliver records one delivered operation.
func (li *LedgerInstruments) RecordDeliver(ctx context.Context, op string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "failed"
	}

	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("status", status),
	)
	li.deliverCounter.Add(ctx, 1, attrs)
	li.deliverDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

// RecordHeight records the last committed height.
func (li *LedgerInstruments) RecordHeight(ctx context.Context, height int64) {
	li.blockHeight.Record(ctx, height)
}

// TraceDeliver creates a traced context for one delivered operation. The
// returned func ends the span and marks it failed when err is set.
func TraceDeliver(ctx context.Context, op string, height int64) (context.Context, func(err error)) {
	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "ledger.deliver",
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal),
		oteltrace.WithAttributes(
			attribute.String("op", op),
			attribute.Int64("block.height", height),
		),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
