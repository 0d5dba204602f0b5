package otel

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// ServiceName identifies testpulse spans in a collector.
const ServiceName = "testpulse"

// Exporter wraps a span exporter with the pipeline-style Export/Finish pair.
// It is itself a SpanExporter so a tracer provider can batch to it.
type Exporter struct {
	exporter sdktrace.SpanExporter
}

// NewExporter sends spans over OTLP/HTTP to endpoint (host:port).
func NewExporter(ctx context.Context, endpoint string) (*Exporter, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithEndpoint(endpoint),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create OTLP/HTTP exporter")
	}
	return &Exporter{exporter: exporter}, nil
}

// NewGRPCExporter sends spans over OTLP/gRPC. The connection is made lazily.
func NewGRPCExporter(ctx context.Context, endpoint string) (*Exporter, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(endpoint),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create OTLP/gRPC exporter")
	}
	return &Exporter{exporter: exporter}, nil
}

// NewStdoutExporter writes spans to w as JSON, one object per span.
func NewStdoutExporter(w io.Writer) (*Exporter, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, errors.Wrap(err, "create stdout exporter")
	}
	return &Exporter{exporter: exporter}, nil
}

var _ sdktrace.SpanExporter = (*Exporter)(nil)

func (e *Exporter) Export(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return e.exporter.ExportSpans(ctx, spans)
}

func (e *Exporter) Finish(ctx context.Context) error {
	return e.exporter.Shutdown(ctx)
}

func (e *Exporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	return e.Export(ctx, spans)
}

func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.Finish(ctx)
}

// GetResource returns the resource attached to every testpulse span.
func GetResource(ctx context.Context) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(ServiceName),
		),
	)
}

// Options selects where spans go. Empty fields are skipped; with every field
// empty the provider records nothing.
type Options struct {
	Stdout       io.Writer
	HTTPEndpoint string
	GRPCEndpoint string
}

// Setup builds a tracer provider batching to each configured exporter and
// installs it globally. The returned function flushes and shuts it down.
func Setup(ctx context.Context, opts Options) (func(context.Context) error, error) {
	var exporters []*Exporter
	add := func(exp *Exporter, err error) error {
		if err != nil {
			return errors.CombineErrors(err, finishAll(ctx, exporters))
		}
		exporters = append(exporters, exp)
		return nil
	}
	if opts.Stdout != nil {
		if err := add(NewStdoutExporter(opts.Stdout)); err != nil {
			return nil, err
		}
	}
	if opts.HTTPEndpoint != "" {
		if err := add(NewExporter(ctx, opts.HTTPEndpoint)); err != nil {
			return nil, err
		}
	}
	if opts.GRPCEndpoint != "" {
		if err := add(NewGRPCExporter(ctx, opts.GRPCEndpoint)); err != nil {
			return nil, err
		}
	}

	res, err := GetResource(ctx)
	if err != nil {
		return nil, errors.CombineErrors(errors.Wrap(err, "build resource"), finishAll(ctx, exporters))
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	for _, exp := range exporters {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}
	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		if err := tp.ForceFlush(ctx); err != nil {
			return errors.Wrap(err, "flush spans")
		}
		return tp.Shutdown(ctx)
	}, nil
}

// finishAll shuts down every exporter, returning the combined errors.
func finishAll(ctx context.Context, exporters []*Exporter) error {
	var err error
	for _, exp := range exporters {
		err = errors.CombineErrors(err, exp.Finish(ctx))
	}
	return err
}
