package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Skryldev/member-directory/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Skryldev/member-directory"

// NewTracerProvider returns a TracerProvider exporting over OTLP/gRPC to
// endpoint and registers it globally. With an empty endpoint spans are still
// created but never exported.
func NewTracerProvider(ctx context.Context, endpoint, serviceName string) (*sdktrace.TracerProvider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	endpoint = strings.TrimSpace(endpoint)
	if endpoint != "" {
		if !strings.Contains(endpoint, "://") {
			endpoint = "http://" + endpoint
		}
		u, err := url.Parse(endpoint)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("telemetry: invalid OTLP endpoint %q", endpoint)
		}
		expOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(u.Host)}
		if u.Scheme != "https" {
			expOpts = append(expOpts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, expOpts...)
		if err != nil {
			return nil, fmt.Errorf("telemetry: otlp exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// QueryTracer implements db.Tracer with OpenTelemetry client spans.
type QueryTracer struct {
	tracer  trace.Tracer
	dialect string
}

// NewQueryTracer builds a QueryTracer from tp; a nil tp uses the global provider.
func NewQueryTracer(tp trace.TracerProvider, dialect string) *QueryTracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &QueryTracer{tracer: tp.Tracer(instrumentationName), dialect: dialect}
}

// StartSpan implements db.Tracer.
func (t *QueryTracer) StartSpan(ctx context.Context, query string) context.Context {
	verb := db.StatementVerb(query)
	ctx, _ = t.tracer.Start(ctx, "db "+verb,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", t.dialect),
			attribute.String("db.operation", verb),
			attribute.String("db.statement", strings.Join(strings.Fields(query), " ")),
		),
	)
	return ctx
}

// EndSpan implements db.Tracer. Not-found lookups are not span errors.
func (t *QueryTracer) EndSpan(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil && !db.IsNotFound(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

var _ db.Tracer = (*QueryTracer)(nil)
