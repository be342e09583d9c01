package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"

	"github.com/unkn0wn-root/reqlens/internal/record"
	"github.com/unkn0wn-root/reqlens/internal/timeline"
)

var (
	tracerName  = "github.com/unkn0wn-root/reqlens/internal/telemetry"
	httpHostKey = attribute.Key("http.host")
)

var (
	ErrDisabled = errors.New("telemetry is not configured")
)

// Exporter replays recorded timelines as spans.
type Exporter interface {
	ExportTimeline(ctx context.Context, r record.Record) error
	Shutdown(ctx context.Context) error
}

type providerOptions struct {
	exporter       sdktrace.SpanExporter
	spanProcessors []sdktrace.SpanProcessor
}

type Option func(*providerOptions)

func WithSpanProcessor(proc sdktrace.SpanProcessor) Option {
	return func(opts *providerOptions) {
		if proc != nil {
			opts.spanProcessors = append(opts.spanProcessors, proc)
		}
	}
}

func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(opts *providerOptions) {
		if exp != nil {
			opts.exporter = exp
		}
	}
}

type manager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	shutdown sync.Once
}

// New returns a no-op exporter unless an endpoint, exporter or span
// processor is supplied.
func New(cfg Config, opts ...Option) (Exporter, error) {
	builder := providerOptions{}
	for _, opt := range opts {
		opt(&builder)
	}

	if !cfg.Enabled() && builder.exporter == nil && len(builder.spanProcessors) == 0 {
		return Noop(), nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(buildResourceAttributes(cfg)...),
	)
	if err != nil {
		return nil, err
	}

	exporter := builder.exporter
	if exporter == nil && cfg.Enabled() {
		exporter, err = newExporter(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tpOpts []sdktrace.TracerProviderOption
	tpOpts = append(tpOpts, sdktrace.WithResource(res))
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	for _, proc := range builder.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(proc))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &manager{tracer: tp.Tracer(tracerName), provider: tp}, nil
}

// ExportTimeline emits one span per scope node, parented like the tree and
// stamped with the recorded times. Stamps become events on their parent.
func (m *manager) ExportTimeline(ctx context.Context, r record.Record) error {
	if r.Timeline == nil {
		return fmt.Errorf("trace %s: %w", r.ID, timeline.ErrNoTimeline)
	}
	root := *r.Timeline
	if !root.IsScope() {
		return fmt.Errorf("timeline root %q is a %s, not a scope", root.Name, root.Kind)
	}

	ctx, span := m.tracer.Start(
		ctx,
		spanNameFor(r),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(root.Timestamp),
		trace.WithAttributes(buildSpanAttributes(r, root)...),
	)
	m.emitChildren(ctx, span, root.Children)
	span.SetStatus(statusFor(r, root))
	span.End(trace.WithTimestamp(root.End()))
	return nil
}

func (m *manager) emitChildren(ctx context.Context, parent trace.Span, children []timeline.Node) {
	for _, child := range children {
		if !child.IsScope() {
			parent.AddEvent(child.Name,
				trace.WithTimestamp(child.Timestamp),
				trace.WithAttributes(nodeAttributes(child)...),
			)
			continue
		}
		childCtx, span := m.tracer.Start(
			ctx,
			child.Name,
			trace.WithTimestamp(child.Timestamp),
			trace.WithAttributes(nodeAttributes(child)...),
		)
		m.emitChildren(childCtx, span, child.Children)
		if child.Incomplete {
			span.SetStatus(codes.Error, "incomplete")
		}
		span.End(trace.WithTimestamp(child.End()))
	}
}

func (m *manager) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	var shutdownErr error
	m.shutdown.Do(func() {
		shutdownErr = m.provider.Shutdown(ctx)
	})
	return shutdownErr
}

// Noop returns an Exporter that reports ErrDisabled.
func Noop() Exporter {
	return noopExporter{}
}

type noopExporter struct{}

func (noopExporter) ExportTimeline(context.Context, record.Record) error { return ErrDisabled }

func (noopExporter) Shutdown(context.Context) error { return nil }

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("telemetry endpoint is required")
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(timeout),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent(userAgent(cfg))),
	}
	if cfg.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	client := otlptracegrpc.NewClient(clientOpts...)
	return otlptrace.New(ctx, client)
}

func userAgent(cfg Config) string {
	if v := strings.TrimSpace(cfg.Version); v != "" {
		return defaultServiceName + "/" + v
	}
	return defaultServiceName
}

func buildResourceAttributes(cfg Config) []attribute.KeyValue {
	name := cfg.ServiceName
	if strings.TrimSpace(name) == "" {
		name = defaultServiceName
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
	}
	if strings.TrimSpace(cfg.Version) != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	return attrs
}

func spanNameFor(r record.Record) string {
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		return "HTTP"
	}
	return method + " " + r.Path
}

func buildSpanAttributes(r record.Record, root timeline.Node) []attribute.KeyValue {
	scheme := "http"
	if r.IsHTTPS {
		scheme = "https"
	}
	attrs := []attribute.KeyValue{
		attribute.String("reqlens.record.id", r.ID),
		semconv.HTTPSchemeKey.String(scheme),
		semconv.HTTPURLKey.String(record.BuildURL(r)),
		semconv.HTTPTargetKey.String(r.Path + r.QueryString),
		attribute.Int64("reqlens.timeline.active_ms", timeline.TotalActiveDuration(root.Children).Milliseconds()),
	}
	if r.Method != "" {
		attrs = append(attrs, semconv.HTTPMethodKey.String(strings.ToUpper(r.Method)))
	}
	if r.Host != "" {
		attrs = append(attrs, httpHostKey.String(r.Host))
	}
	if r.ParentID != "" {
		attrs = append(attrs, attribute.String("reqlens.record.parent_id", r.ParentID))
	}
	if code, ok := r.StatusCode(); ok {
		attrs = append(attrs, semconv.HTTPStatusCodeKey.Int(code))
	}
	return attrs
}

func nodeAttributes(n timeline.Node) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("reqlens.timeline.kind", string(n.Kind)),
	}
	if n.Category != "" {
		attrs = append(attrs, attribute.String("reqlens.timeline.category", n.Category))
	}
	if n.Incomplete {
		attrs = append(attrs, attribute.Bool("reqlens.timeline.incomplete", true))
	}
	return attrs
}

func statusFor(r record.Record, root timeline.Node) (codes.Code, string) {
	if root.Incomplete {
		return codes.Error, "incomplete"
	}
	code, ok := r.StatusCode()
	if !ok {
		return codes.Unset, ""
	}
	if code >= 400 {
		return codes.Error, fmt.Sprintf("HTTP %d", code)
	}
	return codes.Ok, "OK"
}
