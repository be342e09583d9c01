package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/unkn0wn-root/reqlens/internal/record"
	"github.com/unkn0wn-root/reqlens/internal/timeline"
)

func TestExportTimelineSpanTree(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	exp, err := New(
		Config{ServiceName: "reqlens-test", Version: "test"},
		WithSpanProcessor(recorder),
	)
	if err != nil {
		t.Fatalf("New exporter: %v", err)
	}
	t.Cleanup(func() {
		_ = exp.Shutdown(context.Background())
	})

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := record.Record{
		ID:                 "rec-1",
		IsHTTPS:            true,
		Host:               "example.com",
		Path:               "/api/health",
		QueryString:        "?v=1",
		Method:             "get",
		IsCompleted:        true,
		ResponseStatusCode: 200,
		Timeline: &timeline.Node{
			Kind:      timeline.KindScope,
			Name:      "request",
			Timestamp: base,
			Duration:  100 * time.Millisecond,
			Children: []timeline.Node{
				{
					Kind:      timeline.KindScope,
					Name:      "connect",
					Category:  "net",
					Timestamp: base,
					Duration:  30 * time.Millisecond,
					Children: []timeline.Node{
						{Kind: timeline.KindScope, Name: "ssl", Timestamp: base.Add(10 * time.Millisecond), Duration: 20 * time.Millisecond},
					},
				},
				{Kind: timeline.KindStamp, Name: "headers-sent", Timestamp: base.Add(35 * time.Millisecond)},
				{Kind: timeline.KindScope, Name: "wait", Timestamp: base.Add(40 * time.Millisecond), Duration: 60 * time.Millisecond},
			},
		},
	}

	if err := exp.ExportTimeline(context.Background(), r); err != nil {
		t.Fatalf("ExportTimeline: %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 4 {
		t.Fatalf("expected 4 spans, got %d", len(spans))
	}
	byName := make(map[string]sdktrace.ReadOnlySpan, len(spans))
	for _, s := range spans {
		byName[s.Name()] = s
	}

	root, ok := byName["GET /api/health"]
	if !ok {
		t.Fatalf("missing root span, have %v", names(spans))
	}
	assertAttribute(t, root, "http.method", "GET")
	assertAttribute(t, root, "http.url", "https://example.com/api/health?v=1")
	assertAttribute(t, root, "reqlens.record.id", "rec-1")
	assertAttribute(t, root, "reqlens.timeline.active_ms", int64(90))
	if !root.StartTime().Equal(base) || !root.EndTime().Equal(base.Add(100*time.Millisecond)) {
		t.Fatalf("unexpected root span bounds %s - %s", root.StartTime(), root.EndTime())
	}
	if root.Status().Code != codes.Ok {
		t.Fatalf("expected OK status, got %v", root.Status().Code)
	}

	events := root.Events()
	if len(events) != 1 || events[0].Name != "headers-sent" {
		t.Fatalf("expected stamp event on root, got %#v", events)
	}
	if !events[0].Time.Equal(base.Add(35 * time.Millisecond)) {
		t.Fatalf("unexpected event time %s", events[0].Time)
	}

	connect := byName["connect"]
	ssl := byName["ssl"]
	if connect == nil || ssl == nil {
		t.Fatalf("missing child spans, have %v", names(spans))
	}
	if connect.Parent().SpanID() != root.SpanContext().SpanID() {
		t.Fatalf("connect should be parented to the root span")
	}
	if ssl.Parent().SpanID() != connect.SpanContext().SpanID() {
		t.Fatalf("ssl should be parented to connect")
	}
	assertAttribute(t, connect, "reqlens.timeline.category", "net")
	if !ssl.EndTime().Equal(base.Add(30 * time.Millisecond)) {
		t.Fatalf("unexpected ssl end %s", ssl.EndTime())
	}
}

func TestExportTimelineErrorStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	exp, err := New(Config{}, WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("New exporter: %v", err)
	}
	base := time.Unix(1700000000, 0)
	r := record.Record{
		Host:               "example.com",
		Path:               "/missing",
		Method:             "GET",
		IsCompleted:        true,
		ResponseStatusCode: 404,
		Timeline:           &timeline.Node{Kind: timeline.KindScope, Name: "request", Timestamp: base, Duration: time.Millisecond},
	}
	if err := exp.ExportTimeline(context.Background(), r); err != nil {
		t.Fatalf("ExportTimeline: %v", err)
	}
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := spans[0].Status(); got.Code != codes.Error || got.Description != "HTTP 404" {
		t.Fatalf("unexpected status %#v", got)
	}
}

func TestExportTimelineWithoutTimeline(t *testing.T) {
	exp, err := New(Config{}, WithSpanProcessor(tracetest.NewSpanRecorder()))
	if err != nil {
		t.Fatalf("New exporter: %v", err)
	}
	if err := exp.ExportTimeline(context.Background(), record.Record{}); !errors.Is(err, timeline.ErrNoTimeline) {
		t.Fatalf("expected ErrNoTimeline, got %v", err)
	}
}

func TestNewWithoutEndpointIsNoop(t *testing.T) {
	exp, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := exp.ExportTimeline(context.Background(), record.Record{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if err := exp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func names(spans []sdktrace.ReadOnlySpan) []string {
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, s.Name())
	}
	return out
}

func assertAttribute(t *testing.T, span sdktrace.ReadOnlySpan, key string, want interface{}) {
	t.Helper()
	attrs := span.Attributes()
	for _, attr := range attrs {
		if string(attr.Key) != key {
			continue
		}
		switch v := want.(type) {
		case string:
			if attr.Value.AsString() == v {
				return
			}
		case bool:
			if attr.Value.AsBool() == v {
				return
			}
		case int64:
			if attr.Value.AsInt64() == v {
				return
			}
		}
		t.Fatalf("attribute %s mismatch: got %v, want %v", key, attr.Value, want)
	}
	t.Fatalf("attribute %s not found", key)
}
