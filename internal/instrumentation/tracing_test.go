package instrumentation

import (
	"context"
	"errors"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartStageSpan(t *testing.T) {
	recorder := withRecorder(t)

	ctx, span := StartStageSpan(context.Background(), StageCluster)
	if GetTraceID(ctx) == "" {
		t.Error("expected a trace id in context")
	}
	SetSpanSuccess(span)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "triage.cluster" {
		t.Errorf("span name = %q, want triage.cluster", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status().Code)
	}
}

func TestStartArchiveSpan_Error(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartArchiveSpan(context.Background(), "m-1")
	SetSpanError(span, errors.New("connection reset"))
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "archive.message" {
		t.Errorf("span name = %q, want archive.message", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status().Code)
	}
}

func TestStartToolSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartToolSpan(context.Background(), "triage_show_cluster")
	AddSpanEvent(span, "loaded")
	span.End()

	if got := recorder.Ended()[0].Name(); got != "tool.triage_show_cluster" {
		t.Errorf("span name = %q", got)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID() = %q, want empty", id)
	}
}
