package live_test

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/emmett/minutes/internal/stt/mock"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func chunkSpans(rec *tracetest.SpanRecorder) []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, s := range rec.Ended() {
		if s.Name() == "live.transcribe_chunk" {
			out = append(out, s)
		}
	}
	return out
}

func TestPipeline_ChunkSpans(t *testing.T) {
	rec := recordSpans(t)
	backend := speakers()
	engine := &mock.Engine{Text: "  bonjour  ", Err: errors.New("decoder crashed"), ErrOnCall: 1}
	p := newPipeline(t, backend, engine)

	cfg := testConfig()
	cfg.MicDevice = "0"
	if err := p.Start(cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	backend.FeedTone("fake-0", 2, 0.5, 100)
	waitFor(t, "two chunk spans", func() bool { return len(chunkSpans(rec)) >= 2 })
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	spans := chunkSpans(rec)
	if spans[0].Status().Code != codes.Error || len(spans[0].Events()) == 0 {
		t.Errorf("failed chunk span status = %v, events = %d", spans[0].Status(), len(spans[0].Events()))
	}
	var status string
	for _, kv := range spans[1].Attributes() {
		if kv.Key == "stt.status" {
			status = kv.Value.AsString()
		}
	}
	if status != "ok" {
		t.Errorf("stt.status = %q, want ok", status)
	}
	if got := p.State().Transcript; got != "bonjour" {
		t.Errorf("transcript = %q", got)
	}
}
