package live

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/emmett/minutes/internal/observe"
	"github.com/emmett/minutes/internal/stt"
)

// invoker hands chunks to the engine one at a time.
type invoker struct {
	engine   stt.Engine
	rate     int
	language string
	vad      bool
	metrics  *observe.Metrics
}

// transcribe runs the engine on chunk and returns the trimmed, space-joined
// segment texts. An empty string means the chunk held no speech.
func (inv *invoker) transcribe(ctx context.Context, chunk []float32) (string, error) {
	ctx, span := observe.StartSpan(ctx, "live.transcribe_chunk")
	defer span.End()
	span.SetAttributes(
		attribute.Int("audio.samples", len(chunk)),
		attribute.Int("audio.sample_rate", inv.rate),
		attribute.String("stt.language", inv.language),
	)

	start := time.Now()
	segs, err := inv.engine.Transcribe(ctx, stt.Request{
		Samples:    chunk,
		SampleRate: inv.rate,
		Language:   inv.language,
		VADFilter:  inv.vad,
	})
	if err != nil {
		inv.metrics.RecordChunk(ctx, time.Since(start), "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "transcription failed")
		return "", err
	}

	text := stt.JoinSegments(segs, " ")
	status := "ok"
	if text == "" {
		status = "empty"
	}
	span.SetAttributes(attribute.String("stt.status", status), attribute.Int("stt.segments", len(segs)))
	inv.metrics.RecordChunk(ctx, time.Since(start), status)
	return text, nil
}

// appendText adds a non-empty result to the transcript.
func (s *TranscriptState) appendText(text string) {
	if s.Transcript != "" {
		s.Transcript += " "
	}
	s.Transcript += text
	s.AppendedSegments++
}
