package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Segment is one piece of text appended to the live transcript
type Segment struct {
	Index     int       `json:"index"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

// Event represents a system event
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for output formatters
type Formatter interface {
	// WriteSegment writes newly transcribed text
	WriteSegment(seg Segment) error

	// WriteEvent writes a system event (start, stop, error)
	WriteEvent(eventType, message string) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close closes the formatter and releases resources
	Close() error
}

// NewFormatter returns the formatter for format: console, json or text.
func NewFormatter(format string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return NewConsoleOutput(ConsoleConfig{ShowTimestamp: true, Writer: w}), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "text":
		return NewPlainTextFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (valid: console, json, text)", format)
	}
}

// JSONFormatter writes one JSON object per line
type JSONFormatter struct {
	mu       sync.Mutex
	encoder  *json.Encoder
	segments []Segment
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	return &JSONFormatter{encoder: json.NewEncoder(writer)}
}

// WriteSegment writes a segment in JSON format
func (j *JSONFormatter) WriteSegment(seg Segment) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if seg.Type == "" {
		seg.Type = "segment"
	}
	j.segments = append(j.segments, seg)
	return j.encoder.Encode(seg)
}

// WriteEvent writes a system event
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.encoder.Encode(Event{Type: eventType, Message: message, Timestamp: time.Now()})
}

// Flush is a no-op; the encoder writes immediately
func (j *JSONFormatter) Flush() error { return nil }

// Close closes the formatter
func (j *JSONFormatter) Close() error { return nil }

// Segments returns every segment written so far
func (j *JSONFormatter) Segments() []Segment {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Segment(nil), j.segments...)
}

// PlainTextFormatter outputs transcriptions in plain text format
type PlainTextFormatter struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{writer: writer}
}

// WriteSegment writes a segment as "[hh:mm:ss] text"
func (p *PlainTextFormatter) WriteSegment(seg Segment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.writer, "[%s] %s\n", seg.Timestamp.Format("15:04:05"), seg.Text)
	return err
}

// WriteEvent writes a system event
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.writer, "[%s] [%s] %s\n", time.Now().Format("15:04:05"), eventType, message)
	return err
}

// Flush ensures all buffered output is written
func (p *PlainTextFormatter) Flush() error { return nil }

// Close closes the formatter
func (p *PlainTextFormatter) Close() error { return nil }
