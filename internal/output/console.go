package output

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleOutput handles outputting transcriptions to the console
type ConsoleOutput struct {
	mu            sync.Mutex
	writer        io.Writer
	errWriter     io.Writer
	showTimestamp bool
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// ShowTimestamp prefixes each line with a timestamp
	ShowTimestamp bool

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer

	// ErrWriter receives errors (default: os.Stderr)
	ErrWriter io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	errWriter := config.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}

	return &ConsoleOutput{
		writer:        writer,
		errWriter:     errWriter,
		showTimestamp: config.ShowTimestamp,
	}
}

// DefaultConsoleOutput creates a console output with default settings
func DefaultConsoleOutput() *ConsoleOutput {
	return NewConsoleOutput(ConsoleConfig{ShowTimestamp: true})
}

// WriteSegment prints "[n] text", optionally timestamped
func (c *ConsoleOutput) WriteSegment(seg Segment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.showTimestamp {
		_, err := fmt.Fprintf(c.writer, "[%s] [%d] %s\n", seg.Timestamp.Format("15:04:05"), seg.Index, seg.Text)
		return err
	}
	_, err := fmt.Fprintf(c.writer, "[%d] %s\n", seg.Index, seg.Text)
	return err
}

// WriteEvent prints events; errors go to the error writer
func (c *ConsoleOutput) WriteEvent(eventType, message string) error {
	if eventType == "error" {
		c.Error(message)
		return nil
	}
	c.Info(message)
	return nil
}

// WriteAudioLevel writes the current audio level (for visualization)
func (c *ConsoleOutput) WriteAudioLevel(level float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	barLength := int(level * 50)
	if barLength > 50 {
		barLength = 50
	}
	bar := make([]byte, barLength)
	for i := range bar {
		bar[i] = '='
	}

	_, err := fmt.Fprintf(c.writer, "\rLevel: [%-50s] %.1f%%", bar, level*100)
	return err
}

// Status writes a status message (typically overwritten)
func (c *ConsoleOutput) Status(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "\r[*] %s", msg)
}

// Info writes an informational message
func (c *ConsoleOutput) Info(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.writer, "[INFO] %s\n", msg)
}

// Error writes an error message
func (c *ConsoleOutput) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.errWriter, "[ERROR] %s\n", msg)
}

// Flush is a no-op for the console
func (c *ConsoleOutput) Flush() error { return nil }

// Close is a no-op for the console
func (c *ConsoleOutput) Close() error { return nil }
