package output

import (
	"strings"
	"sync"
	"time"

	"github.com/emmett/minutes/internal/live"
)

// Printer turns transcript snapshots into formatter calls. It writes only
// what changed since the previous snapshot.
type Printer struct {
	f   Formatter
	now func() time.Time

	mu       sync.Mutex
	segments int
	offset   int
	lastErr  string
	running  bool
}

// NewPrinter returns a live.Observer writing to f.
func NewPrinter(f Formatter) *Printer {
	return &Printer{f: f, now: time.Now}
}

var _ live.Observer = (*Printer)(nil)

// OnUpdate implements live.Observer.
func (p *Printer) OnUpdate(s live.TranscriptState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.IsRunning && !p.running {
		// new session: transcript restarts from empty
		p.segments, p.offset, p.lastErr = 0, 0, ""
		msg := "capture started"
		if s.WAVPath != "" {
			msg += ", recording to " + s.WAVPath
		}
		_ = p.f.WriteEvent("start", msg)
	}

	if s.AppendedSegments > p.segments && len(s.Transcript) >= p.offset {
		text := strings.TrimSpace(s.Transcript[p.offset:])
		p.segments = s.AppendedSegments
		p.offset = len(s.Transcript)
		if text != "" {
			_ = p.f.WriteSegment(Segment{Index: p.segments, Text: text, Timestamp: p.now()})
		}
	}

	if s.LastError != "" && s.LastError != p.lastErr {
		p.lastErr = s.LastError
		_ = p.f.WriteEvent("error", s.LastError)
	}

	if !s.IsRunning && p.running {
		_ = p.f.WriteEvent("stop", "capture stopped")
		_ = p.f.Flush()
	}
	p.running = s.IsRunning
}
