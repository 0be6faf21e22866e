package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emmett/minutes/internal/meeting"
	"github.com/emmett/minutes/internal/output"
)

// RunConfig holds configuration for a console capture run
type RunConfig struct {
	Session SessionOptions

	// OutputFormat is console, json or text
	OutputFormat string

	// Output receives transcript segments (default: os.Stdout)
	Output io.Writer

	// Duration stops the capture automatically when positive
	Duration time.Duration

	// Hotkey, when set, waits for the shortcut to start and stop captures
	// instead of starting immediately
	Hotkey string

	// Shortcuts registers Hotkey
	Shortcuts Shortcuts
}

// Transcriber runs live captures from the command line
type Transcriber struct {
	session *Session
	status  *output.ConsoleOutput
}

// NewTranscriber creates a new Transcriber. Status messages go to status.
func NewTranscriber(session *Session, status *output.ConsoleOutput) *Transcriber {
	return &Transcriber{session: session, status: status}
}

// Run captures until ctx is cancelled or the duration elapses, then files
// the meeting. It returns every meeting saved during the run.
func (t *Transcriber) Run(ctx context.Context, cfg RunConfig) ([]*meeting.Meeting, error) {
	w := cfg.Output
	if w == nil {
		w = os.Stdout
	}
	formatter, err := output.NewFormatter(cfg.OutputFormat, w)
	if err != nil {
		return nil, err
	}
	defer formatter.Close()

	unsubscribe := t.session.Pipeline().Subscribe(output.NewPrinter(formatter))
	defer unsubscribe()

	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	var saved []*meeting.Meeting

	if cfg.Hotkey != "" {
		results := make(chan ToggleResult, 4)
		release, err := BindHotkey(ctx, cfg.Shortcuts, t.session, cfg.Hotkey, cfg.Session, func(r ToggleResult) { results <- r })
		if err != nil {
			return nil, err
		}
		defer release()
		t.status.Info(fmt.Sprintf("Press %s to start or stop a capture. Press Ctrl+C to quit.", cfg.Hotkey))

		for {
			select {
			case <-ctx.Done():
				m, err := t.stop()
				return appendMeeting(saved, m), err
			case r := <-results:
				switch {
				case r.Err != nil:
					t.status.Error(r.Err.Error())
				case r.Started:
					t.status.Info("Capture started")
				default:
					t.report(r.Meeting)
					saved = appendMeeting(saved, r.Meeting)
				}
			}
		}
	}

	if err := t.session.Start(cfg.Session); err != nil {
		return nil, fmt.Errorf("failed to start capture: %w", err)
	}
	t.status.Info("Listening. Press Ctrl+C to stop.")
	if cfg.OutputFormat == "" || strings.EqualFold(cfg.OutputFormat, "console") {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Transcription:")
		fmt.Fprintln(w, strings.Repeat("=", 72))
	}

	<-ctx.Done()
	m, err := t.stop()
	return appendMeeting(saved, m), err
}

func (t *Transcriber) stop() (*meeting.Meeting, error) {
	t.status.Info("Stopping...")
	// the run context is already done; filing the meeting gets its own
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	m, err := t.session.Stop(ctx)
	if err != nil {
		t.status.Error(err.Error())
	}
	t.report(m)
	return m, err
}

func (t *Transcriber) report(m *meeting.Meeting) {
	if m == nil {
		t.status.Info("Nothing was transcribed; no meeting saved")
		return
	}
	t.status.Info(fmt.Sprintf("Meeting saved: %s (%s)", m.Title, m.ID))
	t.status.Info(fmt.Sprintf("Transcript: %s", m.TranscriptPath))
}

func appendMeeting(list []*meeting.Meeting, m *meeting.Meeting) []*meeting.Meeting {
	if m == nil {
		return list
	}
	return append(list, m)
}
