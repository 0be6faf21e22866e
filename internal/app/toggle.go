package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/emmett/minutes/internal/meeting"
)

// Toggle starts a capture when idle and stops it otherwise. On stop it
// returns the saved meeting, if any.
func (s *Session) Toggle(ctx context.Context, opts SessionOptions) (started bool, m *meeting.Meeting, err error) {
	if s.Running() {
		m, err = s.Stop(ctx)
		return false, m, err
	}
	if err := s.Start(opts); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

// ToggleResult reports what one hotkey press did.
type ToggleResult struct {
	Started bool
	Meeting *meeting.Meeting
	Err     error
}

// Shortcuts registers global keyboard shortcuts. The returned func
// releases the shortcut.
type Shortcuts interface {
	Bind(ctx context.Context, spec string, onPress func()) (release func(), err error)
}

// ErrNoShortcuts is returned when a hotkey is requested without a
// Shortcuts implementation.
var ErrNoShortcuts = errors.New("global shortcuts are not available")

// BindHotkey toggles s each time spec is pressed. report receives the
// outcome of every press.
func BindHotkey(ctx context.Context, sc Shortcuts, s *Session, spec string, opts SessionOptions, report func(ToggleResult)) (func(), error) {
	if sc == nil {
		return nil, ErrNoShortcuts
	}
	release, err := sc.Bind(ctx, spec, func() {
		started, m, err := s.Toggle(ctx, opts)
		if report != nil {
			report(ToggleResult{Started: started, Meeting: m, Err: err})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("bind hotkey: %w", err)
	}
	return release, nil
}
