// Package input binds a global keyboard shortcut to capture start/stop.
package input

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.design/x/hotkey"
)

// Toggle calls OnPress every time the registered shortcut goes down.
type Toggle struct {
	OnPress func()

	mu     sync.Mutex
	hk     *hotkey.Hotkey
	cancel context.CancelFunc
	done   chan struct{}
}

// NewToggle returns a Toggle that runs onPress on each key press.
func NewToggle(onPress func()) *Toggle {
	return &Toggle{OnPress: onPress}
}

// Start registers spec, e.g. "ctrl+shift+r", and listens until ctx ends or
// Stop is called.
func (t *Toggle) Start(ctx context.Context, spec string) error {
	mods, key, err := parseHotkey(spec)
	if err != nil {
		return fmt.Errorf("invalid hotkey: %w", err)
	}

	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey %q: %w", spec, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	t.mu.Lock()
	t.hk, t.cancel, t.done = hk, cancel, done
	t.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-hk.Keydown():
				if !ok {
					return
				}
				if t.OnPress != nil {
					t.OnPress()
				}
			}
		}
	}()

	return nil
}

// Stop unregisters the shortcut.
func (t *Toggle) Stop() {
	t.mu.Lock()
	hk, cancel, done := t.hk, t.cancel, t.done
	t.hk, t.cancel, t.done = nil, nil, nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if hk != nil {
		_ = hk.Unregister()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Binder registers shortcuts with the operating system.
type Binder struct{}

// Bind starts a Toggle for spec. The returned func unregisters it.
func (Binder) Bind(ctx context.Context, spec string, onPress func()) (func(), error) {
	t := NewToggle(onPress)
	if err := t.Start(ctx, spec); err != nil {
		return nil, err
	}
	return t.Stop, nil
}

var namedKeys = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "return": hotkey.KeyReturn, "enter": hotkey.KeyReturn,
	"tab": hotkey.KeyTab, "escape": hotkey.KeyEscape, "esc": hotkey.KeyEscape,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// parseHotkey splits "ctrl+shift+r" into modifiers and one key.
func parseHotkey(s string) ([]hotkey.Modifier, hotkey.Key, error) {
	if strings.TrimSpace(s) == "" {
		return nil, 0, fmt.Errorf("empty hotkey string")
	}

	var (
		mods     []hotkey.Modifier
		key      hotkey.Key
		keyFound bool
	)
	for _, part := range strings.Split(strings.ToLower(s), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control":
			mods = append(mods, hotkey.ModCtrl)
		case "shift":
			mods = append(mods, hotkey.ModShift)
		default:
			if m, ok := platformModifiers[part]; ok {
				mods = append(mods, m)
				continue
			}
			if keyFound {
				return nil, 0, fmt.Errorf("multiple keys specified")
			}
			k, ok := namedKeys[part]
			if !ok {
				return nil, 0, fmt.Errorf("unknown key: %s", part)
			}
			key, keyFound = k, true
		}
	}

	if !keyFound {
		return nil, 0, fmt.Errorf("no key specified")
	}
	return mods, key, nil
}
