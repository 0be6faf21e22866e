//go:build linux

package input

import "golang.design/x/hotkey"

// platformModifiers maps Alt to Mod1 and Super to Mod4, as X11 does by
// default.
var platformModifiers = map[string]hotkey.Modifier{
	"alt":   hotkey.Mod1,
	"super": hotkey.Mod4,
	"win":   hotkey.Mod4,
}
