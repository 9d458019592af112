//go:build linux

package keygrab

import "golang.design/x/hotkey"

// Alt is Mod1 and Super is Mod4 on X11
var modifierMap = map[modifier]hotkey.Modifier{
	modCtrl:  hotkey.ModCtrl,
	modShift: hotkey.ModShift,
	modAlt:   hotkey.Mod1,
	modSuper: hotkey.Mod4,
}
