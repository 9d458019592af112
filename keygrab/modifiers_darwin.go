//go:build darwin

package keygrab

import "golang.design/x/hotkey"

var modifierMap = map[modifier]hotkey.Modifier{
	modCtrl:  hotkey.ModCtrl,
	modShift: hotkey.ModShift,
	modAlt:   hotkey.ModOption,
	modSuper: hotkey.ModCmd,
}
