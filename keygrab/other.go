//go:build !windows && !linux && !darwin

package keygrab

import (
	linkhotkey "markestedt/linkgrab/hotkey"
	"markestedt/linkgrab/platform"
)

func NewBackend() (linkhotkey.Backend, error) {
	return nil, platform.ErrUnsupported
}
