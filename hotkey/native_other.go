//go:build !windows

package hotkey

import "markestedt/linkgrab/platform"

// RegisterHotKey exists only on Windows; every other OS uses the generic backend
func newNativeBackend() (Backend, error) {
	return nil, platform.ErrUnsupported
}
