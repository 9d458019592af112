package main

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"markestedt/linkgrab/hotkey"
)

// hotkeyHelperName is built from ./cmd/linkgrab-hotkeys. The X11 grabber
// panics at init without a display, so it runs in its own process.
const hotkeyHelperName = "linkgrab-hotkeys"

func newGenericHotkeys(logOut io.Writer) (hotkey.Backend, error) {
	path, err := findHotkeyHelper()
	if err != nil {
		return nil, err
	}
	return hotkey.StartHelper(path, logOut)
}

// findHotkeyHelper prefers the helper installed next to the agent
func findHotkeyHelper() (string, error) {
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), hotkeyHelperName)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return exec.LookPath(hotkeyHelperName)
}
