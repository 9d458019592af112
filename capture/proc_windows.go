//go:build windows

package capture

import (
	"os/exec"
	"syscall"
)

// hideWindow keeps the worker from flashing a console window
func hideWindow(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
}
