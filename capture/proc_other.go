//go:build !windows

package capture

import "os/exec"

func hideWindow(_ *exec.Cmd) {}
