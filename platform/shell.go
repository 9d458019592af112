package platform

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// Notify shows a desktop notification. Failures are logged, never returned:
// a missing notification tool must not disturb the caller.
func Notify(title, message string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		script := fmt.Sprintf(
			`Add-Type -AssemblyName System.Windows.Forms; `+
				`$n = New-Object System.Windows.Forms.NotifyIcon; `+
				`$n.Icon = [System.Drawing.SystemIcons]::Information; $n.Visible = $true; `+
				`$n.ShowBalloonTip(3000, '%s', '%s', 'Info'); Start-Sleep -Seconds 4; $n.Dispose()`,
			escapePowerShell(title), escapePowerShell(message))
		cmd = exec.Command("powershell", "-NoProfile", "-WindowStyle", "Hidden", "-Command", script)
	case "darwin":
		cmd = exec.Command("osascript", "-e",
			fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title)))
	case "linux":
		cmd = exec.Command("notify-send", title, message)
	default:
		slog.Info("Notification", "title", title, "message", message)
		return
	}

	if err := cmd.Start(); err != nil {
		slog.Warn("Failed to show notification", "error", err)
		return
	}
	go cmd.Wait()
}

// Open opens a file or folder with the default application
func Open(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("open %s: %w", path, ErrUnsupported)
	}

	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

func escapePowerShell(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
