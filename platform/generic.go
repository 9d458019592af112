package platform

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
)

// GenericClipboard reads the clipboard through atotto/clipboard, which shells
// out to the platform helpers (pbpaste, xclip, xsel, wl-paste) where needed
type GenericClipboard struct{}

// NewGenericClipboard creates the cross-platform clipboard reader
func NewGenericClipboard() Clipboard {
	return &GenericClipboard{}
}

// Get retrieves text from the clipboard
func (c *GenericClipboard) Get() (string, error) {
	if clipboard.Unsupported {
		return "", ErrUnsupported
	}
	return clipboard.ReadAll()
}

// CommandKeySender synthesizes Ctrl+C (Cmd+C on macOS) with an external
// automation tool, trying each candidate until one succeeds
type CommandKeySender struct {
	candidates [][]string
	run        func(name string, args ...string) error
}

// NewGenericKeySender creates the command based key sender for this OS
func NewGenericKeySender() KeySender {
	return &CommandKeySender{
		candidates: copyCommands(runtime.GOOS),
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

func copyCommands(goos string) [][]string {
	switch goos {
	case "windows":
		return [][]string{
			{"powershell", "-NoProfile", "-Command", "(New-Object -ComObject WScript.Shell).SendKeys('^c')"},
		}
	case "darwin":
		return [][]string{
			{"osascript", "-e", `tell application "System Events" to keystroke "c" using command down`},
		}
	default:
		return [][]string{
			{"xdotool", "key", "--clearmodifiers", "ctrl+c"},
			{"wtype", "-M", "ctrl", "c", "-m", "ctrl"},
		}
	}
}

// SendCopy runs the first copy command that succeeds
func (k *CommandKeySender) SendCopy() error {
	if len(k.candidates) == 0 {
		return ErrUnsupported
	}

	var errs []error
	for _, c := range k.candidates {
		if err := k.run(c[0], c[1:]...); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c[0], err))
			continue
		}
		return nil
	}
	return errors.Join(errs...)
}
