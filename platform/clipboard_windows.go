//go:build windows

package platform

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procOpenClipboard              = user32.NewProc("OpenClipboard")
	procCloseClipboard             = user32.NewProc("CloseClipboard")
	procGetClipboardData           = user32.NewProc("GetClipboardData")
	procIsClipboardFormatAvailable = user32.NewProc("IsClipboardFormatAvailable")
	procGlobalLock                 = kernel32.NewProc("GlobalLock")
	procGlobalUnlock               = kernel32.NewProc("GlobalUnlock")
	procGlobalSize                 = kernel32.NewProc("GlobalSize")
)

const (
	cfUnicodeText = 13

	openAttempts = 10
	openBackoff  = 10 * time.Millisecond
)

// WindowsClipboard reads CF_UNICODETEXT through the Win32 clipboard API
type WindowsClipboard struct{}

// NewNativeClipboard returns the Win32 clipboard reader
func NewNativeClipboard() (Clipboard, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	return &WindowsClipboard{}, nil
}

// Get returns the clipboard text, "" when the clipboard holds no text
func (c *WindowsClipboard) Get() (string, error) {
	var text string
	err := withClipboard(func() error {
		if ok, _, _ := procIsClipboardFormatAvailable.Call(cfUnicodeText); ok == 0 {
			return nil
		}
		h, _, callErr := procGetClipboardData.Call(cfUnicodeText)
		if h == 0 {
			return fmt.Errorf("GetClipboardData failed: %w", callErr)
		}
		var err error
		text, err = readGlobalText(h)
		return err
	})
	return text, err
}

// withClipboard opens the clipboard, runs fn and closes it again. Another
// process may hold the clipboard for a few milliseconds, so opening retries.
func withClipboard(fn func() error) error {
	opened := false
	for i := 0; i < openAttempts; i++ {
		if r, _, _ := procOpenClipboard.Call(0); r != 0 {
			opened = true
			break
		}
		time.Sleep(openBackoff)
	}
	if !opened {
		return fmt.Errorf("clipboard is held by another process after %d attempts", openAttempts)
	}
	defer procCloseClipboard.Call()
	return fn()
}

// readGlobalText copies a UTF-16 string out of a global memory handle. The
// copy is bounded by the block size, so a missing terminator cannot overrun.
func readGlobalText(h uintptr) (string, error) {
	size, _, _ := procGlobalSize.Call(h)
	if size < 2 {
		return "", nil
	}

	p, _, err := procGlobalLock.Call(h)
	if p == 0 {
		return "", fmt.Errorf("GlobalLock failed: %w", err)
	}
	defer procGlobalUnlock.Call(h)

	units := unsafe.Slice((*uint16)(unsafe.Pointer(p)), size/2)
	for i, u := range units {
		if u == 0 {
			units = units[:i]
			break
		}
	}
	return windows.UTF16ToString(units), nil
}
