//go:build windows

package platform

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	setWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	callNextHookEx      = user32.NewProc("CallNextHookEx")
	unhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	getMessage          = user32.NewProc("GetMessageW")
	postThreadMessage   = user32.NewProc("PostThreadMessageW")
	getCurrentThreadID  = kernel32.NewProc("GetCurrentThreadId")
)

const (
	whKeyboardLL = 13
	wmKeydown    = 0x0100
	wmSyskeydown = 0x0104
	wmQuit       = 0x0012
	vkEscape     = 0x1B
)

// ErrChordCanceled is returned when the user presses Esc alone
var ErrChordCanceled = errors.New("chord capture canceled")

// modifier names by virtual key, left/right variants included
var modifierKeys = map[uint32]string{
	0x10: "shift", 0xA0: "shift", 0xA1: "shift",
	0x11: "ctrl", 0xA2: "ctrl", 0xA3: "ctrl",
	0x12: "alt", 0xA4: "alt", 0xA5: "alt",
	0x5B: "win", 0x5C: "win",
}

type kbdllhookstruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type msg struct {
	hwnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       struct{ x, y int32 }
	lPrivate uint32
}

// chordSession accumulates keys until every key is released
type chordSession struct {
	mu   sync.Mutex
	mods map[string]bool
	held map[uint32]bool
	key  string
	once sync.Once
	done chan chordResult
}

type chordResult struct {
	chord string
	err   error
}

var (
	activeSession atomic.Pointer[chordSession]
	hookCallback  = windows.NewCallback(chordHookProc)
)

// WindowsChordReader reads one chord through a low-level keyboard hook.
// Keys are swallowed while reading so they never reach the foreground window.
type WindowsChordReader struct{}

// NewChordReader returns the low-level hook chord reader
func NewChordReader() (ChordReader, error) {
	if err := setWindowsHookEx.Find(); err != nil {
		return nil, fmt.Errorf("SetWindowsHookExW is unavailable: %w", err)
	}
	return &WindowsChordReader{}, nil
}

// ReadChord blocks until a full chord has been pressed and released
func (r *WindowsChordReader) ReadChord(ctx context.Context) (string, error) {
	s := &chordSession{
		mods: make(map[string]bool),
		held: make(map[uint32]bool),
		done: make(chan chordResult, 1),
	}
	if !activeSession.CompareAndSwap(nil, s) {
		return "", fmt.Errorf("chord capture already in progress")
	}
	defer activeSession.Store(nil)

	ready := make(chan uint32, 1)
	loopErr := make(chan error, 1)
	go runHookLoop(ready, loopErr)

	var threadID uint32
	select {
	case threadID = <-ready:
	case err := <-loopErr:
		return "", err
	}

	defer func() {
		postThreadMessage.Call(uintptr(threadID), wmQuit, 0, 0)
		<-loopErr
	}()

	select {
	case res := <-s.done:
		return res.chord, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func runHookLoop(ready chan<- uint32, loopErr chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hook, _, err := setWindowsHookEx.Call(whKeyboardLL, hookCallback, 0, 0)
	if hook == 0 {
		loopErr <- fmt.Errorf("SetWindowsHookEx failed: %w", err)
		return
	}
	defer unhookWindowsHookEx.Call(hook)

	tid, _, _ := getCurrentThreadID.Call()
	ready <- uint32(tid)

	// The hook procedure only runs while this thread pumps messages
	var m msg
	for {
		r, _, _ := getMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) <= 0 {
			break
		}
	}
	loopErr <- nil
}

func chordHookProc(nCode int32, wParam uintptr, lParam uintptr) uintptr {
	if nCode >= 0 {
		if s := activeSession.Load(); s != nil {
			kbInfo := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			s.handleKeyEvent(wParam, kbInfo.vkCode)
			return 1
		}
	}
	r, _, _ := callNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return r
}

func (s *chordSession) handleKeyEvent(wParam uintptr, vk uint32) {
	isKeyDown := wParam == wmKeydown || wParam == wmSyskeydown

	s.mu.Lock()
	defer s.mu.Unlock()

	if isKeyDown {
		s.held[vk] = true
		if name, ok := modifierKeys[vk]; ok {
			s.mods[name] = true
			return
		}
		if vk == vkEscape && len(s.mods) == 0 {
			s.finish(chordResult{err: ErrChordCanceled})
			return
		}
		if name, ok := keyName(vk); ok {
			s.key = name
		}
		return
	}

	delete(s.held, vk)
	if len(s.held) == 0 && s.key != "" {
		s.finish(chordResult{chord: s.chordLocked()})
	}
}

func (s *chordSession) chordLocked() string {
	var parts []string
	for _, mod := range []string{"ctrl", "shift", "alt", "win"} {
		if s.mods[mod] {
			parts = append(parts, mod)
		}
	}
	return strings.Join(append(parts, s.key), "+")
}

func (s *chordSession) finish(res chordResult) {
	s.once.Do(func() {
		s.done <- res
	})
}
