//go:build windows

package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"markestedt/linkgrab/platform"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procRegisterHotKey     = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32.NewProc("UnregisterHotKey")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procPeekMessageW       = user32.NewProc("PeekMessageW")
	procTranslateMessage   = user32.NewProc("TranslateMessage")
	procDispatchMessageW   = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
	procGetCurrentThreadID = kernel32.NewProc("GetCurrentThreadId")
)

const (
	wmHotkey   = 0x0312
	wmQuit     = 0x0012
	wmApp      = 0x8000
	pmNoRemove = 0x0000

	winModAlt      = 0x0001
	winModControl  = 0x0002
	winModShift    = 0x0004
	winModWin      = 0x0008
	winModNoRepeat = 0x4000

	firstHotkeyID int32 = 0x4000
	maxHotkeyID   int32 = 0xBFFF
)

var requestTimeout = 2 * time.Second

var errRequestTimeout = errors.New("hotkey request timed out")

type point struct {
	x int32
	y int32
}

// winMsg mirrors the Win32 MSG struct; the layout must not change
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

// pumpRequest is executed on the pump thread, which owns every registration
type pumpRequest struct {
	register bool
	id       int32
	mods     uint32
	vk       uint32
	callback func()
	reply    chan error
}

// nativeBackend registers hotkeys with RegisterHotKey on a dedicated
// OS-locked thread that is started on first use
type nativeBackend struct {
	mu       sync.Mutex
	started  bool
	closed   bool
	threadID uint32
	nextID   int32
	requests chan pumpRequest
	doneCh   chan struct{}

	// Win32 calls, replaced in tests
	registerFn   func(id int32, mods, vk uint32) error
	unregisterFn func(id int32) error
}

func newNativeBackend() (Backend, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	if err := kernel32.Load(); err != nil {
		return nil, fmt.Errorf("kernel32.dll is unavailable: %w", err)
	}
	return &nativeBackend{
		nextID:       firstHotkeyID,
		requests:     make(chan pumpRequest, 16),
		registerFn:   registerHotKey,
		unregisterFn: unregisterHotKey,
	}, nil
}

func (b *nativeBackend) Name() string { return "native" }

// StartListening is a no-op: the pump only dispatches registered ids
func (b *nativeBackend) StartListening() {}

// StopListening is a no-op, see StartListening
func (b *nativeBackend) StopListening() {}

func (b *nativeBackend) Register(c Chord, callback func()) (Handle, error) {
	vk, err := platform.VKCode(c.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, c.Key)
	}

	mods := uint32(winModNoRepeat)
	if c.Ctrl {
		mods |= winModControl
	}
	if c.Shift {
		mods |= winModShift
	}
	if c.Alt {
		mods |= winModAlt
	}
	if c.Win {
		mods |= winModWin
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errors.New("native hotkey backend is closed")
	}
	if err := b.ensurePumpLocked(); err != nil {
		b.mu.Unlock()
		return nil, err
	}
	if b.nextID > maxHotkeyID {
		b.mu.Unlock()
		return nil, fmt.Errorf("hotkey ID range exhausted (ID=%d)", b.nextID)
	}
	id := b.nextID
	b.nextID++
	b.mu.Unlock()

	err = b.send(pumpRequest{register: true, id: id, mods: mods, vk: uint32(vk), callback: callback})
	if errors.Is(err, errRequestTimeout) {
		// the pump may still register id later; the queued unregister runs after it
		go func() {
			if err := b.send(pumpRequest{id: id}); err != nil {
				slog.Warn("Failed to withdraw timed out hotkey registration", "hotkey", c.String(), "error", err)
			}
		}()
	}
	if err != nil {
		return nil, fmt.Errorf("register hotkey %q failed: %w", c.String(), err)
	}
	return &nativeHandle{backend: b, id: id}, nil
}

func (b *nativeBackend) Close() error {
	b.mu.Lock()
	if b.closed || !b.started {
		b.closed = true
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	threadID, doneCh := b.threadID, b.doneCh
	b.mu.Unlock()

	if err := postThreadMessage(threadID, wmQuit); err != nil {
		return fmt.Errorf("stop hotkey message loop: %w", err)
	}

	select {
	case <-doneCh:
		return nil
	case <-time.After(requestTimeout):
		slog.Warn("Hotkey message loop stop timed out, thread may leak")
		return errors.New("hotkey message loop stop timed out")
	}
}

func (b *nativeBackend) ensurePumpLocked() error {
	if b.started {
		return nil
	}

	ready := make(chan error, 1)
	b.doneCh = make(chan struct{})
	go b.runPump(ready)

	if err := <-ready; err != nil {
		return err
	}
	b.started = true
	return nil
}

// send queues a request for the pump thread and wakes it with WM_APP
func (b *nativeBackend) send(req pumpRequest) error {
	b.mu.Lock()
	threadID, closed := b.threadID, b.closed
	b.mu.Unlock()
	if closed && req.register {
		return errors.New("native hotkey backend is closed")
	}

	req.reply = make(chan error, 1)
	select {
	case b.requests <- req:
	case <-time.After(requestTimeout):
		return errors.New("hotkey request queue is full")
	}

	if err := postThreadMessage(threadID, wmApp); err != nil {
		return err
	}

	select {
	case err := <-req.reply:
		return err
	case <-b.doneCh:
		return errors.New("hotkey message loop exited")
	case <-time.After(requestTimeout):
		return errRequestTimeout
	}
}

func (b *nativeBackend) runPump(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(b.doneCh)

	tid, _, err := procGetCurrentThreadID.Call()
	if tid == 0 {
		ready <- fmt.Errorf("GetCurrentThreadId returned 0: %w", err)
		return
	}

	// PeekMessageW creates the thread message queue so PostThreadMessageW works
	var qmsg winMsg
	procPeekMessageW.Call(uintptr(unsafe.Pointer(&qmsg)), 0, 0, 0, pmNoRemove)

	b.threadID = uint32(tid)
	ready <- nil

	callbacks := make(map[int32]func())
	defer func() {
		for id := range callbacks {
			if err := b.unregisterFn(id); err != nil {
				slog.Error("Failed to unregister hotkey on loop exit", "error", err, "id", id)
			}
		}
	}()

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			slog.Warn("GetMessageW returned error, exiting hotkey loop", "error", lastErr)
			return
		case 0:
			return
		}

		switch msg.message {
		case wmHotkey:
			if cb, ok := callbacks[int32(msg.wParam)]; ok {
				go cb()
			}
		case wmApp:
			b.drainRequests(callbacks)
		default:
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
		}
	}
}

func (b *nativeBackend) drainRequests(callbacks map[int32]func()) {
	for {
		select {
		case req := <-b.requests:
			if req.register {
				err := b.registerFn(req.id, req.mods, req.vk)
				if err == nil {
					callbacks[req.id] = req.callback
				}
				req.reply <- err
				continue
			}
			if _, ok := callbacks[req.id]; !ok {
				req.reply <- nil
				continue
			}
			delete(callbacks, req.id)
			req.reply <- b.unregisterFn(req.id)
		default:
			return
		}
	}
}

type nativeHandle struct {
	backend *nativeBackend
	id      int32
	once    sync.Once
	err     error
}

func (h *nativeHandle) Unregister() error {
	h.once.Do(func() {
		h.err = h.backend.send(pumpRequest{id: h.id})
	})
	return h.err
}

func registerHotKey(id int32, mods, vk uint32) error {
	res, _, err := procRegisterHotKey.Call(0, uintptr(id), uintptr(mods), uintptr(vk))
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("RegisterHotKey failed")
	}
	return err
}

func unregisterHotKey(id int32) error {
	res, _, err := procUnregisterHotKey.Call(0, uintptr(id))
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("UnregisterHotKey failed")
	}
	return err
}

func postThreadMessage(threadID uint32, message uint32) error {
	if threadID == 0 {
		return errors.New("hotkey message loop is not running")
	}
	res, _, err := procPostThreadMessageW.Call(uintptr(threadID), uintptr(message), 0, 0)
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("PostThreadMessageW failed")
	}
	return err
}
