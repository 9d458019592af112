//go:build windows || linux || darwin

// Package keygrab registers global hotkeys through golang.design/x/hotkey.
//
// On Linux the library opens the X11 display in an init function and panics
// without one, so only the linkgrab-hotkeys helper links this package there.
package keygrab

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.design/x/hotkey"

	linkhotkey "markestedt/linkgrab/hotkey"
)

// key constants shared by every golang.design/x/hotkey platform
var genericKeys = map[string]hotkey.Key{
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD,
	"e": hotkey.KeyE, "f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH,
	"i": hotkey.KeyI, "j": hotkey.KeyJ, "k": hotkey.KeyK, "l": hotkey.KeyL,
	"m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO, "p": hotkey.KeyP,
	"q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX,
	"y": hotkey.KeyY, "z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3,
	"4": hotkey.Key4, "5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7,
	"8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
	"space": hotkey.KeySpace, "enter": hotkey.KeyReturn, "esc": hotkey.KeyEscape,
	"tab": hotkey.KeyTab, "delete": hotkey.KeyDelete,
	"left": hotkey.KeyLeft, "right": hotkey.KeyRight, "up": hotkey.KeyUp, "down": hotkey.KeyDown,
}

func genericModifiers(c linkhotkey.Chord) []hotkey.Modifier {
	var mods []hotkey.Modifier
	if c.Ctrl {
		mods = append(mods, modifierMap[modCtrl])
	}
	if c.Shift {
		mods = append(mods, modifierMap[modShift])
	}
	if c.Alt {
		mods = append(mods, modifierMap[modAlt])
	}
	if c.Win {
		mods = append(mods, modifierMap[modSuper])
	}
	return mods
}

type modifier int

const (
	modCtrl modifier = iota
	modShift
	modAlt
	modSuper
)

// Backend grabs chords at the OS level, so they do not reach the foreground
// application
type Backend struct {
	mu        sync.Mutex
	listening bool
	entries   map[*genericHandle]struct{}
}

// NewBackend returns a backend with dispatch enabled
func NewBackend() (linkhotkey.Backend, error) {
	return newBackend(), nil
}

func newBackend() *Backend {
	return &Backend{
		listening: true,
		entries:   make(map[*genericHandle]struct{}),
	}
}

func (b *Backend) Name() string { return "generic" }

func (b *Backend) Register(c linkhotkey.Chord, callback func()) (linkhotkey.Handle, error) {
	key, ok := genericKeys[c.Key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", linkhotkey.ErrUnknownKey, c.Key)
	}

	hk := hotkey.New(genericModifiers(c), key)
	if err := hk.Register(); err != nil {
		return nil, fmt.Errorf("register hotkey %q failed: %w", c.String(), err)
	}

	h := &genericHandle{backend: b, hk: hk, callback: callback, chord: c.String()}

	b.mu.Lock()
	b.entries[h] = struct{}{}
	if b.listening {
		h.startDispatch()
	}
	b.mu.Unlock()

	return h, nil
}

func (b *Backend) StartListening() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.listening {
		return
	}
	b.listening = true
	for h := range b.entries {
		h.startDispatch()
	}
}

func (b *Backend) StopListening() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.listening {
		return
	}
	b.listening = false
	for h := range b.entries {
		h.stopDispatch()
	}
}

func (b *Backend) Close() error {
	b.mu.Lock()
	entries := make([]*genericHandle, 0, len(b.entries))
	for h := range b.entries {
		entries = append(entries, h)
	}
	b.mu.Unlock()

	for _, h := range entries {
		if err := h.Unregister(); err != nil {
			slog.Warn("Failed to unregister hotkey", "hotkey", h.chord, "error", err)
		}
	}
	return nil
}

type genericHandle struct {
	backend  *Backend
	hk       *hotkey.Hotkey
	callback func()
	chord    string

	stop chan struct{}
	done chan struct{}
}

// startDispatch requires backend.mu
func (h *genericHandle) startDispatch() {
	if h.stop != nil {
		return
	}
	h.stop = make(chan struct{})
	h.done = make(chan struct{})
	go h.dispatch(h.stop, h.done)
}

// stopDispatch requires backend.mu and waits for the dispatch goroutine
func (h *genericHandle) stopDispatch() {
	if h.stop == nil {
		return
	}
	close(h.stop)
	<-h.done
	h.stop, h.done = nil, nil
}

func (h *genericHandle) dispatch(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	keydown := h.hk.Keydown()
	for {
		select {
		case <-stop:
			return
		case _, ok := <-keydown:
			if !ok {
				return
			}
			go h.callback()
		}
	}
}

func (h *genericHandle) Unregister() error {
	h.backend.mu.Lock()
	if _, ok := h.backend.entries[h]; !ok {
		h.backend.mu.Unlock()
		return nil
	}
	delete(h.backend.entries, h)
	h.stopDispatch()
	h.backend.mu.Unlock()

	return h.hk.Unregister()
}
