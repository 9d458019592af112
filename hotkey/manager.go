package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
)

// Manager registers global hotkeys, preferring the native backend and falling
// back to the generic one
type Manager struct {
	mu      sync.Mutex
	native  Backend
	generic Backend

	// separate collections so UnregisterAll cleans up both backends
	nativeHandles  map[string]Handle
	genericHandles map[string]Handle
}

// NewManager creates a manager with the native backend of this OS and the
// given generic fallback, which may be nil
func NewManager(generic Backend) *Manager {
	native, err := newNativeBackend()
	if err != nil {
		slog.Info("Native hotkey backend unavailable, using generic", "reason", err)
		native = nil
	}
	return NewManagerWithBackends(native, generic)
}

// NewManagerWithBackends creates a manager with explicit backends. Either may
// be nil.
func NewManagerWithBackends(native, generic Backend) *Manager {
	return &Manager{
		native:         native,
		generic:        generic,
		nativeHandles:  make(map[string]Handle),
		genericHandles: make(map[string]Handle),
	}
}

// Register installs a global trigger for combination. Registering a chord
// that is already live replaces the previous registration.
func (m *Manager) Register(combination string, callback func()) error {
	if callback == nil {
		return errors.New("hotkey callback is required")
	}

	chord, err := ParseChord(combination)
	if err != nil {
		return err
	}
	name := chord.String()
	cb := safeCallback(name, callback)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.unregisterLocked(name)

	var nativeErr error
	if m.native != nil {
		h, err := m.native.Register(chord, cb)
		if err == nil {
			m.nativeHandles[name] = h
			slog.Info("Hotkey registered", "hotkey", name, "backend", m.native.Name())
			return nil
		}
		nativeErr = err
		slog.Info("Native hotkey registration failed, falling back to generic", "hotkey", name, "error", err)
	}

	if m.generic == nil {
		if nativeErr != nil {
			return nativeErr
		}
		return fmt.Errorf("no hotkey backend available for %q", name)
	}

	h, err := m.generic.Register(chord, cb)
	if err != nil {
		return errors.Join(nativeErr, err)
	}
	m.genericHandles[name] = h
	slog.Info("Hotkey registered", "hotkey", name, "backend", m.generic.Name())
	return nil
}

// UnregisterAll removes every registration. It is safe to call repeatedly.
func (m *Manager) UnregisterAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name := range m.nativeHandles {
		m.unregisterLocked(name)
	}
	for name := range m.genericHandles {
		m.unregisterLocked(name)
	}
}

// Active returns the normalized chords that are currently registered
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.nativeHandles)+len(m.genericHandles))
	for name := range m.nativeHandles {
		names = append(names, name)
	}
	for name := range m.genericHandles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartListening resumes event dispatch after StopListening
func (m *Manager) StartListening() {
	for _, b := range m.backends() {
		b.StartListening()
	}
}

// StopListening pauses event dispatch; it returns once the generic dispatch
// goroutines have exited
func (m *Manager) StopListening() {
	for _, b := range m.backends() {
		b.StopListening()
	}
}

// Close unregisters everything and releases the backends
func (m *Manager) Close() error {
	m.UnregisterAll()

	var errs []error
	for _, b := range m.backends() {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s backend: %w", b.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) backends() []Backend {
	var bs []Backend
	if m.native != nil {
		bs = append(bs, m.native)
	}
	if m.generic != nil {
		bs = append(bs, m.generic)
	}
	return bs
}

func (m *Manager) unregisterLocked(name string) {
	if h, ok := m.nativeHandles[name]; ok {
		delete(m.nativeHandles, name)
		if err := h.Unregister(); err != nil {
			slog.Warn("Failed to unregister hotkey", "hotkey", name, "backend", "native", "error", err)
		}
	}
	if h, ok := m.genericHandles[name]; ok {
		delete(m.genericHandles, name)
		if err := h.Unregister(); err != nil {
			slog.Warn("Failed to unregister hotkey", "hotkey", name, "backend", "generic", "error", err)
		}
	}
}

func safeCallback(name string, callback func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Hotkey callback panicked", "hotkey", name, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		callback()
	}
}
