package hotkey

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// startHelperPair connects a HelperBackend to ServeHelper over pipes
func startHelperPair(t *testing.T, backend Backend) (*HelperBackend, <-chan error) {
	t.Helper()
	cmdR, cmdW := io.Pipe()
	evR, evW := io.Pipe()

	served := make(chan error, 1)
	go func() {
		err := ServeHelper(cmdR, evW, backend)
		evW.Close()
		served <- err
	}()

	b, err := NewHelperBackend(evR, cmdW)
	if err != nil {
		t.Fatalf("NewHelperBackend: %v", err)
	}
	return b, served
}

func waitCall(calls <-chan struct{}, d time.Duration) bool {
	select {
	case <-calls:
		return true
	case <-time.After(d):
		return false
	}
}

func TestHelperForwardsKeyPresses(t *testing.T) {
	fake := newFakeBackend("x11")
	b, served := startHelperPair(t, fake)

	calls := make(chan struct{}, 4)
	chord, _ := ParseChord("ctrl+shift+space")
	h, err := b.Register(chord, func() { calls <- struct{}{} })
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !fake.trigger("ctrl+shift+space") {
		t.Fatal("chord not live in the helper")
	}
	if !waitCall(calls, time.Second) {
		t.Fatal("key press not dispatched")
	}

	b.StopListening()
	fake.trigger("ctrl+shift+space")
	if waitCall(calls, 100*time.Millisecond) {
		t.Error("key press dispatched while paused")
	}
	b.StartListening()
	fake.trigger("ctrl+shift+space")
	if !waitCall(calls, time.Second) {
		t.Error("key press not dispatched after resume")
	}

	if err := h.Unregister(); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if live := fake.liveChords(); len(live) != 0 {
		t.Errorf("live chords after unregister = %v", live)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("ServeHelper: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("helper did not stop after its input closed")
	}
	fake.mu.Lock()
	closed := fake.closed
	fake.mu.Unlock()
	if !closed {
		t.Error("helper backend not closed")
	}
}

func TestHelperReportsRegisterFailure(t *testing.T) {
	fake := newFakeBackend("x11")
	fake.fail["ctrl+f9"] = errors.New("grab failed: BadAccess")
	b, _ := startHelperPair(t, fake)
	defer b.Close()

	chord, _ := ParseChord("ctrl+f9")
	_, err := b.Register(chord, func() {})
	if err == nil || !strings.Contains(err.Error(), "BadAccess") {
		t.Fatalf("error = %v, want the helper's error", err)
	}
}

func TestHelperThatDiesOnStartupIsUnavailable(t *testing.T) {
	_, w := io.Pipe()
	// a helper that panicked during init closes stdout without a ready frame
	_, err := NewHelperBackend(strings.NewReader(""), w)
	if err == nil || !strings.Contains(err.Error(), "before it was ready") {
		t.Fatalf("error = %v, want startup failure", err)
	}
}

func TestManagerWithoutGenericBackend(t *testing.T) {
	m := NewManager(nil)
	defer m.Close()
	if m.generic != nil {
		t.Fatal("nil generic backend should stay nil")
	}
}
