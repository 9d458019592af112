//go:build windows

package hotkey

import (
	"sync"
	"testing"
	"time"
)

func TestNativeRegisterTimeoutWithdrawsLateRegistration(t *testing.T) {
	backend, err := newNativeBackend()
	if err != nil {
		t.Skipf("native backend unavailable: %v", err)
	}
	b := backend.(*nativeBackend)
	defer b.Close()

	prev := requestTimeout
	requestTimeout = 50 * time.Millisecond
	defer func() { requestTimeout = prev }()

	release := make(chan struct{})
	var mu sync.Mutex
	var registered, unregistered []int32
	b.registerFn = func(id int32, mods, vk uint32) error {
		<-release
		mu.Lock()
		registered = append(registered, id)
		mu.Unlock()
		return nil
	}
	b.unregisterFn = func(id int32) error {
		mu.Lock()
		unregistered = append(unregistered, id)
		mu.Unlock()
		return nil
	}

	chord, err := ParseChord("ctrl+shift+f9")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Register(chord, func() {}); err == nil {
		t.Fatal("expected a timeout while the pump is blocked")
	}
	close(release)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := len(unregistered) == 1
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(registered) != 1 || len(unregistered) != 1 || registered[0] != unregistered[0] {
		t.Fatalf("registered %v, unregistered %v: late registration left live", registered, unregistered)
	}
}

func TestNativeModifierFlags(t *testing.T) {
	if winModAlt|winModControl|winModShift|winModWin != 0x000F {
		t.Error("Win32 modifier flags overlap")
	}
}
