package hotkey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"markestedt/linkgrab/platform"
)

// ErrRebindInProgress is returned when a second rebind starts before the first
// has finished
var ErrRebindInProgress = errors.New("hotkey change already in progress")

// Bindings are the two chords the agent keeps registered
type Bindings struct {
	Add        string
	Download   string
	OnAdd      func()
	OnDownload func()
}

// Rebinder changes the add chord while the process keeps running
type Rebinder struct {
	Manager *Manager
	Reader  platform.ChordReader
	Notify  func(title, message string)
	Persist func(chord string) error

	busy atomic.Bool
}

// ChangeAddChord reads the next chord the user presses and makes it the add
// binding. Both bindings are registered again whatever the outcome; the
// returned chord is the add chord that is live afterwards.
func (r *Rebinder) ChangeAddChord(ctx context.Context, b Bindings) (string, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return b.Add, ErrRebindInProgress
	}
	defer r.busy.Store(false)

	r.notify("Change hotkey", "Press the new shortcut for adding links (Esc to cancel)")

	r.Manager.UnregisterAll()
	r.Manager.StopListening()

	active := b.Add
	defer func() {
		r.Manager.StartListening()
		r.registerBoth(active, b)
	}()

	chord, err := r.Reader.ReadChord(ctx)
	if err != nil {
		if errors.Is(err, platform.ErrChordCanceled) {
			r.notify("Change hotkey", "Hotkey unchanged: "+b.Add)
		}
		slog.Warn("Hotkey change failed", "error", err)
		return active, fmt.Errorf("read chord: %w", err)
	}

	normalized, err := Normalize(chord)
	if err != nil {
		slog.Warn("Hotkey change failed", "chord", chord, "error", err)
		return active, err
	}
	if download, err := Normalize(b.Download); err == nil && download == normalized {
		slog.Warn("Hotkey change rejected, chord is the download hotkey", "chord", normalized)
		r.notify("Change hotkey", normalized+" is already the download hotkey")
		return active, fmt.Errorf("chord %q is already bound to download", normalized)
	}

	if r.Persist != nil {
		if err := r.Persist(normalized); err != nil {
			slog.Error("Failed to save hotkey", "chord", normalized, "error", err)
			return active, fmt.Errorf("save hotkey: %w", err)
		}
	}

	active = normalized
	slog.Info("Add hotkey changed", "from", b.Add, "to", normalized)
	r.notify("Change hotkey", "New hotkey: "+normalized)
	return active, nil
}

func (r *Rebinder) registerBoth(add string, b Bindings) {
	if err := r.Manager.Register(add, b.OnAdd); err != nil {
		slog.Error("Failed to register add hotkey", "hotkey", add, "error", err)
	}
	if err := r.Manager.Register(b.Download, b.OnDownload); err != nil {
		slog.Error("Failed to register download hotkey", "hotkey", b.Download, "error", err)
	}
}

func (r *Rebinder) notify(title, message string) {
	if r.Notify != nil {
		r.Notify(title, message)
	}
}
