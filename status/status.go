// Package status holds the visual state shown by the tray icon and the web feed.
package status

import (
	"log/slog"
	"sync"
	"time"
)

// State is what the icon currently shows
type State int

const (
	Resting State = iota
	Flashed
	Downloading
)

func (s State) String() string {
	switch s {
	case Resting:
		return "resting"
	case Flashed:
		return "flashed"
	case Downloading:
		return "downloading"
	default:
		return "unknown"
	}
}

const defaultFlash = 300 * time.Millisecond

// Indicator tracks the held base state (resting or downloading) and short
// flashes on top of it
type Indicator struct {
	mu       sync.Mutex
	base     State
	shown    State
	timer    *time.Timer
	pending  func()
	gen      uint64
	flashFor time.Duration

	// emitMu is taken before mu
	emitMu sync.Mutex
	subs   []func(State)

	notifier func(title, message string)
}

// New creates a resting indicator. notifier shows one-shot messages and may
// be nil.
func New(notifier func(title, message string)) *Indicator {
	return &Indicator{flashFor: defaultFlash, notifier: notifier}
}

// Subscribe registers fn to be called on every visible state change
func (i *Indicator) Subscribe(fn func(State)) {
	i.emitMu.Lock()
	defer i.emitMu.Unlock()
	i.subs = append(i.subs, fn)
}

// State returns the state currently shown
func (i *Indicator) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.shown
}

// Flash shows Flashed briefly, then goes back to the state shown before
func (i *Indicator) Flash() {
	i.update(func() (State, bool) {
		snapshot := i.base
		if i.timer != nil {
			i.timer.Stop()
		}
		i.gen++
		gen := i.gen

		i.pending = func() { i.restoreFlash(gen, snapshot) }
		i.timer = time.AfterFunc(i.flashFor, i.pending)
		i.shown = Flashed
		return Flashed, true
	})
}

func (i *Indicator) restoreFlash(gen uint64, snapshot State) {
	i.update(func() (State, bool) {
		if gen != i.gen || i.pending == nil {
			return 0, false
		}
		i.timer, i.pending = nil, nil
		// downloading may have started or finished during the flash
		target := snapshot
		if i.base != snapshot {
			target = i.base
		}
		i.shown = target
		return target, true
	})
}

// SetDownloading holds the downloading state until SetResting
func (i *Indicator) SetDownloading() {
	i.setBase(Downloading)
}

// SetResting returns to the resting state
func (i *Indicator) SetResting() {
	i.setBase(Resting)
}

func (i *Indicator) setBase(s State) {
	i.update(func() (State, bool) {
		i.base = s
		if i.shown == Flashed {
			// the pending restore picks up the new base
			return 0, false
		}
		i.shown = s
		return s, true
	})
}

// Flush runs a pending flash restore immediately
func (i *Indicator) Flush() {
	i.mu.Lock()
	pending := i.pending
	if i.timer != nil {
		i.timer.Stop()
	}
	i.mu.Unlock()

	if pending != nil {
		pending()
	}
}

// Notify shows a one-shot message
func (i *Indicator) Notify(title, message string) {
	slog.Info("Notification", "title", title, "message", message)
	if i.notifier != nil {
		i.notifier(title, message)
	}
}

// update commits change under mu and notifies subscribers before the next
// change can commit, so subscribers see states in commit order. Subscribers
// must not change the indicator.
func (i *Indicator) update(change func() (State, bool)) {
	i.emitMu.Lock()
	defer i.emitMu.Unlock()

	i.mu.Lock()
	s, changed := change()
	i.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range i.subs {
		fn(s)
	}
}
