// Package linkflow turns the current selection into a queued link.
package linkflow

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync/atomic"

	"markestedt/linkgrab/queue"
)

// the scheme must be lowercase to be picked out of the selection; the
// validation pass ignores case
var (
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	validPattern = regexp.MustCompile(`(?i)https?://\S+`)
)

// Result is the outcome of one capture
type Result int

const (
	Added Result = iota
	NothingCaptured
	NoLink
	Duplicate
	SaveFailed
	Busy
)

func (r Result) String() string {
	switch r {
	case Added:
		return "added"
	case NothingCaptured:
		return "nothing captured"
	case NoLink:
		return "no link"
	case Duplicate:
		return "duplicate"
	case SaveFailed:
		return "save failed"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// Worker is the out-of-process capture client
type Worker interface {
	Alive() bool
	CopySelection(ctx context.Context) string
}

// LocalCapturer runs the capture in this process
type LocalCapturer interface {
	AttemptCopySelectedText() string
}

// Queue receives new links
type Queue interface {
	AppendUnique(url string) error
}

// Indicator shows feedback to the user
type Indicator interface {
	Flash()
	Notify(title, message string)
}

// Flow captures the selection and queues the first link in it
type Flow struct {
	Worker Worker
	Local  LocalCapturer
	Queue  Queue
	Status Indicator

	running atomic.Bool
}

// ExtractURL returns the first http(s) link in text
func ExtractURL(text string) (string, bool) {
	m := urlPattern.FindString(text)
	if m == "" {
		return "", false
	}
	m = strings.TrimSpace(m)
	return m, validPattern.MatchString(m)
}

// AddLinkFromSelection is the add hotkey action. Overlapping presses are
// dropped while a capture is running.
func (f *Flow) AddLinkFromSelection(ctx context.Context) Result {
	if !f.running.CompareAndSwap(false, true) {
		slog.Info("Capture already running, ignoring hotkey")
		return Busy
	}
	defer f.running.Store(false)

	slog.Info("Hotkey triggered: copying selection")
	if f.Status != nil {
		f.Status.Flash()
	}

	captured := f.capture(ctx)
	if captured == "" {
		slog.Info("Clipboard capture failed or empty")
		f.notify("Nothing copied", "Could not copy the selection. Is a link selected?")
		return NothingCaptured
	}

	url, ok := ExtractURL(captured)
	if !ok {
		slog.Info("Captured text contains no link")
		f.notify("No link", "The selected text does not look like a link.")
		return NoLink
	}

	err := f.Queue.AppendUnique(url)
	switch {
	case err == nil:
		slog.Info("Link added", "url", url)
		f.notify("Link added", url)
		return Added
	case errors.Is(err, queue.ErrDuplicate):
		slog.Info("Duplicate link", "url", url)
		f.notify("Already queued", url)
		return Duplicate
	default:
		slog.Error("Failed to save link", "url", url, "error", err)
		f.notify("Save failed", "Could not add the link to the list.")
		return SaveFailed
	}
}

func (f *Flow) capture(ctx context.Context) string {
	if f.Worker != nil && f.Worker.Alive() {
		return f.Worker.CopySelection(ctx)
	}
	if f.Local == nil {
		return ""
	}
	slog.Warn("Clipboard worker not running, capturing in process")
	return f.Local.AttemptCopySelectedText()
}

func (f *Flow) notify(title, message string) {
	if f.Status != nil {
		f.Status.Notify(title, message)
	}
}
