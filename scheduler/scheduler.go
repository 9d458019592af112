// Package scheduler runs download batches, at most one at a time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"markestedt/linkgrab/fetch"
	"markestedt/linkgrab/storage"
)

// Status is the scheduler state
type Status int32

const (
	Idle Status = iota
	Running
)

func (s Status) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Dispatcher classifies and downloads one link
type Dispatcher interface {
	Handle(ctx context.Context, link string) (fetch.Outcome, error)
}

// Queue is the pending link list
type Queue interface {
	List() ([]string, error)
	Remove(done []string) error
}

// Indicator reflects batch progress to the user
type Indicator interface {
	SetDownloading()
	SetResting()
	Notify(title, message string)
}

// Recorder keeps the per-link history
type Recorder interface {
	SaveDownload(d *storage.Download) error
}

// Summary describes a finished batch
type Summary struct {
	ID         string    `json:"id"`
	Total      int       `json:"total"`
	Failed     int       `json:"failed"`
	FinishedAt time.Time `json:"finished_at"`
}

// Scheduler starts download batches on demand
type Scheduler struct {
	state atomic.Int32

	dispatcher Dispatcher
	queue      Queue
	indicator  Indicator
	recorder   Recorder

	mu   sync.Mutex
	subs []func(Status)
	last *Summary

	wg sync.WaitGroup
}

// New creates an idle scheduler. recorder may be nil.
func New(d Dispatcher, q Queue, ind Indicator, rec Recorder) *Scheduler {
	return &Scheduler{dispatcher: d, queue: q, indicator: ind, recorder: rec}
}

// Status returns the current state
func (s *Scheduler) Status() Status {
	return Status(s.state.Load())
}

// Subscribe registers fn to be called on every state change
func (s *Scheduler) Subscribe(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// LastBatch returns the summary of the most recent finished batch, if any
func (s *Scheduler) LastBatch() (Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Summary{}, false
	}
	return *s.last, true
}

// Wait blocks until the running batch, if any, has finished
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// TriggerDownloadAll starts a batch unless one is already running. It reports
// whether a batch was started.
func (s *Scheduler) TriggerDownloadAll() bool {
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		slog.Info("Download already in progress")
		s.indicator.Notify("Download", "Download already in progress")
		return false
	}

	s.wg.Add(1)
	s.indicator.SetDownloading()
	s.emit(Running)

	batchID := uuid.NewString()
	go s.run(batchID)
	return true
}

func (s *Scheduler) run(batchID string) {
	defer s.wg.Done()
	defer s.finish(batchID)

	log := slog.With("batch", batchID)

	snapshot, err := s.queue.List()
	if err != nil {
		log.Error("Failed to read download list", "error", err)
		s.indicator.Notify("Download failed", "Could not read the download list")
		return
	}
	if len(snapshot) == 0 {
		log.Info("Download list is empty")
		s.indicator.Notify("Download", "The download list is empty")
		return
	}

	log.Info("Download batch started", "links", len(snapshot))

	failed := 0
	for _, link := range snapshot {
		if !s.process(batchID, link) {
			failed++
		}
	}

	if err := s.queue.Remove(snapshot); err != nil {
		log.Error("Failed to clear download list", "error", err)
		s.indicator.Notify("Download", "Could not clear the download list")
	}

	s.mu.Lock()
	s.last = &Summary{ID: batchID, Total: len(snapshot), Failed: failed, FinishedAt: time.Now()}
	s.mu.Unlock()

	log.Info("Download batch finished", "links", len(snapshot), "failed", failed)
	if failed == 0 {
		s.indicator.Notify("Complete", "Downloads finished")
	} else {
		s.indicator.Notify("Complete", fmt.Sprintf("Downloads finished, %d of %d failed", failed, len(snapshot)))
	}
}

// process downloads one link; a failure or panic never stops the batch
func (s *Scheduler) process(batchID, link string) (ok bool) {
	rec := &storage.Download{BatchID: batchID, URL: link, StartedAt: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Download panicked", "url", link, "panic", r, "stack", string(debug.Stack()))
			rec.ErrorMessage = fmt.Sprintf("panic: %v", r)
			ok = false
		}
		rec.Success = ok
		rec.DurationMs = time.Since(rec.StartedAt).Milliseconds()
		s.record(rec)
	}()

	out, err := s.dispatcher.Handle(context.Background(), link)
	rec.Handler, rec.Destination = out.Handler, out.Destination
	if err != nil {
		slog.Error("Download failed", "url", link, "error", err)
		rec.ErrorMessage = err.Error()
		return false
	}
	slog.Info("Download finished", "url", link, "handler", out.Handler)
	return true
}

func (s *Scheduler) record(d *storage.Download) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.SaveDownload(d); err != nil {
		slog.Error("Failed to record download", "url", d.URL, "error", err)
	}
}

// finish runs exactly once per batch, also after a panic
func (s *Scheduler) finish(batchID string) {
	if r := recover(); r != nil {
		slog.Error("Download batch panicked", "batch", batchID, "panic", r, "stack", string(debug.Stack()))
	}

	s.state.Store(int32(Idle))
	s.indicator.SetResting()
	s.emit(Idle)
}

func (s *Scheduler) emit(st Status) {
	s.mu.Lock()
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}
