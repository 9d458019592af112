package status

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) get() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func newTestIndicator(flash time.Duration) (*Indicator, *recorder) {
	ind := New(nil)
	ind.flashFor = flash
	rec := &recorder{}
	ind.Subscribe(rec.record)
	return ind, rec
}

func waitFor(t *testing.T, ind *Indicator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ind.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", ind.State(), want)
}

func TestFlashRestoresResting(t *testing.T) {
	ind, rec := newTestIndicator(20 * time.Millisecond)

	ind.Flash()
	if ind.State() != Flashed {
		t.Fatalf("state = %v, want flashed", ind.State())
	}
	waitFor(t, ind, Resting)

	if got, want := rec.get(), []State{Flashed, Resting}; !reflect.DeepEqual(got, want) {
		t.Errorf("states = %v, want %v", got, want)
	}
}

func TestFlashDuringDownloadRestoresDownloading(t *testing.T) {
	ind, rec := newTestIndicator(20 * time.Millisecond)

	ind.SetDownloading()
	ind.Flash()
	waitFor(t, ind, Downloading)

	if got, want := rec.get(), []State{Downloading, Flashed, Downloading}; !reflect.DeepEqual(got, want) {
		t.Errorf("states = %v, want %v", got, want)
	}
}

func TestDownloadStartedDuringFlash(t *testing.T) {
	ind, rec := newTestIndicator(time.Hour)

	ind.Flash()
	ind.SetDownloading()
	if ind.State() != Flashed {
		t.Fatalf("state = %v, want flashed until the flash ends", ind.State())
	}

	ind.Flush()
	if ind.State() != Downloading {
		t.Fatalf("state = %v, want downloading", ind.State())
	}
	if got, want := rec.get(), []State{Flashed, Downloading}; !reflect.DeepEqual(got, want) {
		t.Errorf("states = %v, want %v", got, want)
	}
}

func TestRepeatedFlashRestoresOnce(t *testing.T) {
	ind, rec := newTestIndicator(20 * time.Millisecond)

	ind.Flash()
	ind.Flash()
	waitFor(t, ind, Resting)
	time.Sleep(50 * time.Millisecond)

	if got, want := rec.get(), []State{Flashed, Flashed, Resting}; !reflect.DeepEqual(got, want) {
		t.Errorf("states = %v, want %v", got, want)
	}
}

func TestFlushWithoutPendingFlash(t *testing.T) {
	ind, rec := newTestIndicator(time.Hour)
	ind.Flush()
	if len(rec.get()) != 0 {
		t.Errorf("unexpected states %v", rec.get())
	}
}

func TestNotifyForwardsToNotifier(t *testing.T) {
	var got []string
	ind := New(func(title, message string) { got = append(got, title+": "+message) })

	ind.Notify("Complete", "Downloads finished")
	if !reflect.DeepEqual(got, []string{"Complete: Downloads finished"}) {
		t.Errorf("notifications = %v", got)
	}
}

func TestSubscribersSeeStatesInCommitOrder(t *testing.T) {
	for iter := 0; iter < 200; iter++ {
		ind, rec := newTestIndicator(time.Millisecond)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				ind.Flash()
			}
		}()
		go func() {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				ind.SetDownloading()
				ind.SetResting()
			}
		}()
		go func() {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				ind.Flush()
			}
		}()
		wg.Wait()
		ind.Flush()
		waitFor(t, ind, Resting)

		// the last emitted state is the state left on screen
		states := rec.get()
		if len(states) == 0 || states[len(states)-1] != ind.State() {
			t.Fatalf("iteration %d: last emitted %v, shown %v", iter, states[len(states)-1:], ind.State())
		}
	}
}
