package capture

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"
)

// blockingCopier waits for release before answering
type blockingCopier struct {
	release chan struct{}
}

func (c *blockingCopier) AttemptCopySelectedText() string {
	<-c.release
	return "late"
}

type pipeWorker struct {
	client *Client
	served chan error
	killed atomic.Bool
}

// startPipeWorker connects a Client to Serve through in-memory pipes
func startPipeWorker(t *testing.T, copier Copier, deadline time.Duration) *pipeWorker {
	t.Helper()

	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	w := &pipeWorker{served: make(chan error, 1)}
	go func() {
		err := Serve(reqR, respW, copier)
		respW.Close()
		w.served <- err
	}()

	kill := func() error {
		w.killed.Store(true)
		reqR.CloseWithError(io.ErrClosedPipe)
		respW.CloseWithError(io.ErrClosedPipe)
		return nil
	}
	w.client = newClient(reqW, respR, kill, nil, deadline)
	return w
}

func TestClientCopySelection(t *testing.T) {
	w := startPipeWorker(t, &staticCopier{text: "https://youtu.be/abc123"}, time.Second)
	defer w.client.Stop()

	for i := 0; i < 2; i++ {
		if got := w.client.CopySelection(context.Background()); got != "https://youtu.be/abc123" {
			t.Fatalf("round trip %d: got %q", i, got)
		}
	}
	if !w.client.Alive() {
		t.Error("client should still be alive")
	}
}

func TestClientTimeoutKillsWorker(t *testing.T) {
	copier := &blockingCopier{release: make(chan struct{})}
	defer close(copier.release)

	w := startPipeWorker(t, copier, 50*time.Millisecond)

	start := time.Now()
	if got := w.client.CopySelection(context.Background()); got != "" {
		t.Errorf("got %q, want empty", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("CopySelection took %v", elapsed)
	}
	if !w.killed.Load() {
		t.Error("worker was not killed")
	}
	if w.client.Alive() {
		t.Error("client still alive after timeout")
	}

	// a dead worker answers immediately
	if got := w.client.CopySelection(context.Background()); got != "" {
		t.Errorf("got %q from dead worker", got)
	}
}

func TestClientStopSendsExit(t *testing.T) {
	w := startPipeWorker(t, &staticCopier{}, time.Second)

	w.client.Stop()

	select {
	case err := <-w.served:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	if w.killed.Load() {
		t.Error("worker killed although it exited cleanly")
	}
	if w.client.Alive() {
		t.Error("client alive after Stop")
	}

	// Stop is idempotent
	w.client.Stop()
}

func TestClientWorkerExitDuringCapture(t *testing.T) {
	w := startPipeWorker(t, &staticCopier{}, time.Second)

	// simulate the worker process dying on its own
	w.client.terminate()

	if got := w.client.CopySelection(context.Background()); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestNilClientIsNotAlive(t *testing.T) {
	var c *Client
	if c.Alive() {
		t.Error("nil client reported alive")
	}
	c.Stop()
}
