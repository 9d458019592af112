package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// WorkerCommand is the sub-command that runs the worker loop
const WorkerCommand = "clipboard-worker"

const (
	deadlineMargin = 2 * time.Second
	stopGrace      = time.Second
)

// Client talks to the clipboard worker process. Round trips are serialized.
type Client struct {
	mu       sync.Mutex
	stdin    io.WriteCloser
	replies  chan Response
	done     chan struct{}
	kill     func() error
	wait     func() error
	seq      uint64
	alive    atomic.Bool
	deadline time.Duration

	stopOnce sync.Once
}

// StartWorker re-executes the running binary as the clipboard worker. The
// worker's log output goes to logOut.
func StartWorker(opts Options, logOut io.Writer) (*Client, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}

	opts = opts.withDefaults()
	cmd := exec.Command(exe, WorkerCommand,
		"-attempts", strconv.Itoa(opts.Attempts),
		"-timeout-ms", strconv.FormatInt(opts.Timeout.Milliseconds(), 10),
	)
	cmd.Stderr = logOut
	hideWindow(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start clipboard worker: %w", err)
	}

	slog.Info("Clipboard worker started", "pid", cmd.Process.Pid)
	return newClient(stdin, stdout, cmd.Process.Kill, cmd.Wait, opts.WorstCase()+deadlineMargin), nil
}

func newClient(stdin io.WriteCloser, stdout io.Reader, kill, wait func() error, deadline time.Duration) *Client {
	c := &Client{
		stdin:    stdin,
		replies:  make(chan Response, 1),
		done:     make(chan struct{}),
		kill:     kill,
		wait:     wait,
		deadline: deadline,
	}
	c.alive.Store(true)
	go c.readLoop(stdout)
	return c
}

// Alive reports whether the worker process is still usable
func (c *Client) Alive() bool {
	return c != nil && c.alive.Load()
}

func (c *Client) readLoop(stdout io.Reader) {
	defer close(c.done)
	defer c.alive.Store(false)

	reader := newFrameReader(stdout)
	for {
		resp, err := readResponse(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Warn("Clipboard worker channel failed", "error", err)
			}
			return
		}
		select {
		case c.replies <- resp:
		default:
			slog.Warn("Dropping unexpected clipboard worker reply", "seq", resp.Seq)
		}
	}
}

// CopySelection asks the worker to capture the selection. It returns "" when
// the worker is dead, fails, or does not answer in time; a worker that times
// out is killed.
func (c *Client) CopySelection(ctx context.Context) string {
	if !c.Alive() {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	seq := c.seq
	if err := writeFrame(c.stdin, Request{Seq: seq, Cmd: CmdCopy}); err != nil {
		slog.Warn("Failed to send copy request to clipboard worker", "error", err)
		c.terminate()
		return ""
	}

	timer := time.NewTimer(c.deadline)
	defer timer.Stop()

	for {
		select {
		case resp := <-c.replies:
			if resp.Seq != seq {
				slog.Info("Discarding stale clipboard worker reply", "seq", resp.Seq, "want", seq)
				continue
			}
			if resp.Error != "" {
				slog.Warn("Clipboard worker reported an error", "error", resp.Error)
				return ""
			}
			return resp.Text
		case <-c.done:
			slog.Warn("Clipboard worker exited during capture")
			return ""
		case <-timer.C:
			slog.Warn("Clipboard worker did not answer in time, killing it", "deadline", c.deadline)
			c.terminate()
			return ""
		case <-ctx.Done():
			return ""
		}
	}
}

// Stop asks the worker to exit and kills it if it does not within a second
func (c *Client) Stop() {
	if c == nil {
		return
	}
	c.stopOnce.Do(func() {
		if c.Alive() {
			c.mu.Lock()
			if err := writeFrame(c.stdin, Request{Cmd: CmdExit}); err != nil {
				slog.Info("Failed to send exit to clipboard worker", "error", err)
			}
			c.mu.Unlock()
		}
		c.stdin.Close()

		select {
		case <-c.done:
		case <-time.After(stopGrace):
			slog.Warn("Clipboard worker did not exit, killing it")
			c.terminate()
		}

		if c.wait != nil {
			if err := c.wait(); err != nil {
				slog.Info("Clipboard worker exited", "error", err)
			}
		}
	})
}

func (c *Client) terminate() {
	c.alive.Store(false)
	if c.kill != nil {
		if err := c.kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			slog.Warn("Failed to kill clipboard worker", "error", err)
		}
	}
}
