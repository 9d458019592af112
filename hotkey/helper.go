package hotkey

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// The helper process hosts a Backend that must not be linked into the agent
// itself. Frames are one JSON object per line in both directions.
const (
	helperOpRegister   = "register"
	helperOpUnregister = "unregister"

	helperKindReady   = "ready"
	helperKindReply   = "reply"
	helperKindKeydown = "keydown"
)

var (
	helperReadyTimeout   = 5 * time.Second
	helperRequestTimeout = 3 * time.Second
	helperStopTimeout    = 2 * time.Second
)

type helperCommand struct {
	Seq   uint64 `json:"seq"`
	Op    string `json:"op"`
	ID    int    `json:"id"`
	Chord string `json:"chord,omitempty"`
}

type helperEvent struct {
	Kind  string `json:"kind"`
	Seq   uint64 `json:"seq,omitempty"`
	ID    int    `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

type frameWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{enc: json.NewEncoder(w)}
}

func (f *frameWriter) write(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enc.Encode(v)
}

// ServeHelper runs the helper side: it announces readiness, then registers
// and unregisters chords on backend as commands arrive on r and reports each
// key press on w. It returns when r is closed.
func ServeHelper(r io.Reader, w io.Writer, backend Backend) error {
	out := newFrameWriter(w)
	defer func() {
		if err := backend.Close(); err != nil {
			slog.Warn("Failed to close hotkey backend", "error", err)
		}
	}()

	if err := out.write(helperEvent{Kind: helperKindReady}); err != nil {
		return err
	}

	handles := make(map[int]Handle)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var cmd helperCommand
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			return fmt.Errorf("invalid helper command: %w", err)
		}

		var err error
		switch cmd.Op {
		case helperOpRegister:
			err = serveRegister(backend, handles, cmd, out)
		case helperOpUnregister:
			if h, ok := handles[cmd.ID]; ok {
				delete(handles, cmd.ID)
				err = h.Unregister()
			}
		default:
			err = fmt.Errorf("unknown helper op %q", cmd.Op)
		}

		reply := helperEvent{Kind: helperKindReply, Seq: cmd.Seq, ID: cmd.ID}
		if err != nil {
			reply.Error = err.Error()
		}
		if err := out.write(reply); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func serveRegister(backend Backend, handles map[int]Handle, cmd helperCommand, out *frameWriter) error {
	chord, err := ParseChord(cmd.Chord)
	if err != nil {
		return err
	}
	if old, ok := handles[cmd.ID]; ok {
		delete(handles, cmd.ID)
		_ = old.Unregister()
	}

	id := cmd.ID
	h, err := backend.Register(chord, func() {
		if err := out.write(helperEvent{Kind: helperKindKeydown, ID: id}); err != nil {
			slog.Warn("Failed to report hotkey press", "hotkey", cmd.Chord, "error", err)
		}
	})
	if err != nil {
		return err
	}
	handles[id] = h
	return nil
}

// HelperBackend forwards registrations to a helper process and dispatches the
// key presses it reports
type HelperBackend struct {
	out  *frameWriter
	in   io.Closer
	proc *exec.Cmd

	mu        sync.Mutex
	seq       uint64
	nextID    int
	pending   map[uint64]chan helperEvent
	callbacks map[int]func()
	listening bool

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
}

// StartHelper launches the helper binary at path and waits until it is ready.
// A helper that crashes on startup is reported as an error.
func StartHelper(path string, stderr io.Writer) (Backend, error) {
	cmd := exec.Command(path)
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start hotkey helper: %w", err)
	}

	b, err := NewHelperBackend(stdout, stdin)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	b.proc = cmd
	slog.Info("Hotkey helper started", "path", path, "pid", cmd.Process.Pid)
	return b, nil
}

// NewHelperBackend talks to a helper over r and w. It blocks until the helper
// reports ready, exits, or the ready timeout passes.
func NewHelperBackend(r io.Reader, w io.WriteCloser) (*HelperBackend, error) {
	b := &HelperBackend{
		out:       newFrameWriter(w),
		in:        w,
		nextID:    1,
		pending:   make(map[uint64]chan helperEvent),
		callbacks: make(map[int]func()),
		listening: true,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.readLoop(r)

	select {
	case <-b.ready:
		return b, nil
	case <-b.done:
		_ = w.Close()
		return nil, errors.New("hotkey helper exited before it was ready")
	case <-time.After(helperReadyTimeout):
		_ = w.Close()
		return nil, errors.New("hotkey helper did not become ready")
	}
}

func (b *HelperBackend) readLoop(r io.Reader) {
	defer close(b.done)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		var ev helperEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			slog.Warn("Dropping malformed hotkey helper frame", "error", err)
			continue
		}

		switch ev.Kind {
		case helperKindReady:
			b.readyOnce.Do(func() { close(b.ready) })
		case helperKindReply:
			b.mu.Lock()
			ch, ok := b.pending[ev.Seq]
			delete(b.pending, ev.Seq)
			b.mu.Unlock()
			if ok {
				ch <- ev
			}
		case helperKindKeydown:
			b.mu.Lock()
			cb, ok := b.callbacks[ev.ID]
			listening := b.listening
			b.mu.Unlock()
			if ok && listening {
				go cb()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("Hotkey helper output failed", "error", err)
	}
}

func (b *HelperBackend) request(cmd helperCommand) error {
	ch := make(chan helperEvent, 1)

	b.mu.Lock()
	b.seq++
	cmd.Seq = b.seq
	b.pending[cmd.Seq] = ch
	b.mu.Unlock()

	drop := func() {
		b.mu.Lock()
		delete(b.pending, cmd.Seq)
		b.mu.Unlock()
	}

	if err := b.out.write(cmd); err != nil {
		drop()
		return fmt.Errorf("write to hotkey helper: %w", err)
	}

	select {
	case ev := <-ch:
		if ev.Error != "" {
			return errors.New(ev.Error)
		}
		return nil
	case <-b.done:
		drop()
		return errors.New("hotkey helper exited")
	case <-time.After(helperRequestTimeout):
		drop()
		return errors.New("hotkey helper did not reply")
	}
}

func (b *HelperBackend) Name() string { return "generic" }

func (b *HelperBackend) Register(c Chord, callback func()) (Handle, error) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.callbacks[id] = callback
	b.mu.Unlock()

	err := b.request(helperCommand{Op: helperOpRegister, ID: id, Chord: c.String()})
	if err != nil {
		b.mu.Lock()
		delete(b.callbacks, id)
		b.mu.Unlock()
		return nil, fmt.Errorf("register hotkey %q failed: %w", c.String(), err)
	}
	return &helperHandle{backend: b, id: id}, nil
}

// StartListening resumes dispatch of reported key presses
func (b *HelperBackend) StartListening() {
	b.mu.Lock()
	b.listening = true
	b.mu.Unlock()
}

// StopListening drops reported key presses until StartListening
func (b *HelperBackend) StopListening() {
	b.mu.Lock()
	b.listening = false
	b.mu.Unlock()
}

// Close ends the helper by closing its input, killing it if it lingers
func (b *HelperBackend) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = b.in.Close()

		select {
		case <-b.done:
		case <-time.After(helperStopTimeout):
			if b.proc != nil {
				slog.Warn("Hotkey helper did not exit, killing it")
				_ = b.proc.Process.Kill()
			}
		}
		if b.proc != nil {
			_ = b.proc.Wait()
		}
	})
	return err
}

type helperHandle struct {
	backend *HelperBackend
	id      int
	once    sync.Once
	err     error
}

func (h *helperHandle) Unregister() error {
	h.once.Do(func() {
		b := h.backend
		b.mu.Lock()
		delete(b.callbacks, h.id)
		b.mu.Unlock()

		select {
		case <-b.done:
			return
		default:
		}
		h.err = b.request(helperCommand{Op: helperOpUnregister, ID: h.id})
	})
	return h.err
}
