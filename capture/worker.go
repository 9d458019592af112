package capture

import (
	"errors"
	"io"
	"log/slog"
	"runtime/debug"
)

// Copier performs one full capture
type Copier interface {
	AttemptCopySelectedText() string
}

// Serve answers requests from r on w until it receives exit or r is closed
func Serve(r io.Reader, w io.Writer, copier Copier) error {
	reader := newFrameReader(r)

	for {
		req, err := readRequest(reader)
		if errors.Is(err, io.EOF) {
			slog.Info("Clipboard worker input closed")
			return nil
		}
		if err != nil {
			return err
		}

		switch req.Cmd {
		case CmdExit:
			slog.Info("Clipboard worker exiting")
			return nil
		case CmdCopy:
			text := safeCopy(copier)
			raw, truncated, err := encodeResponse(Response{Seq: req.Seq, Text: text})
			if err != nil {
				return err
			}
			if truncated {
				slog.Warn("Captured text too large for one reply, truncated", "bytes", len(text))
			}
			if err := writeRaw(w, raw); err != nil {
				return err
			}
		default:
			slog.Warn("Clipboard worker received unknown command", "cmd", req.Cmd)
			if err := writeFrame(w, Response{Seq: req.Seq, Error: "unknown command: " + req.Cmd}); err != nil {
				return err
			}
		}
	}
}

func safeCopy(copier Copier) (text string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Clipboard capture panicked", "panic", r, "stack", string(debug.Stack()))
			text = ""
		}
	}()
	return copier.AttemptCopySelectedText()
}
