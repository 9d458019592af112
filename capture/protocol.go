package capture

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	CmdCopy = "copy"
	CmdExit = "exit"

	maxFrameBytes = 1 << 20
)

// Request is one command sent to the worker
type Request struct {
	Seq uint64 `json:"seq"`
	Cmd string `json:"cmd"`
}

// Response answers a copy request. Empty Text means nothing was captured.
type Response struct {
	Seq   uint64 `json:"seq"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

var errFrameTooLarge = fmt.Errorf("frame exceeds %d bytes", maxFrameBytes)

func writeFrame(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeRaw(w, raw)
}

func writeRaw(w io.Writer, raw []byte) error {
	if len(raw) >= maxFrameBytes {
		return errFrameTooLarge
	}
	_, err := w.Write(append(raw, '\n'))
	return err
}

// encodeResponse marshals resp, cutting Text at a rune boundary until the
// frame fits. The head of a selection is kept since links are taken from the
// first match.
func encodeResponse(resp Response) ([]byte, bool, error) {
	truncated := false
	for {
		raw, err := json.Marshal(resp)
		if err != nil {
			return nil, truncated, err
		}
		if len(raw) < maxFrameBytes || resp.Text == "" {
			return raw, truncated, nil
		}

		// escaping can inflate text, so shrink in proportion to the overshoot
		keep := len(resp.Text) * (maxFrameBytes - 1024) / len(raw)
		if keep >= len(resp.Text) {
			keep = len(resp.Text) - 1
		}
		for keep > 0 && !utf8.RuneStart(resp.Text[keep]) {
			keep--
		}
		resp.Text = resp.Text[:keep]
		truncated = true
	}
}

func newFrameReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, maxFrameBytes+1)
}

func readFrame(reader *bufio.Reader) ([]byte, error) {
	raw, err := reader.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		return nil, errFrameTooLarge
	}
	if errors.Is(err, io.EOF) {
		if len(raw) == 0 {
			return nil, io.EOF
		}
		return raw, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func readRequest(reader *bufio.Reader) (Request, error) {
	raw, err := readFrame(reader)
	if err != nil {
		return Request{}, err
	}
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

func readResponse(reader *bufio.Reader) (Response, error) {
	raw, err := readFrame(reader)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, fmt.Errorf("invalid response: %w", err)
	}
	return resp, nil
}
