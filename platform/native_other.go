//go:build !windows

package platform

import (
	"context"
	"errors"
)

// ErrChordCanceled is returned when the user presses Esc alone
var ErrChordCanceled = errors.New("chord capture canceled")

// NewNativeClipboard is only available on Windows
func NewNativeClipboard() (Clipboard, error) {
	return nil, ErrUnsupported
}

// NewNativeKeySender is only available on Windows
func NewNativeKeySender() (KeySender, error) {
	return nil, ErrUnsupported
}

// NewChordReader is only available on Windows
func NewChordReader() (ChordReader, error) {
	return unsupportedChordReader{}, ErrUnsupported
}

type unsupportedChordReader struct{}

func (unsupportedChordReader) ReadChord(ctx context.Context) (string, error) {
	return "", ErrUnsupported
}
