package platform

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by constructors whose OS facility does not exist
// on the running platform
var ErrUnsupported = errors.New("not supported on this platform")

// Clipboard provides read access to the system clipboard text
type Clipboard interface {
	Get() (string, error)
}

// KeySender synthesizes the copy keystroke in the foreground application
type KeySender interface {
	SendCopy() error
}

// ChordReader blocks until the user presses a key combination and returns it
// in chord notation, e.g. "ctrl+shift+k"
type ChordReader interface {
	ReadChord(ctx context.Context) (string, error)
}
