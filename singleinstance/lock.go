// Package singleinstance keeps a second copy of the agent from starting.
package singleinstance

import "errors"

// ErrAlreadyRunning is returned by Acquire when another instance holds the lock
var ErrAlreadyRunning = errors.New("another instance is already running")

// Lock is held for the lifetime of the process
type Lock interface {
	Release() error
}
