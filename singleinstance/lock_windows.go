package singleinstance

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

type mutexLock struct {
	handle windows.Handle
}

// Acquire creates the named mutex "Local\<name>". dir is unused on Windows.
func Acquire(name, dir string) (Lock, error) {
	p, err := windows.UTF16PtrFromString(`Local\` + name)
	if err != nil {
		return nil, err
	}

	h, err := windows.CreateMutex(nil, false, p)
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		if h != 0 {
			windows.CloseHandle(h)
		}
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		return nil, fmt.Errorf("create mutex: %w", err)
	}
	return &mutexLock{handle: h}, nil
}

func (l *mutexLock) Release() error {
	if l.handle == 0 {
		return nil
	}
	err := windows.CloseHandle(l.handle)
	l.handle = 0
	return err
}
