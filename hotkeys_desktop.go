//go:build windows || darwin

package main

import (
	"io"

	"markestedt/linkgrab/hotkey"
	"markestedt/linkgrab/keygrab"
)

func newGenericHotkeys(io.Writer) (hotkey.Backend, error) {
	return keygrab.NewBackend()
}
