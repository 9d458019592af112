//go:build !windows && !darwin && !linux

package main

import (
	"io"

	"markestedt/linkgrab/hotkey"
	"markestedt/linkgrab/platform"
)

func newGenericHotkeys(io.Writer) (hotkey.Backend, error) {
	return nil, platform.ErrUnsupported
}
