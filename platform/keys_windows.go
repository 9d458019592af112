//go:build windows

package platform

import (
	"fmt"
	"time"
	"unsafe"
)

var (
	sendInput      = user32.NewProc("SendInput")
	mapVirtualKeyW = user32.NewProc("MapVirtualKeyW")
)

const (
	inputKeyboard  = 1
	keyeventfKeyup = 0x0002
	mapvkVkToVsc   = 0
	vkControl      = 0x11
	vkC            = 0x43
)

type keyboardInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

type input struct {
	inputType uint32
	ki        keyboardInput
	padding   [8]byte // Padding to match C struct size
}

// WindowsKeySender injects keystrokes with SendInput
type WindowsKeySender struct{}

// NewNativeKeySender returns the SendInput based key sender
func NewNativeKeySender() (KeySender, error) {
	if err := sendInput.Find(); err != nil {
		return nil, fmt.Errorf("SendInput is unavailable: %w", err)
	}
	return &WindowsKeySender{}, nil
}

// SendCopy simulates Ctrl+C with scan codes so elevated windows accept it
func (k *WindowsKeySender) SendCopy() error {
	ctrlScan, _, _ := mapVirtualKeyW.Call(vkControl, mapvkVkToVsc)
	cScan, _, _ := mapVirtualKeyW.Call(vkC, mapvkVkToVsc)

	inputs := []input{
		{inputType: inputKeyboard, ki: keyboardInput{wVk: vkControl, wScan: uint16(ctrlScan)}},
		{inputType: inputKeyboard, ki: keyboardInput{wVk: vkC, wScan: uint16(cScan)}},
		{inputType: inputKeyboard, ki: keyboardInput{wVk: vkC, wScan: uint16(cScan), dwFlags: keyeventfKeyup}},
		{inputType: inputKeyboard, ki: keyboardInput{wVk: vkControl, wScan: uint16(ctrlScan), dwFlags: keyeventfKeyup}},
	}

	ret, _, err := sendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if ret == 0 {
		return fmt.Errorf("SendInput failed: %w", err)
	}

	time.Sleep(20 * time.Millisecond)
	return nil
}
