// Command linkgrab-hotkeys grabs global hotkeys on X11 for linkgrab.
//
// It reads register and unregister commands on stdin and reports key presses
// on stdout. Logs go to stderr, which the agent appends to its own log.
package main

import (
	"log/slog"
	"os"

	"markestedt/linkgrab/hotkey"
	"markestedt/linkgrab/keygrab"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	backend, err := keygrab.NewBackend()
	if err != nil {
		slog.Error("Hotkey backend unavailable", "error", err)
		os.Exit(1)
	}

	slog.Info("Hotkey helper started", "pid", os.Getpid())
	if err := hotkey.ServeHelper(os.Stdin, os.Stdout, backend); err != nil {
		slog.Error("Hotkey helper failed", "error", err)
		os.Exit(1)
	}
}
