package hotkey

import (
	"errors"
	"testing"
)

func TestParseChord(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "default add", input: "ctrl+space", want: "ctrl+space"},
		{name: "default download", input: "ctrl+shift+space", want: "ctrl+shift+space"},
		{name: "modifier order normalized", input: "Shift+Ctrl+K", want: "ctrl+shift+k"},
		{name: "aliases", input: "control+option+return", want: "ctrl+alt+enter"},
		{name: "super maps to win", input: "super+f5", want: "win+f5"},
		{name: "spaces trimmed", input: " ctrl + a ", want: "ctrl+a"},
		{name: "key without modifiers", input: "f9", want: "f9"},
		{name: "empty", input: "", wantErr: true},
		{name: "modifiers only", input: "ctrl+shift", wantErr: true},
		{name: "unknown key", input: "ctrl+banana", wantErr: true},
		{name: "key not last", input: "k+ctrl", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Normalize(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseChordUnknownKeyIsSentinel(t *testing.T) {
	_, err := ParseChord("ctrl+nokey")
	if !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("error = %v, want ErrUnknownKey", err)
	}
}
