package hotkey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKey is returned for a chord token that is neither a modifier nor a
// supported key name
var ErrUnknownKey = errors.New("unknown key")

// Chord is a parsed key combination
type Chord struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Win   bool
	Key   string
}

// key names understood by both backends
var keyNames = map[string]bool{
	"space": true, "enter": true, "esc": true, "tab": true, "delete": true,
	"left": true, "right": true, "up": true, "down": true,
}

var keyAliases = map[string]string{
	"return":    "enter",
	"escape":    "esc",
	"del":       "delete",
	"spacebar":  "space",
	"arrowleft": "left", "arrowright": "right", "arrowup": "up", "arrowdown": "down",
}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		keyNames[string(c)] = true
	}
	for c := '0'; c <= '9'; c++ {
		keyNames[string(c)] = true
	}
	for i := 1; i <= 12; i++ {
		keyNames[fmt.Sprintf("f%d", i)] = true
	}
}

// ParseChord parses a string like "ctrl+shift+space" into a Chord.
// Exactly one non-modifier key is required and it must come last.
func ParseChord(combo string) (Chord, error) {
	var c Chord
	combo = strings.TrimSpace(strings.ToLower(combo))
	if combo == "" {
		return c, fmt.Errorf("empty hotkey combo")
	}

	parts := strings.Split(combo, "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)

		switch part {
		case "ctrl", "control":
			c.Ctrl = true
			continue
		case "shift":
			c.Shift = true
			continue
		case "alt", "option":
			c.Alt = true
			continue
		case "win", "windows", "super", "cmd", "meta":
			c.Win = true
			continue
		}

		if i != len(parts)-1 {
			return c, fmt.Errorf("%w: %q in %q", ErrUnknownKey, part, combo)
		}
		if alias, ok := keyAliases[part]; ok {
			part = alias
		}
		if !keyNames[part] {
			return c, fmt.Errorf("%w: %q in %q", ErrUnknownKey, part, combo)
		}
		c.Key = part
	}

	if c.Key == "" {
		return c, fmt.Errorf("no key specified in combo %q", combo)
	}
	return c, nil
}

// String returns the normalized chord: modifiers in ctrl, shift, alt, win
// order followed by the key
func (c Chord) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.Shift {
		parts = append(parts, "shift")
	}
	if c.Alt {
		parts = append(parts, "alt")
	}
	if c.Win {
		parts = append(parts, "win")
	}
	return strings.Join(append(parts, c.Key), "+")
}

// Normalize parses and re-formats a chord string
func Normalize(combo string) (string, error) {
	c, err := ParseChord(combo)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}
