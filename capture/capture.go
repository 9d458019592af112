// Package capture copies the current selection through the clipboard, either
// in-process or inside a helper child process.
package capture

import (
	"log/slog"
	"time"

	"markestedt/linkgrab/platform"
)

// Options bound every wait in the capture algorithm
type Options struct {
	Attempts     int
	RetryDelay   time.Duration
	Settle       time.Duration
	Poll         time.Duration
	Timeout      time.Duration
	ReadAttempts int
	ReadDelay    time.Duration
}

// DefaultOptions returns the timings the agent ships with
func DefaultOptions() Options {
	return Options{
		Attempts:     3,
		RetryDelay:   300 * time.Millisecond,
		Settle:       200 * time.Millisecond,
		Poll:         400 * time.Millisecond,
		Timeout:      3 * time.Second,
		ReadAttempts: 3,
		ReadDelay:    50 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Attempts <= 0 {
		o.Attempts = d.Attempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = d.RetryDelay
	}
	if o.Settle <= 0 {
		o.Settle = d.Settle
	}
	if o.Poll <= 0 {
		o.Poll = d.Poll
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.ReadAttempts <= 0 {
		o.ReadAttempts = d.ReadAttempts
	}
	if o.ReadDelay <= 0 {
		o.ReadDelay = d.ReadDelay
	}
	return o
}

// WorstCase is the longest AttemptCopySelectedText can take, ignoring the
// time spent inside clipboard and key calls
func (o Options) WorstCase() time.Duration {
	o = o.withDefaults()
	reads := time.Duration(o.ReadAttempts) * o.ReadDelay
	perAttempt := reads + o.Settle + o.Timeout + o.Poll
	return time.Duration(o.Attempts)*perAttempt + time.Duration(o.Attempts-1)*o.RetryDelay
}

// Capturer simulates a copy and waits for the clipboard to change
type Capturer struct {
	clipboard         platform.Clipboard
	fallbackClipboard platform.Clipboard
	keys              platform.KeySender
	fallbackKeys      platform.KeySender
	opts              Options
}

// NewCapturer wires the native clipboard and key sender when this OS has
// them, with the generic implementations as fallback
func NewCapturer(opts Options) *Capturer {
	clip, err := platform.NewNativeClipboard()
	if err != nil {
		slog.Info("Native clipboard unavailable, using generic", "reason", err)
		clip = nil
	}
	keys, err := platform.NewNativeKeySender()
	if err != nil {
		slog.Info("Native key sender unavailable, using generic", "reason", err)
		keys = nil
	}
	return NewCapturerWith(clip, platform.NewGenericClipboard(), keys, platform.NewGenericKeySender(), opts)
}

// NewCapturerWith builds a capturer from explicit ports. Any port may be nil.
func NewCapturerWith(clip, fallbackClip platform.Clipboard, keys, fallbackKeys platform.KeySender, opts Options) *Capturer {
	return &Capturer{
		clipboard:         clip,
		fallbackClipboard: fallbackClip,
		keys:              keys,
		fallbackKeys:      fallbackKeys,
		opts:              opts.withDefaults(),
	}
}

// ReadClipboard returns the clipboard text, "" when nothing could be read
func (c *Capturer) ReadClipboard() string {
	if c.clipboard != nil {
		for i := 0; i < c.opts.ReadAttempts; i++ {
			text, err := c.clipboard.Get()
			if err == nil && text != "" {
				return text
			}
			time.Sleep(c.opts.ReadDelay)
		}
	}

	if c.fallbackClipboard != nil {
		text, err := c.fallbackClipboard.Get()
		if err != nil {
			slog.Info("Generic clipboard read failed", "error", err)
			return ""
		}
		return text
	}
	return ""
}

// SendCopy synthesizes the copy keystroke and reports whether any sender
// accepted it
func (c *Capturer) SendCopy() bool {
	if c.keys != nil {
		err := c.keys.SendCopy()
		if err == nil {
			return true
		}
		slog.Info("Native copy keystroke failed, using generic", "error", err)
	}

	if c.fallbackKeys != nil {
		if err := c.fallbackKeys.SendCopy(); err != nil {
			slog.Warn("Generic copy keystroke failed", "error", err)
			return false
		}
		return true
	}
	return false
}

// CopySelectedText runs one capture attempt. It returns "" when the
// clipboard did not change to non-empty text before the timeout.
func (c *Capturer) CopySelectedText() string {
	before := c.ReadClipboard()

	if !c.SendCopy() {
		return ""
	}

	time.Sleep(c.opts.Settle)

	deadline := time.Now().Add(c.opts.Timeout)
	for {
		text := c.ReadClipboard()
		if text != "" && text != before {
			return text
		}
		if time.Now().After(deadline) {
			return ""
		}
		time.Sleep(c.opts.Poll)
	}
}

// AttemptCopySelectedText repeats CopySelectedText until one attempt yields
// text or the attempts run out
func (c *Capturer) AttemptCopySelectedText() string {
	for attempt := 1; attempt <= c.opts.Attempts; attempt++ {
		if text := c.CopySelectedText(); text != "" {
			return text
		}
		slog.Info("Clipboard capture attempt returned nothing", "attempt", attempt, "of", c.opts.Attempts)
		if attempt < c.opts.Attempts {
			time.Sleep(c.opts.RetryDelay)
		}
	}
	return ""
}
