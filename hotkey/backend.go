package hotkey

// Handle is a live registration returned by a Backend
type Handle interface {
	Unregister() error
}

// Backend installs global triggers through one OS facility.
//
// Callbacks passed to Register are invoked asynchronously with respect to the
// caller and may run concurrently with each other.
type Backend interface {
	Name() string
	Register(c Chord, callback func()) (Handle, error)
	// StartListening and StopListening resume and pause event dispatch.
	// StopListening returns once no dispatch goroutine is running.
	StartListening()
	StopListening()
	Close() error
}
