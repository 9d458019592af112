package systray

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/getlantern/systray"

	"markestedt/linkgrab/status"
)

// Actions are the handlers behind the tray menu. A nil action hides its item.
type Actions struct {
	Download     func()
	OpenList     func()
	OpenFolder   func()
	ChangeHotkey func()
	Info         func()
	OpenWebUI    func()
}

// SystrayManager manages the system tray icon and menu
type SystrayManager struct {
	actions Actions
	quit    chan struct{}

	mu    sync.Mutex
	ready bool
	state status.State
	count int
}

// NewSystrayManager creates a new systray manager
func NewSystrayManager(actions Actions) *SystrayManager {
	return &SystrayManager{
		actions: actions,
		quit:    make(chan struct{}),
	}
}

// Run starts the system tray (blocking call)
func (m *SystrayManager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Stop stops the system tray
func (m *SystrayManager) Stop() {
	systray.Quit()
}

// WaitForQuit returns a channel that will be closed when user clicks Quit
func (m *SystrayManager) WaitForQuit() <-chan struct{} {
	return m.quit
}

// SetState switches the icon. Calls before the tray is ready are applied in onReady.
func (m *SystrayManager) SetState(s status.State) {
	m.mu.Lock()
	m.state = s
	ready := m.ready
	m.mu.Unlock()

	if ready {
		systray.SetIcon(Icon(s))
	}
}

// SetQueueCount updates the tooltip with the number of pending links
func (m *SystrayManager) SetQueueCount(n int) {
	m.mu.Lock()
	m.count = n
	ready := m.ready
	m.mu.Unlock()

	if ready {
		systray.SetTooltip(tooltip(n))
	}
}

func tooltip(count int) string {
	switch count {
	case 0:
		return "LinkGrab - download list is empty"
	case 1:
		return "LinkGrab - 1 link queued"
	default:
		return fmt.Sprintf("LinkGrab - %d links queued", count)
	}
}

type menuEntry struct {
	item   *systray.MenuItem
	name   string
	action func()
}

// onReady is called when the systray is ready
func (m *SystrayManager) onReady() {
	m.mu.Lock()
	m.ready = true
	state, count := m.state, m.count
	m.mu.Unlock()

	systray.SetIcon(Icon(state))
	systray.SetTitle("LinkGrab")
	systray.SetTooltip(tooltip(count))

	var entries []menuEntry
	add := func(title, tip string, action func()) {
		if action == nil {
			return
		}
		entries = append(entries, menuEntry{item: systray.AddMenuItem(title, tip), name: title, action: action})
	}

	add("Download", "Download every queued link", m.actions.Download)
	add("Download list", "Open the download list", m.actions.OpenList)
	add("Open downloads folder", "Open the folder downloads are saved to", m.actions.OpenFolder)
	systray.AddSeparator()
	add("Change hotkey", "Press a new chord for adding links", m.actions.ChangeHotkey)
	add("Info", "Show usage information", m.actions.Info)
	add("Open Web UI", "Open the LinkGrab web dashboard", m.actions.OpenWebUI)
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit LinkGrab")

	for _, e := range entries {
		go func(e menuEntry) {
			for range e.item.ClickedCh {
				// actions may block (hotkey capture), keep the menu responsive
				go runAction(e.name, e.action)
			}
		}(e)
	}

	go func() {
		<-mQuit.ClickedCh
		slog.Info("User requested quit from system tray")
		close(m.quit)
		systray.Quit()
	}()
}

// onExit is called when the systray is exiting
func (m *SystrayManager) onExit() {
	slog.Info("System tray exited")
}

func runAction(name string, action func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Tray action panicked", "item", name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	slog.Debug("Tray item clicked", "item", name)
	action()
}
