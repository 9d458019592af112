package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"markestedt/linkgrab/capture"
	"markestedt/linkgrab/config"
	"markestedt/linkgrab/fetch"
	"markestedt/linkgrab/hotkey"
	"markestedt/linkgrab/linkflow"
	"markestedt/linkgrab/platform"
	"markestedt/linkgrab/queue"
	"markestedt/linkgrab/scheduler"
	"markestedt/linkgrab/status"
	"markestedt/linkgrab/storage"
	"markestedt/linkgrab/systray"
	"markestedt/linkgrab/web"
)

const (
	queueFileName = "download-list.txt"
	infoFileName  = "info.txt"
	rebindTimeout = 30 * time.Second
)

// Agent coordinates hotkeys, link capture, the download queue and the tray
type Agent struct {
	cfg    *config.Config
	logOut io.Writer

	folders   fetch.Folders
	queue     *queue.Store
	indicator *status.Indicator
	db        *storage.DB
	local     *capture.Capturer
	worker    *capture.Client
	flow      *linkflow.Flow
	scheduler *scheduler.Scheduler
	hotkeys   *hotkey.Manager
	rebinder  *hotkey.Rebinder
	web       *web.Server
	tray      *systray.SystrayManager
	infoPath  string

	captureOpts capture.Options

	mu       sync.Mutex
	addChord string

	shutdownOnce sync.Once
}

// NewAgent creates the runtime files and every component that does not need
// the event loop yet
func NewAgent(cfg *config.Config, logOut io.Writer) (*Agent, error) {
	a := &Agent{
		cfg:      cfg,
		logOut:   logOut,
		folders:  fetch.NewFolders(cfg.Paths.DownloadsDir),
		queue:    queue.NewStore(filepath.Join(cfg.Paths.DataDir, queueFileName)),
		infoPath: filepath.Join(cfg.Paths.DataDir, infoFileName),
		addChord: cfg.AddHotkey(),
	}

	if err := a.createRuntimeFiles(); err != nil {
		return nil, err
	}

	db, err := storage.Open(cfg.Paths.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	a.db = db

	a.indicator = status.New(platform.Notify)

	a.captureOpts = capture.DefaultOptions()
	a.captureOpts.Attempts = cfg.Capture.Attempts
	a.captureOpts.Timeout = time.Duration(cfg.Capture.TimeoutMs) * time.Millisecond
	a.local = capture.NewCapturer(a.captureOpts)

	a.flow = &linkflow.Flow{
		Local:  a.local,
		Queue:  a.queue,
		Status: a.indicator,
	}

	registry := fetch.NewDefaultRegistry(a.folders, nil)
	a.scheduler = scheduler.New(registry, a.queue, a.indicator, &historyRecorder{agent: a})

	generic, err := newGenericHotkeys(logOut)
	if err != nil {
		slog.Warn("Generic hotkey backend unavailable", "reason", err)
		generic = nil
	}
	a.hotkeys = hotkey.NewManager(generic)
	a.rebinder = &hotkey.Rebinder{
		Manager: a.hotkeys,
		Notify:  a.indicator.Notify,
		Persist: cfg.SetAddHotkey,
	}

	if reader, err := platform.NewChordReader(); err != nil {
		slog.Info("Hotkey change from the tray is unavailable", "reason", err)
	} else {
		a.rebinder.Reader = reader
	}

	if cfg.Web.Enabled {
		a.web = web.NewServer(a.db, a.scheduler, a.queue, a.indicator, cfg.Web.Port)
	}

	return a, nil
}

// createRuntimeFiles makes sure the queue file, the info file and every
// download folder exist
func (a *Agent) createRuntimeFiles() error {
	if err := a.queue.Ensure(); err != nil {
		return fmt.Errorf("failed to create download list: %w", err)
	}
	if err := a.folders.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create download folders: %w", err)
	}
	if info, err := os.Stat(a.infoPath); err == nil && info.Size() > 0 {
		return nil
	}
	if err := os.WriteFile(a.infoPath, []byte(a.infoText()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", infoFileName, err)
	}
	return nil
}

func (a *Agent) infoText() string {
	return fmt.Sprintf(`LinkGrab

Select a link in any application and press %s to add it to the download list.
Press %s (or choose Download in the tray menu) to download every queued link.

Supported links:
  YouTube videos and playlists   -> %s
  Pinterest pins                 -> %s
  Wildberries products           -> %s

Download list: %s
Settings:      %s
`,
		a.cfg.AddHotkey(), a.cfg.DownloadHotkey(),
		a.folders.Videos, a.folders.Pictures, a.folders.Wildberries,
		a.queue.Path(), a.cfg.Path(),
	)
}

// Run starts every background component and blocks until ctx is done or the
// user quits from the tray
func (a *Agent) Run(ctx context.Context, headless bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.shutdown()

	go func() {
		if err := fetch.EnsureTool(ctx); err != nil {
			slog.Error("yt-dlp is unavailable, video downloads will fail", "error", err)
		}
	}()

	worker, err := capture.StartWorker(a.captureOpts, a.logOut)
	if err != nil {
		slog.Warn("Clipboard worker unavailable, capturing in process", "error", err)
	} else {
		a.worker = worker
		a.flow.Worker = worker
	}

	a.registerHotkeys()
	a.hotkeys.StartListening()

	if a.web != nil {
		if err := a.web.Start(); err != nil {
			slog.Error("Failed to start web server", "error", err)
		} else {
			a.indicator.Subscribe(a.web.BroadcastStatus)
		}
	}

	if !headless {
		a.tray = systray.NewSystrayManager(a.trayActions())
		a.indicator.Subscribe(a.tray.SetState)
	}

	go a.watchQueue(ctx)

	slog.Info("LinkGrab started",
		"add_hotkey", a.currentAddChord(),
		"download_hotkey", a.cfg.DownloadHotkey(),
		"downloads", a.cfg.Paths.DownloadsDir,
	)

	if headless {
		<-ctx.Done()
		return nil
	}

	go func() {
		select {
		case <-ctx.Done():
			a.tray.Stop()
		case <-a.tray.WaitForQuit():
		}
	}()
	// blocks on the main thread until Quit
	a.tray.Run()
	return nil
}

func (a *Agent) bindings() hotkey.Bindings {
	return hotkey.Bindings{
		Add:        a.currentAddChord(),
		Download:   a.cfg.DownloadHotkey(),
		OnAdd:      a.onAdd,
		OnDownload: a.onDownload,
	}
}

func (a *Agent) registerHotkeys() {
	b := a.bindings()
	if err := a.hotkeys.Register(b.Add, b.OnAdd); err != nil {
		slog.Error("Failed to register add hotkey", "hotkey", b.Add, "error", err)
	}
	if err := a.hotkeys.Register(b.Download, b.OnDownload); err != nil {
		slog.Error("Failed to register download hotkey", "hotkey", b.Download, "error", err)
	}
}

func (a *Agent) onAdd() {
	res := a.flow.AddLinkFromSelection(context.Background())
	slog.Debug("Add hotkey handled", "result", res.String())
}

func (a *Agent) onDownload() {
	a.scheduler.TriggerDownloadAll()
}

func (a *Agent) currentAddChord() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addChord
}

func (a *Agent) changeHotkey() {
	if a.rebinder.Reader == nil {
		a.indicator.Notify("Change hotkey", "Edit add_hotkey in "+a.cfg.Path()+" and restart LinkGrab")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), rebindTimeout)
	defer cancel()

	chord, err := a.rebinder.ChangeAddChord(ctx, a.bindings())
	if errors.Is(err, hotkey.ErrRebindInProgress) {
		return
	}

	a.mu.Lock()
	a.addChord = chord
	a.mu.Unlock()
}

func (a *Agent) trayActions() systray.Actions {
	actions := systray.Actions{
		Download:     a.onDownload,
		OpenList:     func() { a.open(a.queue.Path()) },
		OpenFolder:   func() { a.open(a.cfg.Paths.DownloadsDir) },
		ChangeHotkey: a.changeHotkey,
		Info:         a.showInfo,
	}
	if a.web != nil {
		actions.OpenWebUI = func() { a.open(fmt.Sprintf("http://localhost:%d", a.cfg.Web.Port)) }
	}
	return actions
}

func (a *Agent) open(target string) {
	if err := platform.Open(target); err != nil {
		slog.Error("Failed to open", "target", target, "error", err)
	}
}

func (a *Agent) showInfo() {
	if _, err := os.Stat(a.infoPath); err != nil {
		a.indicator.Notify("Info", infoFileName+" not found")
		return
	}
	a.open(a.infoPath)
}

func (a *Agent) watchQueue(ctx context.Context) {
	publish := func(n int) {
		if a.tray != nil {
			a.tray.SetQueueCount(n)
		}
		if a.web != nil {
			a.web.BroadcastQueue(n)
		}
	}

	if n, err := a.queue.Len(); err == nil {
		publish(n)
	}
	if err := a.queue.Watch(ctx, publish); err != nil {
		slog.Warn("Queue watcher stopped", "error", err)
	}
}

// shutdown releases everything in reverse dependency order; it runs once
func (a *Agent) shutdown() {
	a.shutdownOnce.Do(func() {
		slog.Info("Shutting down")

		if err := a.hotkeys.Close(); err != nil {
			slog.Warn("Failed to release hotkeys", "error", err)
		}
		a.worker.Stop()
		a.indicator.Flush()

		if a.scheduler.Status() == scheduler.Running {
			slog.Warn("Exiting while a download batch is running")
		}

		if a.web != nil {
			a.web.Stop()
		}
		if err := a.db.Close(); err != nil {
			slog.Warn("Failed to close history", "error", err)
		}
	})
}

// historyRecorder stores each processed link and pushes it to the web feed
type historyRecorder struct {
	agent *Agent
}

func (r *historyRecorder) SaveDownload(d *storage.Download) error {
	if err := r.agent.db.SaveDownload(d); err != nil {
		return err
	}
	if r.agent.web != nil {
		r.agent.web.BroadcastDownload(d)
	}
	return nil
}
