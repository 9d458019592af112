package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"markestedt/linkgrab/capture"
	"markestedt/linkgrab/config"
	"markestedt/linkgrab/platform"
	"markestedt/linkgrab/singleinstance"
)

const (
	appName     = "linkgrab"
	logFileName = "linkgrab.log"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == capture.WorkerCommand {
		os.Exit(runWorker(os.Args[2:]))
	}
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to config.toml (default: user config dir)")
	headless := flag.Bool("headless", false, "Run without the tray icon")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	setupLogging(os.Stdout, level)

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return 1
	}
	slog.Info("Configuration loaded", "path", cfg.Path())

	if err := os.MkdirAll(cfg.Paths.DataDir, 0755); err != nil {
		slog.Error("Failed to create data directory", "path", cfg.Paths.DataDir, "error", err)
		return 1
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.Paths.DataDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Warn("Failed to open log file, logging to stdout only", "error", err)
	} else {
		defer logFile.Close()
	}
	logOut := logWriter(logFile)
	setupLogging(logOut, level)

	lock, err := singleinstance.Acquire(appName, cfg.Paths.DataDir)
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("Another instance is already running, exiting")
		platform.Notify("LinkGrab", "LinkGrab is already running")
		// give the notification command a moment before the process exits
		time.Sleep(500 * time.Millisecond)
		return 0
	}
	if err != nil {
		slog.Error("Failed to acquire instance lock", "error", err)
		return 1
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("Failed to release instance lock", "error", err)
		}
	}()

	agent, err := NewAgent(cfg, logOut)
	if err != nil {
		slog.Error("Failed to create agent", "error", err)
		return 1
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := agent.Run(ctx, *headless); err != nil {
		slog.Error("Agent error", "error", err)
		return 1
	}

	slog.Info("LinkGrab stopped")
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(config.ExpandPath(path))
}

func logWriter(f *os.File) io.Writer {
	if f == nil {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, f)
}

func setupLogging(w io.Writer, level slog.Level) {
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// runWorker is the clipboard worker process: it answers capture requests on
// stdin/stdout and logs to stderr, which the agent forwards to its log
func runWorker(args []string) int {
	fs := flag.NewFlagSet(capture.WorkerCommand, flag.ContinueOnError)
	attempts := fs.Int("attempts", 3, "Copy attempts per request")
	timeoutMs := fs.Int("timeout-ms", 3000, "Clipboard change timeout per attempt in milliseconds")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	setupLogging(os.Stderr, slog.LevelInfo)
	slog.Info("Clipboard worker started", "pid", os.Getpid())

	opts := capture.DefaultOptions()
	opts.Attempts = *attempts
	opts.Timeout = time.Duration(*timeoutMs) * time.Millisecond

	if err := capture.Serve(os.Stdin, os.Stdout, capture.NewCapturer(opts)); err != nil {
		slog.Error("Clipboard worker failed", "error", err)
		return 1
	}
	return 0
}
