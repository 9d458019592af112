package queue

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watch calls onChange with the queue length whenever the queue file changes,
// including edits made by hand in a text editor. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func(count int)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create queue watcher: %w", err)
	}
	defer watcher.Close()

	// editors replace files on save, so watch the directory
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Queue watcher error", "error", err)
		case <-timer.C:
			n, err := s.Len()
			if err != nil {
				slog.Warn("Failed to read queue after change", "error", err)
				continue
			}
			onChange(n)
		}
	}
}
