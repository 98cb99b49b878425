// Package fswatch runs a single fsnotify loop over a set of directories.
//
// Directories are watched instead of files so that atomic saves (write a
// temp file, rename it over the target) keep producing events for the
// target path after its inode is replaced.
package fswatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Handler receives every event from the watched directories. It runs on the
// watch goroutine.
type Handler func(fsnotify.Event)

// Watch adds each of dirs to a new watcher and passes events to fn until ctx
// is cancelled. name prefixes log lines. Watcher errors are logged and the
// loop continues.
func Watch(ctx context.Context, name string, dirs []string, fn Handler) error {
	if len(dirs) == 0 {
		return fmt.Errorf("%s: no directories to watch", name)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("%s: watch %s: %w", name, dir, err)
		}
	}

	slog.Info(name+": watching for changes", "dirs", dirs)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			fn(event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error(name+": watcher error", "err", err)
		}
	}
}

// Modified reports whether ev wrote or (re)created its file.
func Modified(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}
