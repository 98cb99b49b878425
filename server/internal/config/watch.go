package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/engagestory/engagestory/server/internal/fswatch"
)

// Watch calls onChange with the freshly loaded Config whenever the file at
// path is saved, including saves that rename a new file over it. It runs
// until ctx is cancelled.
//
// An edit that fails to load is logged and skipped; onChange only ever sees
// valid configs.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	target := filepath.Clean(path)
	return fswatch.Watch(ctx, "config", []string{filepath.Dir(target)}, func(ev fsnotify.Event) {
		if filepath.Clean(ev.Name) != target || !fswatch.Modified(ev) {
			return
		}
		cfg, err := Load(target)
		if err != nil {
			slog.Error("config: reload failed, keeping previous config",
				"path", target, "err", err)
			return
		}
		slog.Info("config: reloaded", "path", target)
		onChange(cfg)
	})
}
