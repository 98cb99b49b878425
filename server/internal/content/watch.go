package content

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/engagestory/engagestory/server/internal/fswatch"
)

// Watch keeps the cached content in step with the files on disk. A change
// to the insights document reloads it; a change under the assets directory
// drops that chart from the cache. It runs until ctx is cancelled.
func (p *Provider) Watch(ctx context.Context) error {
	dirs := []string{filepath.Dir(p.insightsPath)}
	if info, err := os.Stat(p.assetsDir); err == nil && info.IsDir() {
		dirs = append(dirs, p.assetsDir)
	} else {
		slog.Warn("content: assets directory not watched", "dir", p.assetsDir)
	}
	return fswatch.Watch(ctx, "content", dirs, p.handle)
}

func (p *Provider) handle(event fsnotify.Event) {
	name := filepath.Clean(event.Name)

	if name == p.insightsPath {
		if !fswatch.Modified(event) {
			return
		}
		if _, err := p.loadInsights(); err != nil {
			slog.Error("content: insights reload failed, keeping previous",
				"path", name, "err", err)
			return
		}
		slog.Info("content: insights reloaded", "path", name)
		return
	}

	if rel, err := filepath.Rel(p.assetsDir, name); err == nil && filepath.IsLocal(rel) {
		p.charts.drop(filepath.ToSlash(rel))
		slog.Debug("content: chart changed", "name", rel, "op", event.Op.String())
	}
}
