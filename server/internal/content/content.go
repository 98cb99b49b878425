package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/engagestory/engagestory/server/internal/config"
)

var (
	// ErrNotFound is returned when the insights document or a chart does not
	// exist on disk.
	ErrNotFound = errors.New("content: not found")

	// ErrInvalidName is returned for chart names that escape the assets
	// directory or are otherwise not plain relative paths.
	ErrInvalidName = errors.New("content: invalid asset name")
)

// Chart is one renderable asset.
type Chart struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	ModTime     time.Time `json:"mod_time"`
	Data        []byte    `json:"-"`
}

// Provider reads insights and charts from disk.
type Provider struct {
	insightsPath string
	assetsDir    string

	mu       sync.RWMutex
	insights json.RawMessage // nil until first successful load

	charts *cache
}

// New returns a Provider for cfg. Nothing is read until first use.
func New(cfg config.ContentConfig) *Provider {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = config.DefaultCacheTTL
	}
	return &Provider{
		insightsPath: filepath.Clean(cfg.InsightsPath),
		assetsDir:    filepath.Clean(cfg.AssetsDir),
		charts:       newCache(ttl),
	}
}

// Insights returns the insights document. The first call reads it from
// disk; later calls return the cached copy until Reload or a file change.
func (p *Provider) Insights(ctx context.Context) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	doc := p.insights
	p.mu.RUnlock()
	if doc != nil {
		return doc, nil
	}
	return p.loadInsights()
}

// Reload re-reads the insights document and drops every cached chart.
func (p *Provider) Reload() error {
	p.charts.purge()
	_, err := p.loadInsights()
	return err
}

func (p *Provider) loadInsights() (json.RawMessage, error) {
	data, err := os.ReadFile(p.insightsPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p.insightsPath)
		}
		return nil, fmt.Errorf("content: read insights: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("content: %s is not valid JSON", p.insightsPath)
	}

	doc := json.RawMessage(data)
	p.mu.Lock()
	p.insights = doc
	p.mu.Unlock()
	return doc, nil
}

// Chart returns the asset called name from the assets directory. name may
// contain forward slashes for subdirectories but must stay inside the
// directory.
func (p *Provider) Chart(name string) (Chart, error) {
	rel, err := cleanName(name)
	if err != nil {
		return Chart{}, err
	}
	if ch, ok := p.charts.get(rel); ok {
		return ch, nil
	}

	path := filepath.Join(p.assetsDir, rel)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Chart{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Chart{}, fmt.Errorf("content: stat %s: %w", name, err)
	}
	if info.IsDir() {
		return Chart{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Chart{}, fmt.Errorf("content: read %s: %w", name, err)
	}

	ch := Chart{
		Name:        rel,
		ContentType: mimetype.Detect(data).String(),
		Size:        len(data),
		ModTime:     info.ModTime(),
		Data:        data,
	}
	p.charts.put(ch)
	return ch, nil
}

// Run evicts stale cached charts until ctx is cancelled.
func (p *Provider) Run(ctx context.Context) {
	p.charts.run(ctx)
}

// cleanName converts a slash-separated asset name into a cache key and
// rejects anything that is not a local relative path.
func cleanName(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidName
	}
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.ToSlash(filepath.Clean(rel)), nil
}
