package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/engagestory/engagestory/server/internal/api"
	"github.com/engagestory/engagestory/server/internal/config"
	"github.com/engagestory/engagestory/server/internal/content"
	"github.com/engagestory/engagestory/server/internal/metrics"
	"github.com/engagestory/engagestory/server/internal/orchestrator"
	"github.com/engagestory/engagestory/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context, configPath, uiDir string) error {
	level := newLogger(os.Stdout, slog.LevelInfo)

	slog.Info("engagestory-server starting", "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		return err
	}
	level.Set(cfg.Log.SlogLevel())

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"inference_endpoint", cfg.Inference.Endpoint,
		"deadline", cfg.Inference.Deadline,
		"rate_limit_rps", cfg.Server.RateLimit.RPS,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rec := metrics.New()
	orch := orchestrator.New(newRemote(cfg.Inference), orchestrator.Options{
		Deadline: cfg.Inference.Deadline,
		Recorder: rec,
	})

	// Lifecycle stream: pushed on every transition, re-sent every interval.
	hub := ws.New(orch, cfg.Stream.Interval)
	orch.Subscribe(hub.Notify)

	provider := content.New(cfg.Content)

	mux := http.NewServeMux()
	mux.Handle("/", api.New(api.Deps{
		Predictor: orch,
		Content:   provider,
		Stats:     rec,
		Server:    cfg.Server,
	}))
	mux.Handle("/ws/stream", hub)
	mux.Handle("/metrics", rec.Handler())
	if uiDir != "" {
		mux.Handle("/ui/", http.StripPrefix("/ui", spa(uiDir)))
		slog.Info("serving UI static files", "dir", uiDir)
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		provider.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := provider.Watch(gctx); err != nil {
			slog.Warn("content watch disabled", "err", err)
		}
		return nil
	})
	g.Go(func() error {
		err := config.Watch(gctx, configPath, func(next *config.Config) {
			level.Set(next.Log.SlogLevel())
			orch.SetRemote(newRemote(next.Inference), next.Inference.Deadline)
			slog.Info("inference backend updated",
				"endpoint", next.Inference.Endpoint, "deadline", next.Inference.Deadline)
		})
		if err != nil {
			slog.Warn("config watch disabled", "err", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("engagestory-server shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "err", err)
		return err
	}
	return nil
}

// spa serves files from dir and falls back to index.html for unknown paths
// so client-side routing works.
func spa(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
