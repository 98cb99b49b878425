package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, `inference:
  endpoint: "http://localhost:5000/api/predict"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Inference.Deadline != DefaultDeadline {
		t.Errorf("deadline: got %v, want %v", cfg.Inference.Deadline, DefaultDeadline)
	}
	if cfg.Content.CacheTTL != DefaultCacheTTL {
		t.Errorf("cache_ttl: got %v, want %v", cfg.Content.CacheTTL, DefaultCacheTTL)
	}
	if cfg.Stream.Interval != DefaultStreamInterval {
		t.Errorf("stream.interval: got %v, want %v", cfg.Stream.Interval, DefaultStreamInterval)
	}
	if cfg.Log.SlogLevel() != slog.LevelInfo {
		t.Errorf("log level: got %v, want info", cfg.Log.SlogLevel())
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `log:
  level: debug
server:
  http_port: 9091
  auth:
    mode: apikey
    key_env: STORY_KEY
    header: X-Story-Key
  rate_limit:
    rps: 5
    burst: 10
inference:
  endpoint: "https://inference.internal/api/predict"
  deadline: 3s
  auth:
    mode: bearer
    token_env: INFER_TOKEN
  tls:
    insecure_skip_verify: true
content:
  insights_path: /srv/story/insights.json
  assets_dir: /srv/story/assets
  cache_ttl: 1m
stream:
  interval: 2s
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", cfg.Server.HTTPPort)
	}
	if cfg.Server.Auth.EffectiveHeader() != "X-Story-Key" {
		t.Errorf("header: got %q, want X-Story-Key", cfg.Server.Auth.EffectiveHeader())
	}
	if cfg.Server.RateLimit.RPS != 5 || cfg.Server.RateLimit.Burst != 10 {
		t.Errorf("rate_limit: got %+v", cfg.Server.RateLimit)
	}
	if cfg.Inference.Deadline != 3*time.Second {
		t.Errorf("deadline: got %v, want 3s", cfg.Inference.Deadline)
	}
	if cfg.Inference.Auth.Mode != "bearer" {
		t.Errorf("inference.auth.mode: got %q, want bearer", cfg.Inference.Auth.Mode)
	}
	if !cfg.Inference.TLS.InsecureSkipVerify {
		t.Error("inference.tls.insecure_skip_verify: got false, want true")
	}
	if cfg.Content.AssetsDir != "/srv/story/assets" {
		t.Errorf("assets_dir: got %q", cfg.Content.AssetsDir)
	}
	if cfg.Stream.Interval != 2*time.Second {
		t.Errorf("stream.interval: got %v, want 2s", cfg.Stream.Interval)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level: got %v, want debug", cfg.Log.SlogLevel())
	}
}

func TestLoad_EmptyEndpointIsOffline(t *testing.T) {
	p := writeConfig(t, "server:\n  http_port: 8081\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Inference.Endpoint != "" {
		t.Errorf("endpoint: got %q, want empty", cfg.Inference.Endpoint)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "X-API-Key" {
		t.Errorf("EffectiveHeader: got %q, want X-API-Key", h)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"port out of range", "server:\n  http_port: 70000\n", "server.http_port"},
		{"negative deadline", "inference:\n  deadline: -1s\n", "inference.deadline"},
		{"bad endpoint", "inference:\n  endpoint: \"not a url\"\n", "inference.endpoint"},
		{"unknown server auth mode", "server:\n  auth:\n    mode: mtls\n", "server.auth.mode"},
		{"unknown client auth mode", "inference:\n  auth:\n    mode: oauth\n", "inference.auth.mode"},
		{"unknown log level", "log:\n  level: chatty\n", "log.level"},
		{"apikey without key_env", "server:\n  auth:\n    mode: apikey\n", "key_env"},
		{"client apikey without header", "inference:\n  auth:\n    mode: apikey\n    key_env: K\n", "inference.auth.header"},
		{"rate without burst", "server:\n  rate_limit:\n    rps: 2\n", "burst"},
		{"malformed yaml", "server: [\n", "parse yaml"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("Load: expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load on missing file: expected error")
	}
}

func TestClientAuth_ResolvesFromEnv(t *testing.T) {
	t.Setenv("INFER_KEY", "k-123")
	t.Setenv("INFER_TOKEN", "t-456")
	t.Setenv("INFER_PASS", "p-789")

	a := ClientAuthConfig{KeyEnv: "INFER_KEY", TokenEnv: "INFER_TOKEN", PasswordEnv: "INFER_PASS"}
	if a.Key() != "k-123" || a.Token() != "t-456" || a.Password() != "p-789" {
		t.Errorf("resolved = %q %q %q", a.Key(), a.Token(), a.Password())
	}
	if (ClientAuthConfig{}).Key() != "" {
		t.Error("Key with no KeyEnv: want empty")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "inference:\n  deadline: 2s\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 16)
	go Watch(ctx, p, func(c *Config) { //nolint:errcheck
		select {
		case got <- c:
		default:
		}
	})

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte("inference:\n  deadline: 4s\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// A truncating write can surface as two events; wait for the final content.
	timeout := time.After(3 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Inference.Deadline == 4*time.Second {
				return
			}
		case <-timeout:
			t.Fatal("Watch did not report the change")
		}
	}
}

func TestWatch_ReloadsOnRenameOver(t *testing.T) {
	p := writeConfig(t, "inference:\n  deadline: 2s\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 16)
	go Watch(ctx, p, func(c *Config) { //nolint:errcheck
		select {
		case got <- c:
		default:
		}
	})
	time.Sleep(100 * time.Millisecond)

	// Editors save by writing a sibling and renaming it over the original.
	// The second save must be seen even though the first replaced the inode.
	for _, want := range []time.Duration{5 * time.Second, 6 * time.Second} {
		tmp := p + ".swp"
		body := fmt.Sprintf("inference:\n  deadline: %s\n", want)
		if err := os.WriteFile(tmp, []byte(body), 0o600); err != nil {
			t.Fatalf("write temp: %v", err)
		}
		if err := os.Rename(tmp, p); err != nil {
			t.Fatalf("rename over config: %v", err)
		}

		timeout := time.After(3 * time.Second)
	wait:
		for {
			select {
			case c := <-got:
				if c.Inference.Deadline == want {
					break wait
				}
			case <-timeout:
				t.Fatalf("Watch did not report the rename-over save (%s)", want)
			}
		}
	}
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	p := writeConfig(t, "inference:\n  deadline: 2s\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 16)
	go Watch(ctx, p, func(c *Config) { //nolint:errcheck
		got <- c
	})
	time.Sleep(100 * time.Millisecond)

	other := filepath.Join(filepath.Dir(p), "other.yaml")
	if err := os.WriteFile(other, []byte("inference:\n  deadline: 9s\n"), 0o600); err != nil {
		t.Fatalf("write sibling: %v", err)
	}

	select {
	case c := <-got:
		t.Fatalf("unexpected reload from sibling file: %+v", c.Inference)
	case <-time.After(300 * time.Millisecond):
	}
}
