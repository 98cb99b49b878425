package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/engagestory/engagestory/pkg/types"
	"github.com/engagestory/engagestory/server/internal/config"
)

var defaultInput = types.PredictionInput{Price: 20, DLCCount: 0, ReleaseYear: 2026, MetacriticScore: 75}

func newClient(url string, deadline time.Duration) *Client {
	return New(config.InferenceConfig{Endpoint: url, Deadline: deadline})
}

func TestRequest_Success(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type: got %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predicted_engagement": 62.4}`))
	}))
	defer srv.Close()

	score, err := newClient(srv.URL, time.Second).Request(context.Background(), defaultInput)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if score != 62.4 {
		t.Errorf("score = %v, want 62.4", score)
	}

	// Wire body uses the snake_case contract.
	for key, want := range map[string]float64{
		"price": 20, "dlc_count": 0, "release_year": 2026, "metacritic_score": 75,
	} {
		if v, ok := got[key].(float64); !ok || v != want {
			t.Errorf("body[%q] = %v, want %v", key, got[key], want)
		}
	}
}

func TestRequest_FailuresCollapseToUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"bad request", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad input", http.StatusBadRequest)
		}},
		{"cold start 503", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}},
		{"malformed body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"predicted_engagement": `))
		}},
		{"missing field", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"score": 50}`))
		}},
		{"wrong type", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"predicted_engagement": "high"}`))
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := newClient(srv.URL, time.Second).Request(context.Background(), defaultInput)
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("err = %v, want ErrUnavailable", err)
			}
		})
	}
}

func TestRequest_DeadlineExceeded(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := newClient(srv.URL, 50*time.Millisecond).Request(context.Background(), defaultInput)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if elapsed > time.Second {
		t.Errorf("Request took %v, want ~50ms", elapsed)
	}
}

func TestRequest_ConnectFailure(t *testing.T) {
	_, err := newClient("http://127.0.0.1:1", time.Second).Request(context.Background(), defaultInput)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestRequest_CallerCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newClient(srv.URL, 5*time.Second).Request(ctx, defaultInput)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestRequest_SendsRequestID(t *testing.T) {
	var gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(RequestIDHeader)
		_, _ = w.Write([]byte(`{"predicted_engagement": 10}`))
	}))
	defer srv.Close()

	ctx := WithRequestID(context.Background(), "sub-42")
	if _, err := newClient(srv.URL, time.Second).Request(ctx, defaultInput); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if gotID != "sub-42" {
		t.Errorf("%s = %q, want sub-42", RequestIDHeader, gotID)
	}
}

func TestRequest_AuthModes(t *testing.T) {
	t.Setenv("TEST_INFER_KEY", "key-1")
	t.Setenv("TEST_INFER_TOKEN", "tok-2")
	t.Setenv("TEST_INFER_PASS", "pw-3")

	tests := []struct {
		name  string
		auth  config.ClientAuthConfig
		check func(t *testing.T, r *http.Request)
	}{
		{
			name: "apikey",
			auth: config.ClientAuthConfig{Mode: "apikey", Header: "X-Infer-Key", KeyEnv: "TEST_INFER_KEY"},
			check: func(t *testing.T, r *http.Request) {
				if got := r.Header.Get("X-Infer-Key"); got != "key-1" {
					t.Errorf("X-Infer-Key = %q, want key-1", got)
				}
			},
		},
		{
			name: "bearer",
			auth: config.ClientAuthConfig{Mode: "bearer", TokenEnv: "TEST_INFER_TOKEN"},
			check: func(t *testing.T, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer tok-2" {
					t.Errorf("Authorization = %q, want Bearer tok-2", got)
				}
			},
		},
		{
			name: "basic",
			auth: config.ClientAuthConfig{Mode: "basic", Username: "story", PasswordEnv: "TEST_INFER_PASS"},
			check: func(t *testing.T, r *http.Request) {
				u, p, ok := r.BasicAuth()
				if !ok || u != "story" || p != "pw-3" {
					t.Errorf("BasicAuth = %q %q %v", u, p, ok)
				}
			},
		},
		{
			name: "none",
			auth: config.ClientAuthConfig{Mode: "none"},
			check: func(t *testing.T, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "" {
					t.Errorf("Authorization = %q, want empty", got)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tc.check(t, r)
				_, _ = w.Write([]byte(`{"predicted_engagement": 1}`))
			}))
			defer srv.Close()

			c := New(config.InferenceConfig{Endpoint: srv.URL, Deadline: time.Second, Auth: tc.auth})
			if _, err := c.Request(context.Background(), defaultInput); err != nil {
				t.Fatalf("Request() error = %v", err)
			}
		})
	}
}

func TestOffline_AlwaysUnavailable(t *testing.T) {
	_, err := Offline{}.Request(context.Background(), defaultInput)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestNew_ZeroDeadlineUsesDefault(t *testing.T) {
	c := New(config.InferenceConfig{Endpoint: "http://example.invalid"})
	if c.Deadline() != config.DefaultDeadline {
		t.Errorf("Deadline() = %v, want %v", c.Deadline(), config.DefaultDeadline)
	}
}
