package inference

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/engagestory/engagestory/server/internal/config"
)

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.ClientAuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the endpoint's auth and TLS
// settings. The client-level timeout equals the attempt deadline so a stalled
// body read cannot outlive it.
func buildHTTPClient(cfg config.InferenceConfig) *http.Client {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	var rt http.RoundTripper = &http.Transport{
		TLSClientConfig:       tlsCfg,
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: cfg.Deadline,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
	}
	if cfg.Auth.Mode != "" && cfg.Auth.Mode != "none" {
		rt = &authRoundTripper{base: rt, auth: cfg.Auth}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.Deadline,
	}
}
