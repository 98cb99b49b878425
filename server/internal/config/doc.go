// Package config loads and watches the service configuration file (config.yaml).
//
// Top-level sections:
//   - log — level (debug|info|warn|error)
//   - server — http_port, auth (apikey|none), rate_limit {rps, burst}
//   - inference — endpoint, deadline (default 8s), auth
//     (apikey|bearer|basic|none), tls
//   - content — insights_path, assets_dir, cache_ttl
//   - stream — interval of the lifecycle WebSocket re-broadcast
//
// Load(path) applies Default(), parses YAML on top, then validates struct-tag
// rules (go-playground/validator) and the cross-field constraints. Secrets are
// never stored in the file: *_env fields name environment variables that are
// resolved on use.
//
// Watch(ctx, path, onChange) watches the file's directory through fswatch so
// that rename-over saves are seen, and calls onChange with the newly parsed
// Config. An invalid edit is logged and ignored.
package config
