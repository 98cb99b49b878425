// Package inference is the client for the remote scoring endpoint.
//
// Client.Request POSTs the four inputs as JSON and expects
// {"predicted_engagement": number} back. One attempt, no retries. The attempt
// is bounded by the configured deadline twice over: a per-call context timeout
// and the http.Client timeout.
//
// Every failure mode (deadline, connection refused, non-2xx status, malformed
// or incomplete body) collapses into ErrUnavailable; callers test only
// errors.Is(err, ErrUnavailable) and never branch on the cause.
//
// Authentication (API key, bearer token, basic) is injected by the
// authRoundTripper in transport.go. Offline is used when no endpoint is set.
package inference
