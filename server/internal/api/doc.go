// Package api implements the HTTP API for the engagestory server.
//
// New(deps) returns an http.Handler that serves:
//
//	GET  /                    — liveness banner
//	GET  /api/insights        — precomputed insights document
//	GET  /api/assets/{name}   — chart asset; 400 on path escape, 404 if absent
//	POST /api/predict         — alias of POST /api/v1/predict
//	GET  /api/v1/health       — status, current lifecycle state, generation
//	POST /api/v1/predict      — score a PredictionInput; returns Presentation
//	GET  /api/v1/lifecycle    — current submission lifecycle
//	GET  /api/v1/stats        — prediction totals from the metrics registry
//
// /api/v1/* and the /api/predict alias are behind the API key middleware
// when server.auth.mode is apikey. Prediction routes share one token-bucket limiter.
//
// Error bodies are always {"error": "..."}. Predict answers 409 when a newer
// submission superseded the request, 500 on an internal fault, 429 when
// rate limited and 400 on a malformed body. A remote outage is not an error:
// the response is 200 with source "simulated".
package api
