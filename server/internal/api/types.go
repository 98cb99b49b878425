package api

import (
	"github.com/engagestory/engagestory/pkg/types"
)

// RootResponse is the payload for GET /.
type RootResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status     string               `json:"status"`
	State      types.LifecycleState `json:"state"`
	Generation uint64               `json:"generation"`

	// RemoteAvailabilityPct is the share of recent remote attempts that
	// resolved live, 0–100.
	RemoteAvailabilityPct float64 `json:"remote_availability_pct"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
