// Package types defines the shared Go types used across the prediction
// service: the captured input tuple, the scored result and its provenance,
// and the lifecycle states the orchestrator moves through.
// JSON tags match the scoring endpoint's wire contract.
package types
