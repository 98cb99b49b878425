// Package orchestrator drives one prediction submission from PENDING to a
// terminal state.
//
// Every call to Orchestrator.Orchestrate opens a new generation. The remote
// backend is raced against an explicit deadline; when it answers in time the
// result is LIVE, otherwise the local heuristic resolves it as SIMULATED.
// A newer submission supersedes an older pending one: the older remote call
// is cancelled and its eventual result is discarded, so observers only ever
// see the newest generation's resolution.
package orchestrator
