package orchestrator

import (
	"time"

	"github.com/engagestory/engagestory/pkg/types"
)

// Lifecycle is one submission as seen by observers. Values handed out by the
// orchestrator are copies; mutating them has no effect.
type Lifecycle struct {
	ID         string                  `json:"id,omitempty"`
	Generation uint64                  `json:"generation"`
	State      types.LifecycleState    `json:"state"`
	Input      *types.PredictionInput  `json:"input,omitempty"`
	Result     *types.PredictionResult `json:"result,omitempty"`
	Error      string                  `json:"error,omitempty"`
	StartedAt  *time.Time              `json:"started_at,omitempty"`
	FinishedAt *time.Time              `json:"finished_at,omitempty"`
}

// clone returns lc with its pointer fields copied.
func (lc Lifecycle) clone() Lifecycle {
	if lc.Input != nil {
		in := *lc.Input
		lc.Input = &in
	}
	if lc.Result != nil {
		res := *lc.Result
		lc.Result = &res
	}
	if lc.StartedAt != nil {
		t := *lc.StartedAt
		lc.StartedAt = &t
	}
	if lc.FinishedAt != nil {
		t := *lc.FinishedAt
		lc.FinishedAt = &t
	}
	return lc
}

// Observer is called after state transitions with the new lifecycle, in
// transition order. A transition overtaken by a newer one before it could
// be delivered is skipped. Observers run synchronously, one at a time, and
// must not block or call Orchestrate.
type Observer func(Lifecycle)

// availabilityWindow is the number of recent remote attempts tracked.
const availabilityWindow = 20

// availability is a sliding record of remote attempt outcomes, newest last.
type availability struct {
	history []bool
}

func (a *availability) record(live bool) {
	if len(a.history) >= availabilityWindow {
		a.history = a.history[1:]
	}
	a.history = append(a.history, live)
}

// pct returns the share of recent attempts that resolved live, 0–100.
// Assumes available before the first observation.
func (a *availability) pct() float64 {
	if len(a.history) == 0 {
		return 100
	}
	var ok int
	for _, live := range a.history {
		if live {
			ok++
		}
	}
	return float64(ok) / float64(len(a.history)) * 100
}
