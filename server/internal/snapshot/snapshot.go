// Package snapshot captures the prediction inputs at the moment a submission
// is made.
//
// Capture reads through a FormSource every time it is called. It never holds
// on to an earlier reading, so two rapid submissions each carry the tuple that
// was on the form when they were made. The returned PredictionInput is a plain
// value and later edits to the form cannot reach it.
package snapshot

import (
	"sync"

	"github.com/engagestory/engagestory/pkg/types"
)

// FormSource is the authoritative, possibly changing, state of the input form.
type FormSource interface {
	Values() types.PredictionInput
}

// Capture reads the current values from src and returns them clamped into
// their declared ranges.
func Capture(src FormSource) types.PredictionInput {
	return src.Values().Clamp()
}

// Form is a concurrency-safe FormSource whose fields can be edited while
// submissions are in flight.
type Form struct {
	mu  sync.RWMutex
	cur types.PredictionInput
}

// NewForm returns a Form holding initial.
func NewForm(initial types.PredictionInput) *Form {
	return &Form{cur: initial}
}

// Values returns the tuple currently on the form.
func (f *Form) Values() types.PredictionInput {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cur
}

// Set replaces every field at once.
func (f *Form) Set(in types.PredictionInput) {
	f.mu.Lock()
	f.cur = in
	f.mu.Unlock()
}

// SetPrice updates the price field only.
func (f *Form) SetPrice(v float64) {
	f.mu.Lock()
	f.cur.Price = v
	f.mu.Unlock()
}

// SetDLCCount updates the DLC count field only.
func (f *Form) SetDLCCount(v int) {
	f.mu.Lock()
	f.cur.DLCCount = v
	f.mu.Unlock()
}

// SetReleaseYear updates the release year field only.
func (f *Form) SetReleaseYear(v int) {
	f.mu.Lock()
	f.cur.ReleaseYear = v
	f.mu.Unlock()
}

// SetMetacriticScore updates the metacritic field only.
func (f *Form) SetMetacriticScore(v int) {
	f.mu.Lock()
	f.cur.MetacriticScore = v
	f.mu.Unlock()
}

// Static is a FormSource that always returns the same tuple.
type Static types.PredictionInput

// Values implements FormSource.
func (s Static) Values() types.PredictionInput { return types.PredictionInput(s) }
