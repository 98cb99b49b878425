package types

// Declared input ranges. The input surface clamps to these before capture.
const (
	MinPrice = 0.0
	MaxPrice = 150.0

	MinDLCCount = 0
	MaxDLCCount = 250

	MinReleaseYear = 2010
	MaxReleaseYear = 2030

	MinMetacritic = 10
	MaxMetacritic = 100
)

// Score bounds shared by both scoring sources.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

// PredictionInput is one submitted tuple of launch parameters.
// It is a plain value; copies are never affected by later form edits.
type PredictionInput struct {
	Price           float64 `json:"price"`
	DLCCount        int     `json:"dlc_count"`
	ReleaseYear     int     `json:"release_year"`
	MetacriticScore int     `json:"metacritic_score"`
}

// Clamp returns a copy of in with every field restricted to its declared range.
func (in PredictionInput) Clamp() PredictionInput {
	return PredictionInput{
		Price:           clampFloat(in.Price, MinPrice, MaxPrice),
		DLCCount:        clampInt(in.DLCCount, MinDLCCount, MaxDLCCount),
		ReleaseYear:     clampInt(in.ReleaseYear, MinReleaseYear, MaxReleaseYear),
		MetacriticScore: clampInt(in.MetacriticScore, MinMetacritic, MaxMetacritic),
	}
}

// Source records which engine produced a score.
type Source string

const (
	// SourceLive marks a score returned by the remote inference endpoint.
	SourceLive Source = "live"
	// SourceSimulated marks a score computed by the local fallback engine.
	SourceSimulated Source = "simulated"
)

// PredictionResult is a finished score. Score is always within
// [MinScore, MaxScore] and rounded to one decimal place.
type PredictionResult struct {
	Score  float64 `json:"score"`
	Source Source  `json:"source"`
}

// LifecycleState is the state of one submission.
type LifecycleState string

const (
	StateIdle      LifecycleState = "idle"
	StatePending   LifecycleState = "pending"
	StateSucceeded LifecycleState = "succeeded"
	StateFailed    LifecycleState = "failed"
)

// Terminal reports whether no further transition can happen from s.
func (s LifecycleState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Presentation is a finished result prepared for display.
type Presentation struct {
	Score   float64 `json:"score"`
	Display string  `json:"display"`
	Label   string  `json:"label"`
	Source  Source  `json:"source"`

	// Disclosure is non-empty for simulated results so the UI can say where
	// the number came from.
	Disclosure string `json:"disclosure,omitempty"`
}

func clampFloat(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
