package compute

import (
	"github.com/shopspring/decimal"

	"github.com/engagestory/engagestory/pkg/types"
)

// Labels for each score band.
const (
	LabelBlockbuster = "Blockbuster Potential"
	LabelStable      = "Stable Ecosystem"
	LabelNiche       = "Niche / Borderline Viability"
	LabelChurnRisk   = "High Risk of Churn"
)

// Lower bounds (exclusive) for each band.
const (
	ThresholdBlockbuster = 75.0
	ThresholdStable      = 55.0
	ThresholdNiche       = 35.0
)

// SimulatedDisclosure is shown next to scores produced by the fallback engine.
const SimulatedDisclosure = "Simulated via local heuristic model; live inference unavailable"

// Label maps a finished score to its qualitative band.
func Label(score float64) string {
	switch {
	case score > ThresholdBlockbuster:
		return LabelBlockbuster
	case score > ThresholdStable:
		return LabelStable
	case score > ThresholdNiche:
		return LabelNiche
	default:
		return LabelChurnRisk
	}
}

// Present builds the display form of res.
func Present(res types.PredictionResult) types.Presentation {
	p := types.Presentation{
		Score:   res.Score,
		Display: decimal.NewFromFloat(res.Score).StringFixed(1),
		Label:   Label(res.Score),
		Source:  res.Source,
	}
	if res.Source == types.SourceSimulated {
		p.Disclosure = SimulatedDisclosure
	}
	return p
}
