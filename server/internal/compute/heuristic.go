package compute

import (
	"math"

	"github.com/engagestory/engagestory/pkg/types"
)

// baseScore is the starting point every adjustment is applied to.
const baseScore = 50.0

// DLC tier adjustments. Tiers are inclusive upper bounds.
const (
	dlcNoneAdj  = -8.0 // dlc_count == 0
	dlcFewAdj   = 2.0  // 1–3
	dlcSomeAdj  = 12.0 // 4–10
	dlcManyAdj  = 20.0 // 11–30
	dlcHeavyAdj = 28.0 // > 30

	dlcFewMax  = 3
	dlcSomeMax = 10
	dlcManyMax = 30
)

// Metacritic band adjustments.
const (
	metaAcclaimedAdj = 15.0  // >= 90
	metaStrongAdj    = 8.0   // 80–89
	metaMixedAdj     = 0.0   // 70–79
	metaWeakAdj      = -12.0 // 50–69
	metaPoorAdj      = -25.0 // < 50
)

// Price adjustments. Free-to-play swings with critical reception.
const (
	freeAcclaimedAdj = 12.0  // price == 0, metacritic >= 80
	freeUnprovenAdj  = -15.0 // price == 0, metacritic < 80
	premiumAdj       = 5.0   // price >= 40

	premiumPrice   = 40.0
	freeMetaCutoff = 80
)

// Release year adjustments.
const (
	recentAdj = 4.0  // >= 2020
	datedAdj  = -4.0 // <= 2013

	recentYear = 2020
	datedYear  = 2013
)

// Noise coefficients. The noise term only spreads near-identical inputs apart
// visually; it is a pure function of the input.
const (
	noisePriceCoef = 7.1
	noiseDLCCoef   = 3.3
	noiseAmplitude = 2.0
)

// Estimate returns the unclamped, unrounded fallback score for in.
func Estimate(in types.PredictionInput) float64 {
	return TableComponent(in) + noise(in)
}

// TableComponent returns the rule-table part of the estimate, without noise.
//
// Rules apply cumulatively to a base of 50 in this order: DLC tier,
// metacritic band, price, release year.
func TableComponent(in types.PredictionInput) float64 {
	score := baseScore

	switch {
	case in.DLCCount <= 0:
		score += dlcNoneAdj
	case in.DLCCount <= dlcFewMax:
		score += dlcFewAdj
	case in.DLCCount <= dlcSomeMax:
		score += dlcSomeAdj
	case in.DLCCount <= dlcManyMax:
		score += dlcManyAdj
	default:
		score += dlcHeavyAdj
	}

	switch m := in.MetacriticScore; {
	case m >= 90:
		score += metaAcclaimedAdj
	case m >= 80:
		score += metaStrongAdj
	case m >= 70:
		score += metaMixedAdj
	case m >= 50:
		score += metaWeakAdj
	default:
		score += metaPoorAdj
	}

	switch {
	case in.Price == 0 && in.MetacriticScore >= freeMetaCutoff:
		score += freeAcclaimedAdj
	case in.Price == 0:
		score += freeUnprovenAdj
	case in.Price >= premiumPrice:
		score += premiumAdj
	}

	switch {
	case in.ReleaseYear >= recentYear:
		score += recentAdj
	case in.ReleaseYear <= datedYear:
		score += datedAdj
	}

	return score
}

// noise is sin(price·7.1 + dlc·3.3 + metacritic) · 2.
func noise(in types.PredictionInput) float64 {
	x := in.Price*noisePriceCoef + float64(in.DLCCount)*noiseDLCCoef + float64(in.MetacriticScore)
	return math.Sin(x) * noiseAmplitude
}

// Finalize rounds raw to one decimal place (halves round up) and clamps the
// result to [0, 100]. Both live and simulated scores pass through it.
func Finalize(raw float64) float64 {
	rounded := math.Floor(raw*10+0.5) / 10
	return clampScore(rounded)
}

// Simulate returns the finished fallback score for in.
func Simulate(in types.PredictionInput) float64 {
	return Finalize(Estimate(in))
}

// clampScore restricts v to [MinScore, MaxScore]. Negative zero becomes 0.
func clampScore(v float64) float64 {
	if v <= types.MinScore {
		return types.MinScore
	}
	if v > types.MaxScore {
		return types.MaxScore
	}
	return v
}
