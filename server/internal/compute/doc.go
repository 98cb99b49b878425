// Package compute holds the pure scoring functions of the prediction service.
//
// heuristic.go provides the fallback engine: Estimate(input) applies a fixed
// rule table to a base of 50 and adds a deterministic trigonometric noise
// term; Finalize rounds to one decimal and clamps to 0–100. Simulate is the
// composition of the two. Nothing here reads the clock or a random source,
// so identical inputs always give bit-identical scores.
//
// label.go maps a finished score to its qualitative band and builds the
// display form of a result.
//
// Bands: Blockbuster >75, Stable >55, Niche / Borderline >35, else High Risk.
package compute
