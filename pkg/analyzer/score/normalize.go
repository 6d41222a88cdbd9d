package score

import (
	"math"

	"github.com/iepathos/debtmap/pkg/analyzer/purity"
)

// Each factor is normalized to a 0-10 scale before weighting so that no
// single raw metric can dominate the composite. The curves are gentle at
// the low end and flatten at the high end: past a point, more complexity
// or more callers no longer changes where a function lands in the ranking.

// complexityFactor blends adjusted cyclomatic, cognitive complexity, and
// nesting into a 0-10 factor. Cyclomatic carries the most weight because
// it is the signal the entropy dampening has already cleaned up; cognitive
// complexity and nesting refine the ordering among similar functions.
//
// Calibration points (cyclomatic, cognitive, nesting):
//
//	(1, 0, 0)   -> 1.0   trivial
//	(5, 6, 2)   -> 5.0   worth a look
//	(10, 15, 3) -> ~7.2  needs refactoring
//	(25, 40, 5) -> 10    capped
func complexityFactor(adjustedCyclomatic, cognitive uint32, nesting int) float64 {
	raw := float64(adjustedCyclomatic) + float64(cognitive)*0.5 + float64(nesting)*0.5

	var factor float64
	switch {
	case raw <= 5:
		factor = raw
	case raw <= 15:
		factor = 5 + (raw-5)*0.3
	default:
		factor = 8 + (raw-15)*0.1
	}
	return clampF(factor, 0, 10)
}

// coverageFactor maps a covered fraction to uncovered pressure on a 0-10
// scale. Fully covered code contributes nothing regardless of complexity.
func coverageFactor(percent float64) float64 {
	return clampF((1-percent)*10, 0, 10)
}

// dependencyFactor grows linearly with the production caller count and
// saturates at 20 callers. Beyond that, the blast radius is already "the
// whole codebase" and finer distinctions are noise.
func dependencyFactor(productionCallers int) float64 {
	return clampF(float64(productionCallers)*0.5, 0, 10)
}

// purityAdjustment discounts the final score for functions whose blast
// radius is limited by their side-effect profile. The discount scales
// with classification confidence: a StrictlyPure verdict at full
// confidence earns the largest reduction, a barely-confident one the
// smallest.
func purityAdjustment(level purity.Level, confidence float64) float64 {
	conf := clampF(confidence, 0.5, 1.0)
	switch level {
	case purity.StrictlyPure:
		// 0.80 at confidence 0.5 down to 0.70 at confidence 1.0
		return 0.80 - 0.20*(conf-0.5)
	case purity.LocallyPure:
		// 0.85 down to 0.75
		return 0.85 - 0.20*(conf-0.5)
	case purity.ReadOnly:
		return 0.90
	default:
		return 1.0
	}
}

func clampF(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// floorScaled returns floor(value * factor), never exceeding value.
func floorScaled(value uint32, factor float64) uint32 {
	scaled := uint32(math.Floor(float64(value) * factor))
	if scaled > value {
		return value
	}
	return scaled
}
