// Package score ranks functions by a composite technical-debt priority:
// how complex a function is after entropy dampening, how little of it
// production tests exercise, and how wide its blast radius is, discounted
// by its side-effect purity.
package score

import (
	"github.com/iepathos/debtmap/pkg/analyzer/callgraph"
	"github.com/iepathos/debtmap/pkg/analyzer/complexity"
	"github.com/iepathos/debtmap/pkg/analyzer/purity"
	"github.com/iepathos/debtmap/pkg/config"
)

// Calculator scores individual functions. It is stateless and safe for
// concurrent use.
type Calculator struct {
	cfg *config.Config
}

// NewCalculator creates a calculator using the given configuration.
func NewCalculator(cfg *config.Config) *Calculator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Calculator{cfg: cfg}
}

// Calculate scores one function. The second return value is false when the
// function falls below both minimum-complexity floors and is filtered from
// the report; that filter is unconditional with respect to coverage, so a
// trivial uncovered getter never outranks genuinely complex code. Test
// functions bypass the filter as test debt.
func (c *Calculator) Calculate(
	fn callgraph.FunctionID,
	metrics complexity.FunctionResult,
	cov *CoverageStat,
	stats GraphStats,
	pur purity.Analysis,
	role callgraph.FunctionRole,
) (UnifiedDebtItem, bool) {
	damp := complexity.Dampening(metrics.Entropy, c.cfg.Thresholds)
	adjusted := floorScaled(metrics.Metrics.Cyclomatic, damp)

	category := CategoryProduction
	if stats.IsTest {
		category = CategoryTestDebt
	}

	if category != CategoryTestDebt &&
		int(adjusted) < c.cfg.Thresholds.MinCyclomatic &&
		int(metrics.Metrics.Cognitive) < c.cfg.Thresholds.MinCognitive {
		return UnifiedDebtItem{}, false
	}

	item := UnifiedDebtItem{
		Function:                fn,
		Category:                category,
		Purity:                  pur,
		Role:                    role,
		ProductionCallers:       stats.ProductionCallers,
		DirectProductionCallers: stats.DirectProductionCallers,
		TestCallers:             stats.TestCallers,
		Metrics:                 metrics.Metrics,
		Entropy:                 metrics.Entropy,
		Dampening:               damp,
		AdjustedCyclomatic:      adjusted,
	}

	item.Factors.Complexity = complexityFactor(adjusted, metrics.Metrics.Cognitive, metrics.Metrics.MaxNesting)
	item.Factors.Coverage = c.coverage(cov, role, stats, &item)
	item.Factors.Dependency = dependencyFactor(stats.ProductionCallers)

	wCov, wCx, wDep := c.cfg.Scoring.NormalizedWeights()
	weighted := item.Factors.Coverage*wCov +
		item.Factors.Complexity*wCx +
		item.Factors.Dependency*wDep

	item.FinalScore = weighted * purityAdjustment(pur.Level, pur.Confidence)

	return item, true
}

// coverage computes the coverage factor including the missing-data policy
// and role multipliers. Entry points and orchestrators are usually
// exercised by integration tests that line coverage does not attribute to
// them, so their uncovered pressure is reduced rather than taken at face
// value.
func (c *Calculator) coverage(cov *CoverageStat, role callgraph.FunctionRole, stats GraphStats, item *UnifiedDebtItem) float64 {
	var factor float64
	switch {
	case cov != nil:
		item.CoveragePercent = cov.Percent
		item.CoverageKnown = true
		factor = coverageFactor(cov.Percent)
	case c.cfg.Scoring.LenientMissingCoverage:
		factor = 0
	default:
		factor = coverageFactor(0)
	}

	switch {
	case role.Kind == callgraph.RoleEntryPoint || role.Kind == callgraph.RoleTraitEntryPoint:
		factor *= c.cfg.Scoring.EntryPointMultiplier
	case stats.Orchestrator:
		factor *= c.cfg.Scoring.OrchestratorMultiplier
	}

	return factor
}
