package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iepathos/debtmap/pkg/analyzer/callgraph"
	"github.com/iepathos/debtmap/pkg/analyzer/complexity"
	"github.com/iepathos/debtmap/pkg/analyzer/purity"
	"github.com/iepathos/debtmap/pkg/config"
)

var testFn = callgraph.FunctionID{File: "svc/handler.go", Name: "process", Line: 42}

func metricsOf(cyclomatic, cognitive uint32, nesting int) complexity.FunctionResult {
	return complexity.FunctionResult{
		Name:    "process",
		Metrics: complexity.Metrics{Cyclomatic: cyclomatic, Cognitive: cognitive, MaxNesting: nesting, Lines: 40},
		Entropy: complexity.EntropySignals{TokenEntropy: 0.9},
	}
}

func impure() purity.Analysis {
	return purity.Analysis{Level: purity.Impure, Confidence: 1.0}
}

func regular() callgraph.FunctionRole {
	return callgraph.FunctionRole{Kind: callgraph.RoleRegular}
}

func TestCalculateWeightedScore(t *testing.T) {
	calc := NewCalculator(config.DefaultConfig())

	item, ok := calc.Calculate(testFn, metricsOf(10, 12, 3),
		&CoverageStat{Percent: 0.5},
		GraphStats{ProductionCallers: 4},
		impure(), regular())
	require.True(t, ok)

	assert.Equal(t, uint32(10), item.AdjustedCyclomatic)
	assert.InDelta(t, 1.0, item.Dampening, 0.0001)
	assert.InDelta(t, 5.0, item.Factors.Coverage, 0.0001)
	assert.InDelta(t, 8.25, item.Factors.Complexity, 0.0001)
	assert.InDelta(t, 2.0, item.Factors.Dependency, 0.0001)
	// 5.0*0.4 + 8.25*0.4 + 2.0*0.2
	assert.InDelta(t, 5.7, item.FinalScore, 0.0001)
	assert.Equal(t, CategoryProduction, item.Category)
	assert.True(t, item.CoverageKnown)
}

func TestAdjustedCyclomaticNeverExceedsRaw(t *testing.T) {
	calc := NewCalculator(config.DefaultConfig())

	m := metricsOf(7, 9, 1)
	m.Entropy = complexity.EntropySignals{TokenEntropy: 0.9, PatternRepetition: 0.9}

	item, ok := calc.Calculate(testFn, m, nil, GraphStats{}, impure(), regular())
	require.True(t, ok)

	assert.LessOrEqual(t, item.AdjustedCyclomatic, m.Metrics.Cyclomatic)
	assert.GreaterOrEqual(t, item.Dampening, 0.5)
	assert.LessOrEqual(t, item.Dampening, 1.0)
	assert.Equal(t, uint32(3), item.AdjustedCyclomatic)
}

func TestMinComplexityFilterIgnoresCoverage(t *testing.T) {
	calc := NewCalculator(config.DefaultConfig())

	// Completely uncovered but trivial: filtered regardless.
	_, ok := calc.Calculate(testFn, metricsOf(2, 3, 0),
		&CoverageStat{Percent: 0},
		GraphStats{ProductionCallers: 9},
		impure(), regular())
	assert.False(t, ok)
}

func TestDampeningCanPushFunctionUnderFilter(t *testing.T) {
	calc := NewCalculator(config.DefaultConfig())

	// Raw cyclomatic 5 clears the floor, but the body is a repetitive
	// dispatch table; dampening halves it below MinCyclomatic.
	m := metricsOf(5, 2, 0)
	m.Entropy = complexity.EntropySignals{TokenEntropy: 0.9, PatternRepetition: 0.9}

	_, ok := calc.Calculate(testFn, m, nil, GraphStats{}, impure(), regular())
	assert.False(t, ok)
}

func TestTestDebtBypassesFilter(t *testing.T) {
	calc := NewCalculator(config.DefaultConfig())

	item, ok := calc.Calculate(testFn, metricsOf(2, 3, 0), nil,
		GraphStats{IsTest: true}, impure(), regular())
	require.True(t, ok)
	assert.Equal(t, CategoryTestDebt, item.Category)
}

func TestTestCallersDoNotAffectScore(t *testing.T) {
	calc := NewCalculator(config.DefaultConfig())

	base, ok := calc.Calculate(testFn, metricsOf(8, 10, 2), nil,
		GraphStats{ProductionCallers: 2}, impure(), regular())
	require.True(t, ok)

	heavilyTested, ok := calc.Calculate(testFn, metricsOf(8, 10, 2), nil,
		GraphStats{ProductionCallers: 2, TestCallers: 50}, impure(), regular())
	require.True(t, ok)

	assert.Equal(t, base.Factors.Dependency, heavilyTested.Factors.Dependency)
	assert.Equal(t, base.FinalScore, heavilyTested.FinalScore)
	assert.Equal(t, 50, heavilyTested.TestCallers)
}

func TestDirectCallersReportedNotScored(t *testing.T) {
	calc := NewCalculator(config.DefaultConfig())

	// Dependency pressure follows the transitive count; the direct count
	// rides along for reporting only.
	base, ok := calc.Calculate(testFn, metricsOf(8, 10, 2), nil,
		GraphStats{ProductionCallers: 6}, impure(), regular())
	require.True(t, ok)

	withDirect, ok := calc.Calculate(testFn, metricsOf(8, 10, 2), nil,
		GraphStats{ProductionCallers: 6, DirectProductionCallers: 2}, impure(), regular())
	require.True(t, ok)

	assert.Equal(t, base.Factors.Dependency, withDirect.Factors.Dependency)
	assert.Equal(t, base.FinalScore, withDirect.FinalScore)
	assert.Equal(t, 2, withDirect.DirectProductionCallers)
	assert.Equal(t, 6, withDirect.ProductionCallers)
}

func TestEntryPointCoverageMultiplier(t *testing.T) {
	calc := NewCalculator(config.DefaultConfig())
	m := metricsOf(8, 10, 2)

	plain, ok := calc.Calculate(testFn, m, nil, GraphStats{}, impure(), regular())
	require.True(t, ok)

	entry, ok := calc.Calculate(testFn, m, nil, GraphStats{}, impure(),
		callgraph.FunctionRole{Kind: callgraph.RoleEntryPoint, Reason: "main"})
	require.True(t, ok)

	orchestrator, ok := calc.Calculate(testFn, m, nil, GraphStats{Orchestrator: true}, impure(), regular())
	require.True(t, ok)

	// Missing coverage reads as fully uncovered (10) before multipliers.
	assert.InDelta(t, 10.0, plain.Factors.Coverage, 0.0001)
	assert.InDelta(t, 6.0, entry.Factors.Coverage, 0.0001)
	assert.InDelta(t, 8.0, orchestrator.Factors.Coverage, 0.0001)
	assert.Less(t, entry.FinalScore, plain.FinalScore)
}

func TestLenientMissingCoverage(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scoring.LenientMissingCoverage = true
	calc := NewCalculator(cfg)

	item, ok := calc.Calculate(testFn, metricsOf(8, 10, 2), nil, GraphStats{}, impure(), regular())
	require.True(t, ok)

	assert.Zero(t, item.Factors.Coverage)
	assert.False(t, item.CoverageKnown)
}

func TestPurityAdjustmentDiscountsScore(t *testing.T) {
	calc := NewCalculator(config.DefaultConfig())
	m := metricsOf(8, 10, 2)

	impureItem, ok := calc.Calculate(testFn, m, nil, GraphStats{}, impure(), regular())
	require.True(t, ok)

	pureItem, ok := calc.Calculate(testFn, m, nil, GraphStats{},
		purity.Analysis{Level: purity.StrictlyPure, Confidence: 1.0}, regular())
	require.True(t, ok)

	lowConfPure, ok := calc.Calculate(testFn, m, nil, GraphStats{},
		purity.Analysis{Level: purity.StrictlyPure, Confidence: 0.5}, regular())
	require.True(t, ok)

	readOnly, ok := calc.Calculate(testFn, m, nil, GraphStats{},
		purity.Analysis{Level: purity.ReadOnly, Confidence: 0.8}, regular())
	require.True(t, ok)

	assert.InDelta(t, impureItem.FinalScore*0.70, pureItem.FinalScore, 0.0001)
	assert.InDelta(t, impureItem.FinalScore*0.80, lowConfPure.FinalScore, 0.0001)
	assert.InDelta(t, impureItem.FinalScore*0.90, readOnly.FinalScore, 0.0001)
}

func TestSortItemsDeterministicOrder(t *testing.T) {
	items := []UnifiedDebtItem{
		{Function: callgraph.FunctionID{File: "b.go", Name: "x", Line: 3}, FinalScore: 4.0},
		{Function: callgraph.FunctionID{File: "a.go", Name: "y", Line: 9}, FinalScore: 4.0},
		{Function: callgraph.FunctionID{File: "a.go", Name: "z", Line: 2}, FinalScore: 4.0},
		{Function: callgraph.FunctionID{File: "c.go", Name: "w", Line: 1}, FinalScore: 9.0},
	}

	SortItems(items)

	assert.Equal(t, "w", items[0].Function.Name)
	assert.Equal(t, "z", items[1].Function.Name)
	assert.Equal(t, "y", items[2].Function.Name)
	assert.Equal(t, "x", items[3].Function.Name)
}
