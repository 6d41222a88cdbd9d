package score

import (
	"sort"

	"github.com/iepathos/debtmap/pkg/analyzer/callgraph"
	"github.com/iepathos/debtmap/pkg/analyzer/complexity"
	"github.com/iepathos/debtmap/pkg/analyzer/purity"
)

// DebtCategory classifies what kind of debt an item represents. Test debt
// is ranked but exempt from the minimum-complexity filter, since sprawling
// test helpers are worth surfacing even when structurally simple.
type DebtCategory string

const (
	CategoryProduction DebtCategory = "production"
	CategoryTestDebt   DebtCategory = "test_debt"
)

// GraphStats carries the call-graph context the scorer needs for one
// function.
type GraphStats struct {
	// ProductionCallers counts distinct non-test functions that can reach
	// this one through any chain of call edges. Transitive, because a bug
	// here propagates to everything upstream.
	ProductionCallers int
	// DirectProductionCallers counts only the immediate non-test callers;
	// tracked for reporting but never scored.
	DirectProductionCallers int
	// TestCallers counts distinct immediate test callers; tracked for
	// reporting but never scored.
	TestCallers int
	// Orchestrator marks functions that mostly delegate to other
	// functions in the analyzed tree.
	Orchestrator bool
	// IsTest marks the function itself as test code.
	IsTest bool
}

// CoverageStat is the coverage attributable to production callers of a
// function. A nil *CoverageStat means no coverage data was available.
type CoverageStat struct {
	Percent float64
}

// FactorBreakdown exposes the individual factors behind a final score,
// each on a 0-10 scale.
type FactorBreakdown struct {
	Coverage   float64 `json:"coverage_factor"`
	Complexity float64 `json:"complexity_factor"`
	Dependency float64 `json:"dependency_factor"`
}

// UnifiedDebtItem is one scored function in the final ranked report.
type UnifiedDebtItem struct {
	Function callgraph.FunctionID `json:"function"`

	FinalScore float64         `json:"final_score"`
	Factors    FactorBreakdown `json:"factors"`
	Category   DebtCategory    `json:"category"`

	Purity purity.Analysis        `json:"purity"`
	Role   callgraph.FunctionRole `json:"role"`

	// ProductionCallers is transitive; DirectProductionCallers and
	// TestCallers count immediate callers only.
	ProductionCallers       int `json:"production_callers"`
	DirectProductionCallers int `json:"direct_production_callers"`
	TestCallers             int `json:"test_callers"`

	Metrics            complexity.Metrics        `json:"metrics"`
	Entropy            complexity.EntropySignals `json:"entropy"`
	Dampening          float64                   `json:"dampening"`
	AdjustedCyclomatic uint32                    `json:"adjusted_cyclomatic"`

	CoveragePercent float64 `json:"coverage_percent"`
	CoverageKnown   bool    `json:"coverage_known"`
}

// SortItems orders items by final score descending, tie-broken by file
// path then declaration line ascending so identical inputs always render
// identically.
func SortItems(items []UnifiedDebtItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].FinalScore != items[j].FinalScore {
			return items[i].FinalScore > items[j].FinalScore
		}
		if items[i].Function.File != items[j].Function.File {
			return items[i].Function.File < items[j].Function.File
		}
		return items[i].Function.Line < items[j].Function.Line
	})
}
