package output

import (
	"fmt"

	"github.com/iepathos/debtmap/pkg/analyzer/pipeline"
	"github.com/iepathos/debtmap/pkg/analyzer/score"
)

// DebtReport builds a Renderable report from an analysis run. top limits
// the number of ranked items shown (0 shows all); verbose appends the
// diagnostics list.
func DebtReport(ua *pipeline.UnifiedAnalysis, top int, verbose bool) *Report {
	items := ua.Items
	if top > 0 && len(items) > top {
		items = items[:top]
	}

	report := &Report{
		Title: "Technical Debt Report",
		Data:  ua,
	}

	report.Sections = append(report.Sections, itemTable(items, len(ua.Items)))
	report.Sections = append(report.Sections, summarySection(ua))

	if verbose && len(ua.Diagnostics) > 0 {
		report.Sections = append(report.Sections, diagnosticsSection(ua))
	}

	return report
}

func itemTable(items []score.UnifiedDebtItem, totalItems int) *Table {
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.1f", item.FinalScore),
			fmt.Sprintf("%s:%d", item.Function.File, item.Function.Line),
			item.Function.Name,
			fmt.Sprintf("%d", item.AdjustedCyclomatic),
			coverageCell(item),
			fmt.Sprintf("%d (%d)", item.ProductionCallers, item.DirectProductionCallers),
			string(item.Purity.Level),
			string(item.Role.Kind),
		})
	}

	title := fmt.Sprintf("Ranked Items (%d of %d)", len(items), totalItems)
	headers := []string{"#", "Score", "Location", "Function", "Cyclomatic", "Coverage", "Callers (direct)", "Purity", "Role"}
	return NewTable(title, headers, rows, nil, nil)
}

func coverageCell(item score.UnifiedDebtItem) string {
	if !item.CoverageKnown {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", item.CoveragePercent*100)
}

func summarySection(ua *pipeline.UnifiedAnalysis) *Section {
	return &Section{
		Title: "Summary",
		Content: fmt.Sprintf(
			"Files analyzed: %d\nFunctions: %d\nCall edges: %d\nDebt items: %d\nDiagnostics: %d",
			ua.Summary.FilesAnalyzed,
			ua.Summary.TotalFunctions,
			ua.Summary.EdgeCount,
			ua.Summary.ItemCount,
			len(ua.Diagnostics),
		),
	}
}

func diagnosticsSection(ua *pipeline.UnifiedAnalysis) *Section {
	s := &Section{Title: "Diagnostics"}
	for _, d := range ua.Diagnostics {
		if s.Content != "" {
			s.Content += "\n"
		}
		s.Content += d.String()
	}
	return s
}
