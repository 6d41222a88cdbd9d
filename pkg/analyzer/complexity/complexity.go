package complexity

import (
	"context"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/iepathos/debtmap/internal/fileproc"
	"github.com/iepathos/debtmap/pkg/analyzer"
	"github.com/iepathos/debtmap/pkg/parser"
	"github.com/iepathos/debtmap/pkg/source"
)

// Ensure Analyzer implements analyzer.FileAnalyzer.
var _ analyzer.FileAnalyzer[*Analysis] = (*Analyzer)(nil)

// Analyzer computes cyclomatic and cognitive complexity plus entropy
// signals for every function in a set of files.
type Analyzer struct{}

// New creates a complexity analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze processes all files in parallel. Parse failures are skipped;
// callers that need them reported should use the aggregation pipeline,
// which collects them as diagnostics during call graph construction.
func (a *Analyzer) Analyze(ctx context.Context, files []string, src source.ContentSource) (*Analysis, error) {
	results, _ := fileproc.MapFilesWithContext(ctx, files, func(p *parser.Parser, path string) (FileResult, error) {
		data, err := src.ReadFile(path)
		if err != nil {
			return FileResult{}, err
		}
		res, err := p.Parse(ctx, path, data)
		if err != nil {
			return FileResult{}, err
		}
		defer res.Close()
		return AnalyzeParseResult(res), nil
	})

	return buildAnalysis(results), nil
}

// Close releases analyzer resources.
func (a *Analyzer) Close() {}

// AnalyzeParseResult computes per-function complexity for an already
// parsed file.
func AnalyzeParseResult(res *parser.ParseResult) FileResult {
	fr := FileResult{
		Path:      res.Path,
		Language:  string(res.Language),
		Functions: make([]FunctionResult, 0),
	}

	for _, fn := range parser.ExtractFunctions(res) {
		fc := AnalyzeFunction(fn, res)
		fr.Functions = append(fr.Functions, fc)
		fr.TotalCyclomatic += fc.Metrics.Cyclomatic
		fr.TotalCognitive += fc.Metrics.Cognitive
	}

	if len(fr.Functions) > 0 {
		fr.AvgCyclomatic = float64(fr.TotalCyclomatic) / float64(len(fr.Functions))
		fr.AvgCognitive = float64(fr.TotalCognitive) / float64(len(fr.Functions))
	}

	return fr
}

// AnalyzeFunction computes complexity metrics and entropy signals for a
// single function.
func AnalyzeFunction(fn parser.FunctionNode, res *parser.ParseResult) FunctionResult {
	fc := FunctionResult{
		Name:      fn.QualifiedName,
		File:      res.Path,
		StartLine: fn.StartLine,
		EndLine:   fn.EndLine,
	}
	if fc.Name == "" {
		fc.Name = fn.Name
	}

	if fn.Body == nil {
		fc.Metrics.Cyclomatic = 1
		fc.Metrics.Lines = fn.EndLine - fn.StartLine + 1
		return fc
	}

	fc.Metrics.Cyclomatic = 1 + CountDecisionPoints(fn.Body, res.Source, res.Language)
	fc.Metrics.Cognitive = CalculateCognitiveComplexity(fn.Body, res.Language, 0)
	fc.Metrics.Lines = fn.EndLine - fn.StartLine + 1
	fc.Metrics.MaxNesting = calculateMaxNesting(fn.Body, res.Language, 0)
	fc.Entropy = AnalyzeEntropy(fn.Body, res.Source, res.Language)

	return fc
}

// buildAnalysis constructs an Analysis from file results.
func buildAnalysis(results []FileResult) *Analysis {
	analysis := &Analysis{Files: results}

	var totalCyc, totalCog uint32
	var totalFuncs int
	for _, fr := range results {
		totalCyc += fr.TotalCyclomatic
		totalCog += fr.TotalCognitive
		totalFuncs += len(fr.Functions)
	}

	analysis.Summary.TotalFiles = len(results)
	analysis.Summary.TotalFunctions = totalFuncs
	if totalFuncs > 0 {
		analysis.Summary.AvgCyclomatic = float64(totalCyc) / float64(totalFuncs)
		analysis.Summary.AvgCognitive = float64(totalCog) / float64(totalFuncs)
	}

	allCyclomatic := make([]uint32, 0, totalFuncs)
	allCognitive := make([]uint32, 0, totalFuncs)
	for _, fr := range results {
		for _, fn := range fr.Functions {
			allCyclomatic = append(allCyclomatic, fn.Metrics.Cyclomatic)
			allCognitive = append(allCognitive, fn.Metrics.Cognitive)

			if fn.Metrics.Cyclomatic > analysis.Summary.MaxCyclomatic {
				analysis.Summary.MaxCyclomatic = fn.Metrics.Cyclomatic
			}
			if fn.Metrics.Cognitive > analysis.Summary.MaxCognitive {
				analysis.Summary.MaxCognitive = fn.Metrics.Cognitive
			}
		}
	}

	if len(allCyclomatic) > 0 {
		sort.Slice(allCyclomatic, func(i, j int) bool { return allCyclomatic[i] < allCyclomatic[j] })
		sort.Slice(allCognitive, func(i, j int) bool { return allCognitive[i] < allCognitive[j] })

		analysis.Summary.P50Cyclomatic = percentile(allCyclomatic, 50)
		analysis.Summary.P90Cyclomatic = percentile(allCyclomatic, 90)
		analysis.Summary.P95Cyclomatic = percentile(allCyclomatic, 95)
		analysis.Summary.P50Cognitive = percentile(allCognitive, 50)
		analysis.Summary.P90Cognitive = percentile(allCognitive, 90)
		analysis.Summary.P95Cognitive = percentile(allCognitive, 95)
	}

	return analysis
}

// percentile calculates the p-th percentile of a sorted slice.
func percentile(sorted []uint32, p int) uint32 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// CountDecisionPoints counts branching statements for cyclomatic complexity.
func CountDecisionPoints(node *sitter.Node, src []byte, lang parser.Language) uint32 {
	var count uint32

	decisionTypes := makeSet(decisionNodeTypes(lang))

	parser.Walk(node, func(n *sitter.Node) bool {
		nodeType := n.Type()
		if decisionTypes[nodeType] {
			count++
		}
		// Short-circuit operators add a path each.
		if nodeType == "binary_expression" || nodeType == "logical_expression" || nodeType == "boolean_operator" {
			switch operatorOf(n, src) {
			case "&&", "||", "and", "or":
				count++
			}
		}
		return true
	})

	return count
}

// CalculateCognitiveComplexity computes cognitive complexity with nesting
// penalties. Each control construct costs 1 plus the current nesting depth;
// constructs that open a new level recurse one deeper.
func CalculateCognitiveComplexity(node *sitter.Node, lang parser.Language, depth int) uint32 {
	info := buildCognitiveTypeInfo(lang)
	return calcCognitiveRecursive(node, info, depth)
}

// makeSet converts a slice to a map for O(1) lookups.
func makeSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// decisionNodeTypes returns AST node types that represent decision points.
func decisionNodeTypes(lang parser.Language) []string {
	common := []string{
		"if_statement",
		"if_expression",
		"while_statement",
		"while_expression",
		"for_statement",
		"for_expression",
		"case_statement",
		"catch_clause",
		"ternary_expression",
		"conditional_expression",
	}

	switch lang {
	case parser.LangGo:
		return append(common, "select_statement", "type_switch_statement", "expression_switch_statement")
	case parser.LangRust:
		return append(common, "match_expression", "loop_expression", "if_let_expression")
	case parser.LangPython:
		return append(common, "elif_clause", "except_clause", "with_statement", "list_comprehension", "dictionary_comprehension")
	case parser.LangTypeScript, parser.LangJavaScript, parser.LangTSX:
		return append(common, "switch_statement", "do_statement")
	case parser.LangJava:
		return append(common, "switch_statement", "switch_expression", "do_statement", "enhanced_for_statement")
	case parser.LangRuby:
		// Ruby grammar uses bare keyword node names.
		return []string{"if", "elsif", "unless", "while", "until", "for", "case", "when", "rescue", "conditional"}
	default:
		return common
	}
}

// operatorOf extracts the operator from a binary expression node.
func operatorOf(node *sitter.Node, src []byte) string {
	if op := node.ChildByFieldName("operator"); op != nil {
		return parser.GetNodeText(op, src)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		switch node.Child(i).Type() {
		case "&&", "||", "and", "or":
			return node.Child(i).Type()
		}
	}
	return ""
}

// cognitiveTypeInfo holds lookup maps for cognitive complexity calculation.
type cognitiveTypeInfo struct {
	nesting map[string]bool
	flat    map[string]bool
}

func buildCognitiveTypeInfo(lang parser.Language) cognitiveTypeInfo {
	info := cognitiveTypeInfo{
		nesting: make(map[string]bool),
		flat:    make(map[string]bool),
	}

	var nesting, flat []string
	switch lang {
	case parser.LangRuby:
		nesting = []string{"if", "unless", "while", "until", "for", "case", "begin"}
		flat = []string{"elsif", "else", "when", "rescue", "break", "next", "redo"}
	default:
		nesting = []string{
			"if_statement", "if_expression",
			"while_statement", "while_expression",
			"for_statement", "for_expression",
			"switch_statement", "match_expression",
			"expression_switch_statement", "type_switch_statement",
			"try_statement",
		}
		flat = []string{
			"else_clause", "elif_clause", "elseif_clause",
			"break_statement", "continue_statement",
			"goto_statement",
		}
	}

	for _, t := range nesting {
		info.nesting[t] = true
	}
	for _, t := range flat {
		info.flat[t] = true
	}
	return info
}

func calcCognitiveRecursive(node *sitter.Node, info cognitiveTypeInfo, depth int) uint32 {
	var complexity uint32

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		childType := child.Type()

		switch {
		case info.nesting[childType]:
			complexity++
			complexity += uint32(depth)
			complexity += calcCognitiveRecursive(child, info, depth+1)
		case info.flat[childType]:
			complexity++
			complexity += uint32(depth)
			complexity += calcCognitiveRecursive(child, info, depth)
		default:
			complexity += calcCognitiveRecursive(child, info, depth)
		}
	}

	return complexity
}

var nestingTypesSet = makeSet([]string{
	"if_statement", "if_expression", "if", "unless",
	"while_statement", "while_expression", "while", "until",
	"for_statement", "for_expression", "for",
	"switch_statement", "match_expression", "case",
	"expression_switch_statement", "type_switch_statement",
	"try_statement", "begin",
	"func_literal", "lambda", "arrow_function", "closure_expression",
})

// calculateMaxNesting finds the maximum nesting depth within a body.
func calculateMaxNesting(node *sitter.Node, lang parser.Language, currentDepth int) int {
	maxDepth := currentDepth

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)

		next := currentDepth
		if nestingTypesSet[child.Type()] {
			next++
		}
		if childMax := calculateMaxNesting(child, lang, next); childMax > maxDepth {
			maxDepth = childMax
		}
	}

	return maxDepth
}
