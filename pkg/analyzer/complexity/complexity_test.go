package complexity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iepathos/debtmap/pkg/parser"
	"github.com/iepathos/debtmap/pkg/source"
)

func parseSnippet(t *testing.T, path, src string) *parser.ParseResult {
	t.Helper()
	p := parser.New()
	t.Cleanup(p.Close)
	res, err := p.Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	t.Cleanup(res.Close)
	return res
}

func analyzeSingle(t *testing.T, path, src string) FunctionResult {
	t.Helper()
	res := parseSnippet(t, path, src)
	fr := AnalyzeParseResult(res)
	require.Len(t, fr.Functions, 1)
	return fr.Functions[0]
}

func TestCyclomaticCountsBranchesAndOperators(t *testing.T) {
	fn := analyzeSingle(t, "classify.go", `package main

func classify(n int) string {
	if n > 10 && n%2 == 0 {
		return "big even"
	}
	for i := 0; i < n; i++ {
		n--
	}
	return "small"
}
`)

	// 1 base + if + && + for
	assert.Equal(t, uint32(4), fn.Metrics.Cyclomatic)
	assert.Equal(t, uint32(2), fn.Metrics.Cognitive)
	assert.Equal(t, 1, fn.Metrics.MaxNesting)
	assert.Equal(t, 10, fn.Metrics.Lines)
}

func TestCognitiveNestingPenalty(t *testing.T) {
	flat := analyzeSingle(t, "flat.go", `package main

func flat(a, b bool) int {
	if a {
		return 1
	}
	if b {
		return 2
	}
	return 0
}
`)
	nested := analyzeSingle(t, "nested.go", `package main

func nested(a, b bool) int {
	if a {
		if b {
			return 2
		}
	}
	return 0
}
`)

	// Same cyclomatic complexity, but nesting costs extra cognitively.
	assert.Equal(t, flat.Metrics.Cyclomatic, nested.Metrics.Cyclomatic)
	assert.Greater(t, nested.Metrics.Cognitive, flat.Metrics.Cognitive)
	assert.Equal(t, 2, nested.Metrics.MaxNesting)
}

func TestRustMatchCountsAsDecision(t *testing.T) {
	fn := analyzeSingle(t, "route.rs", `fn route(n: u32) -> &'static str {
    match n {
        1 => "one",
        2 => "two",
        _ => "many",
    }
}
`)

	assert.Equal(t, uint32(2), fn.Metrics.Cyclomatic)
}

func TestPythonElifClauses(t *testing.T) {
	fn := analyzeSingle(t, "grade.py", `def grade(score):
    if score > 90:
        return "a"
    elif score > 80:
        return "b"
    elif score > 70:
        return "c"
    return "f"
`)

	// 1 base + if + 2 elif
	assert.Equal(t, uint32(4), fn.Metrics.Cyclomatic)
}

func TestEmptyBodyHasBaseComplexity(t *testing.T) {
	fn := analyzeSingle(t, "noop.go", `package main

func noop() {}
`)
	assert.Equal(t, uint32(1), fn.Metrics.Cyclomatic)
	assert.Equal(t, uint32(0), fn.Metrics.Cognitive)
	assert.Equal(t, 0, fn.Metrics.MaxNesting)
}

func TestAnalyzeAggregatesAcrossFiles(t *testing.T) {
	src := source.NewMapSource(map[string][]byte{
		"a.go": []byte(`package main

func one() int { return 1 }
`),
		"b.go": []byte(`package main

func pick(n int) int {
	if n > 0 {
		return n
	}
	return -n
}
`),
	})

	a := New()
	defer a.Close()

	files, err := src.Files()
	require.NoError(t, err)

	analysis, err := a.Analyze(context.Background(), files, src)
	require.NoError(t, err)

	assert.Equal(t, 2, analysis.Summary.TotalFiles)
	assert.Equal(t, 2, analysis.Summary.TotalFunctions)
	assert.Equal(t, uint32(2), analysis.Summary.MaxCyclomatic)
	assert.InDelta(t, 1.5, analysis.Summary.AvgCyclomatic, 0.001)
}
