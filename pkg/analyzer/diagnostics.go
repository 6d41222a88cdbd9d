package analyzer

import "fmt"

// DiagnosticKind categorizes recoverable analysis problems.
type DiagnosticKind string

const (
	// DiagParseFailure records a file that could not be parsed and was
	// skipped.
	DiagParseFailure DiagnosticKind = "parse_failure"
	// DiagUnresolvedDispatch records a dynamic call site that matched no
	// known interface.
	DiagUnresolvedDispatch DiagnosticKind = "unresolved_dispatch"
	// DiagCacheCorruption records a cache entry that could not be decoded
	// and forced recomputation.
	DiagCacheCorruption DiagnosticKind = "cache_corruption"
	// DiagMissingCoverage records that no coverage data was available for a
	// function. Informational, not an error.
	DiagMissingCoverage DiagnosticKind = "missing_coverage"
	// DiagOrphanFunction records a function with no callers and no callees.
	DiagOrphanFunction DiagnosticKind = "orphan_function"
	// DiagCallCycle records a strongly connected cycle in the call graph,
	// reported once per cycle.
	DiagCallCycle DiagnosticKind = "call_cycle"
	// DiagUnreachableFunction records a production function that no entry
	// point can reach through call edges.
	DiagUnreachableFunction DiagnosticKind = "unreachable_function"
)

// Diagnostic is a recoverable problem encountered during analysis. Runs
// complete with a best-effort result plus the list of diagnostics; only
// invalid configuration aborts a run.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind"`
	Path   string         `json:"path,omitempty"`
	Detail string         `json:"detail,omitempty"`
	Line   int            `json:"line,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Detail)
	}
	if d.Line > 0 {
		return fmt.Sprintf("%s: %s:%d: %s", d.Kind, d.Path, d.Line, d.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Path, d.Detail)
}
