// Package coverage loads externally produced line coverage and answers
// per-function coverage queries. Coverage is optional everywhere: a missing
// report, file, or function is a valid state, never an error.
package coverage

import "strings"

// FunctionInfo records an instrumented function from an LCOV FN/FNDA pair.
type FunctionInfo struct {
	Line int    `json:"line"`
	Hits uint64 `json:"hits"`
}

// FileCoverage holds per-line execution counts for one source file.
type FileCoverage struct {
	Path      string                  `json:"path"`
	Lines     map[int]uint64          `json:"lines"`
	Functions map[string]FunctionInfo `json:"functions"`
}

// Data is a loaded coverage report indexed by file path.
type Data struct {
	files map[string]*FileCoverage
}

// NewData creates an empty coverage report.
func NewData() *Data {
	return &Data{files: make(map[string]*FileCoverage)}
}

// Empty reports whether the report contains no files.
func (d *Data) Empty() bool {
	return d == nil || len(d.files) == 0
}

// File returns coverage for a path. Report paths are often absolute while
// analysis paths are repo-relative, so an exact match is tried first and
// then a suffix match.
func (d *Data) File(path string) (*FileCoverage, bool) {
	if d == nil {
		return nil, false
	}
	path = strings.ReplaceAll(path, "\\", "/")
	if fc, ok := d.files[path]; ok {
		return fc, true
	}
	for p, fc := range d.files {
		if strings.HasSuffix(p, "/"+path) || strings.HasSuffix(path, "/"+p) {
			return fc, true
		}
	}
	return nil, false
}

// FunctionSpan returns covered and instrumented line counts for the lines
// of path between start and end inclusive. ok is false when the file is
// absent from the report or no line in the span was instrumented.
func (d *Data) FunctionSpan(path string, start, end int) (covered, total int, ok bool) {
	fc, found := d.File(path)
	if !found {
		return 0, 0, false
	}
	for line, hits := range fc.Lines {
		if line < start || line > end {
			continue
		}
		total++
		if hits > 0 {
			covered++
		}
	}
	return covered, total, total > 0
}

// Percent returns the covered fraction in [0, 1] for a function span.
func (d *Data) Percent(path string, start, end int) (float64, bool) {
	covered, total, ok := d.FunctionSpan(path, start, end)
	if !ok {
		return 0, false
	}
	return float64(covered) / float64(total), true
}

func (d *Data) file(path string) *FileCoverage {
	fc, ok := d.files[path]
	if !ok {
		fc = &FileCoverage{
			Path:      path,
			Lines:     make(map[int]uint64),
			Functions: make(map[string]FunctionInfo),
		}
		d.files[path] = fc
	}
	return fc
}
