package complexity

// Metrics represents complexity measurements for a single function.
type Metrics struct {
	Cyclomatic uint32 `json:"cyclomatic"`
	Cognitive  uint32 `json:"cognitive"`
	MaxNesting int    `json:"max_nesting"`
	Lines      int    `json:"lines"`
}

// EntropySignals measures how structurally repetitive a function body is.
// Repetitive code (dispatch tables, case ladders, config builders) inflates
// cyclomatic complexity without being genuinely hard to read, so these
// signals feed the dampening factor applied before scoring.
type EntropySignals struct {
	// TokenEntropy is the normalized Shannon entropy of the token stream,
	// in [0, 1]. Low values mean few distinct tokens repeated often.
	TokenEntropy float64 `json:"token_entropy"`

	// PatternRepetition is the fraction of statement-level subtrees that
	// share a structural shape with another statement, in [0, 1].
	PatternRepetition float64 `json:"pattern_repetition"`

	// BranchSimilarity is the fraction of branch bodies that are
	// structurally identical to another branch, in [0, 1].
	BranchSimilarity float64 `json:"branch_similarity"`
}

// FunctionResult represents complexity metrics for a single function.
type FunctionResult struct {
	Name      string         `json:"name"`
	File      string         `json:"file"`
	StartLine int            `json:"start_line"`
	EndLine   int            `json:"end_line"`
	Metrics   Metrics        `json:"metrics"`
	Entropy   EntropySignals `json:"entropy"`
}

// FileResult represents aggregated complexity for a file.
type FileResult struct {
	Path            string           `json:"path"`
	Language        string           `json:"language"`
	Functions       []FunctionResult `json:"functions"`
	TotalCyclomatic uint32           `json:"total_cyclomatic"`
	TotalCognitive  uint32           `json:"total_cognitive"`
	AvgCyclomatic   float64          `json:"avg_cyclomatic"`
	AvgCognitive    float64          `json:"avg_cognitive"`
}

// Analysis represents the full analysis result.
type Analysis struct {
	Files   []FileResult `json:"files"`
	Summary Summary      `json:"summary"`
}

// Summary provides aggregate statistics.
type Summary struct {
	TotalFiles     int     `json:"total_files"`
	TotalFunctions int     `json:"total_functions"`
	AvgCyclomatic  float64 `json:"avg_cyclomatic"`
	AvgCognitive   float64 `json:"avg_cognitive"`
	MaxCyclomatic  uint32  `json:"max_cyclomatic"`
	MaxCognitive   uint32  `json:"max_cognitive"`
	P50Cyclomatic  uint32  `json:"p50_cyclomatic"`
	P90Cyclomatic  uint32  `json:"p90_cyclomatic"`
	P95Cyclomatic  uint32  `json:"p95_cyclomatic"`
	P50Cognitive   uint32  `json:"p50_cognitive"`
	P90Cognitive   uint32  `json:"p90_cognitive"`
	P95Cognitive   uint32  `json:"p95_cognitive"`
}
