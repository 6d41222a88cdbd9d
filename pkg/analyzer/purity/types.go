package purity

// Level is a function's side-effect classification.
type Level string

const (
	// StrictlyPure functions neither mutate nor read anything outside
	// their own frame.
	StrictlyPure Level = "strictly_pure"
	// LocallyPure functions mutate only locals, owned parameters, or
	// captured upvalues.
	LocallyPure Level = "locally_pure"
	// ReadOnly functions read external state but never write it.
	ReadOnly Level = "read_only"
	// Impure functions write external state or perform I/O.
	Impure Level = "impure"
)

// Analysis is the purity result for one function. Confidence always lies in
// [0.5, 1.0].
type Analysis struct {
	Level            Level   `json:"level"`
	Confidence       float64 `json:"confidence"`
	LocalMutations   int     `json:"local_mutations"`
	UpvalueMutations int     `json:"upvalue_mutations"`
}
