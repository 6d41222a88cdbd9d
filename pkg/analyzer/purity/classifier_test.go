package purity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iepathos/debtmap/pkg/parser"
)

func classify(t *testing.T, path, src, fnName string) Analysis {
	t.Helper()
	p := parser.New()
	res, err := p.Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	defer res.Close()

	for _, fn := range parser.ExtractFunctions(res) {
		if fn.Name == fnName || fn.QualifiedName == fnName {
			return NewClassifier().Classify(fn, res)
		}
	}
	t.Fatalf("function %s not found in %s", fnName, path)
	return Analysis{}
}

func TestStrictlyPure(t *testing.T) {
	a := classify(t, "pure.go", `package p

func add(a, b int) int {
	return a + b
}
`, "add")

	assert.Equal(t, StrictlyPure, a.Level)
	assert.Equal(t, 1.0, a.Confidence)
	assert.Zero(t, a.LocalMutations)
}

func TestLocalAccumulator(t *testing.T) {
	a := classify(t, "total.rs", `fn total(items: &Vec<i32>) -> i32 {
    let mut sum = 0;
    for i in items {
        sum += i;
    }
    sum
}
`, "total")

	assert.Equal(t, LocallyPure, a.Level)
	assert.InDelta(t, 0.95, a.Confidence, 1e-9)
	assert.Equal(t, 1, a.LocalMutations)
	assert.Zero(t, a.UpvalueMutations)
}

func TestPointerReceiverFieldWriteIsNeverLocal(t *testing.T) {
	a := classify(t, "counter.go", `package p

type Counter struct{ n int }

func (c *Counter) Incr(by int) {
	c.n += by
}
`, "Counter.Incr")

	assert.Equal(t, Impure, a.Level)
	assert.Zero(t, a.LocalMutations, "mutable-receiver field write must not count as local")
}

func TestMutRefSelfFieldWriteIsExternal(t *testing.T) {
	a := classify(t, "buf.rs", `struct Buf { parts: Vec<String> }

impl Buf {
    fn push(&mut self, part: String) {
        self.parts.push(part);
    }
}
`, "Buf::push")

	assert.Equal(t, Impure, a.Level)
	assert.Zero(t, a.LocalMutations)
}

func TestConsumingBuilderIsLocal(t *testing.T) {
	a := classify(t, "builder.rs", `struct Builder { parts: Vec<String> }

impl Builder {
    fn with_part(mut self, part: String) -> Builder {
        self.parts.push(part);
        self
    }
}
`, "Builder::with_part")

	assert.Equal(t, LocallyPure, a.Level)
	assert.Equal(t, 1, a.LocalMutations)
}

func TestSliceParamElementWriteIsExternal(t *testing.T) {
	a := classify(t, "fill.go", `package p

func fill(s []int) {
	s[0] = 1
}
`, "fill")

	assert.Equal(t, Impure, a.Level)
	assert.Zero(t, a.LocalMutations, "slice elements live in the caller's backing array")
}

func TestMapParamWriteIsExternal(t *testing.T) {
	a := classify(t, "put.go", `package p

func put(m map[string]int, k string) {
	m[k] = 1
}
`, "put")

	assert.Equal(t, Impure, a.Level)
	assert.Zero(t, a.LocalMutations)
}

func TestArrayParamElementWriteStaysLocal(t *testing.T) {
	a := classify(t, "arr.go", `package p

func zero(a [4]int) int {
	a[0] = 1
	return a[0]
}
`, "zero")

	assert.Equal(t, LocallyPure, a.Level)
	assert.Equal(t, 1, a.LocalMutations)
}

func TestValueParamRebindIsLocal(t *testing.T) {
	a := classify(t, "clampv.go", `package p

func clamp(n int) int {
	if n > 10 {
		n = 10
	}
	return n
}
`, "clamp")

	assert.Equal(t, LocallyPure, a.Level)
	assert.Equal(t, 1, a.LocalMutations)
}

func TestValueReceiverFieldWriteIsExternal(t *testing.T) {
	a := classify(t, "opts.go", `package p

type Opts struct{ tags []string }

func (o Opts) Reset() {
	o.tags[0] = ""
}
`, "Opts.Reset")

	assert.Equal(t, Impure, a.Level)
	assert.Zero(t, a.LocalMutations)
}

func TestPointerDereferenceIsExternal(t *testing.T) {
	a := classify(t, "deref.go", `package p

func set(p *int) {
	*p = 5
}
`, "set")

	assert.Equal(t, Impure, a.Level)
	assert.InDelta(t, 0.8, a.Confidence, 1e-9)
}

func TestUpvalueMutation(t *testing.T) {
	a := classify(t, "closure.go", `package p

func outer() int {
	total := 0
	inc := func() {
		total++
	}
	inc()
	return total
}
`, "outer")

	assert.Equal(t, LocallyPure, a.Level)
	assert.Equal(t, 1, a.UpvalueMutations)
	assert.InDelta(t, 0.85, a.Confidence, 1e-9)
}

func TestExternalReadOnly(t *testing.T) {
	a := classify(t, "read.go", `package p

func limit() int {
	return maxSize * 2
}
`, "limit")

	assert.Equal(t, ReadOnly, a.Level)
	assert.InDelta(t, 0.8, a.Confidence, 1e-9)
}

func TestIOIsImpure(t *testing.T) {
	a := classify(t, "log.go", `package p

import "fmt"

func report(msg string) {
	fmt.Println(msg)
}
`, "report")

	assert.Equal(t, Impure, a.Level)
}

func TestPythonGlobalWrite(t *testing.T) {
	a := classify(t, "state.py", `count = 0

def bump():
    global count
    count = count + 1
`, "bump")

	assert.Equal(t, Impure, a.Level)
}

func TestPythonLocalAccumulator(t *testing.T) {
	a := classify(t, "calc.py", `def total(items):
    t = 0
    for x in items:
        t += x
    return t
`, "total")

	assert.Equal(t, LocallyPure, a.Level)
	assert.Equal(t, 1, a.LocalMutations)
}

func TestConfidenceBounds(t *testing.T) {
	// Branchy code with dereferences and upvalue mutations stacks
	// penalties; the result must still respect the floor.
	a := classify(t, "messy.go", `package p

func messy(p *int, xs []int) int {
	total := 0
	add := func() {
		total++
	}
	for _, x := range xs {
		if x > 0 {
			add()
		} else if x < -10 {
			*p = x
		}
		switch x {
		case 1:
			total += 2
		}
	}
	return total
}
`, "messy")

	assert.GreaterOrEqual(t, a.Confidence, 0.5)
	assert.LessOrEqual(t, a.Confidence, 1.0)
	assert.Equal(t, Impure, a.Level, "pointer dereference write is external")
}
