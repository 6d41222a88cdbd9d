package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want Language
	}{
		{"main.go", LangGo},
		{"lib.rs", LangRust},
		{"app.py", LangPython},
		{"index.ts", LangTypeScript},
		{"index.tsx", LangTSX},
		{"bundle.js", LangJavaScript},
		{"Main.java", LangJava},
		{"worker.rb", LangRuby},
		{"README.md", LangUnknown},
		{"Makefile", LangUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.path), tt.path)
	}
}

func TestParseGoSource(t *testing.T) {
	p := New()
	src := []byte(`package main

func add(a, b int) int {
	return a + b
}
`)
	res, err := p.Parse(context.Background(), "main.go", src)
	require.NoError(t, err)
	defer res.Close()

	assert.Equal(t, LangGo, res.Language)
	assert.False(t, res.Tree.RootNode().HasError())
}

func TestParseUnsupportedLanguage(t *testing.T) {
	p := New()
	_, err := p.Parse(context.Background(), "notes.txt", []byte("hello"))
	assert.Error(t, err)
}

func TestExtractGoFunctions(t *testing.T) {
	p := New()
	src := []byte(`package main

type Counter struct{ n int }

func (c *Counter) Incr(by int) { c.n += by }

func (c Counter) Value() int { return c.n }

func add(a, b int) int { return a + b }
`)
	res, err := p.Parse(context.Background(), "counter.go", src)
	require.NoError(t, err)
	defer res.Close()

	fns := ExtractFunctions(res)
	require.Len(t, fns, 3)

	byName := map[string]FunctionNode{}
	for _, fn := range fns {
		byName[fn.Name] = fn
	}

	incr := byName["Incr"]
	assert.Equal(t, ReceiverByRefMutable, incr.Receiver)
	assert.Equal(t, "Counter", incr.ReceiverType)
	assert.Equal(t, "Counter.Incr", incr.QualifiedName)

	value := byName["Value"]
	assert.Equal(t, ReceiverByRefImmutable, value.Receiver)

	add := byName["add"]
	assert.Equal(t, ReceiverNone, add.Receiver)
	require.Len(t, add.Params, 2)
	assert.Equal(t, "a", add.Params[0].Name)
	assert.False(t, add.Params[0].ByRef)
}

func TestExtractRustSelfKinds(t *testing.T) {
	p := New()
	src := []byte(`struct Builder { parts: Vec<String> }

impl Builder {
    fn push(&mut self, part: String) { self.parts.push(part); }
    fn len(&self) -> usize { self.parts.len() }
    fn build(self) -> String { self.parts.join("") }
    fn finish(mut self) -> String { self.parts.sort(); self.parts.join("") }
}

fn free(n: u32) -> u32 { n + 1 }
`)
	res, err := p.Parse(context.Background(), "builder.rs", src)
	require.NoError(t, err)
	defer res.Close()

	fns := ExtractFunctions(res)
	byName := map[string]FunctionNode{}
	for _, fn := range fns {
		byName[fn.Name] = fn
	}

	assert.Equal(t, ReceiverByRefMutable, byName["push"].Receiver)
	assert.Equal(t, ReceiverByRefImmutable, byName["len"].Receiver)
	assert.Equal(t, ReceiverOwned, byName["build"].Receiver)
	assert.Equal(t, ReceiverOwnedMutable, byName["finish"].Receiver)
	assert.Equal(t, ReceiverNone, byName["free"].Receiver)
	assert.Equal(t, "Builder::push", byName["push"].QualifiedName)
}

func TestExtractPythonMethods(t *testing.T) {
	p := New()
	src := []byte(`class Cart:
    def __init__(self):
        self.items = []

    def add(self, item):
        self.items.append(item)

def total(items):
    return sum(items)
`)
	res, err := p.Parse(context.Background(), "cart.py", src)
	require.NoError(t, err)
	defer res.Close()

	fns := ExtractFunctions(res)
	byName := map[string]FunctionNode{}
	for _, fn := range fns {
		byName[fn.Name] = fn
	}

	add := byName["add"]
	assert.Equal(t, ReceiverByRefMutable, add.Receiver)
	assert.Equal(t, "Cart.add", add.QualifiedName)
	require.Len(t, add.Params, 1)
	assert.Equal(t, "item", add.Params[0].Name)

	assert.Equal(t, ReceiverNone, byName["total"].Receiver)
}

func TestExtractJSArrowAssignment(t *testing.T) {
	p := New()
	src := []byte(`const handler = (req) => { return req.body; };

class Service {
  start() { this.running = true; }
}
`)
	res, err := p.Parse(context.Background(), "svc.js", src)
	require.NoError(t, err)
	defer res.Close()

	fns := ExtractFunctions(res)
	byName := map[string]FunctionNode{}
	for _, fn := range fns {
		byName[fn.Name] = fn
	}

	assert.Contains(t, byName, "handler")
	start := byName["start"]
	assert.Equal(t, "Service.start", start.QualifiedName)
	assert.Equal(t, ReceiverByRefMutable, start.Receiver)
}

func TestLineSpans(t *testing.T) {
	p := New()
	src := []byte("package main\n\nfunc f() {\n\t_ = 1\n}\n")
	res, err := p.Parse(context.Background(), "f.go", src)
	require.NoError(t, err)
	defer res.Close()

	fns := ExtractFunctions(res)
	require.Len(t, fns, 1)
	assert.Equal(t, 3, fns[0].StartLine)
	assert.Equal(t, 5, fns[0].EndLine)
}
