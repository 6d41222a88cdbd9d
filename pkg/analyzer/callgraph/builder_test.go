package callgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iepathos/debtmap/pkg/analyzer"
	"github.com/iepathos/debtmap/pkg/source"
)

func build(t *testing.T, files map[string]string) (*Graph, *InterfaceRegistry, []analyzer.Diagnostic) {
	t.Helper()
	contents := make(map[string][]byte, len(files))
	for path, content := range files {
		contents[path] = []byte(content)
	}
	src := source.NewMapSource(contents)
	paths, err := src.Files()
	require.NoError(t, err)
	return NewBuilder().Build(context.Background(), paths, src)
}

func nodeByName(t *testing.T, g *Graph, name string) NodeID {
	t.Helper()
	nodes := g.LookupByName(name)
	require.Len(t, nodes, 1, "expected exactly one node named %s", name)
	return nodes[0]
}

func TestBuildDirectEdges(t *testing.T) {
	g, _, diags := build(t, map[string]string{
		"main.go": `package main

func main() {
	helper()
}

func helper() int {
	return 42
}
`,
	})
	assert.Empty(t, diags)

	main := nodeByName(t, g, "main")
	helper := nodeByName(t, g, "helper")

	callees := g.Callees(main)
	require.Len(t, callees, 1)
	assert.Equal(t, helper, callees[0].Callee)
	assert.Equal(t, EdgeDirect, callees[0].Kind)
	assert.Equal(t, RoleEntryPoint, g.Function(main).Role.Kind)
}

func TestCrossFileResolution(t *testing.T) {
	g, _, _ := build(t, map[string]string{
		"a.go": "package p\n\nfunc caller() {\n\tshared()\n}\n",
		"b.go": "package p\n\nfunc shared() {}\n",
	})

	caller := nodeByName(t, g, "caller")
	shared := nodeByName(t, g, "shared")

	callees := g.Callees(caller)
	require.Len(t, callees, 1)
	assert.Equal(t, shared, callees[0].Callee)
}

func TestConstructorRole(t *testing.T) {
	g, _, _ := build(t, map[string]string{
		"server.go": `package p

type Server struct{}

func NewServer() *Server {
	return &Server{}
}

func create() *Server {
	return NewServer()
}
`,
	})

	assert.Equal(t, RoleConstructor, g.Function(nodeByName(t, g, "NewServer")).Role.Kind)
	assert.Equal(t, RoleConstructor, g.Function(nodeByName(t, g, "create")).Role.Kind)
}

func TestTestFunctionDetection(t *testing.T) {
	g, _, _ := build(t, map[string]string{
		"util.go":      "package p\n\nfunc util() {}\n",
		"util_test.go": "package p\n\nfunc TestUtil() {\n\tutil()\n}\n",
	})

	assert.True(t, g.Function(nodeByName(t, g, "TestUtil")).IsTest)
	assert.False(t, g.Function(nodeByName(t, g, "util")).IsTest)
}

func TestParseFailureIsDiagnosticNotFatal(t *testing.T) {
	g, _, diags := build(t, map[string]string{
		"good.go":   "package p\n\nfunc good() {}\n",
		"notes.txt": "not source code",
	})

	require.Len(t, diags, 1)
	assert.Equal(t, analyzer.DiagParseFailure, diags[0].Kind)
	assert.Equal(t, "notes.txt", diags[0].Path)

	// The run still produced a graph for the good file.
	assert.Equal(t, 1, g.NodeCount())
}

func TestGoInterfaceDispatch(t *testing.T) {
	g, reg, _ := build(t, map[string]string{
		"greet.go": `package p

type Greeter interface {
	Greet() string
}

type English struct{}

func (e English) Greet() string { return "hi" }

type Spanish struct{}

func (s Spanish) Greet() string { return "hola" }

func run(g Greeter) string {
	return g.Greet()
}
`,
	})

	added, diags := NewResolver().Resolve(reg, g)
	assert.Empty(t, diags)
	assert.Equal(t, 2, added)

	run := nodeByName(t, g, "run")
	callees := g.Callees(run)
	require.Len(t, callees, 2)
	for _, e := range callees {
		assert.Equal(t, EdgeInterfaceDispatch, e.Kind)
	}

	english := nodeByName(t, g, "English.Greet")
	assert.Equal(t, RoleInterfaceImplementation, g.Function(english).Role.Kind)
	assert.Equal(t, "Greeter", g.Function(english).Role.Interface)
}

func TestRustDefaultMethodDispatch(t *testing.T) {
	g, reg, _ := build(t, map[string]string{
		"maker.rs": `trait Maker {
    fn default() -> Self;
    fn describe(&self) -> String {
        String::from("maker")
    }
}

struct Widget;

impl Maker for Widget {
    fn default() -> Widget {
        Widget
    }
}

fn use_it(m: &dyn Maker) -> String {
    m.describe()
}
`,
	})

	added, diags := NewResolver().Resolve(reg, g)
	assert.Empty(t, diags)
	assert.GreaterOrEqual(t, added, 1)

	// The dispatch falls through to the trait's default method.
	useIt := nodeByName(t, g, "use_it")
	callees := g.Callees(useIt)
	require.Len(t, callees, 1)
	assert.Equal(t, "Maker::describe", g.Function(callees[0].Callee).ID.Name)

	// A default-value factory implementation is a trait entry point and
	// never an orphan, even with zero callers.
	def := nodeByName(t, g, "Widget::default")
	assert.Equal(t, RoleTraitEntryPoint, g.Function(def).Role.Kind)
	for _, d := range g.Orphans() {
		assert.NotContains(t, d.Detail, "Widget::default")
	}
}

func TestRustDefaultMethodKeptWhenAnImplementorDoesNotOverride(t *testing.T) {
	g, reg, _ := build(t, map[string]string{
		"maker.rs": `trait Maker {
    fn make(&self) -> u32;
    fn describe(&self) -> String {
        String::from("maker")
    }
}

struct Widget;

impl Maker for Widget {
    fn make(&self) -> u32 {
        1
    }
    fn describe(&self) -> String {
        String::from("widget")
    }
}

struct Gadget;

impl Maker for Gadget {
    fn make(&self) -> u32 {
        2
    }
}

fn use_it(m: &dyn Maker) -> String {
    m.describe()
}
`,
	})

	added, diags := NewResolver().Resolve(reg, g)
	assert.Empty(t, diags)
	assert.GreaterOrEqual(t, added, 2)

	// Widget overrides describe but Gadget inherits the default, so the
	// trait's default body stays a live dispatch target.
	useIt := nodeByName(t, g, "use_it")
	var targets []string
	for _, e := range g.Callees(useIt) {
		targets = append(targets, g.Function(e.Callee).ID.Name)
	}
	require.Contains(t, targets, "Widget::describe")
	require.Contains(t, targets, "Maker::describe")
}

func TestRustDefaultMethodExcludedWhenEveryImplementorOverrides(t *testing.T) {
	g, reg, _ := build(t, map[string]string{
		"maker.rs": `trait Maker {
    fn describe(&self) -> String {
        String::from("maker")
    }
}

struct Widget;

impl Maker for Widget {
    fn describe(&self) -> String {
        String::from("widget")
    }
}

fn use_it(m: &dyn Maker) -> String {
    m.describe()
}
`,
	})

	NewResolver().Resolve(reg, g)

	useIt := nodeByName(t, g, "use_it")
	var targets []string
	for _, e := range g.Callees(useIt) {
		targets = append(targets, g.Function(e.Callee).ID.Name)
	}
	require.Contains(t, targets, "Widget::describe")
	assert.NotContains(t, targets, "Maker::describe")
}

func TestFrameworkCallbackRegistration(t *testing.T) {
	g, _, _ := build(t, map[string]string{
		"routes.go": `package p

func handler() {}

func setup() {
	HandleFunc("/x", handler)
}
`,
	})

	setup := nodeByName(t, g, "setup")
	handler := nodeByName(t, g, "handler")

	var found bool
	for _, e := range g.Callees(setup) {
		if e.Callee == handler && e.Kind == EdgeFrameworkCallback {
			found = true
		}
	}
	assert.True(t, found, "expected framework callback edge")
	assert.Equal(t, RoleEntryPoint, g.Function(handler).Role.Kind)
}

func TestUnresolvedDispatchDiagnostic(t *testing.T) {
	g, reg, _ := build(t, map[string]string{
		"iface.go": `package p

type Sink interface {
	Write(b []byte) int
}

func pump(s Sink) {
	s.Write(nil)
}
`,
	})

	// The interface has no implementations; resolution must surface a
	// diagnostic rather than dropping the call.
	added, diags := NewResolver().Resolve(reg, g)
	assert.Equal(t, 0, added)
	require.Len(t, diags, 1)
	assert.Equal(t, analyzer.DiagUnresolvedDispatch, diags[0].Kind)

	_ = g
}

func TestSelfRecursion(t *testing.T) {
	g, _, _ := build(t, map[string]string{
		"rec.go": "package p\n\nfunc loop() {\n\tloop()\n}\n",
	})

	loop := nodeByName(t, g, "loop")
	callees := g.Callees(loop)
	require.Len(t, callees, 1)
	assert.Equal(t, loop, callees[0].Callee)

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, "loop", cycles[0][0].Name)
}

func TestProgressTicksPerFile(t *testing.T) {
	files := map[string]string{
		"a.go": "package p\n\nfunc a() {}\n",
		"b.go": "package p\n\nfunc b() {}\n",
		"c.go": "package p\n\nfunc c() {}\n",
	}
	contents := make(map[string][]byte, len(files))
	for path, content := range files {
		contents[path] = []byte(content)
	}
	src := source.NewMapSource(contents)
	paths, err := src.Files()
	require.NoError(t, err)

	tracker := analyzer.NewTracker(nil)
	ctx := analyzer.WithTracker(context.Background(), tracker)

	NewBuilder().Build(ctx, paths, src)
	assert.Equal(t, 3, tracker.Current())
}
