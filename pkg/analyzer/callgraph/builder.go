package callgraph

import (
	"context"
	"sort"
	"strings"

	"github.com/iepathos/debtmap/internal/fileproc"
	"github.com/iepathos/debtmap/pkg/analyzer"
	"github.com/iepathos/debtmap/pkg/parser"
	"github.com/iepathos/debtmap/pkg/source"
)

// registrationPatterns are callee names that register a handler with a
// framework; identifier arguments to these calls are treated as framework
// callbacks rather than plain function references.
var registrationPatterns = map[string]struct{}{
	"HandleFunc": {}, "Handle": {}, "GET": {}, "POST": {}, "PUT": {}, "DELETE": {}, "PATCH": {},
	"route": {}, "add_route": {}, "get": {}, "post": {}, "put": {}, "delete": {},
	"on": {}, "once": {}, "subscribe": {}, "addEventListener": {},
	"command": {}, "add_command": {}, "AddCommand": {}, "Action": {},
}

// Builder constructs a call graph from parsed source files.
type Builder struct {
	registration map[string]struct{}
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistrationPatterns adds callee names recognized as framework
// handler-registration calls.
func WithRegistrationPatterns(names ...string) Option {
	return func(b *Builder) {
		for _, n := range names {
			b.registration[n] = struct{}{}
		}
	}
}

// NewBuilder creates a call graph builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{registration: make(map[string]struct{}, len(registrationPatterns))}
	for k := range registrationPatterns {
		b.registration[k] = struct{}{}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs both graph construction phases over files.
//
// Phase 1 extracts per-file declarations and call sites in parallel; files
// are independent so there is no shared state. A parse failure skips the
// file with a diagnostic rather than aborting the run.
//
// Phase 2 walks the files sequentially in input order, accumulating
// cross-file dispatch state (interfaces, implementations, registration
// patterns) and materializing edges. It ticks the context progress tracker
// once per file.
func (b *Builder) Build(ctx context.Context, files []string, src source.ContentSource) (*Graph, *InterfaceRegistry, []analyzer.Diagnostic) {
	var diags []analyzer.Diagnostic

	extractions, errs := fileproc.MapFilesWithContext(ctx, files, func(p *parser.Parser, path string) (fileExtraction, error) {
		data, err := src.ReadFile(path)
		if err != nil {
			return fileExtraction{}, err
		}
		res, err := p.Parse(ctx, path, data)
		if err != nil {
			return fileExtraction{}, err
		}
		defer res.Close()

		ext := extractorFor(res.Language)
		if ext == nil {
			return fileExtraction{Path: path}, nil
		}
		return ext.extract(res), nil
	})
	if errs != nil {
		for _, e := range errs.Errors {
			diags = append(diags, analyzer.Diagnostic{
				Kind:   analyzer.DiagParseFailure,
				Path:   e.Path,
				Detail: e.Err.Error(),
			})
		}
	}

	// Phase 1 results arrive in pool order; re-sequence to input order so
	// phase 2 is deterministic.
	byPath := make(map[string]fileExtraction, len(extractions))
	for _, ext := range extractions {
		byPath[ext.Path] = ext
	}

	graph := NewGraph()
	registry := NewInterfaceRegistry()
	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(files))
	}

	// Register every function and interface first so cross-file calls can
	// resolve forward references.
	for _, path := range files {
		ext, ok := byPath[path]
		if !ok {
			continue
		}
		for _, fn := range ext.Functions {
			n := graph.AddFunction(fn.ID)
			if fn.IsTest {
				graph.MarkTest(n)
			}
			b.tagDeclaredRole(graph, n, fn)
		}
		for _, def := range ext.Interfaces {
			registry.AddInterface(def)
		}
	}

	// Accumulated across files, in order: declared implements relations.
	declared := make(map[string][]string)

	for _, path := range files {
		ext, ok := byPath[path]
		if !ok {
			if tracker != nil {
				tracker.Tick(path)
			}
			continue
		}

		for _, impl := range ext.TypeImpls {
			declared[impl.Type] = append(declared[impl.Type], impl.Interfaces...)
			for _, iface := range impl.Interfaces {
				registry.AddImplementor(iface, impl.Type)
			}
		}
		b.matchImplementations(registry, ext, declared)

		fileDiags := b.resolveCalls(graph, registry, ext)
		diags = append(diags, fileDiags...)

		if tracker != nil {
			tracker.Tick(path)
		}
	}

	return graph, registry, diags
}

// tagDeclaredRole assigns roles derivable from the declaration alone.
func (b *Builder) tagDeclaredRole(g *Graph, n NodeID, fn functionDecl) {
	name := methodName(fn.ID.Name)
	switch {
	case name == "main" || name == "init":
		g.SetRole(n, FunctionRole{Kind: RoleEntryPoint, Reason: "program entry"})
	case constructorName(fn.ID.Name):
		g.SetRole(n, FunctionRole{Kind: RoleConstructor})
	}
}

// matchImplementations links this file's methods to known interfaces, using
// explicit declarations where the language has them and structural method
// matching for Go.
func (b *Builder) matchImplementations(reg *InterfaceRegistry, ext fileExtraction, declared map[string][]string) {
	structural := parser.DetectLanguage(ext.Path) == parser.LangGo

	for _, fn := range ext.Functions {
		if fn.TypeName == "" {
			continue
		}
		method := methodName(fn.ID.Name)

		for _, ifaceName := range declared[fn.TypeName] {
			def, ok := reg.Interface(ifaceName)
			if !ok {
				continue
			}
			if containsString(def.Methods, method) {
				reg.AddImplementation(Implementation{
					Interface: ifaceName,
					Type:      fn.TypeName,
					Method:    method,
					Function:  fn.ID,
				})
			}
		}

		if structural {
			for _, def := range reg.defs {
				if containsString(def.Methods, method) {
					reg.AddImplementation(Implementation{
						Interface: def.Name,
						Type:      fn.TypeName,
						Method:    method,
						Function:  fn.ID,
					})
				}
			}
		}
	}
}

// resolveCalls materializes edges for one file's call sites. Dynamic calls
// that match a known interface are parked in the registry for the resolver;
// ambiguous calls that match nothing are reported, never silently dropped.
func (b *Builder) resolveCalls(g *Graph, reg *InterfaceRegistry, ext fileExtraction) []analyzer.Diagnostic {
	var diags []analyzer.Diagnostic

	for _, fn := range ext.Functions {
		caller, ok := g.Lookup(fn.ID)
		if !ok {
			continue
		}

		for _, call := range fn.Calls {
			// Identifier arguments to registration calls are framework
			// callbacks and implicit entry points.
			if _, isReg := b.registration[call.Callee]; isReg {
				for _, arg := range call.Args {
					for _, target := range b.resolveName(g, ext.Path, arg) {
						g.AddEdge(Edge{Caller: caller, Callee: target, Kind: EdgeFrameworkCallback, CallLine: call.Line})
						g.SetRole(target, FunctionRole{Kind: RoleEntryPoint, Reason: "framework callback"})
					}
				}
			}

			if call.ParamRef {
				// Invocation through a parameter: connect functions passed
				// into this caller elsewhere is not knowable here; record
				// identifier arguments of this same call if any.
				for _, arg := range call.Args {
					for _, target := range b.resolveName(g, ext.Path, arg) {
						g.AddEdge(Edge{Caller: caller, Callee: target, Kind: EdgeFunctionPointer, CallLine: call.Line})
					}
				}
				continue
			}

			if call.Receiver == "" || call.Receiver == "self" || call.Receiver == "this" {
				// Same-type method call or free call.
				name := call.Callee
				if call.Receiver != "" && fn.TypeName != "" {
					name = qualify(fn.TypeName, call.Callee, ext.Path)
				}
				targets := b.resolveName(g, ext.Path, name)
				if len(targets) == 0 && name != call.Callee {
					targets = b.resolveName(g, ext.Path, call.Callee)
				}
				if len(targets) == 1 {
					g.AddEdge(Edge{Caller: caller, Callee: targets[0], Kind: EdgeDirect, CallLine: call.Line})
					continue
				}
				if len(targets) > 1 {
					for _, t := range targets {
						g.AddEdge(Edge{Caller: caller, Callee: t, Kind: EdgeDirect, CallLine: call.Line})
					}
					continue
				}
				// Unknown free call: out-of-tree (stdlib, dependency).
				continue
			}

			// Method call through an arbitrary receiver: dynamic dispatch.
			ifaces := b.interfacesDeclaring(reg, call.Callee)
			switch {
			case len(ifaces) == 1:
				reg.AddUnresolved(UnresolvedCall{
					Caller: fn.ID, Interface: ifaces[0], Method: call.Callee,
					Line: call.Line, Narrowed: true,
				})
			case len(ifaces) > 1:
				for _, iface := range ifaces {
					reg.AddUnresolved(UnresolvedCall{
						Caller: fn.ID, Interface: iface, Method: call.Callee,
						Line: call.Line, Narrowed: false,
					})
				}
			default:
				// No interface declares it; fall back to name matching
				// over known methods.
				impls := reg.ImplementationsOfMethod(call.Callee)
				if len(impls) > 0 {
					reg.AddUnresolved(UnresolvedCall{
						Caller: fn.ID, Method: call.Callee,
						Line: call.Line, Narrowed: false,
					})
					continue
				}
				targets := b.resolveMethodByName(g, call.Callee)
				if len(targets) == 1 {
					g.AddEdge(Edge{Caller: caller, Callee: targets[0], Kind: EdgeDirect, CallLine: call.Line})
				} else if len(targets) > 1 {
					diags = append(diags, analyzer.Diagnostic{
						Kind:   analyzer.DiagUnresolvedDispatch,
						Path:   ext.Path,
						Line:   call.Line,
						Detail: "ambiguous method call " + call.Callee,
					})
					for _, t := range targets {
						g.AddEdge(Edge{Caller: caller, Callee: t, Kind: EdgeConservativeAllImplementations, CallLine: call.Line})
					}
				}
			}
		}
	}
	return diags
}

// resolveName finds nodes matching name, preferring declarations in the
// same file.
func (b *Builder) resolveName(g *Graph, file, name string) []NodeID {
	candidates := g.LookupByName(name)
	if len(candidates) <= 1 {
		return candidates
	}
	var local []NodeID
	for _, n := range candidates {
		if g.Function(n).ID.File == file {
			local = append(local, n)
		}
	}
	if len(local) > 0 {
		return local
	}
	return candidates
}

// resolveMethodByName finds nodes whose trailing method name matches.
func (b *Builder) resolveMethodByName(g *Graph, method string) []NodeID {
	var out []NodeID
	for _, n := range g.Nodes() {
		if methodName(g.Function(n).ID.Name) == method {
			out = append(out, n)
		}
	}
	return out
}

func (b *Builder) interfacesDeclaring(reg *InterfaceRegistry, method string) []string {
	var out []string
	for name, def := range reg.defs {
		if containsString(def.Methods, method) {
			out = append(out, name)
		}
	}
	// Map iteration order is random; keep output deterministic.
	sort.Strings(out)
	return out
}

// methodName returns the trailing segment of a qualified name.
func methodName(qualified string) string {
	if idx := strings.LastIndexAny(qualified, ".:#"); idx >= 0 {
		return qualified[idx+1:]
	}
	return qualified
}

// qualify joins a type and method using the language's separator.
func qualify(typeName, method, path string) string {
	switch parser.DetectLanguage(path) {
	case parser.LangRust:
		return typeName + "::" + method
	case parser.LangRuby:
		return typeName + "#" + method
	default:
		return typeName + "." + method
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
