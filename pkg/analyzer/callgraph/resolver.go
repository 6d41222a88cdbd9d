package callgraph

import (
	"strings"

	"github.com/iepathos/debtmap/pkg/analyzer"
)

// Resolver rewrites unresolved dispatch call sites into concrete edges and
// marks implicit entry points that the runtime or derive machinery invokes
// without visible call sites.
type Resolver struct{}

// NewResolver creates a dispatch resolver.
func NewResolver() *Resolver { return &Resolver{} }

// Resolve connects every unresolved dynamic call to the implementations of
// its interface method, including default (non-overridden) implementations.
// Narrowed call sites get InterfaceDispatch edges; everything else gets
// ConservativeAllImplementations. Returns the number of edges added; call
// sites that match nothing become diagnostics, never silent drops. The
// registry's unresolved list is drained.
func (r *Resolver) Resolve(reg *InterfaceRegistry, g *Graph) (int, []analyzer.Diagnostic) {
	var diags []analyzer.Diagnostic
	added := 0

	for _, call := range reg.Unresolved() {
		caller, ok := g.Lookup(call.Caller)
		if !ok {
			continue
		}

		targets := r.dispatchTargets(reg, g, call)
		if len(targets) == 0 {
			diags = append(diags, analyzer.Diagnostic{
				Kind:   analyzer.DiagUnresolvedDispatch,
				Path:   call.Caller.File,
				Line:   call.Line,
				Detail: "no implementation found for " + dispatchName(call),
			})
			continue
		}

		kind := EdgeConservativeAllImplementations
		if call.Narrowed {
			kind = EdgeInterfaceDispatch
		}
		for _, t := range targets {
			if g.AddEdge(Edge{Caller: caller, Callee: t, Kind: kind, CallLine: call.Line}) {
				added++
			}
		}
	}
	reg.Drain()

	r.markImplementations(reg, g)

	return added, diags
}

// dispatchTargets collects the implementation set for one call site.
func (r *Resolver) dispatchTargets(reg *InterfaceRegistry, g *Graph, call UnresolvedCall) []NodeID {
	var impls []Implementation
	if call.Interface != "" {
		impls = reg.Implementations(call.Interface)
		if def, ok := reg.Interface(call.Interface); ok {
			// The default body stays reachable as long as any implementor
			// does not override it; overriding is per-type, not global.
			if fn, ok := def.DefaultMethods[call.Method]; ok && reg.HasNonOverridingImplementor(call.Interface, call.Method) {
				impls = append(impls, Implementation{
					Interface: call.Interface, Method: call.Method, Function: fn,
				})
			}
		}
	} else {
		impls = reg.ImplementationsOfMethod(call.Method)
	}

	var targets []NodeID
	seen := make(map[NodeID]struct{})
	for _, impl := range impls {
		if call.Interface != "" && impl.Method != call.Method {
			continue
		}
		n, ok := g.Lookup(impl.Function)
		if !ok {
			n = g.AddFunction(impl.Function)
		}
		if _, dup := seen[n]; !dup {
			seen[n] = struct{}{}
			targets = append(targets, n)
		}
	}
	return targets
}

// markImplementations tags every known implementation, promoting factory,
// clone, and conversion methods to TraitEntryPoint so they are never
// reported as orphans. These methods are invoked by derive machinery or the
// runtime rather than by visible call sites.
func (r *Resolver) markImplementations(reg *InterfaceRegistry, g *Graph) {
	for iface, impls := range reg.impls {
		for _, impl := range impls {
			n, ok := g.Lookup(impl.Function)
			if !ok {
				continue
			}
			if reason := implicitEntryReason(impl.Method); reason != "" {
				g.SetRole(n, FunctionRole{Kind: RoleTraitEntryPoint, Interface: iface, Reason: reason})
				continue
			}
			cur := g.Function(n).Role.Kind
			if cur == RoleRegular || cur == RoleConstructor {
				g.SetRole(n, FunctionRole{Kind: RoleInterfaceImplementation, Interface: iface})
			}
		}
	}
}

// implicitEntryReason classifies method names the runtime invokes
// implicitly. Empty means no implicit invocation is known.
func implicitEntryReason(method string) string {
	switch method {
	case "default", "Default":
		return "default-value factory"
	case "clone", "Clone", "copy", "deepcopy", "dup":
		return "clone method"
	}
	lower := strings.ToLower(method)
	if strings.HasPrefix(lower, "from") || strings.HasPrefix(lower, "into") || strings.HasPrefix(method, "To") {
		return "conversion method"
	}
	return ""
}

func dispatchName(call UnresolvedCall) string {
	if call.Interface == "" {
		return call.Method
	}
	return call.Interface + "." + call.Method
}
