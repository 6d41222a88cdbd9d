package callgraph

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/iepathos/debtmap/pkg/analyzer"
)

// EntryPoints returns every node marked as an entry point, trait entry
// point, or test function. These seed reachability.
func (g *Graph) EntryPoints() []NodeID {
	var out []NodeID
	for _, n := range g.Nodes() {
		node := g.Function(n)
		switch node.Role.Kind {
		case RoleEntryPoint, RoleTraitEntryPoint:
			out = append(out, n)
		default:
			if node.IsTest {
				out = append(out, n)
			}
		}
	}
	return out
}

// Reachable computes the set of nodes reachable from the given seeds by
// following call edges of any kind. The bitmap is keyed by NodeID.
func (g *Graph) Reachable(seeds []NodeID) *roaring.Bitmap {
	visited := roaring.New()
	stack := make([]NodeID, 0, len(seeds))
	for _, s := range seeds {
		if visited.CheckedAdd(s) {
			stack = append(stack, s)
		}
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.Callees(n) {
			if visited.CheckedAdd(e.Callee) {
				stack = append(stack, e.Callee)
			}
		}
	}
	return visited
}

// Orphans reports functions with no callers and no callees. Implicit entry
// points (entry points, trait entry points, constructors) are suppressed;
// their invocations come from the runtime, not visible call sites.
func (g *Graph) Orphans() []analyzer.Diagnostic {
	var diags []analyzer.Diagnostic
	for _, n := range g.Nodes() {
		if len(g.Callers(n)) > 0 || len(g.Callees(n)) > 0 {
			continue
		}
		node := g.Function(n)
		switch node.Role.Kind {
		case RoleEntryPoint, RoleTraitEntryPoint, RoleConstructor:
			continue
		}
		if node.IsTest {
			continue
		}
		diags = append(diags, analyzer.Diagnostic{
			Kind:   analyzer.DiagOrphanFunction,
			Path:   node.ID.File,
			Line:   node.ID.Line,
			Detail: node.ID.Name + " has no callers and no callees",
		})
	}
	return diags
}

// TransitiveProductionCallers counts the distinct non-test functions that
// can reach n through any chain of call edges. Cycle-safe; n itself is not
// counted.
func (g *Graph) TransitiveProductionCallers(n NodeID) int {
	visited := roaring.New()
	visited.Add(n)
	stack := []NodeID{n}
	count := 0
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.Callers(cur) {
			if visited.CheckedAdd(e.Caller) {
				if !g.Function(e.Caller).IsTest {
					count++
				}
				stack = append(stack, e.Caller)
			}
		}
	}
	return count
}
