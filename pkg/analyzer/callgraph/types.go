// Package callgraph builds a cross-file call graph with interface dispatch
// resolution, function roles, and reachability queries.
package callgraph

import (
	"fmt"
	"sort"
)

// FunctionID uniquely identifies a function in the analyzed tree. It keys
// graph nodes and cache entries; immutable after creation.
type FunctionID struct {
	File string `json:"file"`
	Name string `json:"name"`
	Line int    `json:"line"`
}

func (id FunctionID) String() string {
	return fmt.Sprintf("%s:%s:%d", id.File, id.Name, id.Line)
}

// NodeID is an interned integer handle for a FunctionID. Edges carry NodeIDs
// so they stay cheap to copy.
type NodeID = uint32

// EdgeKind classifies how a call edge was discovered.
type EdgeKind string

const (
	// EdgeDirect is a syntactically direct call.
	EdgeDirect EdgeKind = "direct"
	// EdgeInterfaceDispatch is a dynamic call narrowed to a concrete
	// implementation set.
	EdgeInterfaceDispatch EdgeKind = "interface_dispatch"
	// EdgeFunctionPointer is an invocation through a function-valued
	// variable or closure.
	EdgeFunctionPointer EdgeKind = "function_pointer"
	// EdgeFrameworkCallback is a handler registered with a framework and
	// invoked by it.
	EdgeFrameworkCallback EdgeKind = "framework_callback"
	// EdgeConservativeAllImplementations over-approximates a dispatch whose
	// receiver type could not be narrowed: the caller is connected to every
	// implementation. The over-approximation stays visible and queryable
	// instead of being silently dropped.
	EdgeConservativeAllImplementations EdgeKind = "conservative_all_implementations"
)

// RoleKind tags a function's structural role in the graph.
type RoleKind string

const (
	RoleRegular                 RoleKind = "regular"
	RoleEntryPoint              RoleKind = "entry_point"
	RoleInterfaceImplementation RoleKind = "interface_implementation"
	RoleTraitEntryPoint         RoleKind = "trait_entry_point"
	RoleConstructor             RoleKind = "constructor"
)

// FunctionRole is a derived tag attached to a function.
type FunctionRole struct {
	Kind      RoleKind `json:"kind"`
	Interface string   `json:"interface,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// Edge is a directed call from Caller to Callee.
type Edge struct {
	Caller   NodeID   `json:"caller"`
	Callee   NodeID   `json:"callee"`
	Kind     EdgeKind `json:"kind"`
	CallLine int      `json:"call_line,omitempty"`
}

// Node holds per-function graph state.
type Node struct {
	ID     FunctionID   `json:"id"`
	Role   FunctionRole `json:"role"`
	IsTest bool         `json:"is_test,omitempty"`
}

// Graph is a directed multigraph over interned function nodes. It is built
// incrementally during the two builder phases and dispatch resolution, then
// treated as immutable for the rest of the pipeline run.
type Graph struct {
	nodes   []Node
	ids     map[FunctionID]NodeID
	edges   []Edge
	out     map[NodeID][]int // node -> indices into edges
	in      map[NodeID][]int
	edgeSet map[Edge]struct{}
}

// NewGraph creates an empty call graph.
func NewGraph() *Graph {
	return &Graph{
		ids:     make(map[FunctionID]NodeID),
		out:     make(map[NodeID][]int),
		in:      make(map[NodeID][]int),
		edgeSet: make(map[Edge]struct{}),
	}
}

// AddFunction interns id and returns its node handle. Adding the same id
// twice returns the existing handle.
func (g *Graph) AddFunction(id FunctionID) NodeID {
	if n, ok := g.ids[id]; ok {
		return n
	}
	n := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{ID: id, Role: FunctionRole{Kind: RoleRegular}})
	g.ids[id] = n
	return n
}

// Lookup returns the node handle for id.
func (g *Graph) Lookup(id FunctionID) (NodeID, bool) {
	n, ok := g.ids[id]
	return n, ok
}

// LookupByName returns all nodes whose qualified name matches name.
func (g *Graph) LookupByName(name string) []NodeID {
	var out []NodeID
	for i := range g.nodes {
		if g.nodes[i].ID.Name == name {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// AddEdge records a call edge. Duplicate edges (same caller, callee, kind,
// line) are ignored. Returns true if the edge was new.
func (g *Graph) AddEdge(e Edge) bool {
	if _, dup := g.edgeSet[e]; dup {
		return false
	}
	g.edgeSet[e] = struct{}{}
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.out[e.Caller] = append(g.out[e.Caller], idx)
	g.in[e.Callee] = append(g.in[e.Callee], idx)
	return true
}

// NodeCount returns the number of interned functions.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of recorded edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Function returns the node state for handle n.
func (g *Graph) Function(n NodeID) Node { return g.nodes[n] }

// SetRole assigns a role to a node. EntryPoint and TraitEntryPoint roles are
// never downgraded back to Regular.
func (g *Graph) SetRole(n NodeID, role FunctionRole) {
	cur := g.nodes[n].Role.Kind
	if role.Kind == RoleRegular && cur != RoleRegular {
		return
	}
	g.nodes[n].Role = role
}

// MarkTest flags a node as a test function.
func (g *Graph) MarkTest(n NodeID) { g.nodes[n].IsTest = true }

// Callees returns the outgoing edges of n.
func (g *Graph) Callees(n NodeID) []Edge {
	return g.edgesAt(g.out[n])
}

// Callers returns the incoming edges of n.
func (g *Graph) Callers(n NodeID) []Edge {
	return g.edgesAt(g.in[n])
}

func (g *Graph) edgesAt(indices []int) []Edge {
	if len(indices) == 0 {
		return nil
	}
	out := make([]Edge, len(indices))
	for i, idx := range indices {
		out[i] = g.edges[idx]
	}
	return out
}

// CallerCounts returns the direct production and test caller counts of n.
// Distinct calling functions are counted once regardless of call-site count.
func (g *Graph) CallerCounts(n NodeID) (production, test int) {
	seen := make(map[NodeID]struct{})
	for _, idx := range g.in[n] {
		caller := g.edges[idx].Caller
		if _, ok := seen[caller]; ok {
			continue
		}
		seen[caller] = struct{}{}
		if g.nodes[caller].IsTest {
			test++
		} else {
			production++
		}
	}
	return production, test
}

// Nodes returns all node handles in interning order.
func (g *Graph) Nodes() []NodeID {
	out := make([]NodeID, len(g.nodes))
	for i := range g.nodes {
		out[i] = NodeID(i)
	}
	return out
}

// Edges returns a copy of all edges sorted by (caller, callee, kind) for
// deterministic output.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Caller != out[j].Caller {
			return out[i].Caller < out[j].Caller
		}
		if out[i].Callee != out[j].Callee {
			return out[i].Callee < out[j].Callee
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
