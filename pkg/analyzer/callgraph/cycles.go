package callgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Cycles returns the strongly connected call cycles in the graph: every
// Tarjan component with more than one function, plus direct self-recursion.
// Cycles are informational; the scorer's transitive queries are cycle-safe
// on their own.
func (g *Graph) Cycles() [][]FunctionID {
	dg := simple.NewDirectedGraph()
	for _, n := range g.Nodes() {
		dg.AddNode(simple.Node(int64(n)))
	}
	selfLoops := make(map[NodeID]struct{})
	for _, e := range g.Edges() {
		if e.Caller == e.Callee {
			selfLoops[e.Caller] = struct{}{}
			continue
		}
		dg.SetEdge(dg.NewEdge(simple.Node(int64(e.Caller)), simple.Node(int64(e.Callee))))
	}

	var cycles [][]FunctionID
	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) < 2 {
			continue
		}
		cycle := make([]FunctionID, 0, len(scc))
		for _, node := range scc {
			cycle = append(cycle, g.Function(NodeID(node.ID())).ID)
		}
		sortFunctionIDs(cycle)
		cycles = append(cycles, cycle)
	}

	for n := range selfLoops {
		cycles = append(cycles, []FunctionID{g.Function(n).ID})
	}

	sort.Slice(cycles, func(i, j int) bool {
		a, b := cycles[i][0], cycles[j][0]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	return cycles
}

func sortFunctionIDs(ids []FunctionID) {
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].File != ids[j].File {
			return ids[i].File < ids[j].File
		}
		return ids[i].Line < ids[j].Line
	})
}
