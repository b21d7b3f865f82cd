package vm

import (
	"sort"

	"github.com/chazu/lattice/compiler"
)

// ---------------------------------------------------------------------------
// Dependency graph: one node per assignment/expression statement.
//
// A node records the symbols it reads (its triggers) and the single symbol
// it defines. Propagation order is always the original graph-construction
// order, never discovery order, so re-execution is deterministic.
// ---------------------------------------------------------------------------

// GraphNode is one executable unit: a contiguous window of its owning
// block's instruction stream.
type GraphNode struct {
	ID     int
	ExprID int

	// ScopeID is the arena id of the owning code block.
	ScopeID int

	// ClassIndex/FunctionIndex identify the owning class/function pair
	// (compiler.NoClass / compiler.GlobalFunction outside either).
	// Invalidation deactivates nodes by this pair.
	ClassIndex    int
	FunctionIndex int

	// Writes is the symbol the node defines; nil for effect-only nodes.
	Writes *compiler.Symbol

	// Reads are the trigger symbols: a store to any of them schedules the
	// node for re-execution.
	Reads []*compiler.Symbol

	// Guides carries per-argument replication guides when the node's
	// expression is a guided call.
	Guides [][]Guide

	// Active nodes participate in propagation; deactivated nodes are
	// excluded immediately and removed lazily.
	Active bool

	// DeclOrder is the node's position in graph-construction order,
	// global across scopes.
	DeclOrder int

	// First/Last delimit the node's instruction window [First, Last) in
	// the owning block's stream.
	First, Last int

	// IsCall marks nodes whose expression performs a procedure call;
	// these are tracked on the global call list.
	IsCall bool

	// Returns marks a return-statement node: executing it ends the
	// current body.
	Returns bool
}

// ReadsSymbol reports whether sym is one of the node's triggers.
func (n *GraphNode) ReadsSymbol(sym *compiler.Symbol) bool {
	for _, r := range n.Reads {
		if r == sym {
			return true
		}
	}
	return false
}

// Graph owns every graph node of one session, per scope and in global
// declaration order, plus the call-tracking list delta execution prunes.
type Graph struct {
	nodes   []*GraphNode
	byScope map[int][]*GraphNode
	calls   []*GraphNode
	nextID  int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{byScope: make(map[int][]*GraphNode)}
}

// Add registers a node, assigning its ID and declaration order.
func (g *Graph) Add(n *GraphNode) *GraphNode {
	n.ID = g.nextID
	g.nextID++
	n.DeclOrder = len(g.nodes)
	n.Active = true
	g.nodes = append(g.nodes, n)
	g.byScope[n.ScopeID] = append(g.byScope[n.ScopeID], n)
	if n.IsCall {
		g.calls = append(g.calls, n)
	}
	return n
}

// Nodes returns every node in declaration order, inactive ones included.
func (g *Graph) Nodes() []*GraphNode {
	out := make([]*GraphNode, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// NodesInScope returns the scope's nodes in declaration order.
func (g *Graph) NodesInScope(scopeID int) []*GraphNode {
	return g.byScope[scopeID]
}

// CallCount returns the length of the global call-tracking list.
func (g *Graph) CallCount() int { return len(g.calls) }

// DependentsOf returns the active nodes, across the given scope set, whose
// trigger set references sym, sorted by declaration order.
func (g *Graph) DependentsOf(sym *compiler.Symbol, scopes map[int]bool) []*GraphNode {
	var deps []*GraphNode
	for scopeID := range scopes {
		for _, n := range g.byScope[scopeID] {
			if n.Active && n.ReadsSymbol(sym) {
				deps = append(deps, n)
			}
		}
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].DeclOrder < deps[j].DeclOrder })
	return deps
}

// Deactivate excludes every node owned by the (classIndex, functionIndex)
// pair from further propagation, across all scopes, and returns the nodes
// touched. The nodes stay in the lists for lazy removal.
func (g *Graph) Deactivate(classIndex, functionIndex int) []*GraphNode {
	var out []*GraphNode
	for _, n := range g.nodes {
		if n.Active && n.ClassIndex == classIndex && n.FunctionIndex == functionIndex {
			n.Active = false
			out = append(out, n)
		}
	}
	return out
}

// DeactivateScope excludes every node owned by the given scope.
func (g *Graph) DeactivateScope(scopeID int) {
	for _, n := range g.byScope[scopeID] {
		n.Active = false
	}
}

// PruneInactiveCalls drops deactivated nodes from the global call-tracking
// list. Per-scope lists keep inactive nodes for snapshot-count stability;
// only the call list is compacted eagerly.
func (g *Graph) PruneInactiveCalls() {
	kept := g.calls[:0]
	for _, n := range g.calls {
		if n.Active {
			kept = append(kept, n)
		}
	}
	g.calls = kept
}

// TruncateScope rolls a scope's node list back to count entries,
// deactivating the dropped tail. Used by snapshot restore.
func (g *Graph) TruncateScope(scopeID, count int) {
	list := g.byScope[scopeID]
	if count >= len(list) {
		return
	}
	for _, n := range list[count:] {
		n.Active = false
	}
	g.byScope[scopeID] = list[:count]
}

// ScopeNodeCount returns the length of a scope's node list.
func (g *Graph) ScopeNodeCount(scopeID int) int {
	return len(g.byScope[scopeID])
}
