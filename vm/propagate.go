package vm

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/lattice/compiler"
	"github.com/tliron/commonlog"
)

// ErrPropagationLimit is returned when one propagation pass exceeds the
// configured re-execution limit. A zero limit disables the check.
var ErrPropagationLimit = errors.New("vm: propagation re-execution limit exceeded")

// CycleReport records one observed dependency cycle: the node that was
// re-triggered while already mid-execution. Cycles are a runtime condition,
// not a crash; execution continues without re-entering the node.
type CycleReport struct {
	Node    *GraphNode
	Trigger *compiler.Symbol
}

func (c CycleReport) String() string {
	name := "<effect>"
	if c.Node.Writes != nil {
		name = c.Node.Writes.Name
	}
	return fmt.Sprintf("cycle at node %d (defines %s) via %s", c.Node.ID, name, c.Trigger.Name)
}

// Engine decides, after an assignment executes, which graph nodes
// re-execute and in what order. It is invoked synchronously from the
// executor's loop; its only concurrency concern is reentrancy, guarded by
// the executing set.
type Engine struct {
	graph *Graph
	arena *compiler.Arena

	executing map[int]bool // node ID → currently mid-execution
	pending   []*GraphNode
	inPending map[int]bool
	cycles    []CycleReport

	// passRan tracks nodes already executed in the current propagation
	// pass; re-triggering one of them is the cycle condition.
	passRan map[int]bool
	inPass  bool

	log commonlog.Logger
}

// NewEngine creates an engine over the given graph and scope tree.
func NewEngine(graph *Graph, arena *compiler.Arena) *Engine {
	return &Engine{
		graph:     graph,
		arena:     arena,
		executing: make(map[int]bool),
		inPending: make(map[int]bool),
		log:       commonlog.GetLogger("lattice.engine"),
	}
}

// NotifyStore is the VM's callback after a store instruction executes:
// writer has just written sym. Every active dependent in the writer's scope
// and its nested scopes is scheduled, except the writer itself (a node's
// own write never re-triggers it within the same pass) and any node that is
// mid-execution or has already run in the current propagation pass. Both
// are the cycle condition, reported and skipped rather than re-entered.
func (e *Engine) NotifyStore(writer *GraphNode, sym *compiler.Symbol) {
	scopes := e.scopeAndNested(writer.ScopeID)
	for _, dep := range e.graph.DependentsOf(sym, scopes) {
		if dep == writer {
			continue
		}
		if e.executing[dep.ID] || (e.inPass && e.passRan[dep.ID]) {
			e.cycles = append(e.cycles, CycleReport{Node: dep, Trigger: sym})
			e.log.Warningf("dependency cycle: store of %s re-triggers node %d", sym.Name, dep.ID)
			continue
		}
		e.schedule(dep)
	}
}

// scopeAndNested returns the scope plus every attached descendant.
func (e *Engine) scopeAndNested(scopeID int) map[int]bool {
	out := make(map[int]bool)
	var walk func(int)
	walk = func(id int) {
		b := e.arena.Block(id)
		if b.Detached {
			return
		}
		out[id] = true
		for _, c := range b.Children {
			walk(c)
		}
	}
	walk(scopeID)
	return out
}

func (e *Engine) schedule(n *GraphNode) {
	if e.inPending[n.ID] {
		return
	}
	e.inPending[n.ID] = true
	e.pending = append(e.pending, n)
	sort.Slice(e.pending, func(i, j int) bool {
		return e.pending[i].DeclOrder < e.pending[j].DeclOrder
	})
}

// Reschedule puts a node back on the pending queue; used when the node's
// execution suspended before completing.
func (e *Engine) Reschedule(n *GraphNode) {
	delete(e.passRan, n.ID)
	e.schedule(n)
}

// Unschedule drops a node from the pending queue: the executor is about to
// run it in declaration order anyway.
func (e *Engine) Unschedule(n *GraphNode) {
	if !e.inPending[n.ID] {
		return
	}
	delete(e.inPending, n.ID)
	for i, p := range e.pending {
		if p == n {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			break
		}
	}
}

// HasPending reports whether scheduled nodes await execution.
func (e *Engine) HasPending() bool { return len(e.pending) > 0 }

// Drain executes scheduled nodes in declaration order until the queue is
// empty. run may re-enter NotifyStore, growing the queue mid-pass. limit
// bounds the number of re-executions in this pass (0 = unbounded);
// cancelled is polled between nodes for cooperative cancellation.
func (e *Engine) Drain(run func(*GraphNode) error, limit int, cancelled func() bool) error {
	e.inPass = true
	e.passRan = make(map[int]bool)
	defer func() {
		e.inPass = false
		e.passRan = nil
	}()

	steps := 0
	for len(e.pending) > 0 {
		if cancelled != nil && cancelled() {
			e.log.Info("propagation stopped by cancellation request")
			return nil
		}
		n := e.pending[0]
		e.pending = e.pending[1:]
		delete(e.inPending, n.ID)
		if !n.Active {
			continue
		}
		steps++
		if limit > 0 && steps > limit {
			return ErrPropagationLimit
		}
		e.executing[n.ID] = true
		e.passRan[n.ID] = true
		err := run(n)
		delete(e.executing, n.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

// BeginNode marks a node as mid-execution outside of Drain (the executor's
// initial pass over declaration order).
func (e *Engine) BeginNode(n *GraphNode) { e.executing[n.ID] = true }

// EndNode clears the mid-execution mark.
func (e *Engine) EndNode(n *GraphNode) { delete(e.executing, n.ID) }

// Cycles returns the cycles observed since the last ClearCycles.
func (e *Engine) Cycles() []CycleReport {
	out := make([]CycleReport, len(e.cycles))
	copy(out, e.cycles)
	return out
}

// ClearCycles discards recorded cycle reports.
func (e *Engine) ClearCycles() { e.cycles = nil }
