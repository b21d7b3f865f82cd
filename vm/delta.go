package vm

import (
	"github.com/chazu/lattice/compiler"
)

// ---------------------------------------------------------------------------
// Delta execution: incremental recompilation for a long-lived session.
//
// A snapshot records per-scope instruction and graph-node counts. A failed
// or superseded incremental compile rolls back by truncating each scope to
// its recorded counts; a successful one re-bounces into the first
// non-reentrant global block with non-main streams rebuilt.
// ---------------------------------------------------------------------------

// ScopeSnapshot is one scope's compiled-state counts, captured before a
// delta compile. The pool counts ride along so truncation keeps the
// constant/symbol/call pools aligned with the instruction stream.
type ScopeSnapshot struct {
	ScopeID      int `cbor:"1,keyasint"`
	Instructions int `cbor:"2,keyasint"`
	GraphNodes   int `cbor:"3,keyasint"`
	Consts       int `cbor:"4,keyasint"`
	Syms         int `cbor:"5,keyasint"`
	Calls        int `cbor:"6,keyasint"`
}

// CaptureSnapshot records, for every attached scope, its current
// instruction count and graph-node count.
func (x *Executive) CaptureSnapshot() []ScopeSnapshot {
	var snaps []ScopeSnapshot
	for id := 0; id < x.Arena.Len(); id++ {
		b := x.Arena.Block(id)
		if b.Detached {
			continue
		}
		snap := ScopeSnapshot{ScopeID: id, GraphNodes: x.Graph.ScopeNodeCount(id)}
		if s := x.Streams[id]; s != nil {
			snap.Instructions = len(s.Code)
			snap.Consts = len(s.Consts)
			snap.Syms = len(s.Syms)
			snap.Calls = len(s.Calls)
		}
		snaps = append(snaps, snap)
	}
	return snaps
}

// ResetFromSnapshot truncates each scope's instruction stream and
// graph-node list back to the recorded counts, and detaches scopes created
// after the snapshot. Restoring from a nil snapshot list is a caller bug.
func (x *Executive) ResetFromSnapshot(snaps []ScopeSnapshot) {
	if snaps == nil {
		panic("vm: ResetFromSnapshot with nil snapshot list")
	}
	known := make(map[int]bool, len(snaps))
	for _, snap := range snaps {
		known[snap.ScopeID] = true
		if s := x.Streams[snap.ScopeID]; s != nil {
			if snap.Instructions < len(s.Code) {
				s.Code = s.Code[:snap.Instructions]
			}
			if snap.Consts < len(s.Consts) {
				s.Consts = s.Consts[:snap.Consts]
			}
			if snap.Syms < len(s.Syms) {
				s.Syms = s.Syms[:snap.Syms]
			}
			if snap.Calls < len(s.Calls) {
				s.Calls = s.Calls[:snap.Calls]
			}
		}
		x.Graph.TruncateScope(snap.ScopeID, snap.GraphNodes)
	}
	// Scopes born after the capture are rolled back entirely.
	for id := 0; id < x.Arena.Len(); id++ {
		b := x.Arena.Block(id)
		if b.Detached || known[id] {
			continue
		}
		x.Graph.DeactivateScope(id)
		x.Arena.Detach(id)
		delete(x.Streams, id)
	}
}

// ResetForDeltaExecution prepares the session to re-enter execution after
// an accepted delta compile: clears apply-update mode, points the running
// block at the first non-reentrant global scope, recounts the main scopes
// that never go out of scope, rebuilds every surviving procedure body from
// its kept definition (an unchanged body keeps its identity, and bindings
// introduced by the delta now resolve inside it), and prunes inactive
// nodes from the global call-tracking list. Blocks nested in the main
// scopes keep their streams; their statements never go out of scope.
func (x *Executive) ResetForDeltaExecution() error {
	x.applyUpdate = false

	x.runningBlock = 0
	for id := 0; id < x.Arena.Len(); id++ {
		b := x.Arena.Block(id)
		if !b.Detached && b.Kind == compiler.BlockGlobal && !b.Reentrant {
			x.runningBlock = id
			break
		}
	}

	x.mainScopes = 0
	for id := 0; id < x.Arena.Len(); id++ {
		b := x.Arena.Block(id)
		if !b.Detached && b.Kind == compiler.BlockGlobal {
			x.mainScopes++
		}
	}

	c := NewCompiler(x)
	var procs []*compiler.Procedure
	x.Arena.Walk(func(b *compiler.CodeBlock) {
		procs = append(procs, b.Procedures.Procedures()...)
	})
	for _, p := range procs {
		if x.Arena.Block(p.ScopeID).Detached {
			continue
		}
		if err := c.RecompileFunc(p); err != nil {
			return err
		}
	}

	x.Graph.PruneInactiveCalls()
	x.log.Infof("delta reset: running block %d, %d main scope(s), %d tracked call(s)",
		x.runningBlock, x.mainScopes, x.Graph.CallCount())
	return nil
}

// RunningBlock returns the block the executive will re-enter next.
func (x *Executive) RunningBlock() int { return x.runningBlock }

// MainScopes returns the count of scopes that never go out of scope.
func (x *Executive) MainScopes() int { return x.mainScopes }

// Invalidate removes a function from the session: every graph node owned by
// its class/function pair deactivates across all scopes, its local symbols
// leave the owning tables (with removal notifications for the interop
// layer), its nested child scopes detach from the tree, and its instruction
// stream is cleared. Identity is the content hash, so re-adding an
// identical definition later builds a fresh, independent set of nodes and
// symbols.
func (x *Executive) Invalidate(p *compiler.Procedure) {
	x.Graph.Deactivate(p.ClassScope, p.ScopeID)

	for id := 0; id < x.Arena.Len(); id++ {
		b := x.Arena.Block(id)
		if b.Detached {
			continue
		}
		for _, sym := range b.Symbols.RemoveFunction(compiler.NoClass, p.ScopeID) {
			x.notifySymbolRemoved(sym)
		}
		if p.ClassScope != compiler.NoClass {
			for _, sym := range b.Symbols.RemoveFunction(p.ClassScope, p.ScopeID) {
				x.notifySymbolRemoved(sym)
			}
		}
	}

	fnBlock := x.Arena.Block(p.ScopeID)
	for _, child := range append([]int(nil), fnBlock.Children...) {
		x.Graph.DeactivateScope(child)
		x.Arena.Detach(child)
	}
	x.Arena.Detach(p.ScopeID)
	delete(x.Streams, p.ScopeID)

	if fnBlock.Parent != compiler.NoParent {
		x.Arena.Block(fnBlock.Parent).Procedures.Remove(p.Hash)
	}
	x.log.Infof("invalidated procedure %s (%x)", p.Name, p.Hash[:4])
}

func (x *Executive) notifySymbolRemoved(sym *compiler.Symbol) {
	delete(x.values, sym)
	for _, fn := range x.onSymbolRemoved {
		fn(sym)
	}
}
