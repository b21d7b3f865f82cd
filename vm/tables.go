package vm

import (
	"fmt"

	"github.com/chazu/lattice/compiler"
)

// ---------------------------------------------------------------------------
// Runtime tables: the flat arrays the production VM consumes.
//
// A breadth-first walk over the scope tree places every Language, Function,
// and Construct block's symbol table, procedure table, and instruction
// stream at the block's pre-assigned runtime index. An index outside the
// precomputed total means the assignment phase and the flattening phase
// drifted apart, and construction aborts.
// ---------------------------------------------------------------------------

// RuntimeTables are parallel arrays indexed by runtime index. Slots for
// skipped block kinds stay nil.
type RuntimeTables struct {
	Symbols      []*compiler.SymbolTable
	Procedures   []*compiler.ProcedureTable
	Streams      []*Stream
	ScopeForSlot []int // runtime index → arena block id
}

// BuildTables flattens the scope tree into runtime tables. Runtime indices
// must have been assigned by a prior Arena.AssignRuntimeIndices; the total
// from that pass fixes the table length.
func BuildTables(a *compiler.Arena, streams map[int]*Stream) *RuntimeTables {
	total := a.RuntimeSlots()
	rt := &RuntimeTables{
		Symbols:      make([]*compiler.SymbolTable, total),
		Procedures:   make([]*compiler.ProcedureTable, total),
		Streams:      make([]*Stream, total),
		ScopeForSlot: make([]int, total),
	}
	for i := range rt.ScopeForSlot {
		rt.ScopeForSlot[i] = compiler.NoParent
	}

	a.Walk(func(b *compiler.CodeBlock) {
		switch b.Kind {
		case compiler.BlockLanguage, compiler.BlockFunction, compiler.BlockConstruct:
		default:
			return // pure block scopes own no runtime slot
		}
		idx := b.RuntimeIndex
		if idx < 0 || idx >= total {
			panic(fmt.Sprintf("vm: block %d runtime index %d out of range [0,%d): index assignment and flattening drifted", b.ID, idx, total))
		}
		if rt.ScopeForSlot[idx] != compiler.NoParent {
			panic(fmt.Sprintf("vm: runtime index %d claimed by both block %d and block %d", idx, rt.ScopeForSlot[idx], b.ID))
		}
		rt.ScopeForSlot[idx] = b.ID
		rt.Symbols[idx] = b.Symbols
		rt.Procedures[idx] = b.Procedures
		if s := streams[b.ID]; s != nil {
			rt.Streams[idx] = s
		} else {
			rt.Streams[idx] = NewStream()
		}
	})
	return rt
}
