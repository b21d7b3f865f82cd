// Package compiler holds the Lattice scope tree, symbol and procedure
// tables, and the name resolver. The textual parser lives outside this
// module; it delivers the AST defined in ast.go.
package compiler

// ---------------------------------------------------------------------------
// Scope tree: an arena of code blocks addressed by integer index.
//
// Parent/child links are arena indices, never pointers, so the tree carries
// no ownership cycles and detaching a subtree is an index operation.
// ---------------------------------------------------------------------------

// BlockKind classifies a code block.
type BlockKind int

const (
	BlockGlobal    BlockKind = iota // outermost or auxiliary global region
	BlockLanguage                   // inline language block
	BlockFunction                   // function body
	BlockConstruct                  // loop/conditional construct body
)

// String returns a human-readable name for BlockKind.
func (k BlockKind) String() string {
	switch k {
	case BlockGlobal:
		return "global"
	case BlockLanguage:
		return "language"
	case BlockFunction:
		return "function"
	case BlockConstruct:
		return "construct"
	default:
		return "unknown"
	}
}

// NoParent marks the outermost global block.
const NoParent = -1

// NoRuntimeIndex marks a block that owns no slot in the flat runtime tables.
const NoRuntimeIndex = -1

// CodeBlock is one lexical region. It owns a symbol table and a procedure
// table; its instruction stream and graph-node list are owned by the
// executing session (package vm) and keyed by the block's ID.
type CodeBlock struct {
	ID       int
	Kind     BlockKind
	Parent   int // arena index, NoParent for the outermost global block
	Children []int

	Symbols    *SymbolTable
	Procedures *ProcedureTable

	// ClassName is set on blocks that carry a class's member scope.
	ClassName string

	// RuntimeIndex is the block's slot in the flat runtime tables.
	// Assigned breadth-first over Language/Function/Construct blocks;
	// NoRuntimeIndex for blocks that own no runtime state.
	RuntimeIndex int

	// Reentrant marks a global region that may be re-entered by delta
	// execution (an inline language block hoisted to the top level).
	Reentrant bool

	// Detached is set when the block has been torn out of the tree by an
	// invalidation. Detached blocks are skipped by every traversal.
	Detached bool
}

// Arena owns every code block of one compilation session.
type Arena struct {
	blocks []*CodeBlock

	// runtimeSlots is the flat table length computed by the most recent
	// AssignRuntimeIndices call.
	runtimeSlots int
}

// NewArena creates an arena holding only the outermost global block (ID 0).
func NewArena() *Arena {
	a := &Arena{}
	a.newBlock(BlockGlobal, NoParent)
	return a
}

func (a *Arena) newBlock(kind BlockKind, parent int) *CodeBlock {
	b := &CodeBlock{
		ID:           len(a.blocks),
		Kind:         kind,
		Parent:       parent,
		Symbols:      NewSymbolTable(),
		Procedures:   NewProcedureTable(),
		RuntimeIndex: NoRuntimeIndex,
	}
	a.blocks = append(a.blocks, b)
	if parent != NoParent {
		a.blocks[parent].Children = append(a.blocks[parent].Children, b.ID)
	}
	return b
}

// NewBlock appends a child block under parent and returns it.
func (a *Arena) NewBlock(kind BlockKind, parent int) *CodeBlock {
	if parent < 0 || parent >= len(a.blocks) {
		panic("compiler: NewBlock with parent outside arena")
	}
	return a.newBlock(kind, parent)
}

// Block returns the block with the given arena index.
func (a *Arena) Block(id int) *CodeBlock {
	return a.blocks[id]
}

// Len returns the number of blocks ever created, detached ones included.
func (a *Arena) Len() int { return len(a.blocks) }

// Global returns the outermost global block.
func (a *Arena) Global() *CodeBlock { return a.blocks[0] }

// Detach tears the block and its whole subtree out of the tree. The blocks
// stay in the arena (IDs remain stable) but are marked detached and removed
// from their parent's child list.
func (a *Arena) Detach(id int) {
	b := a.blocks[id]
	if b.Parent != NoParent {
		parent := a.blocks[b.Parent]
		for i, c := range parent.Children {
			if c == id {
				parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
				break
			}
		}
	}
	a.detachSubtree(id)
}

func (a *Arena) detachSubtree(id int) {
	b := a.blocks[id]
	b.Detached = true
	for _, c := range b.Children {
		a.detachSubtree(c)
	}
}

// EnclosingFunction walks up from the block and returns the arena id of the
// nearest Function-kind block, or NoParent if the block is not inside one.
func (a *Arena) EnclosingFunction(id int) int {
	for cur := id; cur != NoParent; cur = a.blocks[cur].Parent {
		if a.blocks[cur].Kind == BlockFunction {
			return cur
		}
	}
	return NoParent
}

// AssignRuntimeIndices walks the tree breadth-first from each top-level
// block and hands every attached Language, Function, and Construct block the
// next flat runtime index. It returns the total slot count, which is also
// recorded for BuildTables-time range checks.
func (a *Arena) AssignRuntimeIndices() int {
	next := 0
	queue := []int{0}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		b := a.blocks[id]
		if b.Detached {
			continue
		}
		switch b.Kind {
		case BlockLanguage, BlockFunction, BlockConstruct:
			b.RuntimeIndex = next
			next++
		}
		queue = append(queue, b.Children...)
	}
	a.runtimeSlots = next
	return next
}

// RuntimeSlots returns the flat table length computed by the last
// AssignRuntimeIndices call.
func (a *Arena) RuntimeSlots() int { return a.runtimeSlots }

// Walk visits every attached block breadth-first, outermost first.
func (a *Arena) Walk(visit func(*CodeBlock)) {
	queue := []int{0}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		b := a.blocks[id]
		if b.Detached {
			continue
		}
		visit(b)
		queue = append(queue, b.Children...)
	}
}
