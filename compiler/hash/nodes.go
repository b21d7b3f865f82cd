package hash

// ---------------------------------------------------------------------------
// Frozen hashing AST types.
//
// These are stripped-down parallels of compiler/ast.go with no Span/position
// data and de Bruijn indices instead of variable names. Two procedures with
// the same semantics (same body, ignoring local names) produce identical
// hashing ASTs.
// ---------------------------------------------------------------------------

// HNode is the interface implemented by all hashing AST nodes.
type HNode interface {
	hnode() // marker method
}

// ---------------------------------------------------------------------------
// Literal nodes
// ---------------------------------------------------------------------------

type HIntLiteral struct{ Value int64 }
type HFloatLiteral struct{ Value float64 }
type HStringLiteral struct{ Value string }
type HBoolLiteral struct{ Value bool }
type HNullLiteral struct{}

type HArrayLiteral struct{ Elements []HNode }

func (*HIntLiteral) hnode()    {}
func (*HFloatLiteral) hnode()  {}
func (*HStringLiteral) hnode() {}
func (*HBoolLiteral) hnode()   {}
func (*HNullLiteral) hnode()   {}
func (*HArrayLiteral) hnode()  {}

// ---------------------------------------------------------------------------
// Variable reference nodes (de Bruijn indexed)
// ---------------------------------------------------------------------------

// HLocalRef references a local variable by de Bruijn indices.
// ScopeDepth 0 = current scope, 1 = one enclosing scope up, etc. SlotIndex
// is the position within that scope's parameter/local list.
type HLocalRef struct {
	ScopeDepth uint16
	SlotIndex  uint16
}

// HFieldRef references a class field by its index in the class's field list.
type HFieldRef struct {
	Index uint16
}

// HGlobalRef references a global symbol by its fully-qualified name.
type HGlobalRef struct {
	FQN string
}

func (*HLocalRef) hnode()  {}
func (*HFieldRef) hnode()  {}
func (*HGlobalRef) hnode() {}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

type HBinaryExpr struct {
	Op    string
	Left  HNode
	Right HNode
}

type HUnaryExpr struct {
	Op      string
	Operand HNode
}

// HGuide is a replication guide annotation on a call argument.
type HGuide struct {
	Index   int
	Longest bool
}

// HArg is one call argument with its guides.
type HArg struct {
	Value  HNode
	Guides []HGuide
}

type HCall struct {
	Name string
	Args []HArg
}

func (*HBinaryExpr) hnode() {}
func (*HUnaryExpr) hnode()  {}
func (*HCall) hnode()       {}

// ---------------------------------------------------------------------------
// Statement / structure nodes
// ---------------------------------------------------------------------------

// HAssignment assigns a value to a variable target.
type HAssignment struct {
	Target HNode // HLocalRef, HFieldRef, or HGlobalRef
	Value  HNode
}

type HReturn struct {
	Value HNode // HNullLiteral for a bare return
}

type HExprStmt struct {
	Expr HNode
}

// HBlock represents a nested construct body.
type HBlock struct {
	NumLocals  int
	Statements []HNode
}

func (*HAssignment) hnode() {}
func (*HReturn) hnode()     {}
func (*HExprStmt) hnode()   {}
func (*HBlock) hnode()      {}

// ---------------------------------------------------------------------------
// Top-level definition node
// ---------------------------------------------------------------------------

// HFuncDef is the top-level hashing node for a procedure. Parameter names
// are dropped; declared types are part of the signature and therefore part
// of the hash.
type HFuncDef struct {
	Name       string
	ParamTypes []HTypeSpec
	ReturnType HTypeSpec
	NumLocals  int
	Statements []HNode
}

// HTypeSpec is a declared type in the frozen format.
type HTypeSpec struct {
	Name string
	Rank int
}

func (*HFuncDef) hnode() {}
