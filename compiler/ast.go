package compiler

// ---------------------------------------------------------------------------
// AST: the contract with the external Lattice parser.
//
// The front end hands the core one statement list per top-level construct.
// Nodes carry the scope metadata (class id, function id, replication guide
// annotations) that graph construction needs; source positions are kept for
// diagnostics only and never participate in content hashing.
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float64
}

func (n *FloatLiteral) Span() Span { return n.SpanVal }
func (n *FloatLiteral) node()      {}
func (n *FloatLiteral) expr()      {}

// StringLiteral represents a string literal.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span { return n.SpanVal }
func (n *BoolLiteral) node()      {}
func (n *BoolLiteral) expr()      {}

// NullLiteral represents the null literal.
type NullLiteral struct {
	SpanVal Span
}

func (n *NullLiteral) Span() Span { return n.SpanVal }
func (n *NullLiteral) node()      {}
func (n *NullLiteral) expr()      {}

// Ident is a bare name reference.
type Ident struct {
	SpanVal Span
	Name    string
}

func (n *Ident) Span() Span { return n.SpanVal }
func (n *Ident) node()      {}
func (n *Ident) expr()      {}

// ArrayLiteral is a collection expression: {e1, e2, ...}.
type ArrayLiteral struct {
	SpanVal Span
	Elems   []Expr
}

func (n *ArrayLiteral) Span() Span { return n.SpanVal }
func (n *ArrayLiteral) node()      {}
func (n *ArrayLiteral) expr()      {}

// BinaryExpr is a binary operation.
type BinaryExpr struct {
	SpanVal Span
	Op      string // "+", "-", "*", "/", "==", "<", ">"
	Left    Expr
	Right   Expr
}

func (n *BinaryExpr) Span() Span { return n.SpanVal }
func (n *BinaryExpr) node()      {}
func (n *BinaryExpr) expr()      {}

// UnaryExpr is a unary operation.
type UnaryExpr struct {
	SpanVal Span
	Op      string // "-", "!"
	Operand Expr
}

func (n *UnaryExpr) Span() Span { return n.SpanVal }
func (n *UnaryExpr) node()      {}
func (n *UnaryExpr) expr()      {}

// GuideAnnotation is a replication guide written on a call argument,
// e.g. f(xs<1>, ys<2L>). Longest selects the padding policy when zipped
// collections differ in length.
type GuideAnnotation struct {
	Index   int
	Longest bool
}

// Arg is one actual argument of a call, with its guide annotations.
type Arg struct {
	Value  Expr
	Guides []GuideAnnotation
}

// CallExpr is a procedure call.
type CallExpr struct {
	SpanVal Span
	Name    string
	Args    []Arg
}

func (n *CallExpr) Span() Span { return n.SpanVal }
func (n *CallExpr) node()      {}
func (n *CallExpr) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// AssignStmt binds the value of an expression to a name. Every assignment
// becomes one graph node during graph construction.
type AssignStmt struct {
	SpanVal Span
	Target  *Ident
	Value   Expr
}

func (n *AssignStmt) Span() Span { return n.SpanVal }
func (n *AssignStmt) node()      {}
func (n *AssignStmt) stmt()      {}

// ExprStmt is an expression evaluated for effect.
type ExprStmt struct {
	SpanVal Span
	Value   Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// ReturnStmt returns a value from a function body.
type ReturnStmt struct {
	SpanVal Span
	Value   Expr // nil for a bare return
}

func (n *ReturnStmt) Span() Span { return n.SpanVal }
func (n *ReturnStmt) node()      {}
func (n *ReturnStmt) stmt()      {}

// BlockStmt is a nested construct body (a loop or conditional arm). It opens
// a Construct-kind scope.
type BlockStmt struct {
	SpanVal Span
	Body    []Stmt
}

func (n *BlockStmt) Span() Span { return n.SpanVal }
func (n *BlockStmt) node()      {}
func (n *BlockStmt) stmt()      {}

// Param is a formal parameter with its declared type.
type Param struct {
	Name string
	Type TypeSpec
}

// TypeSpec names a declared type. Rank is the array depth: 0 means scalar,
// 1 a flat collection, and so on. Name "var" matches any type.
type TypeSpec struct {
	Name string
	Rank int
}

// IsVar reports whether the type matches anything.
func (t TypeSpec) IsVar() bool { return t.Name == "var" }

// FuncDef defines a procedure. ClassID is the arena id of the owning class
// scope, or NoClass for a free function; the compiler fills it in while
// building the scope tree.
type FuncDef struct {
	SpanVal    Span
	Name       string
	Params     []Param
	ReturnType TypeSpec
	Body       []Stmt
	ClassID    int
}

func (n *FuncDef) Span() Span { return n.SpanVal }
func (n *FuncDef) node()      {}
func (n *FuncDef) stmt()      {}

// ClassDef defines a class: fields plus member functions.
type ClassDef struct {
	SpanVal Span
	Name    string
	Fields  []Param
	Methods []*FuncDef
}

func (n *ClassDef) Span() Span { return n.SpanVal }
func (n *ClassDef) node()      {}
func (n *ClassDef) stmt()      {}

// LangBlock is an inline language block: a region of statements executed
// under a named sub-language (e.g. an imperative island inside associative
// code). It opens a Language-kind scope.
type LangBlock struct {
	SpanVal  Span
	Language string
	Body     []Stmt
}

func (n *LangBlock) Span() Span { return n.SpanVal }
func (n *LangBlock) node()      {}
func (n *LangBlock) stmt()      {}
