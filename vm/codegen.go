package vm

import (
	"github.com/chazu/lattice/compiler"
	"github.com/chazu/lattice/compiler/hash"
)

// ---------------------------------------------------------------------------
// Graph construction: AST → scope tree + instruction streams + graph nodes.
//
// Each assignment/expression statement becomes one graph node owning a
// contiguous instruction window. Function definitions open Function blocks
// and register content-hashed procedures; class definitions open member
// scopes whose fields live at global function-scope.
// ---------------------------------------------------------------------------

// Compiler builds streams and graph nodes into an executive's state.
type Compiler struct {
	arena   *compiler.Arena
	graph   *Graph
	streams map[int]*Stream
	exprID  int
}

// NewCompiler returns a compiler bound to the executive's arena, graph, and
// streams.
func NewCompiler(x *Executive) *Compiler {
	return &Compiler{arena: x.Arena, graph: x.Graph, streams: x.Streams}
}

func (c *Compiler) stream(scopeID int) *Stream {
	s := c.streams[scopeID]
	if s == nil {
		s = NewStream()
		c.streams[scopeID] = s
	}
	return s
}

// Compile lowers a statement list into the given scope.
func (c *Compiler) Compile(scopeID int, stmts []compiler.Stmt) error {
	for _, stmt := range stmts {
		if err := c.compileStmt(scopeID, stmt, compiler.NoClass); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStmt(scopeID int, stmt compiler.Stmt, classIdx int) error {
	switch s := stmt.(type) {
	case *compiler.AssignStmt:
		c.compileAssign(scopeID, s, classIdx)
		return nil

	case *compiler.ExprStmt:
		c.compileExprStmt(scopeID, s, classIdx)
		return nil

	case *compiler.ReturnStmt:
		c.compileReturn(scopeID, s, classIdx)
		return nil

	case *compiler.FuncDef:
		_, err := c.CompileFunc(scopeID, s, classIdx)
		return err

	case *compiler.ClassDef:
		return c.compileClass(scopeID, s)

	case *compiler.LangBlock:
		child := c.arena.NewBlock(compiler.BlockLanguage, scopeID)
		for _, st := range s.Body {
			if err := c.compileStmt(child.ID, st, classIdx); err != nil {
				return err
			}
		}
		return nil

	case *compiler.BlockStmt:
		child := c.arena.NewBlock(compiler.BlockConstruct, scopeID)
		for _, st := range s.Body {
			if err := c.compileStmt(child.ID, st, classIdx); err != nil {
				return err
			}
		}
		return nil

	default:
		return nil
	}
}

// CompileFunc opens a Function block under scopeID, registers the
// content-hashed procedure in scopeID's table, and lowers the body.
func (c *Compiler) CompileFunc(scopeID int, def *compiler.FuncDef, classIdx int) (*compiler.Procedure, error) {
	fnBlock := c.arena.NewBlock(compiler.BlockFunction, scopeID)
	def.ClassID = classIdx

	for _, p := range def.Params {
		fnBlock.Symbols.Define(p.Name, compiler.NoClass, fnBlock.ID)
	}

	params := make([]compiler.TypeSpec, len(def.Params))
	for i, p := range def.Params {
		params[i] = p.Type
	}
	proc := &compiler.Procedure{
		Name:         def.Name,
		Params:       params,
		RuntimeIndex: compiler.NoRuntimeIndex,
		Hash:         hash.HashFunc(def, c.classFields(classIdx), nil),
		Def:          def,
		ClassScope:   classIdx,
		ScopeID:      fnBlock.ID,
	}
	c.arena.Block(scopeID).Procedures.Add(proc)

	for _, st := range def.Body {
		if err := c.compileStmt(fnBlock.ID, st, classIdx); err != nil {
			return nil, err
		}
	}
	return proc, nil
}

// RecompileFunc re-lowers a procedure's body from its kept definition into
// its existing function block. The old body's nodes deactivate and its
// nested blocks detach first, so a binding introduced by a delta edit
// resolves inside the rebuilt body. Parameter symbols stay in place.
func (c *Compiler) RecompileFunc(p *compiler.Procedure) error {
	fnBlock := c.arena.Block(p.ScopeID)
	for _, child := range append([]int(nil), fnBlock.Children...) {
		c.graph.DeactivateScope(child)
		c.arena.Detach(child)
		delete(c.streams, child)
	}
	c.graph.DeactivateScope(p.ScopeID)
	delete(c.streams, p.ScopeID)

	for _, st := range p.Def.Body {
		if err := c.compileStmt(p.ScopeID, st, p.ClassScope); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileClass(scopeID int, def *compiler.ClassDef) error {
	classBlock := c.arena.NewBlock(compiler.BlockConstruct, scopeID)
	classBlock.ClassName = def.Name
	for _, f := range def.Fields {
		classBlock.Symbols.Define(f.Name, classBlock.ID, compiler.GlobalFunction)
	}
	for _, m := range def.Methods {
		if _, err := c.CompileFunc(classBlock.ID, m, classBlock.ID); err != nil {
			return err
		}
	}
	return nil
}

// classFields maps field names to their positional index for hashing.
func (c *Compiler) classFields(classIdx int) map[string]int {
	if classIdx == compiler.NoClass {
		return nil
	}
	fields := make(map[string]int)
	for _, s := range c.arena.Block(classIdx).Symbols.Symbols() {
		if s.ClassScope == classIdx && s.FunctionScope == compiler.GlobalFunction {
			fields[s.Name] = s.Offset
		}
	}
	return fields
}

func (c *Compiler) compileAssign(scopeID int, s *compiler.AssignStmt, classIdx int) {
	stream := c.stream(scopeID)
	fnIdx := c.arena.EnclosingFunction(scopeID)
	first := len(stream.Code)

	reads := c.collectReads(scopeID, s.Value, classIdx, fnIdx)
	c.compileExpr(scopeID, stream, s.Value, classIdx, fnIdx)

	target, ok := compiler.ResolveSymbol(c.arena, s.Target.Name, classIdx, fnIdx, scopeID)
	if !ok {
		// First use declares the binding in the current block.
		target = c.arena.Block(scopeID).Symbols.Define(s.Target.Name, compiler.NoClass, fnIdx)
	}
	stream.emit(OpStoreSym, stream.addSym(target))

	call, guides := callInfo(s.Value)
	c.exprID++
	c.graph.Add(&GraphNode{
		ExprID:        c.exprID,
		ScopeID:       scopeID,
		ClassIndex:    classIdx,
		FunctionIndex: fnIdx,
		Writes:        target,
		Reads:         reads,
		Guides:        guides,
		First:         first,
		Last:          len(stream.Code),
		IsCall:        call,
	})
}

func (c *Compiler) compileExprStmt(scopeID int, s *compiler.ExprStmt, classIdx int) {
	stream := c.stream(scopeID)
	fnIdx := c.arena.EnclosingFunction(scopeID)
	first := len(stream.Code)

	reads := c.collectReads(scopeID, s.Value, classIdx, fnIdx)
	c.compileExpr(scopeID, stream, s.Value, classIdx, fnIdx)
	stream.emit(OpPop, 0)

	call, guides := callInfo(s.Value)
	c.exprID++
	c.graph.Add(&GraphNode{
		ExprID:        c.exprID,
		ScopeID:       scopeID,
		ClassIndex:    classIdx,
		FunctionIndex: fnIdx,
		Reads:         reads,
		Guides:        guides,
		First:         first,
		Last:          len(stream.Code),
		IsCall:        call,
	})
}

func (c *Compiler) compileReturn(scopeID int, s *compiler.ReturnStmt, classIdx int) {
	stream := c.stream(scopeID)
	fnIdx := c.arena.EnclosingFunction(scopeID)
	first := len(stream.Code)

	var reads []*compiler.Symbol
	if s.Value != nil {
		reads = c.collectReads(scopeID, s.Value, classIdx, fnIdx)
		c.compileExpr(scopeID, stream, s.Value, classIdx, fnIdx)
	} else {
		stream.emit(OpConstNull, 0)
	}
	stream.emit(OpRet, 0)

	call, _ := callInfo(s.Value)
	c.exprID++
	c.graph.Add(&GraphNode{
		ExprID:        c.exprID,
		ScopeID:       scopeID,
		ClassIndex:    classIdx,
		FunctionIndex: fnIdx,
		Reads:         reads,
		First:         first,
		Last:          len(stream.Code),
		IsCall:        call,
		Returns:       true,
	})
}

// callInfo reports whether the expression performs a call and, if the
// expression is a guided call, its per-argument guides.
func callInfo(e compiler.Expr) (bool, [][]Guide) {
	call, ok := e.(*compiler.CallExpr)
	if !ok {
		return containsCall(e), nil
	}
	var guides [][]Guide
	for _, a := range call.Args {
		guides = append(guides, convertGuides(a.Guides))
	}
	return true, guides
}

func containsCall(e compiler.Expr) bool {
	switch n := e.(type) {
	case *compiler.CallExpr:
		return true
	case *compiler.BinaryExpr:
		return containsCall(n.Left) || containsCall(n.Right)
	case *compiler.UnaryExpr:
		return containsCall(n.Operand)
	case *compiler.ArrayLiteral:
		for _, el := range n.Elems {
			if containsCall(el) {
				return true
			}
		}
	}
	return false
}

func convertGuides(anns []compiler.GuideAnnotation) []Guide {
	if len(anns) == 0 {
		return nil
	}
	out := make([]Guide, len(anns))
	for i, g := range anns {
		out[i] = Guide{Index: g.Index, Longest: g.Longest}
	}
	return out
}

// collectReads resolves every identifier the expression references. Names
// that do not resolve yet contribute no trigger edge.
func (c *Compiler) collectReads(scopeID int, e compiler.Expr, classIdx, fnIdx int) []*compiler.Symbol {
	var reads []*compiler.Symbol
	seen := make(map[*compiler.Symbol]bool)
	var walk func(compiler.Expr)
	walk = func(e compiler.Expr) {
		switch n := e.(type) {
		case *compiler.Ident:
			if sym, ok := compiler.ResolveSymbol(c.arena, n.Name, classIdx, fnIdx, scopeID); ok && !seen[sym] {
				seen[sym] = true
				reads = append(reads, sym)
			}
		case *compiler.ArrayLiteral:
			for _, el := range n.Elems {
				walk(el)
			}
		case *compiler.BinaryExpr:
			walk(n.Left)
			walk(n.Right)
		case *compiler.UnaryExpr:
			walk(n.Operand)
		case *compiler.CallExpr:
			for _, a := range n.Args {
				walk(a.Value)
			}
		}
	}
	if e != nil {
		walk(e)
	}
	return reads
}

var binaryOps = map[string]Opcode{
	"+":  OpAdd,
	"-":  OpSub,
	"*":  OpMul,
	"/":  OpDiv,
	"==": OpEq,
	"<":  OpLt,
	">":  OpGt,
}

func (c *Compiler) compileExpr(scopeID int, stream *Stream, e compiler.Expr, classIdx, fnIdx int) {
	switch n := e.(type) {
	case *compiler.IntLiteral:
		stream.emit(OpConst, stream.addConst(IntValue(n.Value)))

	case *compiler.FloatLiteral:
		stream.emit(OpConst, stream.addConst(FloatValue(n.Value)))

	case *compiler.StringLiteral:
		stream.emit(OpConst, stream.addConst(StringValue(n.Value)))

	case *compiler.BoolLiteral:
		stream.emit(OpConst, stream.addConst(BoolValue(n.Value)))

	case *compiler.NullLiteral:
		stream.emit(OpConstNull, 0)

	case *compiler.Ident:
		if sym, ok := compiler.ResolveSymbol(c.arena, n.Name, classIdx, fnIdx, scopeID); ok {
			stream.emit(OpLoadSym, stream.addSym(sym))
		} else {
			// Unresolved reads evaluate to null; the front end decides
			// whether the miss was an error.
			stream.emit(OpConstNull, 0)
		}

	case *compiler.ArrayLiteral:
		for _, el := range n.Elems {
			c.compileExpr(scopeID, stream, el, classIdx, fnIdx)
		}
		stream.emit(OpMakeArray, int32(len(n.Elems)))

	case *compiler.BinaryExpr:
		c.compileExpr(scopeID, stream, n.Left, classIdx, fnIdx)
		c.compileExpr(scopeID, stream, n.Right, classIdx, fnIdx)
		if op, ok := binaryOps[n.Op]; ok {
			stream.emit(op, 0)
		} else {
			stream.emit(OpNop, 0)
		}

	case *compiler.UnaryExpr:
		c.compileExpr(scopeID, stream, n.Operand, classIdx, fnIdx)
		if n.Op == "!" {
			stream.emit(OpNot, 0)
		} else {
			stream.emit(OpNeg, 0)
		}

	case *compiler.CallExpr:
		for _, a := range n.Args {
			c.compileExpr(scopeID, stream, a.Value, classIdx, fnIdx)
		}
		var guides [][]Guide
		for _, a := range n.Args {
			guides = append(guides, convertGuides(a.Guides))
		}
		c.exprID++
		site := &CallSite{Name: n.Name, Argc: len(n.Args), Guides: guides, ExprID: c.exprID}
		stream.emit(OpCall, stream.addCall(site))

	default:
		stream.emit(OpConstNull, 0)
	}
}
