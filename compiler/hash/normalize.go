package hash

import (
	"github.com/chazu/lattice/compiler"
)

// ---------------------------------------------------------------------------
// AST Normalization: compiler AST → frozen hashing AST
//
// Walks the compiler's working AST and produces the frozen hashing AST with
// de Bruijn indices for local variables, positional indices for class
// fields, and fully-qualified names for globals. Source positions never
// enter the result, so unrelated edits elsewhere in a file cannot change a
// procedure's hash.
// ---------------------------------------------------------------------------

// scope tracks variables at one nesting level.
type scope struct {
	vars map[string]uint16 // variable name → slot index
}

// normalizer holds state for the normalization walk.
type normalizer struct {
	scopes        []scope             // scope stack: [0]=function, [1]=first block, etc.
	fields        map[string]int      // class field name → index
	resolveGlobal func(string) string // bare name → FQN
}

// NormalizeFunc transforms a compiler FuncDef into a frozen HFuncDef.
//
// fields maps class field names to their index in the class's field list.
// resolveGlobal maps a bare global name to its fully-qualified name.
func NormalizeFunc(def *compiler.FuncDef, fields map[string]int, resolveGlobal func(string) string) *HFuncDef {
	if resolveGlobal == nil {
		resolveGlobal = func(name string) string { return name }
	}
	if fields == nil {
		fields = make(map[string]int)
	}

	n := &normalizer{
		fields:        fields,
		resolveGlobal: resolveGlobal,
	}

	// Function-level scope: parameters first, then body locals in
	// first-assignment order.
	vars := make(map[string]uint16)
	slot := uint16(0)
	for _, p := range def.Params {
		vars[p.Name] = slot
		slot++
	}
	locals := localTargets(def.Body, vars)
	for _, name := range locals {
		vars[name] = slot
		slot++
	}
	n.scopes = []scope{{vars: vars}}

	h := &HFuncDef{
		Name:       def.Name,
		ReturnType: HTypeSpec{Name: def.ReturnType.Name, Rank: def.ReturnType.Rank},
		NumLocals:  len(locals),
	}
	for _, p := range def.Params {
		h.ParamTypes = append(h.ParamTypes, HTypeSpec{Name: p.Type.Name, Rank: p.Type.Rank})
	}
	for _, s := range def.Body {
		h.Statements = append(h.Statements, n.normalizeStmt(s))
	}
	return h
}

// localTargets collects assignment-target names in first-assignment order,
// skipping names already bound in outer.
func localTargets(body []compiler.Stmt, outer map[string]uint16) []string {
	var names []string
	seen := make(map[string]bool)
	for _, s := range body {
		a, ok := s.(*compiler.AssignStmt)
		if !ok {
			continue
		}
		name := a.Target.Name
		if _, bound := outer[name]; bound || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// lookupVar resolves a name against the scope stack, innermost first.
func (n *normalizer) lookupVar(name string) (depth, slot uint16, ok bool) {
	for d := len(n.scopes) - 1; d >= 0; d-- {
		if s, found := n.scopes[d].vars[name]; found {
			return uint16(len(n.scopes) - 1 - d), s, true
		}
	}
	return 0, 0, false
}

func (n *normalizer) normalizeStmt(stmt compiler.Stmt) HNode {
	switch s := stmt.(type) {
	case *compiler.AssignStmt:
		return &HAssignment{
			Target: n.normalizeRef(s.Target.Name),
			Value:  n.normalizeExpr(s.Value),
		}

	case *compiler.ExprStmt:
		return &HExprStmt{Expr: n.normalizeExpr(s.Value)}

	case *compiler.ReturnStmt:
		if s.Value == nil {
			return &HReturn{Value: &HNullLiteral{}}
		}
		return &HReturn{Value: n.normalizeExpr(s.Value)}

	case *compiler.BlockStmt:
		return n.normalizeBlock(s)

	default:
		// Nested definitions hash independently; a null placeholder keeps
		// the walk total.
		return &HNullLiteral{}
	}
}

func (n *normalizer) normalizeBlock(b *compiler.BlockStmt) HNode {
	visible := make(map[string]uint16)
	for _, sc := range n.scopes {
		for name := range sc.vars {
			visible[name] = 0
		}
	}
	locals := localTargets(b.Body, visible)
	vars := make(map[string]uint16, len(locals))
	for i, name := range locals {
		vars[name] = uint16(i)
	}
	n.scopes = append(n.scopes, scope{vars: vars})

	h := &HBlock{NumLocals: len(locals)}
	for _, s := range b.Body {
		h.Statements = append(h.Statements, n.normalizeStmt(s))
	}

	n.scopes = n.scopes[:len(n.scopes)-1]
	return h
}

// normalizeRef classifies a bare name: local (de Bruijn), class field
// (positional), or global (fully qualified).
func (n *normalizer) normalizeRef(name string) HNode {
	if depth, slot, ok := n.lookupVar(name); ok {
		return &HLocalRef{ScopeDepth: depth, SlotIndex: slot}
	}
	if idx, ok := n.fields[name]; ok {
		return &HFieldRef{Index: uint16(idx)}
	}
	return &HGlobalRef{FQN: n.resolveGlobal(name)}
}

func (n *normalizer) normalizeExpr(expr compiler.Expr) HNode {
	switch e := expr.(type) {
	case *compiler.IntLiteral:
		return &HIntLiteral{Value: e.Value}

	case *compiler.FloatLiteral:
		return &HFloatLiteral{Value: e.Value}

	case *compiler.StringLiteral:
		return &HStringLiteral{Value: e.Value}

	case *compiler.BoolLiteral:
		return &HBoolLiteral{Value: e.Value}

	case *compiler.NullLiteral:
		return &HNullLiteral{}

	case *compiler.Ident:
		return n.normalizeRef(e.Name)

	case *compiler.ArrayLiteral:
		h := &HArrayLiteral{}
		for _, el := range e.Elems {
			h.Elements = append(h.Elements, n.normalizeExpr(el))
		}
		return h

	case *compiler.BinaryExpr:
		return &HBinaryExpr{
			Op:    e.Op,
			Left:  n.normalizeExpr(e.Left),
			Right: n.normalizeExpr(e.Right),
		}

	case *compiler.UnaryExpr:
		return &HUnaryExpr{Op: e.Op, Operand: n.normalizeExpr(e.Operand)}

	case *compiler.CallExpr:
		h := &HCall{Name: e.Name}
		for _, a := range e.Args {
			arg := HArg{Value: n.normalizeExpr(a.Value)}
			for _, g := range a.Guides {
				arg.Guides = append(arg.Guides, HGuide{Index: g.Index, Longest: g.Longest})
			}
			h.Args = append(h.Args, arg)
		}
		return h

	default:
		return &HNullLiteral{}
	}
}
