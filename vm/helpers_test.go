package vm

import (
	"testing"

	"github.com/chazu/lattice/compiler"
)

// AST construction helpers shared by the vm tests. Spans are left zero;
// nothing in the core reads them.

func intLit(v int64) compiler.Expr    { return &compiler.IntLiteral{Value: v} }
func strLit(v string) compiler.Expr   { return &compiler.StringLiteral{Value: v} }
func ident(name string) *compiler.Ident { return &compiler.Ident{Name: name} }

func arrayLit(elems ...compiler.Expr) compiler.Expr {
	return &compiler.ArrayLiteral{Elems: elems}
}

func binary(op string, l, r compiler.Expr) compiler.Expr {
	return &compiler.BinaryExpr{Op: op, Left: l, Right: r}
}

func assign(name string, value compiler.Expr) compiler.Stmt {
	return &compiler.AssignStmt{Target: ident(name), Value: value}
}

func ret(value compiler.Expr) compiler.Stmt {
	return &compiler.ReturnStmt{Value: value}
}

func call(name string, args ...compiler.Arg) compiler.Expr {
	return &compiler.CallExpr{Name: name, Args: args}
}

func arg(value compiler.Expr, guides ...compiler.GuideAnnotation) compiler.Arg {
	return compiler.Arg{Value: value, Guides: guides}
}

func guide(index int) compiler.GuideAnnotation {
	return compiler.GuideAnnotation{Index: index}
}

func guideLongest(index int) compiler.GuideAnnotation {
	return compiler.GuideAnnotation{Index: index, Longest: true}
}

func param(name, typeName string, rank int) compiler.Param {
	return compiler.Param{Name: name, Type: compiler.TypeSpec{Name: typeName, Rank: rank}}
}

func funcDef(name string, params []compiler.Param, body ...compiler.Stmt) *compiler.FuncDef {
	return &compiler.FuncDef{
		Name:       name,
		Params:     params,
		ReturnType: compiler.TypeSpec{Name: "var"},
		Body:       body,
		ClassID:    compiler.NoClass,
	}
}

// newSession builds a session with no manifest.
func newSession(t *testing.T) *Session {
	t.Helper()
	return NewSession("test", nil)
}

// compileAndRun compiles the statements into the global scope and executes.
func compileAndRun(t *testing.T, stmts []compiler.Stmt) *Session {
	t.Helper()
	s := newSession(t)
	if err := s.Compile(stmts); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := s.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	return s
}

// mustValue fetches a global's value or fails the test.
func mustValue(t *testing.T, s *Session, name string) Value {
	t.Helper()
	v, ok := s.Exec.ValueOf(name)
	if !ok {
		t.Fatalf("global %s not bound", name)
	}
	return v
}

// wantInt asserts a global holds the given integer.
func wantInt(t *testing.T, s *Session, name string, want int64) {
	t.Helper()
	v := mustValue(t, s, name)
	if v.Type != TypeInt || v.IntVal != want {
		t.Errorf("%s = %v, want %d", name, v, want)
	}
}

// flatten collects an array's leaf values depth-first.
func flatten(v Value) []Value {
	if v.Type != TypeArray || v.ArrayVal == nil {
		return []Value{v}
	}
	var out []Value
	for _, el := range v.ArrayVal.Elements {
		out = append(out, flatten(el)...)
	}
	return out
}
