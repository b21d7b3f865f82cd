package vm

import (
	"testing"

	"github.com/chazu/lattice/compiler"
)

func TestExecuteArithmetic(t *testing.T) {
	s := compileAndRun(t, []compiler.Stmt{
		assign("x", binary("*", binary("+", intLit(2), intLit(3)), intLit(4))),
		assign("y", binary("-", intLit(10), intLit(7))),
	})
	wantInt(t, s, "x", 20)
	wantInt(t, s, "y", 3)
}

func TestExecuteStringConcat(t *testing.T) {
	s := compileAndRun(t, []compiler.Stmt{
		assign("msg", binary("+", strLit("foo"), strLit("bar"))),
	})
	v := mustValue(t, s, "msg")
	if v.Type != TypeString || v.StringVal != "foobar" {
		t.Errorf("msg = %v, want \"foobar\"", v)
	}
}

func TestExecuteStringConcatFormatsOperands(t *testing.T) {
	s := compileAndRun(t, []compiler.Stmt{
		assign("msg", binary("+", strLit("n="), intLit(42))),
		assign("rev", binary("+", intLit(7), strLit("!"))),
	})
	if v := mustValue(t, s, "msg"); v.Type != TypeString || v.StringVal != "n=42" {
		t.Errorf("msg = %v, want \"n=42\"", v)
	}
	if v := mustValue(t, s, "rev"); v.Type != TypeString || v.StringVal != "7!" {
		t.Errorf("rev = %v, want \"7!\"", v)
	}
}

func TestExecuteDivisionByZero(t *testing.T) {
	s := compileAndRun(t, []compiler.Stmt{
		assign("q", binary("/", intLit(1), intLit(0))),
	})
	if v := mustValue(t, s, "q"); v.Type != TypeNull {
		t.Errorf("1/0 = %v, want null", v)
	}
}

func TestExecuteArrayLiteral(t *testing.T) {
	s := compileAndRun(t, []compiler.Stmt{
		assign("xs", arrayLit(intLit(1), binary("+", intLit(1), intLit(1)), intLit(3))),
	})
	v := mustValue(t, s, "xs")
	if v.Len() != 3 {
		t.Fatalf("xs = %v, want 3 elements", v)
	}
	if v.ArrayVal.Elements[1].IntVal != 2 {
		t.Errorf("xs[1] = %v, want 2", v.ArrayVal.Elements[1])
	}
}

func TestExecuteChainedReads(t *testing.T) {
	s := compileAndRun(t, []compiler.Stmt{
		assign("a", intLit(1)),
		assign("b", binary("+", ident("a"), intLit(1))),
		assign("c", binary("+", ident("b"), intLit(1))),
	})
	wantInt(t, s, "a", 1)
	wantInt(t, s, "b", 2)
	wantInt(t, s, "c", 3)
}

func TestExecuteFunctionCall(t *testing.T) {
	s := compileAndRun(t, []compiler.Stmt{
		funcDef("double", []compiler.Param{param("x", "int", 0)},
			ret(binary("*", ident("x"), intLit(2)))),
		assign("y", call("double", arg(intLit(21)))),
	})
	wantInt(t, s, "y", 42)
}

func TestExecuteFunctionLocalsDoNotLeak(t *testing.T) {
	// A parameter binding inside a call must not survive the call or
	// shadow an outer global afterwards.
	s := compileAndRun(t, []compiler.Stmt{
		funcDef("id", []compiler.Param{param("v", "var", 0)}, ret(ident("v"))),
		assign("y", call("id", arg(intLit(5)))),
	})
	wantInt(t, s, "y", 5)
	if _, ok := s.Exec.ValueOf("v"); ok {
		t.Error("parameter binding leaked out of the call frame")
	}
}

func TestExecuteAutoReplication(t *testing.T) {
	// A collection passed to a scalar formal replicates the call per
	// element when no explicit guide appears anywhere on the call.
	s := compileAndRun(t, []compiler.Stmt{
		funcDef("double", []compiler.Param{param("x", "int", 0)},
			ret(binary("*", ident("x"), intLit(2)))),
		assign("xs", arrayLit(intLit(1), intLit(2), intLit(3))),
		assign("ys", call("double", arg(ident("xs")))),
	})
	ys := mustValue(t, s, "ys")
	leaves := flatten(ys)
	want := []int64{2, 4, 6}
	if len(leaves) != len(want) {
		t.Fatalf("ys = %v, want %d elements", ys, len(want))
	}
	for i, w := range want {
		if leaves[i].IntVal != w {
			t.Errorf("ys[%d] = %v, want %d", i, leaves[i], w)
		}
	}
}

func TestExecuteGuidedZipCall(t *testing.T) {
	s := compileAndRun(t, []compiler.Stmt{
		funcDef("add", []compiler.Param{param("a", "int", 0), param("b", "int", 0)},
			ret(binary("+", ident("a"), ident("b")))),
		assign("xs", arrayLit(intLit(1), intLit(2), intLit(3))),
		assign("ys", arrayLit(intLit(10), intLit(20), intLit(30))),
		assign("zs", call("add", arg(ident("xs"), guide(1)), arg(ident("ys"), guide(1)))),
	})
	leaves := flatten(mustValue(t, s, "zs"))
	want := []int64{11, 22, 33}
	for i, w := range want {
		if leaves[i].IntVal != w {
			t.Errorf("zs[%d] = %v, want %d", i, leaves[i], w)
		}
	}
}

func TestExecuteGuidedCartesianCall(t *testing.T) {
	// Distinct guide indices: index 1 is the outer dimension of the
	// result, index 2 the inner.
	s := compileAndRun(t, []compiler.Stmt{
		funcDef("pair", []compiler.Param{param("a", "int", 0), param("b", "int", 0)},
			ret(binary("+", binary("*", ident("a"), intLit(100)), ident("b")))),
		assign("xs", arrayLit(intLit(1), intLit(2))),
		assign("ys", arrayLit(intLit(3), intLit(4), intLit(5))),
		assign("grid", call("pair", arg(ident("xs"), guide(1)), arg(ident("ys"), guide(2)))),
	})
	grid := mustValue(t, s, "grid")
	if grid.Len() != 2 {
		t.Fatalf("grid = %v, want 2 rows", grid)
	}
	row0 := grid.ArrayVal.Elements[0]
	if row0.Len() != 3 {
		t.Fatalf("grid[0] = %v, want 3 columns", row0)
	}
	if got := row0.ArrayVal.Elements[2].IntVal; got != 105 {
		t.Errorf("grid[0][2] = %d, want 105", got)
	}
}

func TestExecuteLongestGuide(t *testing.T) {
	s := compileAndRun(t, []compiler.Stmt{
		funcDef("add", []compiler.Param{param("a", "int", 0), param("b", "int", 0)},
			ret(binary("+", ident("a"), ident("b")))),
		assign("xs", arrayLit(intLit(1), intLit(2))),
		assign("ys", arrayLit(intLit(10), intLit(20), intLit(30))),
		assign("zs", call("add", arg(ident("xs"), guideLongest(1)), arg(ident("ys"), guide(1)))),
	})
	leaves := flatten(mustValue(t, s, "zs"))
	want := []int64{11, 22, 32} // xs pads with its last element
	if len(leaves) != len(want) {
		t.Fatalf("zs has %d elements, want %d", len(leaves), len(want))
	}
	for i, w := range want {
		if leaves[i].IntVal != w {
			t.Errorf("zs[%d] = %v, want %d", i, leaves[i], w)
		}
	}
}

func TestExecuteUnresolvedCall(t *testing.T) {
	s := newSession(t)
	if err := s.Compile([]compiler.Stmt{
		assign("y", call("nope", arg(intLit(1)))),
	}); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if err := s.Execute(); err == nil {
		t.Error("expected an error calling an undefined procedure")
	}
}

func TestExecuteOverloadByDeclarationOrder(t *testing.T) {
	// Two procedures share a name; resolution picks the first declared
	// whose formals accept the arguments.
	s := compileAndRun(t, []compiler.Stmt{
		funcDef("f", []compiler.Param{param("x", "int", 0)}, ret(intLit(1))),
		funcDef("f", []compiler.Param{param("x", "string", 0)}, ret(intLit(2))),
		assign("a", call("f", arg(strLit("s")))),
	})
	wantInt(t, s, "a", 2)
}

func TestExecuteNestedConstructScope(t *testing.T) {
	// Statements inside construct blocks run in declaration order with the
	// enclosing scope's statements.
	s := compileAndRun(t, []compiler.Stmt{
		assign("a", intLit(1)),
		&compiler.BlockStmt{Body: []compiler.Stmt{
			assign("b", binary("+", ident("a"), intLit(1))),
		}},
		assign("c", binary("+", ident("a"), intLit(10))),
	})
	wantInt(t, s, "c", 11)

	// b lives in the construct block's own symbol table, visible when
	// resolution starts inside it.
	childID := s.Arena.Block(0).Children[0]
	sym, ok := compiler.ResolveSymbol(s.Arena, "b", compiler.NoClass, compiler.GlobalFunction, childID)
	if !ok {
		t.Fatal("b did not resolve from the construct scope")
	}
	if v, _ := s.Exec.Value(sym); v.Type != TypeInt || v.IntVal != 2 {
		t.Errorf("b = %v, want 2", v)
	}
}
