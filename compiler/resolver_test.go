package compiler

import "testing"

func TestResolveSymbolLexicalClimb(t *testing.T) {
	a := NewArena()
	outer := a.NewBlock(BlockConstruct, 0)
	inner := a.NewBlock(BlockConstruct, outer.ID)

	g := a.Global().Symbols.Define("x", NoClass, GlobalFunction)
	mid := outer.Symbols.Define("y", NoClass, GlobalFunction)

	// Nearest declaration wins; misses climb parent links.
	if s, ok := ResolveSymbol(a, "y", NoClass, GlobalFunction, inner.ID); !ok || s != mid {
		t.Error("y did not resolve to the enclosing construct's binding")
	}
	if s, ok := ResolveSymbol(a, "x", NoClass, GlobalFunction, inner.ID); !ok || s != g {
		t.Error("x did not resolve to the global binding")
	}
	if _, ok := ResolveSymbol(a, "zzz", NoClass, GlobalFunction, inner.ID); ok {
		t.Error("undefined name resolved")
	}
}

func TestResolveSymbolShadowing(t *testing.T) {
	a := NewArena()
	outer := a.NewBlock(BlockConstruct, 0)

	far := a.Global().Symbols.Define("x", NoClass, GlobalFunction)
	near := outer.Symbols.Define("x", NoClass, GlobalFunction)

	if s, _ := ResolveSymbol(a, "x", NoClass, GlobalFunction, outer.ID); s != near {
		t.Error("inner binding did not shadow the outer one")
	}
	if s, _ := ResolveSymbol(a, "x", NoClass, GlobalFunction, 0); s != far {
		t.Error("resolution from the global scope picked the inner binding")
	}
}

func TestResolveSymbolStopsAtFunctionBoundary(t *testing.T) {
	a := NewArena()
	fn := a.NewBlock(BlockFunction, 0)
	body := a.NewBlock(BlockConstruct, fn.ID)

	// A global-function-scope binding of the same name exists outside,
	// but the climb ends at the function block.
	a.Global().Symbols.Define("n", NoClass, GlobalFunction)
	local := fn.Symbols.Define("n", NoClass, fn.ID)

	if s, ok := ResolveSymbol(a, "n", NoClass, fn.ID, body.ID); !ok || s != local {
		t.Error("function local did not win inside the function")
	}

	// A name bound only outside the function is invisible from inside
	// when resolving at the function's scope.
	a.Global().Symbols.Define("outerOnly", NoClass, GlobalFunction)
	if _, ok := ResolveSymbol(a, "outerOnly", NoClass, fn.ID, body.ID); ok {
		t.Error("climb crossed the function boundary")
	}
}

func TestResolveSymbolFunctionBlockGlobalFallback(t *testing.T) {
	// The climb's last chance at a function boundary is a search of the
	// function block itself at global function-scope.
	a := NewArena()
	fn := a.NewBlock(BlockFunction, 0)
	body := a.NewBlock(BlockConstruct, fn.ID)

	hoisted := fn.Symbols.Define("h", NoClass, GlobalFunction)
	if s, ok := ResolveSymbol(a, "h", NoClass, fn.ID, body.ID); !ok || s != hoisted {
		t.Error("hoisted binding in the function block did not resolve")
	}
}

func TestResolveSymbolClassMemberBeforeLexical(t *testing.T) {
	a := NewArena()
	class := a.NewBlock(BlockConstruct, 0)
	method := a.NewBlock(BlockFunction, class.ID)

	// The lexical chain also binds the name, but the class member search
	// runs first.
	a.Global().Symbols.Define("v", NoClass, GlobalFunction)
	memberLocal := class.Symbols.Define("v", class.ID, method.ID)
	field := class.Symbols.Define("w", class.ID, GlobalFunction)

	if s, _ := ResolveSymbol(a, "v", class.ID, method.ID, method.ID); s != memberLocal {
		t.Error("class member local did not take precedence")
	}
	// A method-scoped miss falls through to the class's fields before the
	// lexical chain is consulted.
	if s, ok := ResolveSymbol(a, "w", class.ID, method.ID, method.ID); !ok || s != field {
		t.Error("class field fall-through failed")
	}
}

func TestResolveSymbolSkipsDetachedBlocks(t *testing.T) {
	a := NewArena()
	outer := a.NewBlock(BlockConstruct, 0)
	inner := a.NewBlock(BlockConstruct, outer.ID)

	outer.Symbols.Define("x", NoClass, GlobalFunction)
	g := a.Global().Symbols.Define("x", NoClass, GlobalFunction)
	outer.Detached = true

	if s, ok := ResolveSymbol(a, "x", NoClass, GlobalFunction, inner.ID); !ok || s != g {
		t.Error("detached block's binding was not skipped")
	}
}

func TestResolveProcedureWalksUpward(t *testing.T) {
	a := NewArena()
	outer := a.NewBlock(BlockConstruct, 0)
	inner := a.NewBlock(BlockConstruct, outer.ID)

	intArg := []TypeSpec{{Name: "int"}}
	global := &Procedure{Name: "f", Params: intArg, Hash: [32]byte{1}}
	near := &Procedure{Name: "f", Params: intArg, Hash: [32]byte{2}}
	a.Global().Procedures.Add(global)
	outer.Procedures.Add(near)

	if p, ok := ResolveProcedure(a, "f", intArg, inner.ID); !ok || p != near {
		t.Error("nearest enclosing procedure did not win")
	}
	if p, ok := ResolveProcedure(a, "f", intArg, 0); !ok || p != global {
		t.Error("resolution from the global scope picked the nested table")
	}
	if _, ok := ResolveProcedure(a, "g", intArg, inner.ID); ok {
		t.Error("undefined procedure resolved")
	}
	// Sibling tables are never searched.
	sibling := a.NewBlock(BlockConstruct, 0)
	sibling.Procedures.Add(&Procedure{Name: "onlyHere", Params: intArg, Hash: [32]byte{3}})
	if _, ok := ResolveProcedure(a, "onlyHere", intArg, inner.ID); ok {
		t.Error("procedure resolution searched a sibling scope")
	}
}
