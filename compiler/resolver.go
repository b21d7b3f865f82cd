package compiler

// ---------------------------------------------------------------------------
// Resolver: nearest-visible-declaration lookup across the scope tree.
//
// Symbol resolution is two-phase. With a class scope in hand, the class's
// own members are searched before the lexical chain: first restricted to
// the requesting function scope, then the class's fields at global
// function-scope. The lexical walk then climbs parent links, and crossing
// into a Function-kind block ends the climb; the function boundary changes
// which enclosing globals are visible.
//
// Procedure resolution walks purely upward through parent links, never
// sideways, and returns the nearest signature match.
// ---------------------------------------------------------------------------

// ResolveSymbol finds the nearest visible symbol for name, starting at the
// block startScope. classScope is the arena id of the requesting class scope
// (NoClass outside a class) and functionScope the arena id of the requesting
// function scope (GlobalFunction outside a function). A miss is reported by
// the second return value, never by a panic: the caller decides whether a
// miss is a first-use declaration or an error.
func ResolveSymbol(a *Arena, name string, classScope, functionScope, startScope int) (*Symbol, bool) {
	if classScope != NoClass {
		cb := a.Block(classScope)
		if s, ok := cb.Symbols.Lookup(name, classScope, functionScope); ok {
			return s, true
		}
		// Class fields live at global function-scope. This fall-through
		// happens before the lexical chain is consulted.
		if s, ok := cb.Symbols.Lookup(name, classScope, GlobalFunction); ok {
			return s, true
		}
	}

	cur := startScope
	for cur != NoParent {
		b := a.Block(cur)
		if b.Detached {
			cur = b.Parent
			continue
		}
		if s, ok := b.Symbols.Lookup(name, NoClass, functionScope); ok {
			return s, true
		}
		if b.Kind == BlockFunction {
			// The upward walk stops at the function boundary. One
			// last search in the function block at global
			// function-scope catches bindings hoisted there.
			if s, ok := b.Symbols.Lookup(name, NoClass, GlobalFunction); ok {
				return s, true
			}
			return nil, false
		}
		cur = b.Parent
	}
	return nil, false
}

// ResolveProcedure finds the nearest procedure matching name and a coercible
// argument-type signature, walking from startScope up through parent links.
func ResolveProcedure(a *Arena, name string, argTypes []TypeSpec, startScope int) (*Procedure, bool) {
	for cur := startScope; cur != NoParent; cur = a.Block(cur).Parent {
		b := a.Block(cur)
		if b.Detached {
			continue
		}
		if p, ok := b.Procedures.Match(name, argTypes); ok {
			return p, true
		}
	}
	return nil, false
}
