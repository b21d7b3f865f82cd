package compiler

// ---------------------------------------------------------------------------
// Symbol table: one per code block.
//
// A symbol is identified by (name, class scope, function scope). The same
// name may coexist at global function-scope and inside a function, and as a
// class member; the resolver picks between them.
// ---------------------------------------------------------------------------

// NoClass marks a symbol owned by no class scope.
const NoClass = -1

// GlobalFunction marks a symbol visible at global function-scope (not local
// to any function body).
const GlobalFunction = -1

// Symbol is one variable binding.
type Symbol struct {
	Name          string
	ClassScope    int // arena id of the owning class scope, or NoClass
	FunctionScope int // arena id of the owning function scope, or GlobalFunction
	Offset        int // storage slot within the owning block
}

type symbolKey struct {
	name          string
	classScope    int
	functionScope int
}

// SymbolTable maps (name, classScope, functionScope) to symbols and keeps
// definition order, which fixes storage offsets.
type SymbolTable struct {
	byKey   map[symbolKey]*Symbol
	ordered []*Symbol
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{byKey: make(map[symbolKey]*Symbol)}
}

// Define adds a binding, or returns the existing one when the key is already
// present. (name, classScope, functionScope) is unique within the table.
func (t *SymbolTable) Define(name string, classScope, functionScope int) *Symbol {
	key := symbolKey{name, classScope, functionScope}
	if s, ok := t.byKey[key]; ok {
		return s
	}
	s := &Symbol{
		Name:          name,
		ClassScope:    classScope,
		FunctionScope: functionScope,
		Offset:        len(t.ordered),
	}
	t.byKey[key] = s
	t.ordered = append(t.ordered, s)
	return s
}

// Lookup returns the symbol for the exact key, if present.
func (t *SymbolTable) Lookup(name string, classScope, functionScope int) (*Symbol, bool) {
	s, ok := t.byKey[symbolKey{name, classScope, functionScope}]
	return s, ok
}

// Len returns the number of live bindings.
func (t *SymbolTable) Len() int { return len(t.byKey) }

// Symbols returns the live bindings in definition order.
func (t *SymbolTable) Symbols() []*Symbol {
	out := make([]*Symbol, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// RemoveFunction strips every binding owned by the given (classScope,
// functionScope) pair and returns the removed symbols. Offsets of surviving
// bindings are not reassigned; slots are reclaimed on the next full build.
func (t *SymbolTable) RemoveFunction(classScope, functionScope int) []*Symbol {
	var removed []*Symbol
	kept := t.ordered[:0]
	for _, s := range t.ordered {
		if s.ClassScope == classScope && s.FunctionScope == functionScope {
			delete(t.byKey, symbolKey{s.Name, s.ClassScope, s.FunctionScope})
			removed = append(removed, s)
			continue
		}
		kept = append(kept, s)
	}
	t.ordered = kept
	return removed
}
