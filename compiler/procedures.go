package compiler

// ---------------------------------------------------------------------------
// Procedure table: one per code block.
//
// A procedure is identified across recompiles by its content hash, computed
// over the normalized body (compiler/hash). Name and signature identify it
// for call resolution only.
// ---------------------------------------------------------------------------

// Procedure is one compiled function definition.
type Procedure struct {
	Name   string
	Params []TypeSpec

	// RuntimeIndex is the flat runtime index of the owning Function block.
	RuntimeIndex int

	// Hash identifies the procedure body across recompiles. Two
	// definitions with the same normalized body share a hash regardless
	// of source position or local variable names.
	Hash [32]byte

	// Def is the definition the body was compiled from; kept so a delta
	// compile can re-emit the body without the front end resending it.
	Def *FuncDef

	// ClassScope/ScopeID locate the owner in the arena.
	ClassScope int
	ScopeID    int
}

// ProcedureTable holds the procedures declared in one block, in declaration
// order.
type ProcedureTable struct {
	procs []*Procedure
}

// NewProcedureTable creates an empty procedure table.
func NewProcedureTable() *ProcedureTable {
	return &ProcedureTable{}
}

// Add appends a procedure. A procedure with the same hash replaces the
// existing entry in place, preserving declaration order; otherwise a
// same-name, same-arity entry with a different hash is superseded (the
// edited-function case).
func (t *ProcedureTable) Add(p *Procedure) {
	for i, q := range t.procs {
		if q.Hash == p.Hash || (q.Name == p.Name && len(q.Params) == len(p.Params)) {
			t.procs[i] = p
			return
		}
	}
	t.procs = append(t.procs, p)
}

// Remove deletes the procedure with the given hash, reporting whether an
// entry was removed.
func (t *ProcedureTable) Remove(hash [32]byte) bool {
	for i, q := range t.procs {
		if q.Hash == hash {
			t.procs = append(t.procs[:i], t.procs[i+1:]...)
			return true
		}
	}
	return false
}

// LookupHash returns the procedure with the given content hash.
func (t *ProcedureTable) LookupHash(hash [32]byte) (*Procedure, bool) {
	for _, q := range t.procs {
		if q.Hash == hash {
			return q, true
		}
	}
	return nil, false
}

// Match returns the first procedure in declaration order whose name matches
// and whose formal types can accept the given argument types.
func (t *ProcedureTable) Match(name string, argTypes []TypeSpec) (*Procedure, bool) {
	for _, q := range t.procs {
		if q.Name != name || len(q.Params) != len(argTypes) {
			continue
		}
		ok := true
		for i, formal := range q.Params {
			if !Coercible(argTypes[i], formal) {
				ok = false
				break
			}
		}
		if ok {
			return q, true
		}
	}
	return nil, false
}

// Len returns the number of procedures in the table.
func (t *ProcedureTable) Len() int { return len(t.procs) }

// Procedures returns the table contents in declaration order.
func (t *ProcedureTable) Procedures() []*Procedure {
	out := make([]*Procedure, len(t.procs))
	copy(out, t.procs)
	return out
}

// Coercible reports whether an actual argument of type have may be passed
// to a formal of type want. "var" formals accept anything. An actual of
// higher rank than a scalar formal is still coercible: the call replicates
// over it (rank-based auto-replication).
func Coercible(have, want TypeSpec) bool {
	if want.IsVar() {
		return true
	}
	if have.IsVar() {
		return true
	}
	if have.Name != want.Name && !numericWiden(have.Name, want.Name) {
		return false
	}
	return have.Rank >= want.Rank
}

func numericWiden(have, want string) bool {
	return have == "int" && want == "double"
}
