package hash

import (
	"crypto/sha256"

	"github.com/chazu/lattice/compiler"
)

// HashFunc computes the SHA-256 content hash of a procedure definition.
//
// The hash is computed over a deterministic serialization of the
// procedure's normalized AST with de Bruijn variable indexing. Two
// procedures with the same semantics (same body, ignoring local variable
// names and source position) produce the same hash; this is the identity
// delta compilation uses to tell an edited procedure from an unchanged one.
//
// fields maps class field names to their index in the class's field list.
// resolveGlobal maps a bare global name to its fully-qualified name.
func HashFunc(def *compiler.FuncDef, fields map[string]int, resolveGlobal func(string) string) [32]byte {
	hf := NormalizeFunc(def, fields, resolveGlobal)
	data := Serialize(hf)
	return sha256.Sum256(data)
}
