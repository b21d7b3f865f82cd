package hash

import (
	"testing"

	"github.com/chazu/lattice/compiler"
)

func intLit(v int64) compiler.Expr { return &compiler.IntLiteral{Value: v} }
func ident(name string) *compiler.Ident {
	return &compiler.Ident{Name: name}
}

func mul(l, r compiler.Expr) compiler.Expr {
	return &compiler.BinaryExpr{Op: "*", Left: l, Right: r}
}

func def(name string, params []string, body ...compiler.Stmt) *compiler.FuncDef {
	d := &compiler.FuncDef{
		Name:       name,
		ReturnType: compiler.TypeSpec{Name: "var"},
		Body:       body,
		ClassID:    compiler.NoClass,
	}
	for _, p := range params {
		d.Params = append(d.Params, compiler.Param{
			Name: p,
			Type: compiler.TypeSpec{Name: "int"},
		})
	}
	return d
}

func assign(target string, value compiler.Expr) compiler.Stmt {
	return &compiler.AssignStmt{Target: ident(target), Value: value}
}

func ret(value compiler.Expr) compiler.Stmt {
	return &compiler.ReturnStmt{Value: value}
}

func TestHashDeterministic(t *testing.T) {
	d := def("f", []string{"x"},
		assign("y", mul(ident("x"), intLit(2))),
		ret(ident("y")))
	h1 := HashFunc(d, nil, nil)
	h2 := HashFunc(d, nil, nil)
	if h1 != h2 {
		t.Error("hashing the same definition twice gave different results")
	}
	if h1 == ([32]byte{}) {
		t.Error("hash is the zero value")
	}
}

func TestHashIgnoresLocalNames(t *testing.T) {
	// Local variable and parameter names normalize to de Bruijn indices;
	// renaming them cannot change the hash.
	a := def("f", []string{"x"},
		assign("y", mul(ident("x"), intLit(2))),
		ret(ident("y")))
	b := def("f", []string{"input"},
		assign("tmp", mul(ident("input"), intLit(2))),
		ret(ident("tmp")))
	if HashFunc(a, nil, nil) != HashFunc(b, nil, nil) {
		t.Error("renaming locals changed the hash")
	}
}

func TestHashIgnoresSourcePositions(t *testing.T) {
	a := def("f", []string{"x"}, ret(ident("x")))
	b := def("f", []string{"x"}, ret(ident("x")))
	b.SpanVal = compiler.Span{Start: compiler.Position{Line: 400, Column: 7}}
	b.Body[0].(*compiler.ReturnStmt).SpanVal = compiler.Span{Start: compiler.Position{Line: 401}}
	if HashFunc(a, nil, nil) != HashFunc(b, nil, nil) {
		t.Error("source positions leaked into the hash")
	}
}

func TestHashSensitiveToBody(t *testing.T) {
	base := def("f", []string{"x"}, ret(mul(ident("x"), intLit(2))))
	cases := []struct {
		name  string
		other *compiler.FuncDef
	}{
		{"different constant", def("f", []string{"x"}, ret(mul(ident("x"), intLit(3))))},
		{"different name", def("g", []string{"x"}, ret(mul(ident("x"), intLit(2))))},
		{"different arity", def("f", []string{"x", "y"}, ret(mul(ident("x"), intLit(2))))},
		{"different operator", def("f", []string{"x"},
			ret(&compiler.BinaryExpr{Op: "+", Left: ident("x"), Right: intLit(2)}))},
	}
	h := HashFunc(base, nil, nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if HashFunc(tc.other, nil, nil) == h {
				t.Error("semantically different definition collided")
			}
		})
	}
}

func TestHashDistinguishesReferenceKinds(t *testing.T) {
	// The same bare name can be a local, a class field, or a global
	// depending on context; each classification hashes differently.
	local := def("f", []string{"v"}, ret(ident("v")))
	global := def("f", nil, ret(ident("v")))
	field := def("f", nil, ret(ident("v")))

	hLocal := HashFunc(local, nil, nil)
	hGlobal := HashFunc(global, nil, nil)
	hField := HashFunc(field, map[string]int{"v": 0}, nil)

	if hLocal == hGlobal || hLocal == hField || hGlobal == hField {
		t.Errorf("reference kinds collided: local %x global %x field %x",
			hLocal[:4], hGlobal[:4], hField[:4])
	}
}

func TestHashUsesQualifiedGlobalNames(t *testing.T) {
	d := def("f", nil, ret(ident("limit")))
	h1 := HashFunc(d, nil, func(name string) string { return "core." + name })
	h2 := HashFunc(d, nil, func(name string) string { return "app." + name })
	if h1 == h2 {
		t.Error("globals with different qualified names collided")
	}
}

func TestHashNestedBlockRenameInvariance(t *testing.T) {
	mk := func(inner string) *compiler.FuncDef {
		return def("f", []string{"x"},
			&compiler.BlockStmt{Body: []compiler.Stmt{
				assign(inner, mul(ident("x"), intLit(2))),
				assign("x", ident(inner)),
			}},
			ret(ident("x")))
	}
	if HashFunc(mk("a"), nil, nil) != HashFunc(mk("b"), nil, nil) {
		t.Error("renaming a block-scoped local changed the hash")
	}
}

func TestSerializeVersionPrefix(t *testing.T) {
	data := Serialize(&HNullLiteral{})
	if len(data) == 0 || data[0] != HashVersion {
		t.Errorf("serialization does not start with version byte %#x", HashVersion)
	}
}

func TestTagsUnique(t *testing.T) {
	seen := make(map[byte]bool)
	for _, tag := range allTags {
		if seen[tag] {
			t.Errorf("tag %#x assigned twice", tag)
		}
		seen[tag] = true
	}
}

func TestSerializeUnknownNodePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic serializing an unknown node type")
		}
	}()
	Serialize(nil)
}
