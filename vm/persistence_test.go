package vm

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/lattice/compiler"
)

func openTestStore(t *testing.T) *ProcedureStore {
	t.Helper()
	ps, err := OpenProcedureStore(filepath.Join(t.TempDir(), "procs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { ps.Close() })
	return ps
}

func compiledProcedure(t *testing.T, name string, body int64) *compiler.Procedure {
	t.Helper()
	s := newSession(t)
	if err := s.Compile([]compiler.Stmt{
		funcDef(name, []compiler.Param{param("x", "int", 0)},
			ret(binary("*", ident("x"), intLit(body)))),
	}); err != nil {
		t.Fatalf("compile: %v", err)
	}
	return globalProcedure(t, s, name)
}

func TestProcedureStoreSaveLoad(t *testing.T) {
	ps := openTestStore(t)
	p := compiledProcedure(t, "double", 2)

	if err := ps.Save(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	ok, err := ps.Has(p.Hash)
	if err != nil || !ok {
		t.Fatalf("has = %v, %v; want true", ok, err)
	}

	rec, err := ps.Load(p.Hash)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Name != "double" || len(rec.Params) != 1 {
		t.Errorf("record = %+v, want double(int)", rec)
	}
}

func TestProcedureStoreMissingRecord(t *testing.T) {
	ps := openTestStore(t)
	var unknown [32]byte
	unknown[0] = 0xAB

	if _, err := ps.Load(unknown); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("load err = %v, want ErrRecordNotFound", err)
	}
	ok, err := ps.Has(unknown)
	if err != nil {
		t.Fatalf("has: %v", err)
	}
	if ok {
		t.Error("has reported an unknown hash as present")
	}
}

func TestProcedureStoreSaveIsIdempotent(t *testing.T) {
	ps := openTestStore(t)
	p := compiledProcedure(t, "triple", 3)

	if err := ps.Save(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := ps.Save(p); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	hashes, err := ps.Hashes()
	if err != nil {
		t.Fatalf("hashes: %v", err)
	}
	if len(hashes) != 1 {
		t.Errorf("hashes = %d entries, want 1", len(hashes))
	}
	if hashes[0] != p.Hash {
		t.Errorf("stored hash = %x, want %x", hashes[0], p.Hash)
	}
}

func TestProcedureStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "procs.db")
	p := compiledProcedure(t, "double", 2)

	ps, err := OpenProcedureStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := ps.Save(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := ps.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	ps2, err := OpenProcedureStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer ps2.Close()
	rec, err := ps2.Load(p.Hash)
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if rec.Name != "double" {
		t.Errorf("name = %q, want double", rec.Name)
	}
}
