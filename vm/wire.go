package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/lattice/compiler"
)

// ---------------------------------------------------------------------------
// Wire encoding for session state that leaves the process: snapshot sets
// (tooling save/restore) and procedure records (the persistent store).
// Canonical CBOR keeps the encoding deterministic.
// ---------------------------------------------------------------------------

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// SnapshotSet is a session's full per-scope snapshot list.
type SnapshotSet struct {
	SessionID string          `cbor:"1,keyasint"`
	Snapshots []ScopeSnapshot `cbor:"2,keyasint"`
}

// MarshalSnapshotSet serializes a SnapshotSet to CBOR bytes.
func MarshalSnapshotSet(s *SnapshotSet) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshotSet deserializes a SnapshotSet from CBOR bytes.
func UnmarshalSnapshotSet(data []byte) (*SnapshotSet, error) {
	var s SnapshotSet
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("vm: unmarshal snapshot set: %w", err)
	}
	return &s, nil
}

// ProcedureRecord is the persisted form of a compiled procedure: enough to
// recognize and re-register an unchanged body in a later session.
type ProcedureRecord struct {
	Name       string              `cbor:"1,keyasint"`
	Params     []compiler.TypeSpec `cbor:"2,keyasint"`
	ReturnType compiler.TypeSpec   `cbor:"3,keyasint"`
	Hash       []byte              `cbor:"4,keyasint"`
}

// RecordOf builds the wire record for a procedure.
func RecordOf(p *compiler.Procedure) *ProcedureRecord {
	r := &ProcedureRecord{
		Name:   p.Name,
		Params: p.Params,
		Hash:   append([]byte(nil), p.Hash[:]...),
	}
	if p.Def != nil {
		r.ReturnType = p.Def.ReturnType
	}
	return r
}

// MarshalProcedureRecord serializes a ProcedureRecord to CBOR bytes.
func MarshalProcedureRecord(r *ProcedureRecord) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalProcedureRecord deserializes a ProcedureRecord from CBOR bytes.
func UnmarshalProcedureRecord(data []byte) (*ProcedureRecord, error) {
	var r ProcedureRecord
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("vm: unmarshal procedure record: %w", err)
	}
	return &r, nil
}
