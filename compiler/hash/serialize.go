package hash

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of the frozen hashing AST.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Integers: big-endian fixed-width (int64=8B, uint16=2B)
//   - Floats: IEEE 754 big-endian 8B
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Booleans: single byte (0/1)
//   - Child nodes: serialized inline (flat)
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of an HNode tree.
// The returned bytes are suitable for hashing with SHA-256.
func Serialize(node HNode) []byte {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	s.serializeNode(node)
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeBool(v bool) {
	if v {
		s.writeByte(1)
	} else {
		s.writeByte(0)
	}
}

func (s *serializer) writeUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeFloat64(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeInt(v int) {
	s.writeInt64(int64(v))
}

func (s *serializer) writeTypeSpec(t HTypeSpec) {
	s.writeString(t.Name)
	s.writeInt(t.Rank)
}

func (s *serializer) serializeNode(node HNode) {
	switch n := node.(type) {
	case *HIntLiteral:
		s.writeByte(TagIntLiteral)
		s.writeInt64(n.Value)

	case *HFloatLiteral:
		s.writeByte(TagFloatLiteral)
		s.writeFloat64(n.Value)

	case *HStringLiteral:
		s.writeByte(TagStringLiteral)
		s.writeString(n.Value)

	case *HBoolLiteral:
		s.writeByte(TagBoolLiteral)
		s.writeBool(n.Value)

	case *HNullLiteral:
		s.writeByte(TagNullLiteral)

	case *HArrayLiteral:
		s.writeByte(TagArrayLiteral)
		s.writeUint32(uint32(len(n.Elements)))
		for _, el := range n.Elements {
			s.serializeNode(el)
		}

	case *HLocalRef:
		s.writeByte(TagLocalRef)
		s.writeUint16(n.ScopeDepth)
		s.writeUint16(n.SlotIndex)

	case *HFieldRef:
		s.writeByte(TagFieldRef)
		s.writeUint16(n.Index)

	case *HGlobalRef:
		s.writeByte(TagGlobalRef)
		s.writeString(n.FQN)

	case *HBinaryExpr:
		s.writeByte(TagBinaryExpr)
		s.writeString(n.Op)
		s.serializeNode(n.Left)
		s.serializeNode(n.Right)

	case *HUnaryExpr:
		s.writeByte(TagUnaryExpr)
		s.writeString(n.Op)
		s.serializeNode(n.Operand)

	case *HCall:
		s.writeByte(TagCall)
		s.writeString(n.Name)
		s.writeUint32(uint32(len(n.Args)))
		for _, a := range n.Args {
			s.serializeNode(a.Value)
			s.writeUint32(uint32(len(a.Guides)))
			for _, g := range a.Guides {
				s.writeByte(TagGuide)
				s.writeInt(g.Index)
				s.writeBool(g.Longest)
			}
		}

	case *HAssignment:
		s.writeByte(TagAssignment)
		s.serializeNode(n.Target)
		s.serializeNode(n.Value)

	case *HReturn:
		s.writeByte(TagReturn)
		s.serializeNode(n.Value)

	case *HExprStmt:
		s.writeByte(TagExprStmt)
		s.serializeNode(n.Expr)

	case *HBlock:
		s.writeByte(TagBlock)
		s.writeInt(n.NumLocals)
		s.writeUint32(uint32(len(n.Statements)))
		for _, st := range n.Statements {
			s.serializeNode(st)
		}

	case *HFuncDef:
		s.writeByte(TagFuncDef)
		s.writeString(n.Name)
		s.writeUint32(uint32(len(n.ParamTypes)))
		for _, t := range n.ParamTypes {
			s.writeTypeSpec(t)
		}
		s.writeTypeSpec(n.ReturnType)
		s.writeInt(n.NumLocals)
		s.writeUint32(uint32(len(n.Statements)))
		for _, st := range n.Statements {
			s.serializeNode(st)
		}

	default:
		panic(fmt.Sprintf("hash: unknown node type %T", node))
	}
}
