package vm

import (
	"fmt"

	"github.com/chazu/lattice/compiler"
)

// ---------------------------------------------------------------------------
// Instruction streams.
//
// Each code block owns one flat stream; a graph node executes a contiguous
// window of its owning block's stream. The full production interpreter is an
// external consumer of these streams; the opcode set here is the subset the
// reference executor needs.
// ---------------------------------------------------------------------------

// Opcode represents an instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// Stack manipulation (0x00-0x0F)
	OpNop Opcode = 0x00 // No operation
	OpPop Opcode = 0x01 // Pop top of stack

	// Constants (0x10-0x1F)
	OpConst     Opcode = 0x10 // Push constant from pool: OpConst <index>
	OpConstNull Opcode = 0x11 // Push null

	// Symbols (0x20-0x2F)
	OpLoadSym  Opcode = 0x20 // Push symbol value: OpLoadSym <sym index>
	OpStoreSym Opcode = 0x21 // Pop and store to symbol: OpStoreSym <sym index>

	// Arithmetic / comparison (0x50-0x5F)
	OpAdd Opcode = 0x50 // Pop two, push sum
	OpSub Opcode = 0x51 // Pop two, push difference
	OpMul Opcode = 0x52 // Pop two, push product
	OpDiv Opcode = 0x53 // Pop two, push quotient
	OpNeg Opcode = 0x54 // Pop one, push negation
	OpNot Opcode = 0x55 // Pop one, push logical not
	OpEq  Opcode = 0x56 // Pop two, push equality
	OpLt  Opcode = 0x57 // Pop two, push less-than
	OpGt  Opcode = 0x58 // Pop two, push greater-than

	// Collections (0x60-0x6F)
	OpMakeArray Opcode = 0x60 // Pop n elements, push array: OpMakeArray <n>

	// Calls (0x70-0x7F)
	OpCall Opcode = 0x70 // Call through site table: OpCall <site index>
	OpRet  Opcode = 0x7F // Return top of stack from the current body
)

var opcodeNames = map[Opcode]string{
	OpNop:       "nop",
	OpPop:       "pop",
	OpConst:     "const",
	OpConstNull: "const_null",
	OpLoadSym:   "load_sym",
	OpStoreSym:  "store_sym",
	OpAdd:       "add",
	OpSub:       "sub",
	OpMul:       "mul",
	OpDiv:       "div",
	OpNeg:       "neg",
	OpNot:       "not",
	OpEq:        "eq",
	OpLt:        "lt",
	OpGt:        "gt",
	OpMakeArray: "make_array",
	OpCall:      "call",
	OpRet:       "ret",
}

// String returns a human-readable mnemonic.
func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(0x%02X)", byte(op))
}

// Instruction is one decoded instruction. A holds the operand for opcodes
// that take one (pool/symbol/site index, element count).
type Instruction struct {
	Op Opcode
	A  int32
}

// CallSite describes one call expression in a stream, including the
// replication guide annotations on each argument.
type CallSite struct {
	Name   string
	Argc   int
	Guides [][]Guide // per argument, nil when unannotated
	ExprID int
}

// Stream is one code block's instruction stream with its constant, symbol,
// and call-site pools.
type Stream struct {
	Code   []Instruction
	Consts []Value
	Syms   []*compiler.Symbol
	Calls  []*CallSite
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{}
}

func (s *Stream) emit(op Opcode, a int32) {
	s.Code = append(s.Code, Instruction{Op: op, A: a})
}

func (s *Stream) addConst(v Value) int32 {
	s.Consts = append(s.Consts, v)
	return int32(len(s.Consts) - 1)
}

func (s *Stream) addSym(sym *compiler.Symbol) int32 {
	for i, existing := range s.Syms {
		if existing == sym {
			return int32(i)
		}
	}
	s.Syms = append(s.Syms, sym)
	return int32(len(s.Syms) - 1)
}

func (s *Stream) addCall(c *CallSite) int32 {
	s.Calls = append(s.Calls, c)
	return int32(len(s.Calls) - 1)
}
