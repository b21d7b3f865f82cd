package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the hashing AST serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// all previously computed content hashes.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// AST node type tags. Each tag uniquely identifies a node kind in the
// serialized byte stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	// Literal values
	TagIntLiteral    byte = 0x01
	TagFloatLiteral  byte = 0x02
	TagStringLiteral byte = 0x03
	TagBoolLiteral   byte = 0x04
	TagNullLiteral   byte = 0x05
	TagArrayLiteral  byte = 0x06

	// Variable references (de Bruijn indexed)
	TagLocalRef  byte = 0x0B
	TagFieldRef  byte = 0x0C
	TagGlobalRef byte = 0x0D

	// Expressions
	TagBinaryExpr byte = 0x10
	TagUnaryExpr  byte = 0x11
	TagCall       byte = 0x12
	TagGuide      byte = 0x13

	// Statements / structure
	TagAssignment byte = 0x14
	TagReturn     byte = 0x15
	TagBlock      byte = 0x16
	TagFuncDef    byte = 0x17
	TagExprStmt   byte = 0x18

	// Reserved 0xFE-0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagIntLiteral, TagFloatLiteral, TagStringLiteral, TagBoolLiteral,
	TagNullLiteral, TagArrayLiteral,
	TagLocalRef, TagFieldRef, TagGlobalRef,
	TagBinaryExpr, TagUnaryExpr, TagCall, TagGuide,
	TagAssignment, TagReturn, TagBlock, TagFuncDef, TagExprStmt,
}
