package vm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/lattice/compiler"
)

// ValueType represents the type of a Lattice runtime value.
type ValueType int

const (
	TypeNull ValueType = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBool
	TypeArray
)

// Value is the Go representation of a Lattice value.
type Value struct {
	Type      ValueType
	IntVal    int64
	FloatVal  float64
	StringVal string
	ArrayVal  *Array
}

// Array is an ordered collection of values.
type Array struct {
	Elements []Value
}

// NullValue returns the null value.
func NullValue() Value {
	return Value{Type: TypeNull}
}

// IntValue creates an integer value.
func IntValue(n int64) Value {
	return Value{Type: TypeInt, IntVal: n}
}

// FloatValue creates a float value.
func FloatValue(f float64) Value {
	return Value{Type: TypeFloat, FloatVal: f}
}

// StringValue creates a string value.
func StringValue(s string) Value {
	return Value{Type: TypeString, StringVal: s}
}

// BoolValue creates a boolean value.
func BoolValue(b bool) Value {
	if b {
		return Value{Type: TypeBool, IntVal: 1}
	}
	return Value{Type: TypeBool, IntVal: 0}
}

// ArrayValue creates a collection value.
func ArrayValue(elems []Value) Value {
	return Value{Type: TypeArray, ArrayVal: &Array{Elements: elems}}
}

// IsTrue reports the truthiness of a value: false, null, and zero are false.
func (v Value) IsTrue() bool {
	switch v.Type {
	case TypeNull:
		return false
	case TypeBool, TypeInt:
		return v.IntVal != 0
	case TypeFloat:
		return v.FloatVal != 0
	default:
		return true
	}
}

// AsFloat widens int or float to float64.
func (v Value) AsFloat() float64 {
	if v.Type == TypeInt {
		return float64(v.IntVal)
	}
	return v.FloatVal
}

// Rank returns the array nesting depth of a value: 0 for scalars, 1 for a
// flat collection, and so on. Depth follows the first-element chain.
func (v Value) Rank() int {
	rank := 0
	for v.Type == TypeArray {
		rank++
		if v.ArrayVal == nil || len(v.ArrayVal.Elements) == 0 {
			break
		}
		v = v.ArrayVal.Elements[0]
	}
	return rank
}

// Len returns the element count of a collection, or -1 for a scalar.
func (v Value) Len() int {
	if v.Type != TypeArray || v.ArrayVal == nil {
		return -1
	}
	return len(v.ArrayVal.Elements)
}

// Equals reports deep equality. Int and float compare numerically.
func (v Value) Equals(o Value) bool {
	if (v.Type == TypeInt || v.Type == TypeFloat) && (o.Type == TypeInt || o.Type == TypeFloat) {
		if v.Type == TypeInt && o.Type == TypeInt {
			return v.IntVal == o.IntVal
		}
		return v.AsFloat() == o.AsFloat()
	}
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case TypeNull:
		return true
	case TypeBool:
		return v.IntVal == o.IntVal
	case TypeString:
		return v.StringVal == o.StringVal
	case TypeArray:
		if len(v.ArrayVal.Elements) != len(o.ArrayVal.Elements) {
			return false
		}
		for i, el := range v.ArrayVal.Elements {
			if !el.Equals(o.ArrayVal.Elements[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the value for diagnostics.
func (v Value) String() string {
	switch v.Type {
	case TypeNull:
		return "null"
	case TypeInt:
		return strconv.FormatInt(v.IntVal, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.FloatVal, 'g', -1, 64)
	case TypeString:
		return strconv.Quote(v.StringVal)
	case TypeBool:
		if v.IntVal != 0 {
			return "true"
		}
		return "false"
	case TypeArray:
		parts := make([]string, len(v.ArrayVal.Elements))
		for i, el := range v.ArrayVal.Elements {
			parts[i] = el.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("value(%d)", v.Type)
}

// TypeSpecOf maps a runtime value to the type-spec vocabulary the procedure
// matcher uses. Arrays report their first-element type with the nesting
// rank; null reports "var".
func TypeSpecOf(v Value) compiler.TypeSpec {
	switch v.Type {
	case TypeInt:
		return compiler.TypeSpec{Name: "int"}
	case TypeFloat:
		return compiler.TypeSpec{Name: "double"}
	case TypeString:
		return compiler.TypeSpec{Name: "string"}
	case TypeBool:
		return compiler.TypeSpec{Name: "bool"}
	case TypeArray:
		rank := v.Rank()
		inner := v
		for inner.Type == TypeArray && inner.ArrayVal != nil && len(inner.ArrayVal.Elements) > 0 {
			inner = inner.ArrayVal.Elements[0]
		}
		spec := TypeSpecOf(inner)
		if inner.Type == TypeArray {
			spec = compiler.TypeSpec{Name: "var"}
		}
		spec.Rank = rank
		return spec
	default:
		return compiler.TypeSpec{Name: "var"}
	}
}
