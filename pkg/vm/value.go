package vm

import (
	"fmt"

	"github.com/daimatz/jvmeval/pkg/program"
)

// ValueType is the tag of a runtime Value.
type ValueType uint8

const (
	// TypeVoid marks the absence of a value, such as a void method result.
	TypeVoid ValueType = iota
	TypeInt
	TypeLong
	TypeBool
	TypeNull
	TypeRef
)

func (t ValueType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeBool:
		return "boolean"
	case TypeNull:
		return "null"
	case TypeRef:
		return "reference"
	}
	return "void"
}

// Handle identifies a heap slot. The zero Handle is never allocated.
type Handle uint32

// Value is a tagged runtime value. Primitives are stored in I (booleans as
// 0 or 1); references carry a heap Handle. Strings are references to
// java/lang/String instances, so they share the identity rule of all
// other objects.
type Value struct {
	Type ValueType
	I    int64
	Ref  Handle
}

// IntValue creates an int Value.
func IntValue(v int32) Value {
	return Value{Type: TypeInt, I: int64(v)}
}

// LongValue creates a long Value.
func LongValue(v int64) Value {
	return Value{Type: TypeLong, I: v}
}

// BoolValue creates a boolean Value.
func BoolValue(b bool) Value {
	if b {
		return Value{Type: TypeBool, I: 1}
	}
	return Value{Type: TypeBool}
}

// RefValue creates a reference Value.
func RefValue(h Handle) Value {
	return Value{Type: TypeRef, Ref: h}
}

// NullValue creates a null reference Value.
func NullValue() Value {
	return Value{Type: TypeNull}
}

func (v Value) Int() int32   { return int32(v.I) }
func (v Value) Long() int64  { return v.I }
func (v Value) Bool() bool   { return v.I != 0 }
func (v Value) IsNull() bool { return v.Type == TypeNull }

// IsReference reports whether v is a reference or null.
func (v Value) IsReference() bool {
	return v.Type == TypeRef || v.Type == TypeNull
}

// IsNumeric reports whether v is an int or long.
func (v Value) IsNumeric() bool {
	return v.Type == TypeInt || v.Type == TypeLong
}

func (v Value) String() string {
	switch v.Type {
	case TypeInt, TypeLong:
		return fmt.Sprintf("%d", v.I)
	case TypeBool:
		return fmt.Sprintf("%t", v.Bool())
	case TypeNull:
		return "null"
	case TypeRef:
		return fmt.Sprintf("@%d", v.Ref)
	}
	return "void"
}

// DefaultValue returns the zero value of a declared type: 0, 0L, false or
// null.
func DefaultValue(t program.TypeRef) Value {
	switch t {
	case program.Int, program.Byte, program.Short, program.Char:
		return IntValue(0)
	case program.Long:
		return LongValue(0)
	case program.Boolean:
		return BoolValue(false)
	case program.Void, "":
		return Value{}
	}
	return NullValue()
}

// coerce converts v to the representation of declared type t: widening
// int to long and truncating ints stored into byte, short and char
// slots. Other combinations are returned unchanged.
func coerce(t program.TypeRef, v Value) Value {
	switch t {
	case program.Long:
		if v.Type == TypeInt {
			return LongValue(v.I)
		}
	case program.Int:
		if v.Type == TypeLong {
			return IntValue(int32(v.I))
		}
	case program.Byte:
		if v.IsNumeric() {
			return IntValue(int32(int8(v.I)))
		}
	case program.Short:
		if v.IsNumeric() {
			return IntValue(int32(int16(v.I)))
		}
	case program.Char:
		if v.IsNumeric() {
			return IntValue(int32(uint16(v.I)))
		}
	}
	return v
}
