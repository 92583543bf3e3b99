package program

import "strings"

// TypeRef names a type as written in a declaration: a primitive name
// (int, long, boolean, byte, short, char, void), a class name, or either
// of those followed by one "[]" per array dimension.
type TypeRef string

// Primitive type names.
const (
	Int     TypeRef = "int"
	Long    TypeRef = "long"
	Boolean TypeRef = "boolean"
	Byte    TypeRef = "byte"
	Short   TypeRef = "short"
	Char    TypeRef = "char"
	Void    TypeRef = "void"
)

// IsArray reports whether t is an array type.
func (t TypeRef) IsArray() bool {
	return strings.HasSuffix(string(t), "[]")
}

// Elem returns the element type of an array type.
func (t TypeRef) Elem() TypeRef {
	return TypeRef(strings.TrimSuffix(string(t), "[]"))
}

// IsPrimitive reports whether t is one of the primitive types (void excluded).
func (t TypeRef) IsPrimitive() bool {
	switch t {
	case Int, Long, Boolean, Byte, Short, Char:
		return true
	}
	return false
}

// IsVoid reports whether t is void or unset.
func (t TypeRef) IsVoid() bool {
	return t == Void || t == ""
}

// IsReference reports whether values of t are references (class or array).
func (t TypeRef) IsReference() bool {
	return !t.IsPrimitive() && !t.IsVoid()
}

func (t TypeRef) String() string {
	if t == "" {
		return string(Void)
	}
	return string(t)
}
