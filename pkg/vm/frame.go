package vm

import "github.com/daimatz/jvmeval/pkg/program"

type local struct {
	typ program.TypeRef
	val Value
}

// Frame holds the state of one method activation: the receiver and the
// local variables by name.
type Frame struct {
	Method *Method
	This   Value
	locals map[string]*local
}

// NewFrame creates a frame for m. this is ignored for static methods.
func NewFrame(m *Method, this Value) *Frame {
	f := &Frame{Method: m, locals: make(map[string]*local)}
	if m == nil || !m.Static {
		f.This = this
	}
	return f
}

// Class returns the type declaring the executing method.
func (f *Frame) Class() *Type {
	if f.Method == nil {
		return nil
	}
	return f.Method.Owner
}

// Declare introduces (or re-enters) a local of the given type.
func (f *Frame) Declare(name string, typ program.TypeRef, v Value) {
	f.locals[name] = &local{typ: typ, val: coerce(typ, v)}
}

// GetLocal returns the value of a local variable.
func (f *Frame) GetLocal(name string) (Value, error) {
	l, ok := f.locals[name]
	if !ok {
		return Value{}, &UndefinedLocalError{Method: f.methodName(), Name: name}
	}
	return l.val, nil
}

// SetLocal assigns a declared local, converting v to its declared type.
func (f *Frame) SetLocal(name string, v Value) error {
	l, ok := f.locals[name]
	if !ok {
		return &UndefinedLocalError{Method: f.methodName(), Name: name}
	}
	l.val = coerce(l.typ, v)
	return nil
}

// LocalType returns the declared type of a local.
func (f *Frame) LocalType(name string) program.TypeRef {
	if l, ok := f.locals[name]; ok {
		return l.typ
	}
	return ""
}

func (f *Frame) methodName() string {
	if f.Method == nil {
		return "<frame>"
	}
	return f.Method.String()
}
