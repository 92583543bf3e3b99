package vm

import "github.com/daimatz/jvmeval/pkg/program"

// argType is the type an argument contributes to overload selection: a
// primitive, a reference type, or the null type when both are unset.
type argType struct {
	prim program.TypeRef
	ref  *Type
}

func (a argType) isNull() bool { return a.prim == "" && a.ref == nil }

// valueType describes an argument by its runtime value.
func (vm *VM) valueType(v Value) argType {
	switch v.Type {
	case TypeInt:
		return argType{prim: program.Int}
	case TypeLong:
		return argType{prim: program.Long}
	case TypeBool:
		return argType{prim: program.Boolean}
	case TypeRef:
		return argType{ref: vm.Heap.TypeOf(v.Ref)}
	}
	return argType{}
}

// declaredType describes an argument by a declared type.
func (vm *VM) declaredType(t program.TypeRef) (argType, bool) {
	if t.IsPrimitive() {
		return argType{prim: t}, true
	}
	if t.IsVoid() {
		return argType{}, false
	}
	rt, err := vm.Registry.ResolveType(t)
	if err != nil {
		return argType{}, false
	}
	return argType{ref: rt}, true
}

// staticArgType describes e by its declared type, if that is known
// without evaluating it.
func (vm *VM) staticArgType(f *Frame, e program.Expr) (argType, bool) {
	if lit, ok := e.(*program.Literal); ok && lit.Kind == program.LitNull {
		return argType{}, true
	}
	return vm.declaredType(vm.staticType(f, e))
}

// argTypes describes call arguments for overload selection: by declared
// type where known, by runtime value otherwise.
func (vm *VM) argTypes(f *Frame, exprs []program.Expr, vals []Value) []argType {
	ats := make([]argType, len(vals))
	for i, v := range vals {
		if at, ok := vm.staticArgType(f, exprs[i]); ok {
			ats[i] = at
		} else {
			ats[i] = vm.valueType(v)
		}
	}
	return ats
}

func (vm *VM) valueTypes(vals []Value) []argType {
	ats := make([]argType, len(vals))
	for i, v := range vals {
		ats[i] = vm.valueType(v)
	}
	return ats
}

// staticType returns the declared type of e in canonical form, or "" when
// it can only be known from the runtime value.
func (vm *VM) staticType(f *Frame, e program.Expr) program.TypeRef {
	switch e := e.(type) {
	case *program.Literal:
		switch e.Kind {
		case program.LitInt:
			return program.Int
		case program.LitLong:
			return program.Long
		case program.LitBool:
			return program.Boolean
		case program.LitString:
			return StringType
		}
		return ""

	case *program.Local:
		return vm.canonicalOrEmpty(f, f.LocalType(e.Name))

	case *program.This:
		if c := f.Class(); c != nil {
			return program.TypeRef(c.Name)
		}
		return ""

	case *program.FieldAccess:
		tt := vm.staticType(f, e.Target)
		if tt.IsArray() && e.Name == "length" {
			return program.Int
		}
		if tt == "" || tt.IsPrimitive() {
			return ""
		}
		t, err := vm.Registry.ResolveType(tt)
		if err != nil {
			return ""
		}
		if slot, ok := t.slot(e.Name); ok {
			return t.layout[slot].Type
		}
		if sf := t.LookupStatic(e.Name); sf != nil {
			return sf.Type
		}
		return ""

	case *program.StaticField:
		t, err := vm.Registry.Lookup(e.Class)
		if err != nil {
			return ""
		}
		if sf := t.LookupStatic(e.Name); sf != nil {
			return sf.Type
		}
		return ""

	case *program.Index:
		if at := vm.staticType(f, e.Array); at.IsArray() {
			return at.Elem()
		}
		return ""

	case *program.Assign:
		return vm.staticType(f, e.Target)

	case *program.IncDec:
		return vm.staticType(f, e.Target)

	case *program.Binary:
		return vm.binaryType(f, e)

	case *program.Unary:
		if e.Op == "!" {
			return program.Boolean
		}
		return promote(vm.staticType(f, e.Operand))

	case *program.Conditional:
		a, b := vm.staticType(f, e.Then), vm.staticType(f, e.Else)
		if a == b {
			return a
		}
		return ""

	case *program.New:
		t, err := vm.Registry.Lookup(e.Class)
		if err != nil {
			return ""
		}
		return program.TypeRef(t.Name)

	case *program.Call:
		if m := vm.staticMethod(f, e); m != nil {
			return m.Returns
		}
		return ""

	case *program.InstanceOf:
		return program.Boolean

	case *program.Cast:
		return vm.canonicalOrEmpty(f, e.Type)

	case *program.NewArray:
		if elem := vm.canonicalOrEmpty(f, e.Elem); elem != "" {
			return elem + "[]"
		}
		return ""

	case *program.Length:
		return program.Int

	case *program.ClassLit:
		return ClassType
	}
	return ""
}

func (vm *VM) canonicalOrEmpty(f *Frame, t program.TypeRef) program.TypeRef {
	if t == "" {
		return ""
	}
	c, err := vm.Registry.canonical(f.methodName(), t)
	if err != nil {
		return ""
	}
	return c
}

// promote applies unary numeric promotion.
func promote(t program.TypeRef) program.TypeRef {
	switch t {
	case program.Byte, program.Short, program.Char, program.Int:
		return program.Int
	case program.Long:
		return program.Long
	}
	return ""
}

func (vm *VM) binaryType(f *Frame, e *program.Binary) program.TypeRef {
	switch e.Op {
	case "==", "!=", "<", "<=", ">", ">=", "&&", "||":
		return program.Boolean
	}
	l, r := vm.staticType(f, e.Left), vm.staticType(f, e.Right)
	if e.Op == "+" && (l == StringType || r == StringType) {
		return StringType
	}
	switch e.Op {
	case "<<", ">>", ">>>":
		return promote(l)
	case "&", "|", "^":
		if l == program.Boolean && r == program.Boolean {
			return program.Boolean
		}
	}
	pl, pr := promote(l), promote(r)
	switch {
	case pl == "" || pr == "":
		return ""
	case pl == program.Long || pr == program.Long:
		return program.Long
	}
	return program.Int
}

// staticMethod resolves the method a call names from declared types
// alone, or returns nil when some of them are unknown.
func (vm *VM) staticMethod(f *Frame, e *program.Call) *Method {
	if e.Name == program.ConstructorName {
		return nil
	}
	var owner *Type
	var cands []*Method
	switch e.Kind {
	case program.CallStatic:
		owner = f.Class()
		if e.Class != "" {
			t, err := vm.Registry.Lookup(e.Class)
			if err != nil {
				return nil
			}
			owner = t
		}
		if owner != nil {
			cands = staticOnly(vm.Registry.candidates(owner, e.Name, false))
		}
	case program.CallSuper:
		if c := f.Class(); c != nil && c.Super != nil {
			owner = c.Super
			cands = vm.Registry.candidates(owner, e.Name, false)
		}
	case program.CallSpecial:
		owner = f.Class()
		if e.Class != "" {
			t, err := vm.Registry.Lookup(e.Class)
			if err != nil {
				return nil
			}
			owner = t
		}
		if owner != nil {
			cands = vm.Registry.candidates(owner, e.Name, false)
		}
	default:
		rt := vm.staticType(f, e.Target)
		if rt == "" || rt.IsPrimitive() {
			return nil
		}
		t, err := vm.Registry.ResolveType(rt)
		if err != nil {
			return nil
		}
		owner = t
		cands = vm.Registry.candidates(owner, e.Name, true)
	}
	if owner == nil || len(cands) == 0 {
		return nil
	}

	ats := make([]argType, len(e.Args))
	for i, a := range e.Args {
		at, ok := vm.staticArgType(f, a)
		if !ok {
			return nil
		}
		ats[i] = at
	}
	m, err := vm.selectMethod(owner, cands, e.Name, ats, e.ParamTypes)
	if err != nil {
		return nil
	}
	return m
}
