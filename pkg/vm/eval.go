package vm

import (
	"errors"
	"fmt"

	"github.com/daimatz/jvmeval/pkg/program"
)

// eval evaluates an expression. Program-level exceptions are returned as
// *ThrownException errors.
func (vm *VM) eval(f *Frame, e program.Expr) (Value, error) {
	switch e := e.(type) {
	case *program.Literal:
		return vm.literal(e), nil

	case *program.Local:
		return f.GetLocal(e.Name)

	case *program.This:
		if f.This.Type != TypeRef {
			return Value{}, fmt.Errorf("%s: this used in static context", f.methodName())
		}
		return f.This, nil

	case *program.FieldAccess, *program.StaticField, *program.Index:
		lv, err := vm.lvalue(f, e)
		if err != nil {
			return Value{}, err
		}
		return lv.get()

	case *program.Assign:
		return vm.evalAssign(f, e)

	case *program.IncDec:
		return vm.evalIncDec(f, e)

	case *program.Binary:
		return vm.evalBinary(f, e)

	case *program.Unary:
		v, err := vm.eval(f, e.Operand)
		if err != nil {
			return Value{}, err
		}
		return unary(e.Op, v)

	case *program.Conditional:
		cond, err := vm.evalBool(f, e.Cond)
		if err != nil {
			return Value{}, err
		}
		if cond {
			return vm.eval(f, e.Then)
		}
		return vm.eval(f, e.Else)

	case *program.New:
		return vm.evalNew(f, e)

	case *program.Call:
		return vm.evalCall(f, e)

	case *program.InstanceOf:
		v, err := vm.eval(f, e.Value)
		if err != nil {
			return Value{}, err
		}
		t, err := vm.Registry.ResolveType(e.Type)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(vm.IsInstance(v, t)), nil

	case *program.Cast:
		return vm.evalCast(f, e)

	case *program.NewArray:
		n, err := vm.eval(f, e.Length)
		if err != nil {
			return Value{}, err
		}
		if n.Int() < 0 {
			return Value{}, vm.throwNew(NegativeArraySizeExc, fmt.Sprintf("%d", n.Int()))
		}
		elem, err := vm.Registry.canonical(f.methodName(), e.Elem)
		if err != nil {
			return Value{}, err
		}
		at, err := vm.Registry.ArrayOf(elem)
		if err != nil {
			return Value{}, err
		}
		return RefValue(vm.Heap.AllocateArray(at, int(n.Int()))), nil

	case *program.Length:
		v, err := vm.eval(f, e.Array)
		if err != nil {
			return Value{}, err
		}
		arr, err := vm.array(v)
		if err != nil {
			return Value{}, err
		}
		return IntValue(int32(len(arr.Elems))), nil

	case *program.ClassLit:
		t, err := vm.Registry.Lookup(e.Class)
		if err != nil {
			return Value{}, err
		}
		return vm.classObject(t)
	}
	return Value{}, fmt.Errorf("eval: unsupported expression %T", e)
}

func (vm *VM) evalBool(f *Frame, e program.Expr) (bool, error) {
	v, err := vm.eval(f, e)
	if err != nil {
		return false, err
	}
	if v.Type != TypeBool {
		return false, fmt.Errorf("%s: condition is %s, not boolean", f.methodName(), v.Type)
	}
	return v.Bool(), nil
}

func (vm *VM) evalArgs(f *Frame, args []program.Expr) ([]Value, error) {
	vals := make([]Value, len(args))
	for i, a := range args {
		v, err := vm.eval(f, a)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// array returns the array object referenced by v.
func (vm *VM) array(v Value) (*Object, error) {
	if v.IsNull() {
		return nil, vm.nullPointer()
	}
	if v.Type != TypeRef {
		return nil, fmt.Errorf("expected array, got %s", v.Type)
	}
	obj := vm.Heap.MustGet(v.Ref)
	if !obj.Type.Array {
		return nil, fmt.Errorf("%s is not an array", obj.Type.Name)
	}
	return obj, nil
}

// lvalue is an assignable location.
type lvalue struct {
	typ program.TypeRef
	get func() (Value, error)
	set func(Value) error
}

// lvalue evaluates the location denoted by e, evaluating any receiver or
// array operands once, left to right.
func (vm *VM) lvalue(f *Frame, e program.Expr) (*lvalue, error) {
	switch e := e.(type) {
	case *program.Local:
		return &lvalue{
			typ: f.LocalType(e.Name),
			get: func() (Value, error) { return f.GetLocal(e.Name) },
			set: func(v Value) error { return f.SetLocal(e.Name, v) },
		}, nil

	case *program.FieldAccess:
		recv, err := vm.eval(f, e.Target)
		if err != nil {
			return nil, err
		}
		if recv.IsNull() {
			return nil, vm.nullPointer()
		}
		if recv.Type != TypeRef {
			return nil, fmt.Errorf("field %s: receiver is %s", e.Name, recv.Type)
		}
		obj := vm.Heap.MustGet(recv.Ref)
		if slot, ok := obj.Type.slot(e.Name); ok {
			return &lvalue{
				typ: obj.Type.layout[slot].Type,
				get: func() (Value, error) { return vm.Heap.GetField(recv.Ref, e.Name) },
				set: func(v Value) error { return vm.Heap.SetField(recv.Ref, e.Name, v) },
			}, nil
		}
		if obj.Type.Array && e.Name == "length" {
			return &lvalue{
				typ: program.Int,
				get: func() (Value, error) { return IntValue(int32(len(obj.Elems))), nil },
				set: func(Value) error { return fmt.Errorf("array length is not assignable") },
			}, nil
		}
		// Static members may be reached through an instance.
		if sf := obj.Type.LookupStatic(e.Name); sf != nil {
			return vm.staticLValue(obj.Type, sf), nil
		}
		return nil, &NoSuchFieldError{Type: obj.Type.Name, Field: e.Name}

	case *program.StaticField:
		t, err := vm.Registry.Lookup(e.Class)
		if err != nil {
			return nil, err
		}
		sf := t.LookupStatic(e.Name)
		if sf == nil {
			return nil, &NoSuchFieldError{Type: t.Name, Field: e.Name}
		}
		return vm.staticLValue(t, sf), nil

	case *program.Index:
		av, err := vm.eval(f, e.Array)
		if err != nil {
			return nil, err
		}
		iv, err := vm.eval(f, e.Index)
		if err != nil {
			return nil, err
		}
		arr, err := vm.array(av)
		if err != nil {
			return nil, err
		}
		i := int(iv.Int())
		if i < 0 || i >= len(arr.Elems) {
			return nil, vm.throwNew(ArrayIndexException, fmt.Sprintf("Index %d out of bounds for length %d", i, len(arr.Elems)))
		}
		return &lvalue{
			typ: arr.Type.Elem,
			get: func() (Value, error) { return arr.Elems[i], nil },
			set: func(v Value) error {
				if arr.Type.ElemType != nil && v.Type == TypeRef && !vm.IsInstance(v, arr.Type.ElemType) {
					return vm.throwNew(ArrayStoreException, dotted(vm.Heap.TypeOf(v.Ref).Name))
				}
				arr.Elems[i] = coerce(arr.Type.Elem, v)
				return nil
			},
		}, nil
	}
	return nil, fmt.Errorf("%T is not assignable", e)
}

func (vm *VM) staticLValue(t *Type, sf *Field) *lvalue {
	return &lvalue{
		typ: sf.Type,
		get: func() (Value, error) { return vm.Heap.GetStatic(t, sf.Name) },
		set: func(v Value) error { return vm.Heap.SetStatic(t, sf.Name, v) },
	}
}

func (vm *VM) evalAssign(f *Frame, e *program.Assign) (Value, error) {
	lv, err := vm.lvalue(f, e.Target)
	if err != nil {
		return Value{}, err
	}
	var old Value
	if e.Op != "" {
		if old, err = lv.get(); err != nil {
			return Value{}, err
		}
	}
	v, err := vm.eval(f, e.Value)
	if err != nil {
		return Value{}, err
	}
	if e.Op != "" {
		if v, err = vm.binary(e.Op, old, v); err != nil {
			return Value{}, err
		}
	}
	v = coerce(lv.typ, v)
	if err := lv.set(v); err != nil {
		return Value{}, err
	}
	return v, nil
}

func (vm *VM) evalIncDec(f *Frame, e *program.IncDec) (Value, error) {
	lv, err := vm.lvalue(f, e.Target)
	if err != nil {
		return Value{}, err
	}
	old, err := lv.get()
	if err != nil {
		return Value{}, err
	}
	var next Value
	switch old.Type {
	case TypeInt:
		next = IntValue(old.Int() + int32(e.Delta))
	case TypeLong:
		next = LongValue(old.I + e.Delta)
	default:
		return Value{}, fmt.Errorf("increment of %s", old.Type)
	}
	next = coerce(lv.typ, next)
	if err := lv.set(next); err != nil {
		return Value{}, err
	}
	if e.Prefix {
		return next, nil
	}
	return old, nil
}

func (vm *VM) evalBinary(f *Frame, e *program.Binary) (Value, error) {
	l, err := vm.eval(f, e.Left)
	if err != nil {
		return Value{}, err
	}
	switch e.Op {
	case "&&", "||":
		if l.Type != TypeBool {
			return Value{}, fmt.Errorf("%s on %s", e.Op, l.Type)
		}
		if (e.Op == "&&") != l.Bool() {
			return l, nil
		}
		r, err := vm.evalBool(f, e.Right)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(r), nil
	}
	r, err := vm.eval(f, e.Right)
	if err != nil {
		return Value{}, err
	}
	return vm.binary(e.Op, l, r)
}

func (vm *VM) evalNew(f *Frame, e *program.New) (Value, error) {
	t, err := vm.Registry.Lookup(e.Class)
	if err != nil {
		return Value{}, err
	}
	if t.IsAbstract() {
		return Value{}, &InstantiationError{Type: t.Name}
	}
	args, err := vm.evalArgs(f, e.Args)
	if err != nil {
		return Value{}, err
	}
	var obj Value
	if t == vm.strType {
		obj = vm.NewString("")
	} else {
		obj = RefValue(vm.Heap.Allocate(t))
	}
	vm.log.Trace().Str("type", t.Name).Uint32("handle", uint32(obj.Ref)).Msg("new")
	if err := vm.construct(t, obj, args, vm.argTypes(f, e.Args, args), e.ParamTypes); err != nil {
		return Value{}, err
	}
	return obj, nil
}

func (vm *VM) evalCall(f *Frame, e *program.Call) (Value, error) {
	switch e.Kind {
	case program.CallStatic:
		owner := f.Class()
		if e.Class != "" {
			var err error
			if owner, err = vm.Registry.Lookup(e.Class); err != nil {
				return Value{}, err
			}
		}
		args, err := vm.evalArgs(f, e.Args)
		if err != nil {
			return Value{}, err
		}
		cands := staticOnly(vm.Registry.candidates(owner, e.Name, false))
		m, err := vm.selectMethod(owner, cands, e.Name, vm.argTypes(f, e.Args, args), e.ParamTypes)
		if err != nil {
			return Value{}, err
		}
		return vm.invokeMethod(m, Value{}, args)

	case program.CallSuper, program.CallSpecial:
		owner := f.Class()
		if e.Kind == program.CallSuper {
			owner = owner.Super
		} else if e.Class != "" {
			var err error
			if owner, err = vm.Registry.Lookup(e.Class); err != nil {
				return Value{}, err
			}
		}
		if owner == nil {
			return Value{}, fmt.Errorf("%s: no superclass", f.methodName())
		}
		recv := f.This
		if e.Target != nil {
			var err error
			if recv, err = vm.eval(f, e.Target); err != nil {
				return Value{}, err
			}
		}
		args, err := vm.evalArgs(f, e.Args)
		if err != nil {
			return Value{}, err
		}
		ats := vm.argTypes(f, e.Args, args)
		if e.Name == program.ConstructorName {
			return Value{}, vm.construct(owner, recv, args, ats, e.ParamTypes)
		}
		m, err := vm.selectMethod(owner, vm.Registry.candidates(owner, e.Name, false), e.Name, ats, e.ParamTypes)
		if err != nil {
			return Value{}, err
		}
		return vm.invokeMethod(m, recv, args)
	}

	recv, err := vm.eval(f, e.Target)
	if err != nil {
		return Value{}, err
	}
	args, err := vm.evalArgs(f, e.Args)
	if err != nil {
		return Value{}, err
	}
	if recv.IsNull() {
		return Value{}, vm.nullPointer()
	}
	if recv.Type != TypeRef {
		return Value{}, fmt.Errorf("call %s: receiver is %s", e.Name, recv.Type)
	}

	// The overload is chosen from the receiver's declared type and the
	// arguments' declared types; only the override varies at run time.
	rt := vm.Heap.TypeOf(recv.Ref)
	owner := vm.receiverType(f, e, rt)
	m, err := vm.selectMethod(owner, vm.Registry.candidates(owner, e.Name, true), e.Name, vm.argTypes(f, e.Args, args), e.ParamTypes)
	if err != nil {
		return Value{}, err
	}
	if m, err = vm.Registry.Dispatch(rt, m.signature); err != nil {
		return Value{}, err
	}
	vm.log.Trace().Str("signature", m.signature).Str("static", owner.Name).Str("runtime", rt.Name).Msg("dispatch")
	return vm.invokeMethod(m, recv, args)
}

// receiverType returns the declared type of a call's receiver when it is
// known and declares the method name; otherwise the runtime type rt.
func (vm *VM) receiverType(f *Frame, e *program.Call, rt *Type) *Type {
	st := vm.staticType(f, e.Target)
	if st == "" || st.IsPrimitive() {
		return rt
	}
	t, err := vm.Registry.ResolveType(st)
	if err != nil || !vm.Registry.IsSubtype(rt, t) || len(vm.Registry.candidates(t, e.Name, true)) == 0 {
		return rt
	}
	return t
}

func staticOnly(ms []*Method) []*Method {
	out := ms[:0:0]
	for _, m := range ms {
		if m.Static {
			out = append(out, m)
		}
	}
	return out
}

func (vm *VM) evalCast(f *Frame, e *program.Cast) (Value, error) {
	v, err := vm.eval(f, e.Value)
	if err != nil {
		return Value{}, err
	}
	if e.Type.IsPrimitive() {
		return convert(e.Type, v)
	}
	t, err := vm.Registry.ResolveType(e.Type)
	if err != nil {
		return Value{}, err
	}
	out, err := vm.CheckedCast(v, t)
	var ce *InvalidCastError
	if errors.As(err, &ce) {
		return Value{}, vm.throwNew(ClassCastException, ce.Error())
	}
	return out, err
}
