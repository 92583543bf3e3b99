package vm

import (
	"fmt"

	"github.com/daimatz/jvmeval/pkg/program"
)

// Invoke calls the method with signature sig on recv, dispatching on the
// receiver's runtime type.
func (vm *VM) Invoke(recv Value, sig string, args []Value) (Value, error) {
	if recv.IsNull() {
		return Value{}, vm.nullPointer()
	}
	if recv.Type != TypeRef {
		return Value{}, fmt.Errorf("invoke %s: receiver is %s", sig, recv.Type)
	}
	m, err := vm.Registry.Dispatch(vm.Heap.TypeOf(recv.Ref), sig)
	if err != nil {
		return Value{}, err
	}
	return vm.invokeMethod(m, recv, args)
}

// invokeMethod runs m with the given receiver and arguments.
func (vm *VM) invokeMethod(m *Method, this Value, args []Value) (Value, error) {
	if m.Abstract {
		return Value{}, &AbstractDispatchError{Type: m.Owner.Name, Signature: m.signature}
	}
	if len(args) != len(m.Params) {
		return Value{}, fmt.Errorf("invoke %s: got %d arguments, want %d", m, len(args), len(m.Params))
	}

	vm.depth++
	defer func() { vm.depth-- }()
	if vm.depth > vm.maxDepth {
		return Value{}, vm.throwNew(StackOverflowError, "")
	}

	vm.log.Trace().Str("method", m.String()).Int("depth", vm.depth).Msg("invoke")

	for i, p := range m.Params {
		args[i] = coerce(p.Type, args[i])
	}
	if m.Native != nil {
		return m.Native(vm, this, args)
	}

	frame := NewFrame(m, this)
	for i, p := range m.Params {
		frame.Declare(p.Name, p.Type, args[i])
	}

	if m.IsConstructor() && m.Owner.Super != nil && !chainsConstructor(m.Body) {
		if err := vm.construct(m.Owner.Super, this, nil, nil, nil); err != nil {
			return Value{}, err
		}
	}

	c, err := vm.execStmts(frame, m.Body)
	if err != nil {
		return Value{}, err
	}
	switch c.kind {
	case completeThrow:
		return Value{}, c.exc
	case completeReturn:
		return coerce(m.Returns, c.value), nil
	case completeBreak, completeContinue:
		return Value{}, fmt.Errorf("%s: %s outside of loop or switch", m, c.kind)
	}
	return Value{}, nil
}

// chainsConstructor reports whether a constructor body starts with an
// explicit super(...) or this(...) call.
func chainsConstructor(body []program.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	es, ok := body[0].(*program.ExprStmt)
	if !ok {
		return false
	}
	call, ok := es.Expr.(*program.Call)
	return ok && call.Name == program.ConstructorName &&
		(call.Kind == program.CallSuper || call.Kind == program.CallSpecial)
}

// construct runs the constructor of t selected by args on an already
// allocated object. ats describes the arguments for overload selection
// and defaults to their runtime types. A type without declared
// constructors gets the implicit one, which chains to the superclass
// no-argument constructor.
func (vm *VM) construct(t *Type, obj Value, args []Value, ats []argType, params []program.TypeRef) error {
	cands := vm.Registry.candidates(t, program.ConstructorName, false)
	if len(cands) == 0 {
		if len(args) > 0 {
			return &NoSuchMethodError{Type: t.Name, Signature: program.ConstructorName + "(...)"}
		}
		if t.Super != nil {
			return vm.construct(t.Super, obj, nil, nil, nil)
		}
		return nil
	}
	if ats == nil {
		ats = vm.valueTypes(args)
	}
	ctor, err := vm.selectMethod(t, cands, program.ConstructorName, ats, params)
	if err != nil {
		return err
	}
	_, err = vm.invokeMethod(ctor, obj, args)
	return err
}

// selectMethod picks the overload for a call. Explicit parameter types
// select by signature; otherwise the best match for the argument types
// wins.
func (vm *VM) selectMethod(owner *Type, cands []*Method, name string, args []argType, params []program.TypeRef) (*Method, error) {
	if params != nil {
		canon := make([]program.TypeRef, len(params))
		for i, p := range params {
			c, err := vm.Registry.canonical(owner.Name, p)
			if err != nil {
				return nil, err
			}
			canon[i] = c
		}
		sig := signature(name, canon)
		for _, m := range cands {
			if m.signature == sig {
				return m, nil
			}
		}
		return nil, &NoSuchMethodError{Type: owner.Name, Signature: sig}
	}

	var best *Method
	bestScore := -1
	for _, m := range cands {
		if len(m.Params) != len(args) {
			continue
		}
		score, ok := vm.applicable(m, args)
		if !ok {
			continue
		}
		if score > bestScore || (score == bestScore && vm.moreSpecific(m, best)) {
			best, bestScore = m, score
		}
	}
	if best == nil {
		return nil, &NoSuchMethodError{Type: owner.Name, Signature: fmt.Sprintf("%s/%d", name, len(args))}
	}
	return best, nil
}

// applicable scores how well args fit m's parameters: exact matches score
// higher than subtype matches, which score higher than widening and null.
func (vm *VM) applicable(m *Method, args []argType) (int, bool) {
	score := 0
	for i, p := range m.Params {
		a := args[i]
		switch p.Type {
		case program.Int, program.Short, program.Byte, program.Char:
			switch {
			case a.prim == p.Type:
				score += 3
			case a.prim == program.Int || a.prim == program.Short || a.prim == program.Byte || a.prim == program.Char:
				score++
			default:
				return 0, false
			}
		case program.Long:
			switch a.prim {
			case program.Long:
				score += 3
			case program.Int, program.Short, program.Byte, program.Char:
				score++
			default:
				return 0, false
			}
		case program.Boolean:
			if a.prim != program.Boolean {
				return 0, false
			}
			score += 3
		default:
			switch {
			case a.isNull():
				score++
			case a.ref != nil:
				pt, err := vm.Registry.ResolveType(p.Type)
				if err != nil {
					return 0, false
				}
				switch {
				case a.ref == pt:
					score += 3
				case vm.Registry.IsSubtype(a.ref, pt):
					score += 2
				default:
					return 0, false
				}
			default:
				return 0, false
			}
		}
	}
	return score, true
}

// moreSpecific reports whether every parameter of a is a subtype of (or
// the same primitive as) the corresponding parameter of b.
func (vm *VM) moreSpecific(a, b *Method) bool {
	for i := range a.Params {
		pa, pb := a.Params[i].Type, b.Params[i].Type
		if pa == pb {
			continue
		}
		if !pa.IsReference() || !pb.IsReference() {
			if pa == program.Int && pb == program.Long {
				continue
			}
			return false
		}
		ta, errA := vm.Registry.ResolveType(pa)
		tb, errB := vm.Registry.ResolveType(pb)
		if errA != nil || errB != nil || !vm.Registry.IsSubtype(ta, tb) {
			return false
		}
	}
	return true
}
