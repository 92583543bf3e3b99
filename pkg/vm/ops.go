package vm

import (
	"fmt"

	"github.com/daimatz/jvmeval/pkg/program"
)

// binary applies a non-short-circuit binary operator. Integer arithmetic
// wraps; an int operand is widened when the other is long.
func (vm *VM) binary(op string, l, r Value) (Value, error) {
	if op == "+" && (vm.isString(l) || vm.isString(r)) {
		ls, err := vm.stringOf(l)
		if err != nil {
			return Value{}, err
		}
		rs, err := vm.stringOf(r)
		if err != nil {
			return Value{}, err
		}
		return vm.NewString(ls + rs), nil
	}

	switch op {
	case "==", "!=":
		eq, err := vm.equals(l, r)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(eq == (op == "==")), nil
	}

	if l.Type == TypeBool && r.Type == TypeBool {
		a, b := l.Bool(), r.Bool()
		switch op {
		case "&":
			return BoolValue(a && b), nil
		case "|":
			return BoolValue(a || b), nil
		case "^":
			return BoolValue(a != b), nil
		}
		return Value{}, fmt.Errorf("operator %s on boolean", op)
	}

	var err error
	if l, err = vm.unbox(l); err != nil {
		return Value{}, err
	}
	if r, err = vm.unbox(r); err != nil {
		return Value{}, err
	}
	if !l.IsNumeric() || !r.IsNumeric() {
		return Value{}, fmt.Errorf("operator %s on %s and %s", op, l.Type, r.Type)
	}

	switch op {
	case "<<", ">>", ">>>":
		return shift(op, l, r.I), nil
	}

	if l.Type == TypeLong || r.Type == TypeLong {
		a, b := l.I, r.I
		switch op {
		case "<":
			return BoolValue(a < b), nil
		case "<=":
			return BoolValue(a <= b), nil
		case ">":
			return BoolValue(a > b), nil
		case ">=":
			return BoolValue(a >= b), nil
		case "/", "%":
			if b == 0 {
				return Value{}, vm.throwNew(ArithmeticException, "/ by zero")
			}
		}
		v, err := arith(op, a, b)
		return LongValue(v), err
	}

	a, b := int64(l.Int()), int64(r.Int())
	switch op {
	case "<":
		return BoolValue(a < b), nil
	case "<=":
		return BoolValue(a <= b), nil
	case ">":
		return BoolValue(a > b), nil
	case ">=":
		return BoolValue(a >= b), nil
	case "/", "%":
		if b == 0 {
			return Value{}, vm.throwNew(ArithmeticException, "/ by zero")
		}
	}
	// Computed in 64 bits and truncated, so MIN_VALUE / -1 wraps.
	v, err := arith(op, a, b)
	return IntValue(int32(v)), err
}

func arith(op string, a, b int64) (int64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		return a / b, nil
	case "%":
		return a % b, nil
	case "&":
		return a & b, nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	}
	return 0, fmt.Errorf("unknown operator %s", op)
}

// shift masks the distance to the width of the left operand.
func shift(op string, l Value, n int64) Value {
	if l.Type == TypeLong {
		n &= 63
		switch op {
		case "<<":
			return LongValue(l.I << n)
		case ">>":
			return LongValue(l.I >> n)
		}
		return LongValue(int64(uint64(l.I) >> n))
	}
	n &= 31
	a := l.Int()
	switch op {
	case "<<":
		return IntValue(a << n)
	case ">>":
		return IntValue(a >> n)
	}
	return IntValue(int32(uint32(a) >> n))
}

// equals implements == : identity for two references, numeric comparison
// otherwise. An Integer compared with a primitive is unboxed first.
func (vm *VM) equals(l, r Value) (bool, error) {
	if l.IsReference() && r.IsReference() {
		return vm.ReferenceEquals(l, r), nil
	}
	if l.Type == TypeBool || r.Type == TypeBool {
		if l.Type != r.Type {
			return false, fmt.Errorf("== on %s and %s", l.Type, r.Type)
		}
		return l.I == r.I, nil
	}
	var err error
	if l, err = vm.unbox(l); err != nil {
		return false, err
	}
	if r, err = vm.unbox(r); err != nil {
		return false, err
	}
	return l.I == r.I, nil
}

// unbox returns the int held by an Integer, or v unchanged for anything
// that is not a reference.
func (vm *VM) unbox(v Value) (Value, error) {
	switch v.Type {
	case TypeNull:
		return Value{}, vm.nullPointer()
	case TypeRef:
		if vm.Heap.TypeOf(v.Ref).Name == IntegerType {
			return vm.Heap.GetField(v.Ref, "value")
		}
	}
	return v, nil
}

func unary(op string, v Value) (Value, error) {
	switch op {
	case "!":
		if v.Type != TypeBool {
			return Value{}, fmt.Errorf("! on %s", v.Type)
		}
		return BoolValue(!v.Bool()), nil
	case "-":
		switch v.Type {
		case TypeInt:
			return IntValue(-v.Int()), nil
		case TypeLong:
			return LongValue(-v.I), nil
		}
	case "~":
		switch v.Type {
		case TypeInt:
			return IntValue(^v.Int()), nil
		case TypeLong:
			return LongValue(^v.I), nil
		}
	case "+":
		if v.IsNumeric() {
			return v, nil
		}
	}
	return Value{}, fmt.Errorf("unary %s on %s", op, v.Type)
}

// convert performs a primitive cast.
func convert(t program.TypeRef, v Value) (Value, error) {
	if t == program.Boolean {
		if v.Type != TypeBool {
			return Value{}, fmt.Errorf("cannot cast %s to boolean", v.Type)
		}
		return v, nil
	}
	if !v.IsNumeric() {
		return Value{}, fmt.Errorf("cannot cast %s to %s", v.Type, t)
	}
	if t == program.Long {
		return LongValue(v.I), nil
	}
	return coerce(t, IntValue(int32(v.I))), nil
}

// stringOf renders v the way string concatenation does, calling
// toString() on objects other than strings.
func (vm *VM) stringOf(v Value) (string, error) {
	switch v.Type {
	case TypeNull:
		return "null", nil
	case TypeRef:
		if vm.isString(v) {
			return vm.Heap.StringOf(v.Ref), nil
		}
		s, err := vm.Invoke(v, "toString()", nil)
		if err != nil {
			return "", err
		}
		if s.IsNull() {
			return "null", nil
		}
		return vm.Heap.StringOf(s.Ref), nil
	}
	return v.String(), nil
}

// typeName names the runtime type of v for diagnostics.
func (vm *VM) typeName(v Value) string {
	if v.Type == TypeRef {
		return vm.Heap.TypeOf(v.Ref).SourceName()
	}
	return v.Type.String()
}
