package vm

// IsInstance reports whether v is a non-null reference whose runtime type
// is a subtype of target.
func (vm *VM) IsInstance(v Value, target *Type) bool {
	if v.Type != TypeRef {
		return false
	}
	return vm.Registry.IsSubtype(vm.Heap.TypeOf(v.Ref), target)
}

// CheckedCast returns v unchanged if it is null or an instance of target.
func (vm *VM) CheckedCast(v Value, target *Type) (Value, error) {
	if v.IsNull() || vm.IsInstance(v, target) {
		return v, nil
	}
	from := v.Type.String()
	if v.Type == TypeRef {
		from = vm.Heap.TypeOf(v.Ref).Name
	}
	return Value{}, &InvalidCastError{From: from, To: target.Name}
}

// ReferenceEquals reports whether a and b denote the same heap slot or are
// both null. Field contents, including string contents, are not compared.
func (vm *VM) ReferenceEquals(a, b Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	return a.Type == TypeRef && b.Type == TypeRef && a.Ref == b.Ref
}

// StringEquals compares two strings by content. It is the structural
// equality behind String.equals.
func (vm *VM) StringEquals(a, b Value) bool {
	if !vm.isString(a) || !vm.isString(b) {
		return false
	}
	return vm.Heap.StringOf(a.Ref) == vm.Heap.StringOf(b.Ref)
}
