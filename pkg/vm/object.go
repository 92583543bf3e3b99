package vm

import (
	"fmt"

	"github.com/daimatz/jvmeval/pkg/program"
)

// Object is a heap-allocated instance. Type is the concrete runtime type
// and never changes. Instance fields are stored in the flattened layout of
// Type; array elements live in Elems; library types keep host state in
// Native (the Go string of a java/lang/String, a PrintStream, ...).
type Object struct {
	Type   *Type
	Fields []Value
	Elems  []Value
	Native any
}

// Heap is an append-only object store addressed by Handle. It also owns
// the static field tables, one per declaring type.
type Heap struct {
	objects []*Object
	statics map[*Type][]Value
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{
		objects: []*Object{nil}, // Handle 0 is never allocated
		statics: make(map[*Type][]Value),
	}
}

// Allocate creates an instance of t with every inherited and declared
// instance field set to its default value.
func (h *Heap) Allocate(t *Type) Handle {
	return h.put(&Object{Type: t, Fields: t.newFields()})
}

// AllocateArray creates an array of length n with default elements.
func (h *Heap) AllocateArray(t *Type, n int) Handle {
	elems := make([]Value, n)
	zero := DefaultValue(t.Elem)
	for i := range elems {
		elems[i] = zero
	}
	return h.put(&Object{Type: t, Elems: elems})
}

// AllocateNative creates an instance of t carrying host state.
func (h *Heap) AllocateNative(t *Type, native any) Handle {
	return h.put(&Object{Type: t, Fields: t.newFields(), Native: native})
}

func (h *Heap) put(obj *Object) Handle {
	h.objects = append(h.objects, obj)
	return Handle(len(h.objects) - 1)
}

// Len returns the number of live objects.
func (h *Heap) Len() int {
	return len(h.objects) - 1
}

// Get returns the object stored at handle.
func (h *Heap) Get(handle Handle) (*Object, error) {
	if handle == 0 || int(handle) >= len(h.objects) {
		return nil, fmt.Errorf("heap: invalid handle %d", handle)
	}
	return h.objects[handle], nil
}

// MustGet is Get for handles produced by this heap.
func (h *Heap) MustGet(handle Handle) *Object {
	obj, err := h.Get(handle)
	if err != nil {
		panic(err)
	}
	return obj
}

// TypeOf returns the runtime type of the object at handle.
func (h *Heap) TypeOf(handle Handle) *Type {
	return h.MustGet(handle).Type
}

// GetField reads an instance field by name.
func (h *Heap) GetField(handle Handle, name string) (Value, error) {
	obj, err := h.Get(handle)
	if err != nil {
		return Value{}, err
	}
	slot, ok := obj.Type.slot(name)
	if !ok {
		return Value{}, &NoSuchFieldError{Type: obj.Type.Name, Field: name}
	}
	return obj.Fields[slot], nil
}

// SetField writes an instance field by name, converting v to the field's
// declared type.
func (h *Heap) SetField(handle Handle, name string, v Value) error {
	obj, err := h.Get(handle)
	if err != nil {
		return err
	}
	slot, ok := obj.Type.slot(name)
	if !ok {
		return &NoSuchFieldError{Type: obj.Type.Name, Field: name}
	}
	obj.Fields[slot] = coerce(obj.Type.layout[slot].Type, v)
	return nil
}

// InitStatics allocates the static table of t with default values.
func (h *Heap) InitStatics(t *Type) {
	table := make([]Value, len(t.statics))
	for _, f := range t.statics {
		table[f.Slot] = DefaultValue(f.Type)
	}
	h.statics[t] = table
}

// GetStatic reads a static field visible from t.
func (h *Heap) GetStatic(t *Type, name string) (Value, error) {
	f := t.LookupStatic(name)
	if f == nil {
		return Value{}, &NoSuchFieldError{Type: t.Name, Field: name}
	}
	table, ok := h.statics[f.Owner]
	if !ok {
		return DefaultValue(f.Type), nil
	}
	return table[f.Slot], nil
}

// SetStatic writes a static field visible from t.
func (h *Heap) SetStatic(t *Type, name string, v Value) error {
	f := t.LookupStatic(name)
	if f == nil {
		return &NoSuchFieldError{Type: t.Name, Field: name}
	}
	if _, ok := h.statics[f.Owner]; !ok {
		h.InitStatics(f.Owner)
	}
	h.statics[f.Owner][f.Slot] = coerce(f.Type, v)
	return nil
}

// StringOf returns the contents of a java/lang/String instance.
func (h *Heap) StringOf(handle Handle) string {
	obj, err := h.Get(handle)
	if err != nil {
		return ""
	}
	s, _ := obj.Native.(string)
	return s
}

// ElemType returns the declared element type of an array object.
func (o *Object) ElemType() program.TypeRef {
	return o.Type.Elem
}
