package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daimatz/jvmeval/pkg/program"
)

func heapRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Build([]*program.TypeDecl{
		{Name: ObjectType},
		{Name: "Base", Fields: []*program.FieldDecl{
			{Name: "x", Type: program.Int},
			{Name: "total", Type: program.Long},
			{Name: "counter", Type: program.Int, Static: true},
		}},
		{Name: "Derived", Super: "Base", Fields: []*program.FieldDecl{
			{Name: "name", Type: ObjectType},
		}},
	}, nil)
	require.NoError(t, err)
	return reg
}

func TestHeapAllocate(t *testing.T) {
	reg := heapRegistry(t)
	derived, _ := reg.Lookup("Derived")
	h := NewHeap()

	t.Run("handles are distinct and never zero", func(t *testing.T) {
		a := h.Allocate(derived)
		b := h.Allocate(derived)
		assert.NotZero(t, a)
		assert.NotEqual(t, a, b)
		assert.Equal(t, derived, h.TypeOf(a))
	})

	t.Run("inherited fields start at their defaults", func(t *testing.T) {
		obj := h.Allocate(derived)
		x, err := h.GetField(obj, "x")
		require.NoError(t, err)
		assert.Equal(t, IntValue(0), x)

		total, err := h.GetField(obj, "total")
		require.NoError(t, err)
		assert.Equal(t, LongValue(0), total)

		name, err := h.GetField(obj, "name")
		require.NoError(t, err)
		assert.True(t, name.IsNull())
	})

	t.Run("invalid handle", func(t *testing.T) {
		_, err := h.Get(0)
		assert.Error(t, err)
		_, err = h.Get(Handle(h.Len() + 1))
		assert.Error(t, err)
	})
}

func TestHeapFields(t *testing.T) {
	reg := heapRegistry(t)
	derived, _ := reg.Lookup("Derived")
	base, _ := reg.Lookup("Base")
	h := NewHeap()
	obj := h.Allocate(derived)

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, h.SetField(obj, "x", IntValue(42)))
		v, err := h.GetField(obj, "x")
		require.NoError(t, err)
		assert.Equal(t, int32(42), v.Int())
	})

	t.Run("stores widen to the field type", func(t *testing.T) {
		require.NoError(t, h.SetField(obj, "total", IntValue(5)))
		v, _ := h.GetField(obj, "total")
		assert.Equal(t, LongValue(5), v)
	})

	t.Run("unknown field", func(t *testing.T) {
		var nf *NoSuchFieldError
		_, err := h.GetField(obj, "missing")
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "Derived", nf.Type)
		assert.ErrorAs(t, h.SetField(obj, "missing", IntValue(1)), &nf)
	})

	t.Run("objects do not share storage", func(t *testing.T) {
		other := h.Allocate(derived)
		require.NoError(t, h.SetField(other, "x", IntValue(1)))
		v, _ := h.GetField(obj, "x")
		assert.Equal(t, int32(42), v.Int())
	})

	t.Run("statics are shared through subclasses", func(t *testing.T) {
		h.InitStatics(base)
		require.NoError(t, h.SetStatic(derived, "counter", IntValue(3)))
		v, err := h.GetStatic(base, "counter")
		require.NoError(t, err)
		assert.Equal(t, int32(3), v.Int())

		_, err = h.GetStatic(base, "x")
		assert.Error(t, err)
	})
}

func TestHeapArrays(t *testing.T) {
	reg := heapRegistry(t)
	ints, err := reg.ArrayOf(program.Int)
	require.NoError(t, err)
	objs, err := reg.ArrayOf(ObjectType)
	require.NoError(t, err)
	h := NewHeap()

	a := h.MustGet(h.AllocateArray(ints, 3))
	assert.Equal(t, []Value{IntValue(0), IntValue(0), IntValue(0)}, a.Elems)
	assert.Equal(t, program.Int, a.ElemType())

	o := h.MustGet(h.AllocateArray(objs, 2))
	assert.True(t, o.Elems[0].IsNull())
}

func TestHeapStrings(t *testing.T) {
	reg := heapRegistry(t)
	obj, _ := reg.Lookup(ObjectType)
	h := NewHeap()

	s := h.AllocateNative(obj, "hello")
	assert.Equal(t, "hello", h.StringOf(s))
	assert.Equal(t, "", h.StringOf(h.Allocate(obj)))
	assert.Equal(t, "", h.StringOf(0))
}
