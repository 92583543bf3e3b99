package vm

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"unicode/utf16"

	"github.com/daimatz/jvmeval/pkg/native"
	"github.com/daimatz/jvmeval/pkg/program"
)

// Runtime library type names.
const (
	StringType               = "java/lang/String"
	IntegerType              = "java/lang/Integer"
	SystemType               = "java/lang/System"
	ClassType                = "java/lang/Class"
	OutputStreamType         = "java/io/OutputStream"
	PrintStreamType          = "java/io/PrintStream"
	InputStreamType          = "java/io/InputStream"
	ByteArrayInputStreamType = "java/io/ByteArrayInputStream"
	HashMapType              = "java/util/HashMap"
	ArrayStoreException      = "java/lang/ArrayStoreException"
	StringIndexException     = "java/lang/StringIndexOutOfBoundsException"
)

const (
	tString = program.TypeRef(StringType)
	tObject = program.TypeRef(ObjectType)
	tBytes  = program.TypeRef("byte[]")
)

// libType describes a runtime library type. Methods without a Go body
// have an empty body.
type libType struct {
	name       string
	super      string
	kind       program.TypeKind
	interfaces []string
	fields     []*program.FieldDecl
	methods    []libMethod
}

type libMethod struct {
	name     string
	params   []program.TypeRef
	returns  program.TypeRef
	static   bool
	abstract bool
	fn       NativeFunc
}

func (m libMethod) signature() string { return signature(m.name, m.params) }

func ctor(fn NativeFunc, params ...program.TypeRef) libMethod {
	return libMethod{name: program.ConstructorName, params: params, returns: program.Void, fn: fn}
}

func method(name string, returns program.TypeRef, fn NativeFunc, params ...program.TypeRef) libMethod {
	return libMethod{name: name, params: params, returns: returns, fn: fn}
}

func staticMethod(name string, returns program.TypeRef, fn NativeFunc, params ...program.TypeRef) libMethod {
	return libMethod{name: name, params: params, returns: returns, static: true, fn: fn}
}

// throwables lists the library exception hierarchy as name, superclass.
var throwables = [][2]string{
	{ThrowableType, ObjectType},
	{"java/lang/Exception", ThrowableType},
	{"java/lang/Error", ThrowableType},
	{"java/lang/RuntimeException", "java/lang/Exception"},
	{"java/lang/IllegalArgumentException", "java/lang/RuntimeException"},
	{"java/lang/IllegalStateException", "java/lang/RuntimeException"},
	{NumberFormatException, "java/lang/IllegalArgumentException"},
	{NullPointerException, "java/lang/RuntimeException"},
	{"java/lang/UnsupportedOperationException", "java/lang/RuntimeException"},
	{ClassCastException, "java/lang/RuntimeException"},
	{ArithmeticException, "java/lang/RuntimeException"},
	{ArrayStoreException, "java/lang/RuntimeException"},
	{"java/lang/IndexOutOfBoundsException", "java/lang/RuntimeException"},
	{ArrayIndexException, "java/lang/IndexOutOfBoundsException"},
	{StringIndexException, "java/lang/IndexOutOfBoundsException"},
	{NegativeArraySizeExc, "java/lang/RuntimeException"},
	{"java/io/IOException", "java/lang/Exception"},
	{"java/lang/VirtualMachineError", "java/lang/Error"},
	{StackOverflowError, "java/lang/VirtualMachineError"},
}

func library() []libType {
	lib := []libType{
		{
			name: ObjectType,
			methods: []libMethod{
				ctor(noop),
				method("equals", program.Boolean, objectEquals, tObject),
				method("hashCode", program.Int, objectHashCode),
				method("toString", tString, objectToString),
				method("getClass", ClassType, objectGetClass),
			},
		},
		{
			name: StringType,
			methods: []libMethod{
				ctor(noop),
				ctor(stringCopy, tString),
				ctor(stringFromBytes, tBytes),
				ctor(stringFromByteRange, tBytes, program.Int, program.Int),
				method("equals", program.Boolean, stringEquals, tObject),
				method("hashCode", program.Int, stringHashCode),
				method("toString", tString, identity),
				method("length", program.Int, stringLength),
				method("isEmpty", program.Boolean, stringIsEmpty),
				method("charAt", program.Char, stringCharAt, program.Int),
				method("concat", tString, stringConcat, tString),
				staticMethod("valueOf", tString, stringValueOf, program.Int),
				staticMethod("valueOf", tString, stringValueOf, program.Long),
				staticMethod("valueOf", tString, stringValueOf, program.Boolean),
				staticMethod("valueOf", tString, stringValueOf, tObject),
			},
		},
		{
			name: IntegerType,
			fields: []*program.FieldDecl{
				{Name: "value", Type: program.Int},
				{Name: "MIN_VALUE", Type: program.Int, Static: true, Init: program.IntLit(-1 << 31)},
				{Name: "MAX_VALUE", Type: program.Int, Static: true, Init: program.IntLit(1<<31 - 1)},
			},
			methods: []libMethod{
				ctor(integerInit, program.Int),
				staticMethod("valueOf", IntegerType, integerValueOf, program.Int),
				staticMethod("parseInt", program.Int, integerParseInt, tString),
				staticMethod("toString", tString, stringValueOf, program.Int),
				method("intValue", program.Int, integerIntValue),
				method("equals", program.Boolean, integerEquals, tObject),
				method("hashCode", program.Int, integerIntValue),
				method("toString", tString, integerToString),
			},
		},
		{
			name: SystemType,
			fields: []*program.FieldDecl{
				{Name: "out", Type: PrintStreamType, Static: true},
				{Name: "err", Type: PrintStreamType, Static: true},
			},
			methods: []libMethod{
				staticMethod("identityHashCode", program.Int, systemIdentityHashCode, tObject),
			},
		},
		{
			name: ClassType,
			methods: []libMethod{
				method("getName", tString, classGetName),
				method("toString", tString, classToString),
				method("getResourceAsStream", InputStreamType, classGetResourceAsStream, tString),
			},
		},
		{
			name: OutputStreamType,
			kind: program.KindAbstract,
			methods: []libMethod{
				{name: "write", params: []program.TypeRef{program.Int}, returns: program.Void, abstract: true},
				method("flush", program.Void, noop),
				method("close", program.Void, noop),
			},
		},
		{name: "java/io/FilterOutputStream", super: OutputStreamType},
		{
			name:  PrintStreamType,
			super: "java/io/FilterOutputStream",
			methods: []libMethod{
				method("write", program.Void, printStreamWrite, program.Int),
				method("println", program.Void, printStreamPrintln),
				method("println", program.Void, printStreamPrintln, program.Int),
				method("println", program.Void, printStreamPrintln, program.Long),
				method("println", program.Void, printStreamPrintln, program.Boolean),
				method("println", program.Void, printStreamPrintChar(true), program.Char),
				method("println", program.Void, printStreamPrintln, tString),
				method("println", program.Void, printStreamPrintln, tObject),
				method("print", program.Void, printStreamPrint, program.Int),
				method("print", program.Void, printStreamPrint, program.Long),
				method("print", program.Void, printStreamPrint, program.Boolean),
				method("print", program.Void, printStreamPrintChar(false), program.Char),
				method("print", program.Void, printStreamPrint, tString),
				method("print", program.Void, printStreamPrint, tObject),
			},
		},
		{
			name: InputStreamType,
			kind: program.KindAbstract,
			methods: []libMethod{
				{name: "read", returns: program.Int, abstract: true},
				method("read", program.Int, inputStreamReadInto, tBytes),
				method("available", program.Int, zero),
				method("close", program.Void, noop),
			},
		},
		{
			name:  ByteArrayInputStreamType,
			super: InputStreamType,
			methods: []libMethod{
				ctor(byteStreamInit, tBytes),
				method("read", program.Int, byteStreamRead),
				method("available", program.Int, byteStreamAvailable),
			},
		},
		{
			name: HashMapType,
			methods: []libMethod{
				ctor(hashMapInit),
				method("put", tObject, hashMapPut, tObject, tObject),
				method("get", tObject, hashMapGet, tObject),
				method("containsKey", program.Boolean, hashMapContainsKey, tObject),
				method("remove", tObject, hashMapRemove, tObject),
				method("size", program.Int, hashMapSize),
				method("isEmpty", program.Boolean, hashMapIsEmpty),
			},
		},
	}

	for _, e := range throwables {
		t := libType{name: e[0], super: e[1], methods: []libMethod{
			ctor(noop),
			ctor(throwableInit, tString),
		}}
		if e[0] == ThrowableType {
			t.fields = []*program.FieldDecl{{Name: "message", Type: tString}}
			t.methods = append(t.methods,
				method("getMessage", tString, throwableGetMessage),
				method("toString", tString, throwableToString),
				method("printStackTrace", program.Void, throwablePrintStackTrace),
			)
		}
		lib = append(lib, t)
	}
	return lib
}

// bootstrapTypes declares the runtime library.
func bootstrapTypes() []*program.TypeDecl {
	var decls []*program.TypeDecl
	for _, lt := range library() {
		d := &program.TypeDecl{
			Name:       lt.name,
			Kind:       lt.kind,
			Super:      lt.super,
			Interfaces: lt.interfaces,
			Fields:     lt.fields,
		}
		for _, m := range lt.methods {
			params := make([]program.Param, len(m.params))
			for i, p := range m.params {
				params[i] = program.Param{Name: fmt.Sprintf("arg%d", i), Type: p}
			}
			d.Methods = append(d.Methods, &program.MethodDecl{
				Name:     m.name,
				Params:   params,
				Returns:  m.returns,
				Static:   m.static,
				Abstract: m.abstract,
			})
		}
		decls = append(decls, d)
	}
	return decls
}

// bootstrapNatives returns the Go bodies of the runtime library keyed by
// "Owner.signature".
func bootstrapNatives() map[string]NativeFunc {
	natives := make(map[string]NativeFunc)
	for _, lt := range library() {
		for _, m := range lt.methods {
			if m.fn != nil {
				natives[lt.name+"."+m.signature()] = m.fn
			}
		}
	}
	return natives
}

// hostState returns the Go state carried by the object v references.
func hostState[T any](vm *VM, v Value) (T, error) {
	var zero T
	if v.IsNull() {
		return zero, vm.nullPointer()
	}
	obj := vm.Heap.MustGet(v.Ref)
	s, ok := obj.Native.(T)
	if !ok {
		return zero, fmt.Errorf("%s has no %T state", obj.Type.Name, zero)
	}
	return s, nil
}

func noop(*VM, Value, []Value) (Value, error) { return Value{}, nil }

func zero(*VM, Value, []Value) (Value, error) { return IntValue(0), nil }

func identity(_ *VM, this Value, _ []Value) (Value, error) { return this, nil }

// java/lang/Object

func objectEquals(vm *VM, this Value, args []Value) (Value, error) {
	return BoolValue(vm.ReferenceEquals(this, args[0])), nil
}

func objectHashCode(_ *VM, this Value, _ []Value) (Value, error) {
	return IntValue(int32(this.Ref)), nil
}

func objectToString(vm *VM, this Value, _ []Value) (Value, error) {
	h, err := vm.Invoke(this, "hashCode()", nil)
	if err != nil {
		return Value{}, err
	}
	name := vm.Heap.TypeOf(this.Ref).SourceName()
	return vm.NewString(fmt.Sprintf("%s@%x", name, uint32(h.Int()))), nil
}

func objectGetClass(vm *VM, this Value, _ []Value) (Value, error) {
	return vm.classObject(vm.Heap.TypeOf(this.Ref))
}

// java/lang/String

func setString(vm *VM, this Value, s string) {
	vm.Heap.MustGet(this.Ref).Native = s
}

func stringCopy(vm *VM, this Value, args []Value) (Value, error) {
	if args[0].IsNull() {
		return Value{}, vm.nullPointer()
	}
	setString(vm, this, vm.Heap.StringOf(args[0].Ref))
	return Value{}, nil
}

func bytesOf(vm *VM, v Value) ([]byte, error) {
	arr, err := vm.array(v)
	if err != nil {
		return nil, err
	}
	b := make([]byte, len(arr.Elems))
	for i, e := range arr.Elems {
		b[i] = byte(e.I)
	}
	return b, nil
}

func stringFromBytes(vm *VM, this Value, args []Value) (Value, error) {
	b, err := bytesOf(vm, args[0])
	if err != nil {
		return Value{}, err
	}
	setString(vm, this, string(b))
	return Value{}, nil
}

func stringFromByteRange(vm *VM, this Value, args []Value) (Value, error) {
	b, err := bytesOf(vm, args[0])
	if err != nil {
		return Value{}, err
	}
	off, n := int(args[1].Int()), int(args[2].Int())
	if off < 0 || n < 0 || off+n > len(b) {
		return Value{}, vm.throwNew(StringIndexException,
			fmt.Sprintf("offset %d, count %d, length %d", off, n, len(b)))
	}
	setString(vm, this, string(b[off:off+n]))
	return Value{}, nil
}

func stringEquals(vm *VM, this Value, args []Value) (Value, error) {
	return BoolValue(vm.StringEquals(this, args[0])), nil
}

func stringHashCode(vm *VM, this Value, _ []Value) (Value, error) {
	return IntValue(native.StringHash(vm.Heap.StringOf(this.Ref))), nil
}

func stringLength(vm *VM, this Value, _ []Value) (Value, error) {
	return IntValue(int32(len(utf16.Encode([]rune(vm.Heap.StringOf(this.Ref)))))), nil
}

func stringIsEmpty(vm *VM, this Value, _ []Value) (Value, error) {
	return BoolValue(vm.Heap.StringOf(this.Ref) == ""), nil
}

func stringCharAt(vm *VM, this Value, args []Value) (Value, error) {
	units := utf16.Encode([]rune(vm.Heap.StringOf(this.Ref)))
	i := int(args[0].Int())
	if i < 0 || i >= len(units) {
		return Value{}, vm.throwNew(StringIndexException,
			fmt.Sprintf("Index %d out of bounds for length %d", i, len(units)))
	}
	return IntValue(int32(units[i])), nil
}

func stringConcat(vm *VM, this Value, args []Value) (Value, error) {
	if args[0].IsNull() {
		return Value{}, vm.nullPointer()
	}
	return vm.NewString(vm.Heap.StringOf(this.Ref) + vm.Heap.StringOf(args[0].Ref)), nil
}

func stringValueOf(vm *VM, _ Value, args []Value) (Value, error) {
	s, err := vm.stringOf(args[0])
	if err != nil {
		return Value{}, err
	}
	return vm.NewString(s), nil
}

// java/lang/Integer

func integerInit(vm *VM, this Value, args []Value) (Value, error) {
	return Value{}, vm.Heap.SetField(this.Ref, "value", args[0])
}

func integerValueOf(vm *VM, _ Value, args []Value) (Value, error) {
	return vm.box(args[0].Int())
}

func integerParseInt(vm *VM, _ Value, args []Value) (Value, error) {
	if args[0].IsNull() {
		return Value{}, vm.throwNew(NumberFormatException, "Cannot parse null string: null")
	}
	n, err := native.ParseInt(vm.Heap.StringOf(args[0].Ref))
	var nfe *native.NumberFormatError
	if errors.As(err, &nfe) {
		return Value{}, vm.throwNew(NumberFormatException, nfe.Error())
	}
	return IntValue(n), err
}

func integerIntValue(vm *VM, this Value, _ []Value) (Value, error) {
	return vm.Heap.GetField(this.Ref, "value")
}

func integerEquals(vm *VM, this Value, args []Value) (Value, error) {
	other := args[0]
	if other.Type != TypeRef || vm.Heap.TypeOf(other.Ref).Name != IntegerType {
		return BoolValue(false), nil
	}
	a, err := vm.Heap.GetField(this.Ref, "value")
	if err != nil {
		return Value{}, err
	}
	b, err := vm.Heap.GetField(other.Ref, "value")
	if err != nil {
		return Value{}, err
	}
	return BoolValue(a.I == b.I), nil
}

func integerToString(vm *VM, this Value, _ []Value) (Value, error) {
	v, err := vm.Heap.GetField(this.Ref, "value")
	if err != nil {
		return Value{}, err
	}
	return vm.NewString(v.String()), nil
}

// box returns an Integer holding v, shared for small values.
func (vm *VM) box(v int32) (Value, error) {
	if h, ok := vm.boxes[v]; ok && native.IntegerCached(v) {
		return RefValue(h), nil
	}
	t, err := vm.Registry.Lookup(IntegerType)
	if err != nil {
		return Value{}, err
	}
	h := vm.Heap.Allocate(t)
	if err := vm.Heap.SetField(h, "value", IntValue(v)); err != nil {
		return Value{}, err
	}
	if native.IntegerCached(v) {
		vm.boxes[v] = h
	}
	return RefValue(h), nil
}

// java/lang/System

func systemIdentityHashCode(_ *VM, _ Value, args []Value) (Value, error) {
	return IntValue(int32(args[0].Ref)), nil
}

// java/lang/Class

func classGetName(vm *VM, this Value, _ []Value) (Value, error) {
	t, err := hostState[*Type](vm, this)
	if err != nil {
		return Value{}, err
	}
	return vm.NewString(t.SourceName()), nil
}

func classToString(vm *VM, this Value, _ []Value) (Value, error) {
	t, err := hostState[*Type](vm, this)
	if err != nil {
		return Value{}, err
	}
	prefix := "class "
	if t.IsInterface() {
		prefix = "interface "
	}
	return vm.NewString(prefix + t.SourceName()), nil
}

// classGetResourceAsStream resolves name against the class's package
// unless it is absolute, and returns null when nothing is found.
func classGetResourceAsStream(vm *VM, this Value, args []Value) (Value, error) {
	t, err := hostState[*Type](vm, this)
	if err != nil {
		return Value{}, err
	}
	if args[0].IsNull() {
		return Value{}, vm.nullPointer()
	}
	name := vm.Heap.StringOf(args[0].Ref)
	if strings.HasPrefix(name, "/") {
		name = strings.TrimPrefix(name, "/")
	} else if dir := path.Dir(t.Name); dir != "." {
		name = dir + "/" + name
	}
	if vm.resources == nil {
		return NullValue(), nil
	}

	data, err := vm.resources.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		vm.log.Debug().Str("resource", name).Msg("resource not found")
		return NullValue(), nil
	}
	if err != nil {
		return Value{}, fmt.Errorf("resource %s: %w", name, err)
	}
	st, err := vm.Registry.Lookup(ByteArrayInputStreamType)
	if err != nil {
		return Value{}, err
	}
	return RefValue(vm.Heap.AllocateNative(st, native.NewByteStream(data))), nil
}

// java/io/PrintStream

func printStreamWrite(vm *VM, this Value, args []Value) (Value, error) {
	ps, err := hostState[*native.PrintStream](vm, this)
	if err != nil {
		return Value{}, err
	}
	_, err = ps.Write([]byte{byte(args[0].I)})
	return Value{}, err
}

func printStreamPrintln(vm *VM, this Value, args []Value) (Value, error) {
	ps, err := hostState[*native.PrintStream](vm, this)
	if err != nil {
		return Value{}, err
	}
	if len(args) == 0 {
		ps.Println("")
		return Value{}, nil
	}
	s, err := vm.stringOf(args[0])
	if err != nil {
		return Value{}, err
	}
	ps.Println(s)
	return Value{}, nil
}

func printStreamPrint(vm *VM, this Value, args []Value) (Value, error) {
	ps, err := hostState[*native.PrintStream](vm, this)
	if err != nil {
		return Value{}, err
	}
	s, err := vm.stringOf(args[0])
	if err != nil {
		return Value{}, err
	}
	ps.Print(s)
	return Value{}, nil
}

func printStreamPrintChar(newline bool) NativeFunc {
	return func(vm *VM, this Value, args []Value) (Value, error) {
		ps, err := hostState[*native.PrintStream](vm, this)
		if err != nil {
			return Value{}, err
		}
		s := string(utf16.Decode([]uint16{uint16(args[0].I)}))
		if newline {
			ps.Println(s)
		} else {
			ps.Print(s)
		}
		return Value{}, nil
	}
}

// java/io/InputStream

// inputStreamReadInto fills buf through the virtual read(), returning the
// byte count or -1 when the stream was already exhausted.
func inputStreamReadInto(vm *VM, this Value, args []Value) (Value, error) {
	arr, err := vm.array(args[0])
	if err != nil {
		return Value{}, err
	}
	n := 0
	for n < len(arr.Elems) {
		b, err := vm.Invoke(this, "read()", nil)
		if err != nil {
			return Value{}, err
		}
		if b.Int() < 0 {
			break
		}
		arr.Elems[n] = coerce(program.Byte, b)
		n++
	}
	if n == 0 && len(arr.Elems) > 0 {
		return IntValue(-1), nil
	}
	return IntValue(int32(n)), nil
}

func byteStreamInit(vm *VM, this Value, args []Value) (Value, error) {
	b, err := bytesOf(vm, args[0])
	if err != nil {
		return Value{}, err
	}
	vm.Heap.MustGet(this.Ref).Native = native.NewByteStream(b)
	return Value{}, nil
}

func byteStreamRead(vm *VM, this Value, _ []Value) (Value, error) {
	s, err := hostState[*native.ByteStream](vm, this)
	if err != nil {
		return Value{}, err
	}
	return IntValue(s.Read()), nil
}

func byteStreamAvailable(vm *VM, this Value, _ []Value) (Value, error) {
	s, err := hostState[*native.ByteStream](vm, this)
	if err != nil {
		return Value{}, err
	}
	return IntValue(s.Available()), nil
}

// java/util/HashMap

func hashMapInit(vm *VM, this Value, _ []Value) (Value, error) {
	vm.Heap.MustGet(this.Ref).Native = native.NewHashMap()
	return Value{}, nil
}

// mapKey converts a key to a Go value with Java equals semantics for
// strings and Integers and identity for everything else.
func (vm *VM) mapKey(v Value) any {
	switch {
	case v.IsNull():
		return nil
	case vm.isString(v):
		return vm.Heap.StringOf(v.Ref)
	case vm.Heap.TypeOf(v.Ref).Name == IntegerType:
		n, _ := vm.Heap.GetField(v.Ref, "value")
		return n.Int()
	}
	return v.Ref
}

func mapValue(v any) Value {
	if v == nil {
		return NullValue()
	}
	return v.(Value)
}

func hashMapPut(vm *VM, this Value, args []Value) (Value, error) {
	m, err := hostState[*native.HashMap](vm, this)
	if err != nil {
		return Value{}, err
	}
	return mapValue(m.Put(vm.mapKey(args[0]), args[1])), nil
}

func hashMapGet(vm *VM, this Value, args []Value) (Value, error) {
	m, err := hostState[*native.HashMap](vm, this)
	if err != nil {
		return Value{}, err
	}
	return mapValue(m.Get(vm.mapKey(args[0]))), nil
}

func hashMapContainsKey(vm *VM, this Value, args []Value) (Value, error) {
	m, err := hostState[*native.HashMap](vm, this)
	if err != nil {
		return Value{}, err
	}
	return BoolValue(m.ContainsKey(vm.mapKey(args[0]))), nil
}

func hashMapRemove(vm *VM, this Value, args []Value) (Value, error) {
	m, err := hostState[*native.HashMap](vm, this)
	if err != nil {
		return Value{}, err
	}
	return mapValue(m.Remove(vm.mapKey(args[0]))), nil
}

func hashMapSize(vm *VM, this Value, _ []Value) (Value, error) {
	m, err := hostState[*native.HashMap](vm, this)
	if err != nil {
		return Value{}, err
	}
	return IntValue(int32(m.Size())), nil
}

func hashMapIsEmpty(vm *VM, this Value, _ []Value) (Value, error) {
	m, err := hostState[*native.HashMap](vm, this)
	if err != nil {
		return Value{}, err
	}
	return BoolValue(m.Size() == 0), nil
}

// java/lang/Throwable

func throwableInit(vm *VM, this Value, args []Value) (Value, error) {
	return Value{}, vm.Heap.SetField(this.Ref, "message", args[0])
}

func throwableGetMessage(vm *VM, this Value, _ []Value) (Value, error) {
	return vm.Heap.GetField(this.Ref, "message")
}

func throwableToString(vm *VM, this Value, _ []Value) (Value, error) {
	return vm.NewString(vm.thrown(this.Ref).Error()), nil
}

func throwablePrintStackTrace(vm *VM, this Value, _ []Value) (Value, error) {
	s, err := vm.stringOf(this)
	if err != nil {
		return Value{}, err
	}
	vm.errOut.Println(s)
	return Value{}, nil
}
