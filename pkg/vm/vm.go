package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/daimatz/jvmeval/pkg/native"
	"github.com/daimatz/jvmeval/pkg/program"
)

// DefaultMaxFrameDepth is the default maximum number of nested method calls.
const DefaultMaxFrameDepth = 1024

// VM evaluates a resolved program.
type VM struct {
	Program  *program.Program
	Registry *Registry
	Heap     *Heap
	Stdout   io.Writer
	Stderr   io.Writer

	out       *native.PrintStream
	errOut    *native.PrintStream
	log       zerolog.Logger
	maxDepth  int
	depth     int
	resources ResourceLoader
	interned  map[string]Handle
	classes   map[*Type]Handle
	boxes     map[int32]Handle
	strType   *Type
}

// Option configures a VM.
type Option func(*VM)

// WithLogger sets the logger used for execution tracing. Without it the
// VM does not log.
func WithLogger(l zerolog.Logger) Option {
	return func(vm *VM) {
		vm.log = l
	}
}

// WithMaxFrameDepth limits call nesting; deeper calls throw
// StackOverflowError.
func WithMaxFrameDepth(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.maxDepth = n
		}
	}
}

// WithResources sets where Class.getResourceAsStream looks up resources.
func WithResources(r ResourceLoader) Option {
	return func(vm *VM) {
		vm.resources = r
	}
}

// WithStdout sets the writer that receives System.out lines as they are
// printed.
func WithStdout(w io.Writer) Option {
	return func(vm *VM) {
		vm.Stdout = w
	}
}

// NewVM builds the type registry for p on top of the runtime library and
// initializes static storage.
func NewVM(p *program.Program, opts ...Option) (*VM, error) {
	vm := &VM{
		Program:  p,
		Heap:     NewHeap(),
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		out:      &native.PrintStream{},
		errOut:   &native.PrintStream{},
		log:      zerolog.Nop(),
		maxDepth: DefaultMaxFrameDepth,
		interned: make(map[string]Handle),
		classes:  make(map[*Type]Handle),
		boxes:    make(map[int32]Handle),
	}
	for _, opt := range opts {
		opt(vm)
	}

	decls := append(bootstrapTypes(), p.Types...)
	reg, err := Build(decls, bootstrapNatives())
	if err != nil {
		return nil, err
	}
	vm.Registry = reg
	if vm.strType, err = reg.Lookup(StringType); err != nil {
		return nil, err
	}

	if err := vm.initStatics(); err != nil {
		return nil, err
	}
	vm.log.Debug().Int("types", len(reg.Types())).Str("main", p.Main).Msg("registry built")
	return vm, nil
}

func (vm *VM) initStatics() error {
	for _, t := range vm.Registry.Types() {
		vm.Heap.InitStatics(t)
		for _, f := range t.Fields {
			if !f.Static || f.Init == nil {
				continue
			}
			if err := vm.Heap.SetStatic(t, f.Name, vm.literal(f.Init)); err != nil {
				return err
			}
		}
	}

	ps, err := vm.Registry.Lookup(PrintStreamType)
	if err != nil {
		return err
	}
	sys, err := vm.Registry.Lookup(SystemType)
	if err != nil {
		return err
	}
	if err := vm.Heap.SetStatic(sys, "out", RefValue(vm.Heap.AllocateNative(ps, vm.out))); err != nil {
		return err
	}
	return vm.Heap.SetStatic(sys, "err", RefValue(vm.Heap.AllocateNative(ps, vm.errOut)))
}

// Execute runs static initializers and then main(String[]) of the
// program's main type. An exception escaping main is returned as a
// *ThrownException.
func (vm *VM) Execute() error {
	vm.out.Writer = vm.Stdout
	vm.errOut.Writer = vm.Stderr

	mainType, err := vm.Registry.Lookup(vm.Program.Main)
	if err != nil {
		return fmt.Errorf("main type: %w", err)
	}

	for _, t := range vm.Registry.Types() {
		if len(t.StaticInit) == 0 {
			continue
		}
		init := &Method{Name: "<clinit>", Static: true, Owner: t, Body: t.StaticInit, signature: "<clinit>()"}
		if _, err := vm.invokeMethod(init, Value{}, nil); err != nil {
			return err
		}
	}

	sig := "main(" + StringType + "[])"
	method := vm.Registry.ResolveMethod(mainType, sig)
	if method == nil || !method.Static {
		return fmt.Errorf("main method not found in %s", mainType.Name)
	}

	argsType, err := vm.Registry.ArrayOf(StringType)
	if err != nil {
		return err
	}
	args := []Value{RefValue(vm.Heap.AllocateArray(argsType, 0))}

	_, err = vm.invokeMethod(method, Value{}, args)
	if te, ok := err.(*ThrownException); ok {
		vm.log.Trace().Str("exception", te.Type).Msg("uncaught exception")
	}
	return err
}

// Output returns the lines printed to System.out so far.
func (vm *VM) Output() []string {
	return vm.out.Lines()
}

// NewString allocates a fresh java/lang/String.
func (vm *VM) NewString(s string) Value {
	return RefValue(vm.Heap.AllocateNative(vm.strType, s))
}

// intern returns the shared instance for a string constant.
func (vm *VM) intern(s string) Value {
	if h, ok := vm.interned[s]; ok {
		return RefValue(h)
	}
	v := vm.NewString(s)
	vm.interned[s] = v.Ref
	return v
}

// literal evaluates a constant.
func (vm *VM) literal(lit *program.Literal) Value {
	switch lit.Kind {
	case program.LitInt:
		return IntValue(int32(lit.I))
	case program.LitLong:
		return LongValue(lit.I)
	case program.LitBool:
		return BoolValue(lit.B)
	case program.LitString:
		return vm.intern(lit.S)
	}
	return NullValue()
}

// classObject returns the unique java/lang/Class instance describing t.
func (vm *VM) classObject(t *Type) (Value, error) {
	if h, ok := vm.classes[t]; ok {
		return RefValue(h), nil
	}
	ct, err := vm.Registry.Lookup(ClassType)
	if err != nil {
		return Value{}, err
	}
	h := vm.Heap.AllocateNative(ct, t)
	vm.classes[t] = h
	return RefValue(h), nil
}

// isString reports whether v references a java/lang/String.
func (vm *VM) isString(v Value) bool {
	return v.Type == TypeRef && vm.Heap.TypeOf(v.Ref) == vm.strType
}
