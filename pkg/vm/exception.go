package vm

import "fmt"

// Names of the library exception types raised by the runtime itself.
const (
	ThrowableType         = "java/lang/Throwable"
	NullPointerException  = "java/lang/NullPointerException"
	ArithmeticException   = "java/lang/ArithmeticException"
	ClassCastException    = "java/lang/ClassCastException"
	ArrayIndexException   = "java/lang/ArrayIndexOutOfBoundsException"
	NegativeArraySizeExc  = "java/lang/NegativeArraySizeException"
	NumberFormatException = "java/lang/NumberFormatException"
	StackOverflowError    = "java/lang/StackOverflowError"
)

// ThrownException is a program-level exception in flight. It travels as a
// Go error across method invocations and is converted back into a thrown
// completion at statement boundaries. When it escapes main it is returned
// from Execute.
type ThrownException struct {
	Ref     Handle
	Type    string
	Message string
	HasMsg  bool
}

func (e *ThrownException) Error() string {
	if e.HasMsg {
		return fmt.Sprintf("%s: %s", dotted(e.Type), e.Message)
	}
	return dotted(e.Type)
}

// Value returns the exception object as a reference value.
func (e *ThrownException) Value() Value {
	return RefValue(e.Ref)
}

// thrown wraps an existing throwable object.
func (vm *VM) thrown(h Handle) *ThrownException {
	obj := vm.Heap.MustGet(h)
	e := &ThrownException{Ref: h, Type: obj.Type.Name}
	if msg, err := vm.Heap.GetField(h, "message"); err == nil && msg.Type == TypeRef {
		e.Message = vm.Heap.StringOf(msg.Ref)
		e.HasMsg = true
	}
	return e
}

// throwNew allocates an exception of the named library type with an
// optional message and returns it as an error ready to propagate.
func (vm *VM) throwNew(className, msg string) error {
	t, err := vm.Registry.Lookup(className)
	if err != nil {
		return err
	}
	h := vm.Heap.Allocate(t)
	if msg != "" {
		if err := vm.Heap.SetField(h, "message", vm.NewString(msg)); err != nil {
			return err
		}
	}
	e := vm.thrown(h)
	vm.log.Trace().Str("exception", e.Type).Str("message", msg).Msg("runtime exception")
	return e
}

func (vm *VM) nullPointer() error {
	return vm.throwNew(NullPointerException, "")
}
