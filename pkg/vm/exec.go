package vm

import (
	"errors"
	"fmt"

	"github.com/daimatz/jvmeval/pkg/program"
)

type completionKind int

const (
	completeNormal completionKind = iota
	completeBreak
	completeContinue
	completeReturn
	completeThrow
)

func (k completionKind) String() string {
	switch k {
	case completeBreak:
		return "break"
	case completeContinue:
		return "continue"
	case completeReturn:
		return "return"
	case completeThrow:
		return "throw"
	}
	return "normal"
}

// completion is how a statement finished: normally, by a control transfer
// (break, continue, return) or with an exception in flight.
type completion struct {
	kind  completionKind
	label string
	value Value
	exc   *ThrownException
}

var normal = completion{}

// abrupt converts an expression error into a completion. Program-level
// exceptions become thrown completions; anything else is an internal
// fault and stays an error.
func abrupt(err error) (completion, error) {
	var te *ThrownException
	if errors.As(err, &te) {
		return completion{kind: completeThrow, exc: te}, nil
	}
	return normal, err
}

// targets reports whether a break or continue with label c.label is aimed
// at a statement labelled own (an unlabelled transfer targets the
// innermost loop or switch).
func (c completion) targets(own string) bool {
	return c.label == "" || c.label == own
}

func (vm *VM) execStmts(f *Frame, stmts []program.Stmt) (completion, error) {
	for _, s := range stmts {
		c, err := vm.exec(f, s, "")
		if err != nil || c.kind != completeNormal {
			return c, err
		}
	}
	return normal, nil
}

// exec runs one statement. label is set when s is the body of a labelled
// statement so loops can honor a labelled continue.
func (vm *VM) exec(f *Frame, s program.Stmt, label string) (completion, error) {
	switch s := s.(type) {
	case *program.Block:
		return vm.execStmts(f, s.Stmts)

	case *program.LocalDecl:
		v := DefaultValue(s.Type)
		if s.Init != nil {
			var err error
			if v, err = vm.eval(f, s.Init); err != nil {
				return abrupt(err)
			}
		}
		f.Declare(s.Name, s.Type, v)
		return normal, nil

	case *program.ExprStmt:
		if _, err := vm.eval(f, s.Expr); err != nil {
			return abrupt(err)
		}
		return normal, nil

	case *program.If:
		cond, err := vm.evalBool(f, s.Cond)
		if err != nil {
			return abrupt(err)
		}
		if cond {
			return vm.execStmts(f, s.Then)
		}
		return vm.execStmts(f, s.Else)

	case *program.While:
		return vm.execLoop(f, label, nil, s.Cond, nil, s.Body, false)

	case *program.DoWhile:
		return vm.execLoop(f, label, nil, s.Cond, nil, s.Body, true)

	case *program.For:
		return vm.execLoop(f, label, s.Init, s.Cond, s.Update, s.Body, false)

	case *program.Switch:
		return vm.execSwitch(f, s)

	case *program.Break:
		return completion{kind: completeBreak, label: s.Label}, nil

	case *program.Continue:
		return completion{kind: completeContinue, label: s.Label}, nil

	case *program.Labeled:
		c, err := vm.exec(f, s.Body, s.Label)
		if err != nil {
			return c, err
		}
		if c.kind == completeBreak && c.label == s.Label {
			return normal, nil
		}
		return c, nil

	case *program.Return:
		if s.Value == nil {
			return completion{kind: completeReturn}, nil
		}
		v, err := vm.eval(f, s.Value)
		if err != nil {
			return abrupt(err)
		}
		return completion{kind: completeReturn, value: v}, nil

	case *program.Throw:
		return vm.execThrow(f, s)

	case *program.Try:
		return vm.execTry(f, s)
	}
	return normal, fmt.Errorf("exec: unsupported statement %T", s)
}

// execLoop runs while, do-while and for loops. The condition is tested
// before each iteration (after the first for do-while); update runs after
// each body, including one cut short by continue.
func (vm *VM) execLoop(f *Frame, label string, init []program.Stmt, cond program.Expr, update []program.Expr, body []program.Stmt, bodyFirst bool) (completion, error) {
	if c, err := vm.execStmts(f, init); err != nil || c.kind != completeNormal {
		return c, err
	}
	first := true
	for {
		if cond != nil && !(bodyFirst && first) {
			ok, err := vm.evalBool(f, cond)
			if err != nil {
				return abrupt(err)
			}
			if !ok {
				return normal, nil
			}
		}
		first = false

		c, err := vm.execStmts(f, body)
		if err != nil {
			return c, err
		}
		switch c.kind {
		case completeBreak:
			if c.targets(label) {
				return normal, nil
			}
			return c, nil
		case completeContinue:
			if !c.targets(label) {
				return c, nil
			}
		case completeReturn, completeThrow:
			return c, nil
		}

		for _, u := range update {
			if _, err := vm.eval(f, u); err != nil {
				return abrupt(err)
			}
		}
	}
}

// execSwitch evaluates the selector once and runs statements from the
// first matching case (or default) onward, falling through case
// boundaries until a break.
func (vm *VM) execSwitch(f *Frame, s *program.Switch) (completion, error) {
	sel, err := vm.eval(f, s.Selector)
	if err != nil {
		return abrupt(err)
	}
	if sel.IsNull() {
		return abrupt(vm.nullPointer())
	}

	start := -1
	for i, c := range s.Cases {
		for _, lit := range c.Labels {
			if vm.matchesLabel(sel, lit) {
				start = i
				break
			}
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		for i, c := range s.Cases {
			if c.Default {
				start = i
				break
			}
		}
	}
	if start < 0 {
		return normal, nil
	}

	for _, c := range s.Cases[start:] {
		comp, err := vm.execStmts(f, c.Body)
		if err != nil {
			return comp, err
		}
		if comp.kind == completeBreak && comp.label == "" {
			return normal, nil
		}
		if comp.kind != completeNormal {
			return comp, nil
		}
	}
	return normal, nil
}

func (vm *VM) matchesLabel(sel Value, lit *program.Literal) bool {
	switch lit.Kind {
	case program.LitInt, program.LitLong:
		return sel.IsNumeric() && sel.I == lit.I
	case program.LitString:
		return vm.isString(sel) && vm.Heap.StringOf(sel.Ref) == lit.S
	case program.LitBool:
		return sel.Type == TypeBool && sel.Bool() == lit.B
	}
	return false
}

func (vm *VM) execThrow(f *Frame, s *program.Throw) (completion, error) {
	v, err := vm.eval(f, s.Value)
	if err != nil {
		return abrupt(err)
	}
	if v.IsNull() {
		return abrupt(vm.nullPointer())
	}
	throwable, err := vm.Registry.Lookup(ThrowableType)
	if err != nil {
		return normal, err
	}
	if !vm.IsInstance(v, throwable) {
		return normal, fmt.Errorf("throw: %s is not throwable", vm.typeName(v))
	}
	exc := vm.thrown(v.Ref)
	vm.log.Trace().Str("exception", exc.Type).Str("method", f.methodName()).Msg("throw")
	return completion{kind: completeThrow, exc: exc}, nil
}

// execTry runs a try/catch/finally region. Catch clauses are tested in
// source order and the first whose type is a supertype of the exception's
// runtime type handles it. The finally block runs exactly once on every
// way out; if it completes abruptly its completion replaces the pending
// one.
func (vm *VM) execTry(f *Frame, s *program.Try) (completion, error) {
	c, err := vm.execStmts(f, s.Body)
	if err != nil {
		return c, err
	}

	if c.kind == completeThrow {
		handler, err := vm.findHandler(s.Catches, c.exc)
		if err != nil {
			return normal, err
		}
		if handler != nil {
			vm.log.Trace().Str("exception", c.exc.Type).Strs("catch", handler.Types).Msg("caught")
			f.Declare(handler.Var, program.TypeRef(ThrowableType), c.exc.Value())
			if c, err = vm.execStmts(f, handler.Body); err != nil {
				return c, err
			}
		}
	}

	if s.Finally == nil {
		return c, nil
	}
	vm.log.Trace().Str("pending", c.kind.String()).Msg("finally")
	fc, err := vm.execStmts(f, s.Finally)
	if err != nil {
		return fc, err
	}
	if fc.kind != completeNormal {
		return fc, nil
	}
	return c, nil
}

func (vm *VM) findHandler(catches []*program.Catch, exc *ThrownException) (*program.Catch, error) {
	rt := vm.Heap.TypeOf(exc.Ref)
	for _, c := range catches {
		for _, name := range c.Types {
			ct, err := vm.Registry.Lookup(name)
			if err != nil {
				return nil, err
			}
			if vm.Registry.IsSubtype(rt, ct) {
				return c, nil
			}
		}
	}
	return nil, nil
}
