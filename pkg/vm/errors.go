package vm

import (
	"fmt"
	"strings"
)

// Internal faults. All of them except InvalidCastError abort the run;
// InvalidCastError is rethrown to the program as a ClassCastException.

// UnresolvedTypeError reports a reference to a type that was never declared.
type UnresolvedTypeError struct {
	From string
	Name string
}

func (e *UnresolvedTypeError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("unresolved type %s", e.Name)
	}
	return fmt.Sprintf("unresolved type %s referenced from %s", e.Name, e.From)
}

// CyclicHierarchyError reports a type that is its own supertype.
type CyclicHierarchyError struct {
	Chain []string
}

func (e *CyclicHierarchyError) Error() string {
	return "cyclic inheritance: " + strings.Join(e.Chain, " -> ")
}

// DuplicateTypeError reports two declarations with the same name.
type DuplicateTypeError struct {
	Name string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("duplicate declaration of type %s", e.Name)
}

// NoSuchFieldError reports access to a field declared nowhere in the
// type's hierarchy.
type NoSuchFieldError struct {
	Type  string
	Field string
}

func (e *NoSuchFieldError) Error() string {
	return fmt.Sprintf("no field %s in %s", e.Field, e.Type)
}

// NoSuchMethodError reports a call that matches no declaration.
type NoSuchMethodError struct {
	Type      string
	Signature string
}

func (e *NoSuchMethodError) Error() string {
	return fmt.Sprintf("no method %s in %s", e.Signature, e.Type)
}

// AbstractDispatchError reports a virtual call that resolved to an abstract
// declaration with no concrete override.
type AbstractDispatchError struct {
	Type      string
	Signature string
}

func (e *AbstractDispatchError) Error() string {
	return fmt.Sprintf("no concrete implementation of %s for %s", e.Signature, e.Type)
}

// InvalidCastError reports a checked cast whose source is not a subtype of
// the target.
type InvalidCastError struct {
	From string
	To   string
}

func (e *InvalidCastError) Error() string {
	return fmt.Sprintf("class %s cannot be cast to class %s", dotted(e.From), dotted(e.To))
}

// InstantiationError reports a new of an abstract class or interface.
type InstantiationError struct {
	Type string
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("cannot instantiate %s", e.Type)
}

// UndefinedLocalError reports a read or write of an undeclared local.
type UndefinedLocalError struct {
	Method string
	Name   string
}

func (e *UndefinedLocalError) Error() string {
	return fmt.Sprintf("%s: undefined local %s", e.Method, e.Name)
}

// dotted converts an internal name (java/lang/String) to its source form.
func dotted(name string) string {
	return strings.ReplaceAll(name, "/", ".")
}
