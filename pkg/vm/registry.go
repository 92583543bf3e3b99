package vm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/daimatz/jvmeval/pkg/program"
)

// ObjectType is the root of the class hierarchy.
const ObjectType = "java/lang/Object"

// Type is a resolved class, abstract class, interface or array descriptor.
type Type struct {
	Name       string
	Kind       program.TypeKind
	Super      *Type
	Interfaces []*Type
	Fields     []*Field
	Methods    []*Method
	StaticInit []program.Stmt

	// Array descriptors only.
	Array    bool
	Elem     program.TypeRef
	ElemType *Type

	linked    bool
	ancestors map[*Type]struct{}
	layout    []*Field
	slots     map[string]int
	statics   map[string]*Field
	declared  map[string]*Method
	vtable    map[string]*Method
	byName    map[string][]*Method
}

// Field is a declared field. Slot indexes instance storage or the
// declaring type's static table.
type Field struct {
	Name   string
	Type   program.TypeRef
	Static bool
	Owner  *Type
	Slot   int
	Init   *program.Literal
}

// NativeFunc implements a method in Go.
type NativeFunc func(vm *VM, this Value, args []Value) (Value, error)

// Method is a declared method with its resolved signature.
type Method struct {
	Name      string
	Params    []program.Param
	Returns   program.TypeRef
	Static    bool
	Abstract  bool
	Owner     *Type
	Body      []program.Stmt
	Native    NativeFunc
	Overrides *Method

	signature string
}

// Signature returns name(T1,T2) with canonical parameter type names.
func (m *Method) Signature() string { return m.signature }

// IsConstructor reports whether m is an <init> method.
func (m *Method) IsConstructor() bool { return m.Name == program.ConstructorName }

func (m *Method) String() string { return m.Owner.Name + "." + m.signature }

// IsInterface reports whether t is an interface.
func (t *Type) IsInterface() bool { return t.Kind == program.KindInterface }

// IsAbstract reports whether t cannot be instantiated.
func (t *Type) IsAbstract() bool {
	return t.Kind == program.KindAbstract || t.Kind == program.KindInterface
}

// SourceName returns the dotted form of the type name.
func (t *Type) SourceName() string { return dotted(t.Name) }

// Chain returns t followed by its superclasses up to the root.
func (t *Type) Chain() []*Type {
	var chain []*Type
	for c := t; c != nil; c = c.Super {
		chain = append(chain, c)
	}
	return chain
}

// InstanceFields returns the flattened instance field layout, ancestors first.
func (t *Type) InstanceFields() []*Field { return t.layout }

// newFields returns default-initialized instance storage.
func (t *Type) newFields() []Value {
	fields := make([]Value, len(t.layout))
	for i, f := range t.layout {
		fields[i] = DefaultValue(f.Type)
	}
	return fields
}

// slot returns the instance storage index of a field name.
func (t *Type) slot(name string) (int, bool) {
	i, ok := t.slots[name]
	return i, ok
}

// LookupStatic finds a static field visible from t: declared on t, one of
// its superclasses, or an implemented interface.
func (t *Type) LookupStatic(name string) *Field {
	for c := t; c != nil; c = c.Super {
		if f, ok := c.statics[name]; ok {
			return f
		}
	}
	for a := range t.ancestors {
		if a.IsInterface() {
			if f, ok := a.statics[name]; ok {
				return f
			}
		}
	}
	return nil
}

// Registry maps type names to resolved descriptors.
type Registry struct {
	types map[string]*Type
	order []*Type
}

// Build resolves declarations into a registry. natives supplies Go bodies
// keyed by "Owner.signature".
func Build(decls []*program.TypeDecl, natives map[string]NativeFunc) (*Registry, error) {
	r := &Registry{types: make(map[string]*Type, len(decls))}

	for _, d := range decls {
		name := normalize(d.Name)
		if _, dup := r.types[name]; dup {
			return nil, &DuplicateTypeError{Name: name}
		}
		t := &Type{Name: name, Kind: d.Kind, StaticInit: d.StaticInit}
		r.types[name] = t
		r.order = append(r.order, t)
	}

	for _, d := range decls {
		t := r.types[normalize(d.Name)]
		if err := r.resolveSupertypes(t, d); err != nil {
			return nil, err
		}
	}

	if err := r.checkCycles(); err != nil {
		return nil, err
	}

	declByType := make(map[*Type]*program.TypeDecl, len(decls))
	for _, d := range decls {
		declByType[r.types[normalize(d.Name)]] = d
	}
	for _, t := range r.order {
		if err := r.link(t, declByType, natives); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) resolveSupertypes(t *Type, d *program.TypeDecl) error {
	switch {
	case d.Super != "":
		st, ok := r.find(d.Super)
		if !ok {
			return &UnresolvedTypeError{From: t.Name, Name: d.Super}
		}
		if st.IsInterface() != t.IsInterface() {
			return fmt.Errorf("%s: cannot extend %s %s", t.Name, st.Kind, st.Name)
		}
		t.Super = st
	case !t.IsInterface() && t.Name != ObjectType:
		if obj, ok := r.types[ObjectType]; ok {
			t.Super = obj
		}
	}

	for _, name := range d.Interfaces {
		it, ok := r.find(name)
		if !ok {
			return &UnresolvedTypeError{From: t.Name, Name: name}
		}
		if !it.IsInterface() {
			return fmt.Errorf("%s: %s is not an interface", t.Name, it.Name)
		}
		t.Interfaces = append(t.Interfaces, it)
	}
	return nil
}

// checkCycles walks supertype edges depth-first and rejects back edges.
func (r *Registry) checkCycles() error {
	const (
		white = iota
		grey
		black
	)
	color := make(map[*Type]int, len(r.order))
	var path []string

	var visit func(t *Type) error
	visit = func(t *Type) error {
		switch color[t] {
		case grey:
			start := 0
			for i, n := range path {
				if n == t.Name {
					start = i
				}
			}
			chain := append(append([]string{}, path[start:]...), t.Name)
			return &CyclicHierarchyError{Chain: chain}
		case black:
			return nil
		}
		color[t] = grey
		path = append(path, t.Name)
		edges := append([]*Type{}, t.Interfaces...)
		if t.Super != nil {
			edges = append([]*Type{t.Super}, edges...)
		}
		for _, s := range edges {
			if err := visit(s); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		color[t] = black
		return nil
	}

	for _, t := range r.order {
		if err := visit(t); err != nil {
			return err
		}
	}
	return nil
}

// link computes the cached closure, field layout and dispatch table of t
// after its supertypes.
func (r *Registry) link(t *Type, decls map[*Type]*program.TypeDecl, natives map[string]NativeFunc) error {
	if t.linked {
		return nil
	}
	supers := append([]*Type{}, t.Interfaces...)
	if t.Super != nil {
		supers = append([]*Type{t.Super}, supers...)
	}
	for _, s := range supers {
		if err := r.link(s, decls, natives); err != nil {
			return err
		}
	}
	d := decls[t]

	t.ancestors = map[*Type]struct{}{t: {}}
	for _, s := range supers {
		for a := range s.ancestors {
			t.ancestors[a] = struct{}{}
		}
	}

	// Instance fields are flattened across the chain. A redeclared name
	// keeps its slot and takes the most derived declaration.
	t.slots = make(map[string]int)
	t.statics = make(map[string]*Field)
	if t.Super != nil {
		t.layout = append([]*Field{}, t.Super.layout...)
		for k, v := range t.Super.slots {
			t.slots[k] = v
		}
	}
	for _, fd := range d.Fields {
		ft, err := r.canonical(t.Name, fd.Type)
		if err != nil {
			return err
		}
		f := &Field{Name: fd.Name, Type: ft, Static: fd.Static || t.IsInterface(), Owner: t, Init: fd.Init}
		t.Fields = append(t.Fields, f)
		if f.Static {
			f.Slot = len(t.statics)
			t.statics[f.Name] = f
			continue
		}
		if slot, ok := t.slots[f.Name]; ok {
			f.Slot = slot
			t.layout[slot] = f
			continue
		}
		f.Slot = len(t.layout)
		t.slots[f.Name] = f.Slot
		t.layout = append(t.layout, f)
	}

	t.declared = make(map[string]*Method)
	for _, md := range d.Methods {
		m, err := r.newMethod(t, md)
		if err != nil {
			return err
		}
		if fn, ok := natives[t.Name+"."+m.signature]; ok {
			m.Native = fn
		}
		if _, dup := t.declared[m.signature]; dup {
			return fmt.Errorf("%s: duplicate method %s", t.Name, m.signature)
		}
		t.declared[m.signature] = m
		t.Methods = append(t.Methods, m)
		if !m.Static && !m.IsConstructor() && t.Super != nil {
			m.Overrides = r.ResolveMethod(t.Super, m.signature)
		}
	}

	r.buildVTable(t)
	t.linked = true
	return nil
}

func (r *Registry) newMethod(t *Type, md *program.MethodDecl) (*Method, error) {
	m := &Method{
		Name:     md.Name,
		Static:   md.Static,
		Abstract: md.Abstract || (t.IsInterface() && md.Body == nil && !md.Static),
		Owner:    t,
		Body:     md.Body,
	}
	ret, err := r.canonical(t.Name, md.Returns)
	if err != nil {
		return nil, err
	}
	m.Returns = ret
	types := make([]program.TypeRef, len(md.Params))
	for i, p := range md.Params {
		pt, err := r.canonical(t.Name, p.Type)
		if err != nil {
			return nil, err
		}
		types[i] = pt
		m.Params = append(m.Params, program.Param{Name: p.Name, Type: pt})
	}
	m.signature = signature(md.Name, types)
	return m, nil
}

// buildVTable maps every virtual signature visible on t to its most
// derived declaration: the superclass table, then t's own methods, then
// interface defaults and abstract interface methods for the gaps.
func (r *Registry) buildVTable(t *Type) {
	t.vtable = make(map[string]*Method)
	if t.Super != nil {
		for sig, m := range t.Super.vtable {
			t.vtable[sig] = m
		}
	}
	for _, m := range t.Methods {
		if m.Static || m.IsConstructor() {
			continue
		}
		t.vtable[m.signature] = m
	}
	ifaces := r.interfaceClosure(t)
	for _, it := range ifaces {
		for _, m := range it.Methods {
			if m.Static || m.Abstract {
				continue
			}
			if cur, ok := t.vtable[m.signature]; !ok || (cur.Abstract && cur.Owner.IsInterface()) {
				t.vtable[m.signature] = m
			}
		}
	}
	for _, it := range ifaces {
		for _, m := range it.Methods {
			if !m.Static && m.Abstract {
				if _, ok := t.vtable[m.signature]; !ok {
					t.vtable[m.signature] = m
				}
			}
		}
	}

	t.byName = make(map[string][]*Method)
	sigs := make([]string, 0, len(t.vtable))
	for sig := range t.vtable {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)
	for _, sig := range sigs {
		m := t.vtable[sig]
		t.byName[m.Name] = append(t.byName[m.Name], m)
	}
}

// interfaceClosure lists the interfaces t implements, directly or through
// supertypes, nearest first.
func (r *Registry) interfaceClosure(t *Type) []*Type {
	var out []*Type
	seen := make(map[*Type]bool)
	var walk func(*Type)
	walk = func(c *Type) {
		for _, it := range c.Interfaces {
			if !seen[it] {
				seen[it] = true
				out = append(out, it)
			}
		}
		for _, it := range c.Interfaces {
			walk(it)
		}
		if c.Super != nil {
			walk(c.Super)
		}
	}
	walk(t)
	return out
}

// Lookup returns the type with the given name. Names may use dots or
// slashes; unqualified names fall back to java/lang.
func (r *Registry) Lookup(name string) (*Type, error) {
	if t, ok := r.find(name); ok {
		return t, nil
	}
	return nil, &UnresolvedTypeError{Name: name}
}

func (r *Registry) find(name string) (*Type, bool) {
	name = normalize(name)
	if t, ok := r.types[name]; ok {
		return t, true
	}
	if !strings.Contains(name, "/") {
		if t, ok := r.types["java/lang/"+name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Types returns all declared types in declaration order.
func (r *Registry) Types() []*Type {
	return append([]*Type{}, r.order...)
}

// ResolveType returns the descriptor for a reference type, creating array
// descriptors on first use. Primitive types have no descriptor.
func (r *Registry) ResolveType(ref program.TypeRef) (*Type, error) {
	if ref.IsArray() {
		elem, err := r.canonical("", ref.Elem())
		if err != nil {
			return nil, err
		}
		return r.ArrayOf(elem)
	}
	if !ref.IsReference() {
		return nil, fmt.Errorf("%s is not a reference type", ref)
	}
	return r.Lookup(string(ref))
}

// ArrayOf returns the array type with the given canonical element type.
func (r *Registry) ArrayOf(elem program.TypeRef) (*Type, error) {
	name := string(elem) + "[]"
	if t, ok := r.types[name]; ok {
		return t, nil
	}
	obj, ok := r.types[ObjectType]
	if !ok {
		return nil, &UnresolvedTypeError{Name: ObjectType}
	}
	t := &Type{Name: name, Kind: program.KindClass, Super: obj, Array: true, Elem: elem, linked: true}
	if elem.IsReference() {
		et, err := r.ResolveType(elem)
		if err != nil {
			return nil, err
		}
		t.ElemType = et
	}
	t.ancestors = map[*Type]struct{}{t: {}, obj: {}}
	t.slots = map[string]int{}
	t.statics = map[string]*Field{}
	t.declared = map[string]*Method{}
	t.vtable = obj.vtable
	t.byName = obj.byName
	r.types[name] = t
	return t, nil
}

// canonical rewrites a type reference to use registered type names.
func (r *Registry) canonical(from string, ref program.TypeRef) (program.TypeRef, error) {
	switch {
	case ref.IsArray():
		elem, err := r.canonical(from, ref.Elem())
		if err != nil {
			return "", err
		}
		return elem + "[]", nil
	case ref == "":
		return program.Void, nil
	case ref.IsPrimitive() || ref.IsVoid():
		return ref, nil
	}
	t, ok := r.find(string(ref))
	if !ok {
		return "", &UnresolvedTypeError{From: from, Name: string(ref)}
	}
	return program.TypeRef(t.Name), nil
}

// IsSubtype reports whether a equals b or b is reachable from a through
// superclass and interface links. Arrays are covariant in reference
// element types.
func (r *Registry) IsSubtype(a, b *Type) bool {
	if a == b {
		return true
	}
	if b.Array {
		if !a.Array {
			return false
		}
		if a.ElemType != nil && b.ElemType != nil {
			return r.IsSubtype(a.ElemType, b.ElemType)
		}
		return a.Elem == b.Elem
	}
	_, ok := a.ancestors[b]
	return ok
}

// ResolveMethod returns the nearest declaration of signature walking up
// from owner through its superclasses, then its interfaces.
func (r *Registry) ResolveMethod(owner *Type, sig string) *Method {
	for c := owner; c != nil; c = c.Super {
		if m, ok := c.declared[sig]; ok {
			return m
		}
	}
	for _, it := range r.interfaceClosure(owner) {
		if m, ok := it.declared[sig]; ok {
			return m
		}
	}
	return nil
}

// Dispatch returns the implementation of sig for an instance whose runtime
// type is t.
func (r *Registry) Dispatch(t *Type, sig string) (*Method, error) {
	m, ok := t.vtable[sig]
	if !ok {
		return nil, &NoSuchMethodError{Type: t.Name, Signature: sig}
	}
	if m.Abstract {
		return nil, &AbstractDispatchError{Type: t.Name, Signature: sig}
	}
	return m, nil
}

// candidates lists the methods named name visible from owner. Virtual
// candidates come from the dispatch table; otherwise the declarations are
// collected up the chain, nearer ones hiding farther ones.
func (r *Registry) candidates(owner *Type, name string, virtual bool) []*Method {
	if virtual {
		return owner.byName[name]
	}
	var out []*Method
	seen := make(map[string]bool)
	collect := func(c *Type) {
		for _, m := range c.Methods {
			if m.Name == name && !seen[m.signature] {
				seen[m.signature] = true
				out = append(out, m)
			}
		}
	}
	if name == program.ConstructorName {
		collect(owner)
		return out
	}
	for c := owner; c != nil; c = c.Super {
		collect(c)
	}
	for _, it := range r.interfaceClosure(owner) {
		collect(it)
	}
	return out
}

func signature(name string, params []program.TypeRef) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = string(p)
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

func normalize(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}
