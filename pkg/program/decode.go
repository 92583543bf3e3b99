package program

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// The YAML encoding mirrors the Go types. Every statement and expression
// is a mapping with exactly one key naming its kind; plain scalars are
// literals (ints, booleans, null and strings).
//
//	main: Hello
//	types:
//	  - name: Hello
//	    methods:
//	      - name: main
//	        static: true
//	        params: [{name: args, type: "String[]"}]
//	        body:
//	          - println: "Hello, world!"

type rawProgram struct {
	Main  string    `yaml:"main"`
	Types []rawType `yaml:"types"`
}

type rawType struct {
	Name       string      `yaml:"name"`
	Kind       string      `yaml:"kind"`
	Extends    string      `yaml:"extends"`
	Implements []string    `yaml:"implements"`
	Fields     []rawField  `yaml:"fields"`
	Methods    []rawMethod `yaml:"methods"`
	StaticInit yaml.Node   `yaml:"static_init"`
}

type rawField struct {
	Name   string    `yaml:"name"`
	Type   string    `yaml:"type"`
	Static bool      `yaml:"static"`
	Init   yaml.Node `yaml:"init"`
}

type rawParam struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type rawMethod struct {
	Name     string     `yaml:"name"`
	Params   []rawParam `yaml:"params"`
	Returns  string     `yaml:"returns"`
	Static   bool       `yaml:"static"`
	Abstract bool       `yaml:"abstract"`
	Body     yaml.Node  `yaml:"body"`
}

// LoadFile reads a YAML-encoded program from path.
func LoadFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode reads a YAML-encoded program.
func Decode(r io.Reader) (*Program, error) {
	var raw rawProgram
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding program: %w", err)
	}

	p := &Program{Main: raw.Main}
	for i := range raw.Types {
		td, err := decodeType(&raw.Types[i])
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", raw.Types[i].Name, err)
		}
		p.Types = append(p.Types, td)
	}
	if p.Main == "" && len(p.Types) > 0 {
		p.Main = p.Types[0].Name
	}
	return p, nil
}

func decodeType(rt *rawType) (*TypeDecl, error) {
	td := &TypeDecl{
		Name:       rt.Name,
		Super:      rt.Extends,
		Interfaces: rt.Implements,
	}
	switch rt.Kind {
	case "", "class":
		td.Kind = KindClass
	case "abstract":
		td.Kind = KindAbstract
	case "interface":
		td.Kind = KindInterface
	default:
		return nil, fmt.Errorf("unknown kind %q", rt.Kind)
	}
	if td.Name == "" {
		return nil, fmt.Errorf("missing name")
	}

	for _, rf := range rt.Fields {
		fd := &FieldDecl{Name: rf.Name, Type: TypeRef(rf.Type), Static: rf.Static}
		if rf.Init.Kind != 0 {
			e, err := decodeExpr(&rf.Init)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", rf.Name, err)
			}
			lit, ok := e.(*Literal)
			if !ok {
				return nil, errorf(&rf.Init, "field %s: initializer must be a literal", rf.Name)
			}
			fd.Init = lit
		}
		td.Fields = append(td.Fields, fd)
	}

	for i := range rt.Methods {
		rm := &rt.Methods[i]
		md := &MethodDecl{
			Name:     rm.Name,
			Returns:  TypeRef(rm.Returns),
			Static:   rm.Static,
			Abstract: rm.Abstract,
		}
		for _, p := range rm.Params {
			md.Params = append(md.Params, Param{Name: p.Name, Type: TypeRef(p.Type)})
		}
		body, err := decodeStmts(&rm.Body)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", rm.Name, err)
		}
		md.Body = body
		td.Methods = append(td.Methods, md)
	}

	init, err := decodeStmts(&rt.StaticInit)
	if err != nil {
		return nil, fmt.Errorf("static_init: %w", err)
	}
	td.StaticInit = init
	return td, nil
}

func errorf(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}

// single splits a one-key mapping into its key and value.
func single(n *yaml.Node) (string, *yaml.Node, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, errorf(n, "expected a mapping with exactly one key")
	}
	return n.Content[0].Value, n.Content[1], nil
}

// fields returns the entries of a mapping node by key.
func fields(n *yaml.Node) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errorf(n, "expected a mapping")
	}
	m := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		m[n.Content[i].Value] = n.Content[i+1]
	}
	return m, nil
}

func str(n *yaml.Node) string {
	if n == nil {
		return ""
	}
	return n.Value
}

func decodeStmts(n *yaml.Node) ([]Stmt, error) {
	if n == nil || n.Kind == 0 {
		return nil, nil
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		s, err := decodeStmt(n)
		if err != nil {
			return nil, err
		}
		return []Stmt{s}, nil
	}
	stmts := make([]Stmt, 0, len(n.Content))
	for _, c := range n.Content {
		s, err := decodeStmt(c)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func decodeStmt(n *yaml.Node) (Stmt, error) {
	key, v, err := single(n)
	if err != nil {
		return nil, err
	}
	switch key {
	case "block":
		body, err := decodeStmts(v)
		if err != nil {
			return nil, err
		}
		return &Block{Stmts: body}, nil

	case "local":
		f, err := fields(v)
		if err != nil {
			return nil, err
		}
		d := &LocalDecl{Name: str(f["name"]), Type: TypeRef(str(f["type"]))}
		if init, ok := f["init"]; ok {
			if d.Init, err = decodeExpr(init); err != nil {
				return nil, err
			}
		}
		return d, nil

	case "expr":
		e, err := decodeExpr(v)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Expr: e}, nil

	case "println", "print":
		var args []Expr
		if !(v.Kind == yaml.ScalarNode && v.Tag == "!!null" && v.Value == "") {
			e, err := decodeExpr(v)
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
		return &ExprStmt{Expr: InvokeVirtual(Static("java/lang/System", "out"), key, args...)}, nil

	case "if":
		f, err := fields(v)
		if err != nil {
			return nil, err
		}
		s := &If{}
		if s.Cond, err = decodeExpr(f["cond"]); err != nil {
			return nil, err
		}
		if s.Then, err = decodeStmts(f["then"]); err != nil {
			return nil, err
		}
		if s.Else, err = decodeStmts(f["else"]); err != nil {
			return nil, err
		}
		return s, nil

	case "while", "do":
		f, err := fields(v)
		if err != nil {
			return nil, err
		}
		cond, err := decodeExpr(f["cond"])
		if err != nil {
			return nil, err
		}
		body, err := decodeStmts(f["body"])
		if err != nil {
			return nil, err
		}
		if key == "do" {
			return &DoWhile{Body: body, Cond: cond}, nil
		}
		return &While{Cond: cond, Body: body}, nil

	case "for":
		f, err := fields(v)
		if err != nil {
			return nil, err
		}
		s := &For{}
		if s.Init, err = decodeStmts(f["init"]); err != nil {
			return nil, err
		}
		if c, ok := f["cond"]; ok {
			if s.Cond, err = decodeExpr(c); err != nil {
				return nil, err
			}
		}
		if s.Update, err = decodeExprs(f["update"]); err != nil {
			return nil, err
		}
		if s.Body, err = decodeStmts(f["body"]); err != nil {
			return nil, err
		}
		return s, nil

	case "switch":
		return decodeSwitch(v)

	case "break", "continue":
		label := ""
		if v.Tag != "!!null" {
			label = v.Value
		}
		if key == "break" {
			return &Break{Label: label}, nil
		}
		return &Continue{Label: label}, nil

	case "labeled":
		f, err := fields(v)
		if err != nil {
			return nil, err
		}
		body, err := decodeStmt(f["body"])
		if err != nil {
			return nil, err
		}
		return &Labeled{Label: str(f["label"]), Body: body}, nil

	case "return":
		if v.Tag == "!!null" {
			return &Return{}, nil
		}
		e, err := decodeExpr(v)
		if err != nil {
			return nil, err
		}
		return &Return{Value: e}, nil

	case "throw":
		e, err := decodeExpr(v)
		if err != nil {
			return nil, err
		}
		return &Throw{Value: e}, nil

	case "try":
		return decodeTry(v)
	}
	return nil, errorf(n, "unknown statement %q", key)
}

func decodeSwitch(v *yaml.Node) (Stmt, error) {
	f, err := fields(v)
	if err != nil {
		return nil, err
	}
	s := &Switch{}
	if s.Selector, err = decodeExpr(f["selector"]); err != nil {
		return nil, err
	}
	cases := f["cases"]
	if cases == nil || cases.Kind != yaml.SequenceNode {
		return nil, errorf(v, "switch: cases must be a sequence")
	}
	for _, cn := range cases.Content {
		cf, err := fields(cn)
		if err != nil {
			return nil, err
		}
		c := &Case{Default: cf["default"] != nil && cf["default"].Value == "true"}
		if labels := cf["labels"]; labels != nil {
			for _, ln := range labels.Content {
				e, err := decodeExpr(ln)
				if err != nil {
					return nil, err
				}
				lit, ok := e.(*Literal)
				if !ok {
					return nil, errorf(ln, "switch: case label must be a constant")
				}
				c.Labels = append(c.Labels, lit)
			}
		}
		if c.Body, err = decodeStmts(cf["body"]); err != nil {
			return nil, err
		}
		s.Cases = append(s.Cases, c)
	}
	return s, nil
}

func decodeTry(v *yaml.Node) (Stmt, error) {
	f, err := fields(v)
	if err != nil {
		return nil, err
	}
	s := &Try{}
	if s.Body, err = decodeStmts(f["body"]); err != nil {
		return nil, err
	}
	if catches := f["catches"]; catches != nil {
		for _, cn := range catches.Content {
			cf, err := fields(cn)
			if err != nil {
				return nil, err
			}
			c := &Catch{Var: str(cf["var"])}
			if tn := cf["types"]; tn != nil {
				if tn.Kind == yaml.SequenceNode {
					for _, t := range tn.Content {
						c.Types = append(c.Types, t.Value)
					}
				} else {
					c.Types = []string{tn.Value}
				}
			}
			if len(c.Types) == 0 {
				return nil, errorf(cn, "catch clause without types")
			}
			if c.Body, err = decodeStmts(cf["body"]); err != nil {
				return nil, err
			}
			s.Catches = append(s.Catches, c)
		}
	}
	if s.Finally, err = decodeStmts(f["finally"]); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeExprs(n *yaml.Node) ([]Expr, error) {
	if n == nil || n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		e, err := decodeExpr(n)
		if err != nil {
			return nil, err
		}
		return []Expr{e}, nil
	}
	out := make([]Expr, 0, len(n.Content))
	for _, c := range n.Content {
		e, err := decodeExpr(c)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeTypeRefs(n *yaml.Node) []TypeRef {
	if n == nil {
		return nil
	}
	refs := []TypeRef{}
	for _, c := range n.Content {
		refs = append(refs, TypeRef(c.Value))
	}
	return refs
}

func decodeScalar(n *yaml.Node) (*Literal, error) {
	switch n.Tag {
	case "!!null":
		return NullLit(), nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return nil, errorf(n, "invalid boolean %q", n.Value)
		}
		return BoolLit(b), nil
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, errorf(n, "invalid integer %q", n.Value)
		}
		if i < math.MinInt32 || i > math.MaxInt32 {
			return LongLit(i), nil
		}
		return IntLit(int32(i)), nil
	case "!!str":
		return StringLit(n.Value), nil
	}
	return nil, errorf(n, "unsupported literal %q (%s)", n.Value, n.Tag)
}

func decodeExpr(n *yaml.Node) (Expr, error) {
	if n == nil {
		return nil, fmt.Errorf("missing expression")
	}
	if n.Kind == yaml.ScalarNode {
		return decodeScalar(n)
	}
	key, v, err := single(n)
	if err != nil {
		return nil, err
	}

	switch key {
	case "int":
		i, err := strconv.ParseInt(v.Value, 0, 32)
		if err != nil {
			return nil, errorf(v, "invalid int %q", v.Value)
		}
		return IntLit(int32(i)), nil
	case "long":
		i, err := strconv.ParseInt(strings.TrimSuffix(v.Value, "L"), 0, 64)
		if err != nil {
			return nil, errorf(v, "invalid long %q", v.Value)
		}
		return LongLit(i), nil
	case "str":
		return StringLit(v.Value), nil
	case "local":
		return Var(v.Value), nil
	case "this":
		return &This{}, nil
	case "class":
		return &ClassLit{Class: v.Value}, nil
	case "length":
		arr, err := decodeExpr(v)
		if err != nil {
			return nil, err
		}
		return &Length{Array: arr}, nil
	}

	f, err := fields(v)
	if err != nil {
		return nil, err
	}
	sub := func(name string) (Expr, error) {
		c, ok := f[name]
		if !ok {
			return nil, errorf(v, "%s: missing %q", key, name)
		}
		return decodeExpr(c)
	}

	switch key {
	case "get":
		target, err := sub("target")
		if err != nil {
			return nil, err
		}
		return Field(target, str(f["field"])), nil

	case "static":
		return Static(str(f["class"]), str(f["field"])), nil

	case "index":
		arr, err := sub("array")
		if err != nil {
			return nil, err
		}
		idx, err := sub("index")
		if err != nil {
			return nil, err
		}
		return &Index{Array: arr, Index: idx}, nil

	case "assign":
		target, err := sub("to")
		if err != nil {
			return nil, err
		}
		value, err := sub("value")
		if err != nil {
			return nil, err
		}
		return &Assign{Target: target, Op: strings.TrimSuffix(str(f["op"]), "="), Value: value}, nil

	case "inc", "dec":
		target, err := sub("target")
		if err != nil {
			return nil, err
		}
		d := &IncDec{Target: target, Delta: 1, Prefix: str(f["prefix"]) == "true"}
		if key == "dec" {
			d.Delta = -1
		}
		return d, nil

	case "binary":
		l, err := sub("left")
		if err != nil {
			return nil, err
		}
		r, err := sub("right")
		if err != nil {
			return nil, err
		}
		return Bin(str(f["op"]), l, r), nil

	case "unary":
		operand, err := sub("operand")
		if err != nil {
			return nil, err
		}
		return &Unary{Op: str(f["op"]), Operand: operand}, nil

	case "cond":
		c, err := sub("if")
		if err != nil {
			return nil, err
		}
		t, err := sub("then")
		if err != nil {
			return nil, err
		}
		e, err := sub("else")
		if err != nil {
			return nil, err
		}
		return &Conditional{Cond: c, Then: t, Else: e}, nil

	case "new":
		args, err := decodeExprs(f["args"])
		if err != nil {
			return nil, err
		}
		return &New{Class: str(f["class"]), Args: args, ParamTypes: decodeTypeRefs(f["params"])}, nil

	case "call":
		return decodeCall(v, f)

	case "instanceof", "cast":
		value, err := sub("value")
		if err != nil {
			return nil, err
		}
		t := TypeRef(str(f["type"]))
		if key == "cast" {
			return &Cast{Value: value, Type: t}, nil
		}
		return &InstanceOf{Value: value, Type: t}, nil

	case "newarray":
		length, err := sub("length")
		if err != nil {
			return nil, err
		}
		return &NewArray{Elem: TypeRef(str(f["elem"])), Length: length}, nil
	}
	return nil, errorf(n, "unknown expression %q", key)
}

func decodeCall(v *yaml.Node, f map[string]*yaml.Node) (Expr, error) {
	c := &Call{
		Class:      str(f["class"]),
		Name:       str(f["name"]),
		ParamTypes: decodeTypeRefs(f["params"]),
	}
	var err error
	if t, ok := f["target"]; ok {
		if c.Target, err = decodeExpr(t); err != nil {
			return nil, err
		}
	}
	if c.Args, err = decodeExprs(f["args"]); err != nil {
		return nil, err
	}

	switch str(f["kind"]) {
	case "":
		if c.Target == nil {
			c.Kind = CallStatic
		} else {
			c.Kind = CallVirtual
		}
	case "virtual":
		c.Kind = CallVirtual
	case "static":
		c.Kind = CallStatic
	case "super":
		c.Kind = CallSuper
	case "special":
		c.Kind = CallSpecial
	default:
		return nil, errorf(v, "unknown call kind %q", str(f["kind"]))
	}
	if c.Name == "" {
		return nil, errorf(v, "call: missing name")
	}
	return c, nil
}
