package program

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeString(t *testing.T, src string) (*Program, error) {
	t.Helper()
	return Decode(strings.NewReader(src))
}

func mainBody(t *testing.T, src string) []Stmt {
	t.Helper()
	p, err := decodeString(t, src)
	require.NoError(t, err)
	require.Len(t, p.Types, 1)
	require.Len(t, p.Types[0].Methods, 1)
	return p.Types[0].Methods[0].Body
}

const header = `
types:
  - name: Hello
    methods:
      - name: main
        static: true
        params: [{name: args, type: "String[]"}]
        body:
`

func TestDecodeTypes(t *testing.T) {
	p, err := decodeString(t, `
main: Shapes$Circle
types:
  - name: Shape
    kind: interface
    methods:
      - {name: area, returns: int, abstract: true}
  - name: Base
    kind: abstract
    fields:
      - {name: count, type: int, static: true, init: 3}
      - {name: label, type: String}
  - name: Shapes$Circle
    extends: Base
    implements: [Shape]
    methods:
      - name: "<init>"
        params: [{name: r, type: int}]
      - name: area
        returns: int
        body:
          - return: 3
    static_init:
      - expr: {assign: {to: {static: {class: Base, field: count}}, value: 4}}
`)
	require.NoError(t, err)
	assert.Equal(t, "Shapes$Circle", p.Main)
	require.Len(t, p.Types, 3)

	shape, base, circle := p.Types[0], p.Types[1], p.Types[2]
	assert.Equal(t, KindInterface, shape.Kind)
	assert.True(t, shape.Methods[0].Abstract)
	assert.Equal(t, Int, shape.Methods[0].Returns)

	assert.Equal(t, KindAbstract, base.Kind)
	require.Len(t, base.Fields, 2)
	assert.Equal(t, &FieldDecl{Name: "count", Type: Int, Static: true, Init: IntLit(3)}, base.Fields[0])
	assert.Nil(t, base.Fields[1].Init)

	assert.Equal(t, KindClass, circle.Kind)
	assert.Equal(t, "Base", circle.Super)
	assert.Equal(t, []string{"Shape"}, circle.Interfaces)
	assert.Equal(t, ConstructorName, circle.Methods[0].Name)
	assert.Equal(t, []Param{{Name: "r", Type: Int}}, circle.Methods[0].Params)
	assert.Equal(t, []Stmt{&Return{Value: IntLit(3)}}, circle.Methods[1].Body)
	require.Len(t, circle.StaticInit, 1)
}

func TestDecodeMainDefault(t *testing.T) {
	p, err := decodeString(t, header+"          - println:\n")
	require.NoError(t, err)
	assert.Equal(t, "Hello", p.Main)
	assert.Equal(t, []Stmt{Println()}, p.Types[0].Methods[0].Body)
}

func TestDecodeLiterals(t *testing.T) {
	body := mainBody(t, header+`
          - println: 42
          - println: 4294967296
          - println: {long: 7L}
          - println: true
          - println: null
          - println: "text"
          - println: {str: "123"}
          - println: {int: 0x10}
`)
	var got []Expr
	for _, s := range body {
		call := s.(*ExprStmt).Expr.(*Call)
		require.Len(t, call.Args, 1)
		got = append(got, call.Args[0])
	}
	assert.Equal(t, []Expr{
		IntLit(42),
		LongLit(4294967296),
		LongLit(7),
		BoolLit(true),
		NullLit(),
		StringLit("text"),
		StringLit("123"),
		IntLit(16),
	}, got)
}

func TestDecodeStatements(t *testing.T) {
	body := mainBody(t, header+`
          - local: {name: i, type: int, init: 0}
          - labeled:
              label: outer
              body:
                for:
                  init: [{local: {name: j, type: int, init: 0}}]
                  cond: {binary: {op: "<", left: {local: j}, right: 3}}
                  update: {inc: {target: {local: j}}}
                  body:
                    - if:
                        cond: {binary: {op: "==", left: {local: j}, right: 1}}
                        then: [{continue: outer}]
                        else: [{break: null}]
          - switch:
              selector: {local: i}
              cases:
                - labels: [0, 1]
                  body: [{println: "small"}]
                - default: true
                  body: [{break: null}]
          - try:
              body:
                - throw: {new: {class: RuntimeException, args: ["boom"]}}
              catches:
                - types: [IllegalStateException, RuntimeException]
                  var: e
                  body: [{println: {call: {target: {local: e}, name: getMessage}}}]
              finally:
                - return: null
`)
	require.Len(t, body, 4)
	assert.Equal(t, Declare("i", Int, IntLit(0)), body[0])

	labeled, ok := body[1].(*Labeled)
	require.True(t, ok)
	assert.Equal(t, "outer", labeled.Label)
	loop, ok := labeled.Body.(*For)
	require.True(t, ok)
	assert.Equal(t, []Stmt{Declare("j", Int, IntLit(0))}, loop.Init)
	assert.Equal(t, []Expr{&IncDec{Target: Var("j"), Delta: 1}}, loop.Update)
	branch := loop.Body[0].(*If)
	assert.Equal(t, []Stmt{&Continue{Label: "outer"}}, branch.Then)
	assert.Equal(t, []Stmt{&Break{}}, branch.Else)

	sw, ok := body[2].(*Switch)
	require.True(t, ok)
	require.Len(t, sw.Cases, 2)
	assert.Equal(t, []*Literal{IntLit(0), IntLit(1)}, sw.Cases[0].Labels)
	assert.False(t, sw.Cases[0].Default)
	assert.True(t, sw.Cases[1].Default)

	try, ok := body[3].(*Try)
	require.True(t, ok)
	assert.Equal(t, []Stmt{&Throw{Value: NewObject("RuntimeException", StringLit("boom"))}}, try.Body)
	require.Len(t, try.Catches, 1)
	assert.Equal(t, []string{"IllegalStateException", "RuntimeException"}, try.Catches[0].Types)
	assert.Equal(t, "e", try.Catches[0].Var)
	assert.Equal(t, []Stmt{&Return{}}, try.Finally)
}

func TestDecodeExpressions(t *testing.T) {
	body := mainBody(t, header+`
          - expr: {assign: {to: {index: {array: {local: a}, index: 0}}, op: "+=", value: 2}}
          - expr: {dec: {target: {get: {target: {this: null}, field: n}}, prefix: true}}
          - expr: {call: {class: Util, name: max, args: [1, 2]}}
          - expr: {call: {target: {local: o}, name: print, args: [65], params: [char]}}
          - expr: {call: {target: {this: null}, class: Base, name: "<init>", kind: super}}
          - expr: {cast: {value: {local: o}, type: String}}
          - expr: {newarray: {elem: int, length: {length: {local: a}}}}
          - expr: {cond: {if: true, then: {class: Util}, else: {unary: {op: "-", operand: 1}}}}
`)
	exprs := make([]Expr, len(body))
	for i, s := range body {
		exprs[i] = s.(*ExprStmt).Expr
	}
	assert.Equal(t, []Expr{
		&Assign{Target: &Index{Array: Var("a"), Index: IntLit(0)}, Op: "+", Value: IntLit(2)},
		&IncDec{Target: Field(&This{}, "n"), Delta: -1, Prefix: true},
		InvokeStatic("Util", "max", IntLit(1), IntLit(2)),
		&Call{Kind: CallVirtual, Target: Var("o"), Name: "print", Args: []Expr{IntLit(65)}, ParamTypes: []TypeRef{Char}},
		&Call{Kind: CallSuper, Target: &This{}, Class: "Base", Name: ConstructorName},
		&Cast{Value: Var("o"), Type: "String"},
		&NewArray{Elem: Int, Length: &Length{Array: Var("a")}},
		&Conditional{Cond: BoolLit(true), Then: &ClassLit{Class: "Util"}, Else: &Unary{Op: "-", Operand: IntLit(1)}},
	}, exprs)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown top-level key", "mian: Hello\n", "decoding program"},
		{"unknown kind", "types: [{name: A, kind: enum}]\n", `type A: unknown kind "enum"`},
		{"missing name", "types: [{kind: class}]\n", "missing name"},
		{"unknown statement", header + "          - goto: here\n", `line 9: unknown statement "goto"`},
		{"unknown expression", header + "          - expr: {lambda: {}}\n", `line 9: unknown expression "lambda"`},
		{"two keys", header + "          - {println: 1, print: 2}\n", "line 9: expected a mapping with exactly one key"},
		{"bad int", header + "          - println: {int: 99999999999}\n", `invalid int "99999999999"`},
		{"call kind", header + "          - expr: {call: {name: f, kind: dynamic}}\n", `unknown call kind "dynamic"`},
		{"catch types", header + "          - try: {body: [], catches: [{var: e}]}\n", "catch clause without types"},
		{"non-constant case", header + "          - switch: {selector: 1, cases: [{labels: [{local: x}]}]}\n", "case label must be a constant"},
		{"non-literal field init", "types: [{name: A, fields: [{name: f, type: int, init: {local: x}}]}]\n", "initializer must be a literal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeString(t, tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Hello.yaml")
	require.NoError(t, os.WriteFile(path, []byte(header+"          - goto: here\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), path+": "))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTypeRef(t *testing.T) {
	arr := TypeRef("int[][]")
	assert.True(t, arr.IsArray())
	assert.Equal(t, TypeRef("int[]"), arr.Elem())
	assert.True(t, arr.IsReference())
	assert.True(t, Char.IsPrimitive())
	assert.False(t, Void.IsReference())
	assert.Equal(t, "void", TypeRef("").String())
}
