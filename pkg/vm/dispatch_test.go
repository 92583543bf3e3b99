package vm

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	p "github.com/daimatz/jvmeval/pkg/program"
)

func returning(name string, params []p.Param, returns p.TypeRef, value p.Expr) *p.MethodDecl {
	return &p.MethodDecl{Name: name, Params: params, Returns: returns, Body: []p.Stmt{&p.Return{Value: value}}}
}

// overloads declares
//
//	Base { foo(Object); foo(int) }
//	Derived extends Base { foo(String); foo(int) }
func overloads() []*p.TypeDecl {
	obj := []p.Param{{Name: "x", Type: "Object"}}
	str := []p.Param{{Name: "x", Type: "String"}}
	num := []p.Param{{Name: "x", Type: p.Int}}
	return []*p.TypeDecl{
		{Name: "Base", Methods: []*p.MethodDecl{
			returning("foo", obj, "String", p.StringLit("Base.foo(Object)")),
			returning("foo", num, "String", p.StringLit("Base.foo(int)")),
		}},
		{Name: "Derived", Super: "Base", Methods: []*p.MethodDecl{
			returning("foo", str, "String", p.StringLit("Derived.foo(String)")),
			returning("foo", num, "String", p.StringLit("Derived.foo(int)")),
		}},
	}
}

func TestStaticOverloadSelection(t *testing.T) {
	tests := []struct {
		name string
		body []p.Stmt
		want []string
	}{
		{
			name: "declared argument type picks the overload",
			body: []p.Stmt{
				p.Declare("b", "Base", p.NewObject("Derived")),
				p.Declare("o", "Object", p.StringLit("x")),
				p.Println(p.InvokeVirtual(p.Var("b"), "foo", p.Var("o"))),
			},
			want: []string{"Base.foo(Object)"},
		},
		{
			name: "declared receiver type hides subclass overloads",
			body: []p.Stmt{
				p.Declare("b", "Base", p.NewObject("Derived")),
				p.Println(p.InvokeVirtual(p.Var("b"), "foo", p.StringLit("x"))),
			},
			want: []string{"Base.foo(Object)"},
		},
		{
			name: "subclass receiver sees its own overload",
			body: []p.Stmt{
				p.Declare("d", "Derived", p.NewObject("Derived")),
				p.Println(p.InvokeVirtual(p.Var("d"), "foo", p.StringLit("x"))),
				p.Declare("o", "Object", p.StringLit("x")),
				p.Println(p.InvokeVirtual(p.Var("d"), "foo", p.Var("o"))),
			},
			want: []string{"Derived.foo(String)", "Base.foo(Object)"},
		},
		{
			name: "override is chosen by runtime type",
			body: []p.Stmt{
				p.Declare("b", "Base", p.NewObject("Derived")),
				p.Println(p.InvokeVirtual(p.Var("b"), "foo", p.IntLit(1))),
				p.Declare("c", "Base", p.NewObject("Base")),
				p.Println(p.InvokeVirtual(p.Var("c"), "foo", p.IntLit(1))),
			},
			want: []string{"Derived.foo(int)", "Base.foo(int)"},
		},
		{
			name: "cast narrows the receiver",
			body: []p.Stmt{
				p.Declare("b", "Base", p.NewObject("Derived")),
				p.Println(p.InvokeVirtual(&p.Cast{Type: "Derived", Value: p.Var("b")}, "foo", p.StringLit("x"))),
			},
			want: []string{"Derived.foo(String)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runMain(t, overloads(), tt.body...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestLogger(t *testing.T) {
	prog := &p.Program{Main: "T", Types: []*p.TypeDecl{
		{Name: "T", Methods: []*p.MethodDecl{p.Main(say("hi"))}},
	}}

	v, err := NewVM(prog)
	require.NoError(t, err)
	assert.Equal(t, zerolog.Disabled, v.log.GetLevel())

	var buf bytes.Buffer
	v, err = NewVM(prog, WithStdout(&bytes.Buffer{}), WithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel)))
	require.NoError(t, err)
	require.NoError(t, v.Execute())
	assert.NotEmpty(t, buf.String())
}
