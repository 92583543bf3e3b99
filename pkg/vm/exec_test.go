package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	p "github.com/daimatz/jvmeval/pkg/program"
)

// runMain executes body as main of a class T alongside extra types and
// returns the printed lines.
func runMain(t *testing.T, extra []*p.TypeDecl, body ...p.Stmt) ([]string, error) {
	t.Helper()
	main := &p.TypeDecl{Name: "T", Methods: []*p.MethodDecl{p.Main(body...)}}
	prog := &p.Program{Main: "T", Types: append([]*p.TypeDecl{main}, extra...)}

	var buf bytes.Buffer
	v, err := NewVM(prog, WithStdout(&buf))
	require.NoError(t, err)
	err = v.Execute()
	assert.Equal(t, strings.Join(v.Output(), "\n"), strings.TrimSuffix(buf.String(), "\n"))
	return v.Output(), err
}

func throwNew(class string, msg ...string) *p.Throw {
	var args []p.Expr
	for _, m := range msg {
		args = append(args, p.StringLit(m))
	}
	return &p.Throw{Value: p.NewObject(class, args...)}
}

func catchOf(types []string, body ...p.Stmt) *p.Catch {
	return &p.Catch{Types: types, Var: "e", Body: body}
}

func say(s string) p.Stmt { return p.Println(p.StringLit(s)) }

func TestSwitchFallthrough(t *testing.T) {
	sw := func(sel int32) *p.Switch {
		return &p.Switch{
			Selector: p.IntLit(sel),
			Cases: []*p.Case{
				{Labels: []*p.Literal{p.IntLit(1)}, Body: []p.Stmt{say("one")}},
				{Labels: []*p.Literal{p.IntLit(2), p.IntLit(3)}, Body: []p.Stmt{say("two or three")}},
				{Default: true, Body: []p.Stmt{say("default")}},
				{Labels: []*p.Literal{p.IntLit(4)}, Body: []p.Stmt{say("four"), &p.Break{}}},
				{Labels: []*p.Literal{p.IntLit(5)}, Body: []p.Stmt{say("five")}},
			},
		}
	}

	tests := []struct {
		sel  int32
		want []string
	}{
		{1, []string{"one", "two or three", "default", "four"}},
		{3, []string{"two or three", "default", "four"}},
		{4, []string{"four"}},
		{5, []string{"five"}},
		{9, []string{"default", "four"}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.want, ","), func(t *testing.T) {
			got, err := runMain(t, nil, sw(tt.sel))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("no match and no default", func(t *testing.T) {
		got, err := runMain(t, nil,
			&p.Switch{Selector: p.IntLit(7), Cases: []*p.Case{
				{Labels: []*p.Literal{p.IntLit(1)}, Body: []p.Stmt{say("one")}},
			}},
			say("after"),
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"after"}, got)
	})

	t.Run("null selector", func(t *testing.T) {
		_, err := runMain(t, nil,
			p.Declare("s", "String", p.NullLit()),
			&p.Switch{Selector: p.Var("s"), Cases: []*p.Case{{Default: true}}},
		)
		var te *ThrownException
		require.ErrorAs(t, err, &te)
		assert.Equal(t, NullPointerException, te.Type)
	})
}

func TestCatchOrder(t *testing.T) {
	tests := []struct {
		name    string
		thrown  string
		catches []*p.Catch
		want    []string
	}{
		{
			name:   "first matching clause wins",
			thrown: "IllegalArgumentException",
			catches: []*p.Catch{
				catchOf([]string{"RuntimeException"}, say("runtime")),
				catchOf([]string{"IllegalArgumentException"}, say("illegal argument")),
			},
			want: []string{"runtime"},
		},
		{
			name:   "narrow clause listed first wins",
			thrown: "IllegalArgumentException",
			catches: []*p.Catch{
				catchOf([]string{"IllegalArgumentException"}, say("illegal argument")),
				catchOf([]string{"RuntimeException"}, say("runtime")),
			},
			want: []string{"illegal argument"},
		},
		{
			name:   "non-matching clauses are skipped",
			thrown: "NullPointerException",
			catches: []*p.Catch{
				catchOf([]string{"IllegalArgumentException"}, say("wrong")),
				catchOf([]string{"Exception"}, say("exception")),
			},
			want: []string{"exception"},
		},
		{
			name:   "multi-catch",
			thrown: "ArithmeticException",
			catches: []*p.Catch{
				catchOf([]string{"NullPointerException", "ArithmeticException"}, say("multi")),
			},
			want: []string{"multi"},
		},
		{
			name:   "errors are not exceptions",
			thrown: "StackOverflowError",
			catches: []*p.Catch{
				catchOf([]string{"Exception"}, say("exception")),
				catchOf([]string{"Throwable"}, say("throwable")),
			},
			want: []string{"throwable"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runMain(t, nil, &p.Try{
				Body:    []p.Stmt{throwNew(tt.thrown)},
				Catches: tt.catches,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unhandled propagates", func(t *testing.T) {
		got, err := runMain(t, nil,
			&p.Try{
				Body:    []p.Stmt{throwNew("IllegalStateException", "x")},
				Catches: []*p.Catch{catchOf([]string{"IllegalArgumentException"}, say("wrong"))},
			},
			say("unreachable"),
		)
		var te *ThrownException
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "java.lang.IllegalStateException: x", te.Error())
		assert.Empty(t, got)
	})

	t.Run("catch variable is bound", func(t *testing.T) {
		got, err := runMain(t, nil, &p.Try{
			Body: []p.Stmt{throwNew("RuntimeException", "boom")},
			Catches: []*p.Catch{catchOf([]string{"RuntimeException"},
				p.Println(p.InvokeVirtual(p.Var("e"), "getMessage")),
			)},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"boom"}, got)
	})
}

func TestFinallyGuarantee(t *testing.T) {
	t.Run("runs after normal completion", func(t *testing.T) {
		got, err := runMain(t, nil, &p.Try{
			Body:    []p.Stmt{say("body")},
			Finally: []p.Stmt{say("finally")},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"body", "finally"}, got)
	})

	t.Run("runs after handler", func(t *testing.T) {
		got, err := runMain(t, nil, &p.Try{
			Body:    []p.Stmt{throwNew("RuntimeException")},
			Catches: []*p.Catch{catchOf([]string{"RuntimeException"}, say("handler"))},
			Finally: []p.Stmt{say("finally")},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"handler", "finally"}, got)
	})

	t.Run("runs before an unhandled exception propagates", func(t *testing.T) {
		got, err := runMain(t, nil, &p.Try{
			Body:    []p.Stmt{throwNew("RuntimeException")},
			Finally: []p.Stmt{say("finally")},
		})
		var te *ThrownException
		require.ErrorAs(t, err, &te)
		assert.Equal(t, []string{"finally"}, got)
	})

	t.Run("runs when the handler throws", func(t *testing.T) {
		got, err := runMain(t, nil, &p.Try{
			Body: []p.Stmt{throwNew("RuntimeException")},
			Catches: []*p.Catch{catchOf([]string{"RuntimeException"},
				throwNew("IllegalStateException", "from handler"),
			)},
			Finally: []p.Stmt{say("finally")},
		})
		var te *ThrownException
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "java/lang/IllegalStateException", te.Type)
		assert.Equal(t, []string{"finally"}, got)
	})

	t.Run("abrupt finally replaces the pending exception", func(t *testing.T) {
		got, err := runMain(t, nil,
			&p.While{Cond: p.BoolLit(true), Body: []p.Stmt{
				&p.Try{
					Body:    []p.Stmt{throwNew("RuntimeException")},
					Finally: []p.Stmt{&p.Break{}},
				},
			}},
			say("after loop"),
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"after loop"}, got)
	})

	t.Run("exception in finally replaces the pending one", func(t *testing.T) {
		_, err := runMain(t, nil, &p.Try{
			Body:    []p.Stmt{throwNew("IllegalArgumentException")},
			Finally: []p.Stmt{throwNew("IllegalStateException")},
		})
		var te *ThrownException
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "java/lang/IllegalStateException", te.Type)
	})

	t.Run("runs exactly once on break", func(t *testing.T) {
		got, err := runMain(t, nil,
			&p.While{Cond: p.BoolLit(true), Body: []p.Stmt{
				&p.Try{
					Body:    []p.Stmt{&p.Break{}},
					Finally: []p.Stmt{say("finally")},
				},
			}},
		)
		require.NoError(t, err)
		assert.Equal(t, []string{"finally"}, got)
	})

	t.Run("runtime exceptions are catchable", func(t *testing.T) {
		got, err := runMain(t, nil, &p.Try{
			Body: []p.Stmt{
				p.Declare("o", "Object", p.NullLit()),
				p.Do(p.InvokeVirtual(p.Var("o"), "hashCode")),
			},
			Catches: []*p.Catch{catchOf([]string{"NullPointerException"}, say("npe"))},
			Finally: []p.Stmt{say("finally")},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"npe", "finally"}, got)
	})
}

func TestLabeledLoops(t *testing.T) {
	inner := &p.While{
		Cond: p.Bin("<", p.Var("j"), p.IntLit(3)),
		Body: []p.Stmt{
			p.Do(&p.IncDec{Target: p.Var("j"), Delta: 1}),
			&p.If{Cond: p.Bin("==", p.Var("j"), p.IntLit(2)), Then: []p.Stmt{&p.Continue{Label: "outer"}}},
			p.Println(p.Bin("+", p.Bin("*", p.Var("i"), p.IntLit(10)), p.Var("j"))),
		},
	}
	got, err := runMain(t, nil,
		&p.Labeled{Label: "outer", Body: &p.For{
			Init:   []p.Stmt{p.Declare("i", p.Int, p.IntLit(0))},
			Cond:   p.Bin("<", p.Var("i"), p.IntLit(2)),
			Update: []p.Expr{&p.IncDec{Target: p.Var("i"), Delta: 1}},
			Body: []p.Stmt{
				p.Declare("j", p.Int, p.IntLit(0)),
				inner,
			},
		}},
		&p.Labeled{Label: "block", Body: &p.Block{Stmts: []p.Stmt{
			say("in block"),
			&p.Break{Label: "block"},
			say("skipped"),
		}}},
		say("done"),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "11", "in block", "done"}, got)
}

func TestDoWhileRunsOnce(t *testing.T) {
	got, err := runMain(t, nil,
		&p.DoWhile{Body: []p.Stmt{say("once")}, Cond: p.BoolLit(false)},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"once"}, got)
}

func TestInternalFaults(t *testing.T) {
	t.Run("undefined local", func(t *testing.T) {
		_, err := runMain(t, nil, p.Println(p.Var("nope")))
		var ue *UndefinedLocalError
		assert.ErrorAs(t, err, &ue)
	})

	t.Run("instantiating an abstract class", func(t *testing.T) {
		_, err := runMain(t, []*p.TypeDecl{{Name: "A", Kind: p.KindAbstract}},
			p.Do(p.NewObject("A")),
		)
		var ie *InstantiationError
		assert.ErrorAs(t, err, &ie)
	})

	t.Run("throwing a non-throwable", func(t *testing.T) {
		_, err := runMain(t, nil, &p.Throw{Value: p.StringLit("oops")})
		require.Error(t, err)
		var te *ThrownException
		assert.False(t, errors.As(err, &te))
	})

	t.Run("break outside a loop", func(t *testing.T) {
		_, err := runMain(t, nil, &p.Break{})
		assert.ErrorContains(t, err, "outside of loop")
	})
}
