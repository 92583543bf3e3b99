package program

// Helpers for constructing programs from Go code.

func IntLit(v int32) *Literal     { return &Literal{Kind: LitInt, I: int64(v)} }
func LongLit(v int64) *Literal    { return &Literal{Kind: LitLong, I: v} }
func BoolLit(v bool) *Literal     { return &Literal{Kind: LitBool, B: v} }
func StringLit(s string) *Literal { return &Literal{Kind: LitString, S: s} }
func NullLit() *Literal           { return &Literal{Kind: LitNull} }

func Var(name string) *Local { return &Local{Name: name} }

func Bin(op string, l, r Expr) *Binary { return &Binary{Op: op, Left: l, Right: r} }

func Field(target Expr, name string) *FieldAccess {
	return &FieldAccess{Target: target, Name: name}
}

func Static(class, name string) *StaticField {
	return &StaticField{Class: class, Name: name}
}

func Set(target, value Expr) *ExprStmt {
	return &ExprStmt{Expr: &Assign{Target: target, Value: value}}
}

func Declare(name string, typ TypeRef, init Expr) *LocalDecl {
	return &LocalDecl{Name: name, Type: typ, Init: init}
}

func NewObject(class string, args ...Expr) *New {
	return &New{Class: class, Args: args}
}

// InvokeVirtual calls name on target, dispatching on its runtime type.
func InvokeVirtual(target Expr, name string, args ...Expr) *Call {
	return &Call{Kind: CallVirtual, Target: target, Name: name, Args: args}
}

// InvokeStatic calls a static method of class.
func InvokeStatic(class, name string, args ...Expr) *Call {
	return &Call{Kind: CallStatic, Class: class, Name: name, Args: args}
}

// Println builds System.out.println(args...).
func Println(args ...Expr) *ExprStmt {
	return &ExprStmt{Expr: InvokeVirtual(Static("java/lang/System", "out"), "println", args...)}
}

// Do wraps an expression as a statement.
func Do(e Expr) *ExprStmt { return &ExprStmt{Expr: e} }

// Main declares "public static void main(String[] args)" with body.
func Main(body ...Stmt) *MethodDecl {
	return &MethodDecl{
		Name:    "main",
		Params:  []Param{{Name: "args", Type: "java/lang/String[]"}},
		Returns: Void,
		Static:  true,
		Body:    body,
	}
}
