package program

// TypeKind distinguishes classes, abstract classes and interfaces.
type TypeKind int

const (
	KindClass TypeKind = iota
	KindAbstract
	KindInterface
)

func (k TypeKind) String() string {
	switch k {
	case KindAbstract:
		return "abstract"
	case KindInterface:
		return "interface"
	default:
		return "class"
	}
}

// Program is an already-resolved program: its type declarations and the
// name of the type whose main method starts execution.
type Program struct {
	Main  string
	Types []*TypeDecl
}

// TypeDecl declares a class, abstract class or interface.
type TypeDecl struct {
	Name       string
	Kind       TypeKind
	Super      string
	Interfaces []string
	Fields     []*FieldDecl
	Methods    []*MethodDecl
	StaticInit []Stmt
}

// FieldDecl declares an instance or static field. Init is only honored
// for static fields.
type FieldDecl struct {
	Name   string
	Type   TypeRef
	Static bool
	Init   *Literal
}

// Param is a named method parameter.
type Param struct {
	Name string
	Type TypeRef
}

// MethodDecl declares a method. Constructors are named "<init>".
type MethodDecl struct {
	Name     string
	Params   []Param
	Returns  TypeRef
	Static   bool
	Abstract bool
	Body     []Stmt
}

// ConstructorName is the method name used for constructors.
const ConstructorName = "<init>"

// Stmt is a statement node.
type Stmt interface {
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	exprNode()
}

// Statements

type Block struct {
	Stmts []Stmt
}

type LocalDecl struct {
	Name string
	Type TypeRef
	Init Expr
}

type ExprStmt struct {
	Expr Expr
}

type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

type While struct {
	Cond Expr
	Body []Stmt
}

type DoWhile struct {
	Body []Stmt
	Cond Expr
}

// For runs Init once, then tests Cond (nil means true) before each
// iteration and runs Update after each body.
type For struct {
	Init   []Stmt
	Cond   Expr
	Update []Expr
	Body   []Stmt
}

// Switch compares Selector against each case's labels in order. Execution
// starts at the first matching case and falls through subsequent cases
// until a break.
type Switch struct {
	Selector Expr
	Cases    []*Case
}

// Case is a switch arm. A case with Default set matches when no label does.
type Case struct {
	Labels  []*Literal
	Default bool
	Body    []Stmt
}

type Break struct {
	Label string
}

type Continue struct {
	Label string
}

type Labeled struct {
	Label string
	Body  Stmt
}

type Return struct {
	Value Expr
}

type Throw struct {
	Value Expr
}

// Try is a try/catch/finally region. Catches are matched in order.
type Try struct {
	Body    []Stmt
	Catches []*Catch
	Finally []Stmt
}

// Catch handles exceptions that are instances of any of Types.
type Catch struct {
	Types []string
	Var   string
	Body  []Stmt
}

func (*Block) stmtNode()     {}
func (*LocalDecl) stmtNode() {}
func (*ExprStmt) stmtNode()  {}
func (*If) stmtNode()        {}
func (*While) stmtNode()     {}
func (*DoWhile) stmtNode()   {}
func (*For) stmtNode()       {}
func (*Switch) stmtNode()    {}
func (*Break) stmtNode()     {}
func (*Continue) stmtNode()  {}
func (*Labeled) stmtNode()   {}
func (*Return) stmtNode()    {}
func (*Throw) stmtNode()     {}
func (*Try) stmtNode()       {}

// Expressions

// LiteralKind is the kind of a constant.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitLong
	LitBool
	LitString
	LitNull
)

// Literal is a constant. Int and Long use I, Bool uses B, String uses S.
type Literal struct {
	Kind LiteralKind
	I    int64
	B    bool
	S    string
}

type Local struct {
	Name string
}

type This struct{}

type FieldAccess struct {
	Target Expr
	Name   string
}

type StaticField struct {
	Class string
	Name  string
}

type Index struct {
	Array Expr
	Index Expr
}

// Assign stores Value into Target, which must be a Local, FieldAccess,
// StaticField or Index. Op is "" for plain assignment, or a binary
// operator for compound assignment ("+" for +=).
type Assign struct {
	Target Expr
	Op     string
	Value  Expr
}

// IncDec adds Delta to Target. Prefix selects whether the expression yields
// the new or the old value.
type IncDec struct {
	Target Expr
	Delta  int64
	Prefix bool
}

type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

type Unary struct {
	Op      string
	Operand Expr
}

type Conditional struct {
	Cond Expr
	Then Expr
	Else Expr
}

type New struct {
	Class      string
	Args       []Expr
	ParamTypes []TypeRef
}

// CallKind selects how a Call resolves its target method.
type CallKind int

const (
	// CallVirtual dispatches on the receiver's runtime type.
	CallVirtual CallKind = iota
	// CallStatic resolves Name on Class.
	CallStatic
	// CallSuper invokes the superclass implementation non-virtually.
	CallSuper
	// CallSpecial invokes Class's implementation non-virtually on Target
	// (used for this(...) constructor chaining).
	CallSpecial
)

// Call invokes a method. ParamTypes may be nil, in which case the overload
// is picked from the argument values.
type Call struct {
	Kind       CallKind
	Target     Expr
	Class      string
	Name       string
	Args       []Expr
	ParamTypes []TypeRef
}

type InstanceOf struct {
	Value Expr
	Type  TypeRef
}

type Cast struct {
	Value Expr
	Type  TypeRef
}

type NewArray struct {
	Elem   TypeRef
	Length Expr
}

type Length struct {
	Array Expr
}

// ClassLit evaluates to the java/lang/Class object of a type.
type ClassLit struct {
	Class string
}

func (*Literal) exprNode()     {}
func (*Local) exprNode()       {}
func (*This) exprNode()        {}
func (*FieldAccess) exprNode() {}
func (*StaticField) exprNode() {}
func (*Index) exprNode()       {}
func (*Assign) exprNode()      {}
func (*IncDec) exprNode()      {}
func (*Binary) exprNode()      {}
func (*Unary) exprNode()       {}
func (*Conditional) exprNode() {}
func (*New) exprNode()         {}
func (*Call) exprNode()        {}
func (*InstanceOf) exprNode()  {}
func (*Cast) exprNode()        {}
func (*NewArray) exprNode()    {}
func (*Length) exprNode()      {}
func (*ClassLit) exprNode()    {}

// FindType returns the declaration with the given name, or nil.
func (p *Program) FindType(name string) *TypeDecl {
	for _, t := range p.Types {
		if t.Name == name {
			return t
		}
	}
	return nil
}
