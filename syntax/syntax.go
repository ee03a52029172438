// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package syntax provides a Python parser and abstract syntax tree.
//
// The tree is closed: every statement type implements Stmt and every
// expression type implements Expr through unexported marker methods,
// so clients may switch exhaustively over them.
package syntax // import "go.pyscope.dev/syntax"

// A Node is a node in a Python syntax tree.
type Node interface {
	// Span returns the start and end position of the expression.
	Span() (start, end Position)
}

// Start returns the start position of the expression.
func Start(n Node) Position {
	start, _ := n.Span()
	return start
}

// End returns the end position of the expression.
func End(n Node) Position {
	_, end := n.Span()
	return end
}

// A File represents a Python source file.
type File struct {
	Path  string
	Stmts []Stmt
}

func (x *File) Span() (start, end Position) {
	if len(x.Stmts) == 0 {
		return
	}
	start, _ = x.Stmts[0].Span()
	_, end = x.Stmts[len(x.Stmts)-1].Span()
	return start, end
}

// A Stmt is a Python statement.
type Stmt interface {
	Node
	stmt()
}

func (*AssertStmt) stmt()     {}
func (*AssignStmt) stmt()     {}
func (*BranchStmt) stmt()     {}
func (*ClassStmt) stmt()      {}
func (*DefStmt) stmt()        {}
func (*DelStmt) stmt()        {}
func (*ExprStmt) stmt()       {}
func (*ForStmt) stmt()        {}
func (*FromImportStmt) stmt() {}
func (*GlobalStmt) stmt()     {}
func (*IfStmt) stmt()         {}
func (*ImportStmt) stmt()     {}
func (*MatchStmt) stmt()      {}
func (*NonlocalStmt) stmt()   {}
func (*RaiseStmt) stmt()      {}
func (*ReturnStmt) stmt()     {}
func (*TryStmt) stmt()        {}
func (*TypeAliasStmt) stmt()  {}
func (*WhileStmt) stmt()      {}
func (*WithStmt) stmt()       {}

// An AssignStmt represents an assignment:
//
//	x = 0
//	x, y = y, x
//	x = y = 0
//	x: int = 0
//	x: int
//	x += 1
type AssignStmt struct {
	OpPos      Position
	Op         Token  // = EQ | {PLUS,MINUS,STAR,...}_EQ
	LHS        Expr   // first target
	Extra      []Expr // further targets of a chained assignment LHS = Extra[0] = ... = RHS
	Annotation Expr   // optional; x: Annotation = RHS
	RHS        Expr   // nil for a bare annotation
}

func (x *AssignStmt) Span() (start, end Position) {
	start, _ = x.LHS.Span()
	switch {
	case x.RHS != nil:
		_, end = x.RHS.Span()
	case x.Annotation != nil:
		_, end = x.Annotation.Span()
	default:
		_, end = x.LHS.Span()
	}
	return
}

// A Param represents a function or lambda parameter:
//
//	x    x: T    x=d    x: T = d    *args    **kwargs    *    /
type Param struct {
	Star       Token    // 0, STAR, STARSTAR, or SLASH (positional-only marker)
	StarPos    Position // position of Star, if any
	Name       *Ident   // nil for a bare * or /
	Annotation Expr     // optional
	Default    Expr     // optional
}

func (x *Param) Span() (start, end Position) {
	if x.Star != 0 {
		start = x.StarPos
		end = x.StarPos.add(x.Star.String())
	} else {
		start, end = x.Name.Span()
	}
	if x.Name != nil {
		_, end = x.Name.Span()
	}
	if x.Annotation != nil {
		_, end = x.Annotation.Span()
	}
	if x.Default != nil {
		_, end = x.Default.Span()
	}
	return
}

// A Decorator represents a decorator line: @X.
type Decorator struct {
	At Position
	X  Expr
}

func (x *Decorator) Span() (start, end Position) {
	_, end = x.X.Span()
	return x.At, end
}

// A DefStmt represents a function definition.
type DefStmt struct {
	Decorators []*Decorator
	Async      Position // position of ASYNC, if any
	Def        Position
	Name       *Ident
	Params     []*Param
	Returns    Expr // optional return annotation
	Body       []Stmt
}

func (x *DefStmt) Span() (start, end Position) {
	_, end = x.Body[len(x.Body)-1].Span()
	return decoratedStart(x.Decorators, x.Async, x.Def), end
}

func decoratedStart(decorators []*Decorator, async, kw Position) Position {
	if len(decorators) > 0 {
		return decorators[0].At
	}
	if async.IsValid() {
		return async
	}
	return kw
}

// A ClassStmt represents a class definition.
type ClassStmt struct {
	Decorators []*Decorator
	Class      Position
	Name       *Ident
	Lparen     Position // optional
	Bases      []Expr   // base classes and keywords, as in CallExpr.Args
	Rparen     Position
	Body       []Stmt
}

func (x *ClassStmt) Span() (start, end Position) {
	_, end = x.Body[len(x.Body)-1].Span()
	return decoratedStart(x.Decorators, Position{}, x.Class), end
}

// An ExprStmt is an expression evaluated for side effects.
type ExprStmt struct {
	X Expr
}

func (x *ExprStmt) Span() (start, end Position) {
	return x.X.Span()
}

// An IfStmt is a conditional: If Cond: True; else: False.
// 'elif' is desugared into a chain of IfStmts.
type IfStmt struct {
	If      Position // IF or ELIF
	Cond    Expr
	True    []Stmt
	ElsePos Position // ELSE or ELIF
	False   []Stmt   // optional
}

func (x *IfStmt) Span() (start, end Position) {
	body := x.False
	if body == nil {
		body = x.True
	}
	_, end = body[len(body)-1].Span()
	return x.If, end
}

// An ImportName is one clause of an import statement:
// a.b.c, a.b.c as d, or (in a FromImportStmt) x as y.
type ImportName struct {
	Path []*Ident // dotted name; a single element in a FromImportStmt
	As   *Ident   // optional alias
}

func (x *ImportName) Span() (start, end Position) {
	start, end = x.Path[0].Span()
	_, end = x.Path[len(x.Path)-1].Span()
	if x.As != nil {
		_, end = x.As.Span()
	}
	return
}

// Binding returns the identifier bound by the clause:
// the alias if present, or else the first component of the path.
func (x *ImportName) Binding() *Ident {
	if x.As != nil {
		return x.As
	}
	return x.Path[0]
}

// An ImportStmt represents an import statement: import a.b as c, d.
type ImportStmt struct {
	Import Position
	Names  []*ImportName
}

func (x *ImportStmt) Span() (start, end Position) {
	_, end = x.Names[len(x.Names)-1].Span()
	return x.Import, end
}

// A FromImportStmt represents an import statement of the form
// from ..module import a as b, c or from module import *.
type FromImportStmt struct {
	From   Position
	Dots   int      // number of leading dots of a relative import
	Module []*Ident // dotted module name; empty in "from . import x"
	Import Position
	Star   Position // valid iff this is a wildcard import
	Names  []*ImportName
	Rparen Position // optional
}

func (x *FromImportStmt) Span() (start, end Position) {
	switch {
	case x.Star.IsValid():
		end = x.Star.add("*")
	case x.Rparen.IsValid():
		end = x.Rparen.add(")")
	default:
		_, end = x.Names[len(x.Names)-1].Span()
	}
	return x.From, end
}

// A BranchStmt changes the flow of control: break, continue, pass.
type BranchStmt struct {
	Token    Token // = BREAK | CONTINUE | PASS
	TokenPos Position
}

func (x *BranchStmt) Span() (start, end Position) {
	return x.TokenPos, x.TokenPos.add(x.Token.String())
}

// A ReturnStmt returns from a function.
type ReturnStmt struct {
	Return Position
	Result Expr // may be nil
}

func (x *ReturnStmt) Span() (start, end Position) {
	if x.Result == nil {
		return x.Return, x.Return.add("return")
	}
	_, end = x.Result.Span()
	return x.Return, end
}

// A RaiseStmt raises an exception: raise X from Cause.
type RaiseStmt struct {
	Raise Position
	X     Expr // may be nil
	Cause Expr // may be nil
}

func (x *RaiseStmt) Span() (start, end Position) {
	switch {
	case x.Cause != nil:
		_, end = x.Cause.Span()
	case x.X != nil:
		_, end = x.X.Span()
	default:
		end = x.Raise.add("raise")
	}
	return x.Raise, end
}

// A GlobalStmt declares names as module-level: global x, y.
type GlobalStmt struct {
	Global Position
	Names  []*Ident
}

func (x *GlobalStmt) Span() (start, end Position) {
	_, end = x.Names[len(x.Names)-1].Span()
	return x.Global, end
}

// A NonlocalStmt declares names as belonging to an enclosing
// function: nonlocal x, y.
type NonlocalStmt struct {
	Nonlocal Position
	Names    []*Ident
}

func (x *NonlocalStmt) Span() (start, end Position) {
	_, end = x.Names[len(x.Names)-1].Span()
	return x.Nonlocal, end
}

// A DelStmt deletes its targets: del x, y[i].
type DelStmt struct {
	Del     Position
	Targets []Expr
}

func (x *DelStmt) Span() (start, end Position) {
	_, end = x.Targets[len(x.Targets)-1].Span()
	return x.Del, end
}

// An AssertStmt checks a condition: assert Cond, Msg.
type AssertStmt struct {
	Assert Position
	Cond   Expr
	Msg    Expr // may be nil
}

func (x *AssertStmt) Span() (start, end Position) {
	if x.Msg != nil {
		_, end = x.Msg.Span()
	} else {
		_, end = x.Cond.Span()
	}
	return x.Assert, end
}

// A ForStmt represents a loop: for Vars in X: Body else: Else.
type ForStmt struct {
	Async Position // position of ASYNC, if any
	For   Position
	Vars  Expr // name, or tuple of names
	X     Expr
	Body  []Stmt
	Else  []Stmt // optional
}

func (x *ForStmt) Span() (start, end Position) {
	body := x.Else
	if body == nil {
		body = x.Body
	}
	_, end = body[len(body)-1].Span()
	return decoratedStart(nil, x.Async, x.For), end
}

// A WhileStmt represents a while loop: while Cond: Body else: Else.
type WhileStmt struct {
	While Position
	Cond  Expr
	Body  []Stmt
	Else  []Stmt // optional
}

func (x *WhileStmt) Span() (start, end Position) {
	body := x.Else
	if body == nil {
		body = x.Body
	}
	_, end = body[len(body)-1].Span()
	return x.While, end
}

// A WithItem is one context manager of a with statement: X as As.
type WithItem struct {
	X  Expr
	As Expr // optional target
}

func (x *WithItem) Span() (start, end Position) {
	start, end = x.X.Span()
	if x.As != nil {
		_, end = x.As.Span()
	}
	return
}

// A WithStmt represents a with statement: with X as y, Z: Body.
type WithStmt struct {
	Async Position // position of ASYNC, if any
	With  Position
	Items []*WithItem
	Body  []Stmt
}

func (x *WithStmt) Span() (start, end Position) {
	_, end = x.Body[len(x.Body)-1].Span()
	return decoratedStart(nil, x.Async, x.With), end
}

// An ExceptClause is one handler of a try statement:
// except Type as Name: Body.
type ExceptClause struct {
	Except Position
	Type   Expr   // optional
	Name   *Ident // optional
	Body   []Stmt
}

func (x *ExceptClause) Span() (start, end Position) {
	_, end = x.Body[len(x.Body)-1].Span()
	return x.Except, end
}

// A TryStmt represents a try statement with its handlers.
type TryStmt struct {
	Try      Position
	Body     []Stmt
	Handlers []*ExceptClause
	Else     []Stmt // optional
	Finally  []Stmt // optional
}

func (x *TryStmt) Span() (start, end Position) {
	var last []Stmt
	switch {
	case x.Finally != nil:
		last = x.Finally
	case x.Else != nil:
		last = x.Else
	case len(x.Handlers) > 0:
		last = x.Handlers[len(x.Handlers)-1].Body
	default:
		last = x.Body
	}
	_, end = last[len(last)-1].Span()
	return x.Try, end
}

// A MatchStmt represents a match statement:
//
//	match Subject:
//	    case Pattern if Guard:
//	        Body
//
// Patterns are represented by expressions: a capture pattern is an
// Ident (the wildcard _ included), a value pattern a DotExpr, a class
// pattern a CallExpr whose keyword patterns are BinaryExprs with Op EQ,
// an or-pattern a BinaryExpr with Op PIPE, and a star or double-star
// capture a UnaryExpr. Sequence and mapping patterns are ListExpr,
// TupleExpr and DictExpr.
type MatchStmt struct {
	Match   Position
	Subject Expr
	Cases   []*CaseClause
}

func (x *MatchStmt) Span() (start, end Position) {
	_, end = x.Cases[len(x.Cases)-1].Span()
	return x.Match, end
}

// A CaseClause is one case block of a match statement.
type CaseClause struct {
	Case    Position
	Pattern Expr
	Guard   Expr // optional
	Body    []Stmt
}

func (x *CaseClause) Span() (start, end Position) {
	_, end = x.Body[len(x.Body)-1].Span()
	return x.Case, end
}

// A TypeAliasStmt declares a type alias: type Name[Params] = Value.
// A bound or constraint of a type parameter is held in its Annotation.
type TypeAliasStmt struct {
	Type   Position
	Name   *Ident
	Params []*Param // optional
	Value  Expr
}

func (x *TypeAliasStmt) Span() (start, end Position) {
	_, end = x.Value.Span()
	return x.Type, end
}

// An Expr is a Python expression.
type Expr interface {
	Node
	expr()
}

func (*AsPattern) expr()     {}
func (*BinaryExpr) expr()    {}
func (*CallExpr) expr()      {}
func (*Comprehension) expr() {}
func (*CondExpr) expr()      {}
func (*DictEntry) expr()     {}
func (*DictExpr) expr()      {}
func (*DotExpr) expr()       {}
func (*FStringExpr) expr()   {}
func (*Ident) expr()         {}
func (*IndexExpr) expr()     {}
func (*LambdaExpr) expr()    {}
func (*ListExpr) expr()      {}
func (*Literal) expr()       {}
func (*NamedExpr) expr()     {}
func (*ParenExpr) expr()     {}
func (*SetExpr) expr()       {}
func (*Slice) expr()         {}
func (*TupleExpr) expr()     {}
func (*UnaryExpr) expr()     {}
func (*YieldExpr) expr()     {}

// An Ident represents an identifier.
type Ident struct {
	NamePos Position
	Name    string
}

func (x *Ident) Span() (start, end Position) {
	return x.NamePos, x.NamePos.add(x.Name)
}

// A Literal represents a literal string, number, or constant.
type Literal struct {
	Token    Token // = STRING | BYTES | INT | FLOAT | IMAG | TRUE | FALSE | NONE | ELLIPSIS
	TokenPos Position
	Raw      string      // uninterpreted text
	Value    interface{} // = string | int64 | *big.Int | float64 | bool | nil
}

func (x *Literal) Span() (start, end Position) {
	return x.TokenPos, x.TokenPos.add(x.Raw)
}

// An FStringExpr represents a formatted string literal, or the
// concatenation of adjacent string literals at least one of which is
// formatted: f"{x!r:>{width}}". Parts holds the expressions of the
// replacement fields, including those nested in format
// specifications, in source order.
type FStringExpr struct {
	TokenPos Position
	Raw      string // uninterpreted text
	Parts    []Expr
}

func (x *FStringExpr) Span() (start, end Position) {
	return x.TokenPos, x.TokenPos.add(x.Raw)
}

// An AsPattern is a pattern that also captures its subject: X as Name.
// It appears only in a MatchStmt.
type AsPattern struct {
	X    Expr
	As   Position
	Name *Ident
}

func (x *AsPattern) Span() (start, end Position) {
	start, _ = x.X.Span()
	_, end = x.Name.Span()
	return start, end
}

// A ParenExpr represents a parenthesized expression: (X).
type ParenExpr struct {
	Lparen Position
	X      Expr
	Rparen Position
}

func (x *ParenExpr) Span() (start, end Position) {
	return x.Lparen, x.Rparen.add(")")
}

// A CallExpr represents a function call expression: Fn(Args).
// A keyword argument k=v is represented as a BinaryExpr with Op EQ;
// *args and **kwargs are UnaryExprs with Op STAR and STARSTAR.
type CallExpr struct {
	Fn     Expr
	Lparen Position
	Args   []Expr
	Rparen Position
}

func (x *CallExpr) Span() (start, end Position) {
	start, _ = x.Fn.Span()
	return start, x.Rparen.add(")")
}

// A DotExpr represents a field or method selector: X.Name.
type DotExpr struct {
	X       Expr
	Dot     Position
	NamePos Position
	Name    *Ident
}

func (x *DotExpr) Span() (start, end Position) {
	start, _ = x.X.Span()
	_, end = x.Name.Span()
	return
}

// A ComprehensionKind distinguishes the four forms of comprehension.
type ComprehensionKind uint8

const (
	ListComp  ComprehensionKind = iota // [x for ...]
	SetComp                            // {x for ...}
	DictComp                           // {k: v for ...}
	Generator                          // (x for ...)
)

var comprehensionKindNames = [...]string{
	ListComp:  "list",
	SetComp:   "set",
	DictComp:  "dict",
	Generator: "generator",
}

func (k ComprehensionKind) String() string { return comprehensionKindNames[k] }

// A Comprehension represents a list, set, dict or generator comprehension:
// [Body for ... if ...], {Body for ...}, {k: v for ...} or (Body for ...).
//
// A generator that is the sole argument of a call shares the call's
// parentheses; its Lbrack and Rbrack are those of the call.
type Comprehension struct {
	Kind    ComprehensionKind
	Lbrack  Position
	Body    Expr   // *DictEntry for DictComp
	Clauses []Node // = *ForClause | *IfClause; the first is a *ForClause
	Rbrack  Position
}

func (x *Comprehension) Span() (start, end Position) {
	return x.Lbrack, x.Rbrack.add("]")
}

// A ForClause represents a for clause in a comprehension: for Vars in X.
type ForClause struct {
	Async Position // position of ASYNC, if any
	For   Position
	Vars  Expr // name, or tuple of names
	In    Position
	X     Expr
}

func (x *ForClause) Span() (start, end Position) {
	_, end = x.X.Span()
	return decoratedStart(nil, x.Async, x.For), end
}

// An IfClause represents an if clause in a comprehension: if Cond.
type IfClause struct {
	If   Position
	Cond Expr
}

func (x *IfClause) Span() (start, end Position) {
	_, end = x.Cond.Span()
	return x.If, end
}

// A DictExpr represents a dictionary literal: { List }.
type DictExpr struct {
	Lbrace Position
	List   []Expr // *DictEntry, or UnaryExpr{Op: STARSTAR} for **mapping
	Rbrace Position
}

func (x *DictExpr) Span() (start, end Position) {
	return x.Lbrace, x.Rbrace.add("}")
}

// A DictEntry represents a dictionary entry: Key: Value.
// Used only within a DictExpr or a dict Comprehension.
type DictEntry struct {
	Key   Expr
	Colon Position
	Value Expr
}

func (x *DictEntry) Span() (start, end Position) {
	start, _ = x.Key.Span()
	_, end = x.Value.Span()
	return start, end
}

// A LambdaExpr represents an inline function abstraction.
type LambdaExpr struct {
	Lambda Position
	Params []*Param // never annotated
	Body   Expr
}

func (x *LambdaExpr) Span() (start, end Position) {
	_, end = x.Body.Span()
	return x.Lambda, end
}

// A ListExpr represents a list literal: [ List ].
type ListExpr struct {
	Lbrack Position
	List   []Expr
	Rbrack Position
}

func (x *ListExpr) Span() (start, end Position) {
	return x.Lbrack, x.Rbrack.add("]")
}

// A SetExpr represents a set literal: { List }.
type SetExpr struct {
	Lbrace Position
	List   []Expr
	Rbrace Position
}

func (x *SetExpr) Span() (start, end Position) {
	return x.Lbrace, x.Rbrace.add("}")
}

// CondExpr represents the conditional: X if COND else ELSE.
type CondExpr struct {
	If      Position
	Cond    Expr
	True    Expr
	ElsePos Position
	False   Expr
}

func (x *CondExpr) Span() (start, end Position) {
	start, _ = x.True.Span()
	_, end = x.False.Span()
	return start, end
}

// A TupleExpr represents a tuple literal: (List).
type TupleExpr struct {
	Lparen Position // optional (e.g. in x, y = 0, 1), but required if List is empty
	List   []Expr
	Rparen Position
}

func (x *TupleExpr) Span() (start, end Position) {
	if x.Lparen.IsValid() {
		return x.Lparen, x.Rparen
	} else {
		return Start(x.List[0]), End(x.List[len(x.List)-1])
	}
}

// A UnaryExpr represents a unary expression: Op X.
//
// As a special case, UnaryOp{Op:STAR} or {Op:STARSTAR} denotes an
// unpacking in a call, display, or assignment target, and Op AWAIT
// an await expression.
type UnaryExpr struct {
	OpPos Position
	Op    Token
	X     Expr
}

func (x *UnaryExpr) Span() (start, end Position) {
	_, end = x.X.Span()
	return x.OpPos, end
}

// A BinaryExpr represents a binary expression: X Op Y.
//
// As a special case, BinaryExpr{Op:EQ} may denote a keyword
// argument in a call or class definition.
type BinaryExpr struct {
	X     Expr
	OpPos Position
	Op    Token
	Y     Expr
}

func (x *BinaryExpr) Span() (start, end Position) {
	start, _ = x.X.Span()
	_, end = x.Y.Span()
	return start, end
}

// A NamedExpr represents an assignment expression: Name := Y.
type NamedExpr struct {
	Name  *Ident
	OpPos Position
	Y     Expr
}

func (x *NamedExpr) Span() (start, end Position) {
	start, _ = x.Name.Span()
	_, end = x.Y.Span()
	return start, end
}

// A YieldExpr represents yield X or yield from X.
type YieldExpr struct {
	Yield Position
	From  bool
	X     Expr // may be nil
}

func (x *YieldExpr) Span() (start, end Position) {
	if x.X == nil {
		return x.Yield, x.Yield.add("yield")
	}
	_, end = x.X.Span()
	return x.Yield, end
}

// An IndexExpr represents an index or slice expression: X[Y].
// Y may be a *Slice, or a TupleExpr of indices and slices.
type IndexExpr struct {
	X      Expr
	Lbrack Position
	Y      Expr
	Rbrack Position
}

func (x *IndexExpr) Span() (start, end Position) {
	start, _ = x.X.Span()
	return start, x.Rbrack.add("]")
}

// A Slice represents a slice within an index expression: Lo:Hi:Step.
type Slice struct {
	Lo, Hi, Step Expr // all optional
	Colon        Position
}

func (x *Slice) Span() (start, end Position) {
	start = x.Colon
	if x.Lo != nil {
		start, _ = x.Lo.Span()
	}
	end = x.Colon.add(":")
	if x.Hi != nil {
		_, end = x.Hi.Span()
	}
	if x.Step != nil {
		_, end = x.Step.Span()
	}
	return start, end
}
