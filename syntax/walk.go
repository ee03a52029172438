// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// Walk traverses a syntax tree in depth-first order.
// It starts by calling f(n); n must not be nil.
// If f returns true, Walk calls itself
// recursively for each non-nil child of n.
// Walk then calls f(nil).
func Walk(n Node, f func(Node) bool) {
	if n == nil {
		panic("nil")
	}
	if !f(n) {
		return
	}

	// TODO(adonovan): opt: order cases using profile data.
	switch n := n.(type) {
	case *File:
		walkStmts(n.Stmts, f)

	case *ExprStmt:
		Walk(n.X, f)

	case *BranchStmt:
		// no-op

	case *IfStmt:
		Walk(n.Cond, f)
		walkStmts(n.True, f)
		walkStmts(n.False, f)

	case *AssignStmt:
		Walk(n.LHS, f)
		for _, x := range n.Extra {
			Walk(x, f)
		}
		if n.Annotation != nil {
			Walk(n.Annotation, f)
		}
		if n.RHS != nil {
			Walk(n.RHS, f)
		}

	case *DefStmt:
		walkDecorators(n.Decorators, f)
		Walk(n.Name, f)
		walkParams(n.Params, f)
		if n.Returns != nil {
			Walk(n.Returns, f)
		}
		walkStmts(n.Body, f)

	case *ClassStmt:
		walkDecorators(n.Decorators, f)
		Walk(n.Name, f)
		for _, base := range n.Bases {
			Walk(base, f)
		}
		walkStmts(n.Body, f)

	case *ForStmt:
		Walk(n.Vars, f)
		Walk(n.X, f)
		walkStmts(n.Body, f)
		walkStmts(n.Else, f)

	case *WhileStmt:
		Walk(n.Cond, f)
		walkStmts(n.Body, f)
		walkStmts(n.Else, f)

	case *WithStmt:
		for _, item := range n.Items {
			Walk(item, f)
		}
		walkStmts(n.Body, f)

	case *WithItem:
		Walk(n.X, f)
		if n.As != nil {
			Walk(n.As, f)
		}

	case *TryStmt:
		walkStmts(n.Body, f)
		for _, h := range n.Handlers {
			Walk(h, f)
		}
		walkStmts(n.Else, f)
		walkStmts(n.Finally, f)

	case *ExceptClause:
		if n.Type != nil {
			Walk(n.Type, f)
		}
		if n.Name != nil {
			Walk(n.Name, f)
		}
		walkStmts(n.Body, f)

	case *MatchStmt:
		Walk(n.Subject, f)
		for _, c := range n.Cases {
			Walk(c, f)
		}

	case *CaseClause:
		Walk(n.Pattern, f)
		if n.Guard != nil {
			Walk(n.Guard, f)
		}
		walkStmts(n.Body, f)

	case *TypeAliasStmt:
		Walk(n.Name, f)
		walkParams(n.Params, f)
		Walk(n.Value, f)

	case *ImportStmt:
		for _, name := range n.Names {
			Walk(name, f)
		}

	case *FromImportStmt:
		for _, id := range n.Module {
			Walk(id, f)
		}
		for _, name := range n.Names {
			Walk(name, f)
		}

	case *ImportName:
		for _, id := range n.Path {
			Walk(id, f)
		}
		if n.As != nil {
			Walk(n.As, f)
		}

	case *GlobalStmt:
		for _, id := range n.Names {
			Walk(id, f)
		}

	case *NonlocalStmt:
		for _, id := range n.Names {
			Walk(id, f)
		}

	case *DelStmt:
		for _, x := range n.Targets {
			Walk(x, f)
		}

	case *AssertStmt:
		Walk(n.Cond, f)
		if n.Msg != nil {
			Walk(n.Msg, f)
		}

	case *RaiseStmt:
		if n.X != nil {
			Walk(n.X, f)
		}
		if n.Cause != nil {
			Walk(n.Cause, f)
		}

	case *ReturnStmt:
		if n.Result != nil {
			Walk(n.Result, f)
		}

	case *Decorator:
		Walk(n.X, f)

	case *Param:
		if n.Name != nil {
			Walk(n.Name, f)
		}
		if n.Annotation != nil {
			Walk(n.Annotation, f)
		}
		if n.Default != nil {
			Walk(n.Default, f)
		}

	case *Ident, *Literal:
		// no-op

	case *FStringExpr:
		walkExprs(n.Parts, f)

	case *AsPattern:
		Walk(n.X, f)
		Walk(n.Name, f)

	case *ListExpr:
		walkExprs(n.List, f)

	case *SetExpr:
		walkExprs(n.List, f)

	case *ParenExpr:
		Walk(n.X, f)

	case *CondExpr:
		Walk(n.Cond, f)
		Walk(n.True, f)
		Walk(n.False, f)

	case *IndexExpr:
		Walk(n.X, f)
		Walk(n.Y, f)

	case *Slice:
		if n.Lo != nil {
			Walk(n.Lo, f)
		}
		if n.Hi != nil {
			Walk(n.Hi, f)
		}
		if n.Step != nil {
			Walk(n.Step, f)
		}

	case *DictEntry:
		Walk(n.Key, f)
		Walk(n.Value, f)

	case *DotExpr:
		Walk(n.X, f)
		Walk(n.Name, f)

	case *Comprehension:
		Walk(n.Body, f)
		for _, clause := range n.Clauses {
			Walk(clause, f)
		}

	case *IfClause:
		Walk(n.Cond, f)

	case *ForClause:
		Walk(n.Vars, f)
		Walk(n.X, f)

	case *TupleExpr:
		walkExprs(n.List, f)

	case *DictExpr:
		walkExprs(n.List, f)

	case *UnaryExpr:
		Walk(n.X, f)

	case *BinaryExpr:
		Walk(n.X, f)
		Walk(n.Y, f)

	case *NamedExpr:
		Walk(n.Name, f)
		Walk(n.Y, f)

	case *YieldExpr:
		if n.X != nil {
			Walk(n.X, f)
		}

	case *CallExpr:
		Walk(n.Fn, f)
		walkExprs(n.Args, f)

	case *LambdaExpr:
		walkParams(n.Params, f)
		Walk(n.Body, f)

	default:
		panic(n)
	}

	f(nil)
}

func walkStmts(stmts []Stmt, f func(Node) bool) {
	for _, stmt := range stmts {
		Walk(stmt, f)
	}
}

func walkExprs(exprs []Expr, f func(Node) bool) {
	for _, x := range exprs {
		Walk(x, f)
	}
}

func walkParams(params []*Param, f func(Node) bool) {
	for _, param := range params {
		Walk(param, f)
	}
}

func walkDecorators(decorators []*Decorator, f func(Node) bool) {
	for _, d := range decorators {
		Walk(d, f)
	}
}
