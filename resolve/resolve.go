// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolve defines a name-resolution pass for Python abstract
// syntax trees.
//
// The resolver reports every identifier that is used at a point where
// no definition is reachable: a name bound neither by an enclosing
// binding region, nor by an import, nor by the set of builtins.
//
// Python has four kinds of binding region: the module, function bodies
// (def and lambda), class bodies, and comprehensions. Each region owns
// a frame of names; lookups search the frames from innermost to
// outermost, except that the frame of a class body is visible only to
// the statements of that body and not to the functions or
// comprehensions nested within it.
//
// Names are bound by plain and annotated assignment, def and class
// statements, imports, the targets of for, with and except, the :=
// operator, and global and nonlocal declarations. An augmented
// assignment x += 1 uses x. The resolver is flow-insensitive within
// a region: a name bound anywhere earlier in the region's traversal is
// considered bound.
//
// The traversal is not a plain pre-order walk of the tree: function
// bodies are resolved after the statements of the enclosing function
// or module, as at run time a function body executes only once it is
// called. So a module may call a function defined later in the file,
// but a module-level use of a name bound only by a later statement is
// reported. The value of a type alias is deferred in the same way.
//
// The capture patterns of a match statement bind names in the
// enclosing region; its subject, guards, and value patterns are uses.
// The expressions in the replacement fields of an f-string are uses.
//
// A wildcard import (from m import *) makes resolution of the file
// incomplete. It is always reported, and by default suppresses the
// unresolved-name findings of that file.
package resolve // import "go.pyscope.dev/resolve"

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.pyscope.dev/syntax"
)

// A StarImportPolicy determines the treatment of unresolved names in a
// file containing a wildcard import.
type StarImportPolicy uint8

const (
	SuppressUnresolved StarImportPolicy = iota // drop unresolved-name findings
	ReportUnresolved                           // report them anyway
)

var starImportPolicyNames = [...]string{
	SuppressUnresolved: "suppress",
	ReportUnresolved:   "report",
}

func (p StarImportPolicy) String() string { return starImportPolicyNames[p] }

// ParseStarImportPolicy returns the policy of the specified name,
// "suppress" or "report".
func ParseStarImportPolicy(s string) (StarImportPolicy, error) {
	for p, name := range starImportPolicyNames {
		if s == name {
			return StarImportPolicy(p), nil
		}
	}
	return 0, fmt.Errorf("invalid star import policy %q (want suppress or report)", s)
}

// Options configures a resolver run. The zero value is ready to use.
type Options struct {
	Builtins    NameSet // names always bound; nil means Builtins
	Predeclared NameSet // additional names always bound
	StarImports StarImportPolicy
}

// A Result is the outcome of resolving one file.
type Result struct {
	Findings   []Finding
	Globals    []string // names bound at module level, sorted
	StarImport bool     // file contains a wildcard import
}

// An InternalError reports that the resolver violated one of its own
// invariants while resolving a file. No findings are reported for
// such a file.
type InternalError struct {
	Pos syntax.Position // start of the statement being resolved
	Msg string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: internal error: %s", e.Pos, e.Msg)
}

// File resolves the specified file and returns its findings.
func File(f *syntax.File, opts *Options) ([]Finding, error) {
	return FileContext(context.Background(), f, opts)
}

// FileContext is like File but abandons the run if ctx is done
// before it completes, returning the context's error.
func FileContext(ctx context.Context, f *syntax.File, opts *Options) ([]Finding, error) {
	res, err := ResolveContext(ctx, f, opts)
	if err != nil {
		return nil, err
	}
	return res.Findings, nil
}

// Resolve resolves the specified file.
func Resolve(f *syntax.File, opts *Options) (*Result, error) {
	return ResolveContext(context.Background(), f, opts)
}

// ResolveContext is like Resolve but abandons the run if ctx is done
// before it completes. Cancellation is observed between statements.
func ResolveContext(ctx context.Context, f *syntax.File, opts *Options) (res *Result, err error) {
	r := newResolver(ctx, opts)
	defer func() {
		switch x := recover().(type) {
		case nil:
		case cancelled:
			res, err = nil, x.err
		case internalError:
			res, err = nil, &InternalError{Pos: r.stmtPos, Msg: x.msg}
		default:
			panic(x)
		}
	}()
	r.file(f)
	return r.result(), nil
}

// cancelled is the panic value used to abandon a run.
type cancelled struct{ err error }

type resolver struct {
	ctx      context.Context
	builtins NameSet
	opts     Options

	stack   stack
	imports map[string]bool
	region  *region
	star    bool
	emitter emitter

	stmtPos   syntax.Position // start of the current statement
	fallbacks int             // nodes resolved conservatively
}

// A region is the extent of a function body or module whose nested
// function bodies are resolved once its own statements are done.
type region struct {
	base    int // index of the region's frame in the stack
	pending []pendingBody
}

// A pendingBody is the body of a def or lambda awaiting resolution.
// chain holds the frames between the body's region and the body itself,
// that is, those of any enclosing classes and comprehensions.
type pendingBody struct {
	params []*syntax.Param
	body   []syntax.Stmt // def
	expr   syntax.Expr   // lambda
	chain  []*frame
}

func newResolver(ctx context.Context, opts *Options) *resolver {
	r := &resolver{ctx: ctx, imports: make(map[string]bool)}
	if opts != nil {
		r.opts = *opts
	}
	r.builtins = r.opts.Builtins
	if r.builtins == nil {
		r.builtins = Builtins
	}
	return r
}

func (r *resolver) file(f *syntax.File) {
	r.stack.push(ModuleFrame)
	r.region = &region{base: 0}
	r.stmts(f.Stmts)
	r.drain()
}

func (r *resolver) result() *Result {
	globals := make([]string, 0, len(r.stack.frames[0].names))
	for name := range r.stack.frames[0].names {
		globals = append(globals, name)
	}
	sort.Strings(globals)
	return &Result{
		Findings:   r.emitter.finish(r.star, r.opts.StarImports),
		Globals:    globals,
		StarImport: r.star,
	}
}

// function defers resolution of a function body to the end of the
// current region.
func (r *resolver) function(params []*syntax.Param, body []syntax.Stmt, expr syntax.Expr) {
	rg := r.region
	chain := append([]*frame(nil), r.stack.frames[rg.base+1:]...)
	rg.pending = append(rg.pending, pendingBody{params, body, expr, chain})
}

// drain resolves the function bodies deferred within the current region.
func (r *resolver) drain() {
	outer := r.region
	for _, p := range outer.pending {
		for _, fr := range p.chain {
			r.stack.repush(fr)
		}
		r.stack.push(FunctionFrame)
		for _, param := range p.params {
			if param.Name != nil {
				r.bind(param.Name)
			}
		}

		r.region = &region{base: len(r.stack.frames) - 1}
		if p.expr != nil {
			r.expr(p.expr)
		} else {
			r.stmts(p.body)
		}
		r.drain()
		r.region = outer

		r.stack.pop()
		for range p.chain {
			r.stack.pop()
		}
	}
	outer.pending = nil
}

func (r *resolver) bind(id *syntax.Ident) { r.stack.bind(id.Name) }

func (r *resolver) use(id *syntax.Ident) {
	if !r.isBound(id.Name) {
		r.emitter.unresolved(id, r.suggest(id.Name))
	}
}

func (r *resolver) isBound(name string) bool {
	return r.stack.lookup(name) ||
		r.imports[name] ||
		r.builtins.Has(name) ||
		r.opts.Predeclared.Has(name)
}

// bindTargets binds the names of an assignment target.
func (r *resolver) bindTargets(x syntax.Expr) {
	switch x := x.(type) {
	case *syntax.Ident:
		r.bind(x)
	case *syntax.TupleExpr:
		for _, elem := range x.List {
			r.bindTargets(elem)
		}
	case *syntax.ListExpr:
		for _, elem := range x.List {
			r.bindTargets(elem)
		}
	case *syntax.ParenExpr:
		r.bindTargets(x.X)
	case *syntax.UnaryExpr:
		if x.Op == syntax.STAR {
			r.bindTargets(x.X)
		} else {
			r.expr(x)
		}
	default:
		// x.f = ..., x[i] = ...: the operands are uses.
		r.expr(x)
	}
}

func (r *resolver) stmts(stmts []syntax.Stmt) {
	for _, stmt := range stmts {
		if err := r.ctx.Err(); err != nil {
			panic(cancelled{err})
		}
		r.stmtPos = syntax.Start(stmt)
		r.stmt(stmt)
	}
}

func (r *resolver) stmt(stmt syntax.Stmt) {
	switch stmt := stmt.(type) {
	case *syntax.ExprStmt:
		r.expr(stmt.X)

	case *syntax.BranchStmt:
		// no-op

	case *syntax.IfStmt:
		r.expr(stmt.Cond)
		r.stmts(stmt.True)
		r.stmts(stmt.False)

	case *syntax.AssignStmt:
		if stmt.Op != syntax.EQ {
			// x += y reads x before rebinding it.
			r.expr(stmt.LHS)
			r.expr(stmt.RHS)
			break
		}
		if stmt.Annotation != nil {
			r.expr(stmt.Annotation)
		}
		if stmt.RHS == nil {
			// A bare annotation x: T declares x without binding it.
			if _, ok := stmt.LHS.(*syntax.Ident); !ok {
				r.expr(stmt.LHS)
			}
			break
		}
		r.expr(stmt.RHS)
		r.bindTargets(stmt.LHS)
		for _, lhs := range stmt.Extra {
			r.bindTargets(lhs)
		}

	case *syntax.DefStmt:
		r.decorators(stmt.Decorators)
		r.params(stmt.Params)
		if stmt.Returns != nil {
			r.expr(stmt.Returns)
		}
		r.bind(stmt.Name)
		r.function(stmt.Params, stmt.Body, nil)

	case *syntax.ClassStmt:
		r.decorators(stmt.Decorators)
		r.exprs(stmt.Bases)
		fr := r.stack.push(ClassFrame)
		for _, name := range classNames {
			r.stack.bindIn(fr, name)
		}
		r.stmts(stmt.Body)
		r.stack.pop()
		r.bind(stmt.Name)

	case *syntax.ForStmt:
		r.expr(stmt.X)
		r.bindTargets(stmt.Vars)
		r.stmts(stmt.Body)
		r.stmts(stmt.Else)

	case *syntax.WhileStmt:
		r.expr(stmt.Cond)
		r.stmts(stmt.Body)
		r.stmts(stmt.Else)

	case *syntax.WithStmt:
		for _, item := range stmt.Items {
			r.expr(item.X)
			if item.As != nil {
				r.bindTargets(item.As)
			}
		}
		r.stmts(stmt.Body)

	case *syntax.TryStmt:
		r.stmts(stmt.Body)
		for _, h := range stmt.Handlers {
			if h.Type != nil {
				r.expr(h.Type)
			}
			if h.Name != nil {
				r.bind(h.Name)
			}
			r.stmts(h.Body)
		}
		r.stmts(stmt.Else)
		r.stmts(stmt.Finally)

	case *syntax.ImportStmt:
		for _, name := range stmt.Names {
			r.importName(name)
		}

	case *syntax.FromImportStmt:
		if stmt.Star.IsValid() {
			r.star = true
			module := fromModule(stmt)
			r.emitter.emit(Finding{
				Pos:      stmt.From,
				Name:     module,
				Code:     CodeStarImport,
				Severity: SeverityWarning,
				Msg:      fmt.Sprintf("'from %s import *' used; unable to detect undefined names", module),
			})
			break
		}
		for _, name := range stmt.Names {
			r.importName(name)
		}

	case *syntax.GlobalStmt:
		module := r.stack.frames[0]
		for _, id := range stmt.Names {
			r.stack.bindIn(module, id.Name)
		}

	case *syntax.NonlocalStmt:
		for _, id := range stmt.Names {
			if !r.stack.enclosingFunctionBinds(id.Name) {
				r.emitter.emit(Finding{
					Pos:      id.NamePos,
					Name:     id.Name,
					Code:     CodeUnresolved,
					Severity: SeverityError,
					Msg:      fmt.Sprintf("no binding for nonlocal '%s' found", id.Name),
				})
			}
			r.bind(id)
		}

	case *syntax.DelStmt:
		r.exprs(stmt.Targets)

	case *syntax.AssertStmt:
		r.expr(stmt.Cond)
		if stmt.Msg != nil {
			r.expr(stmt.Msg)
		}

	case *syntax.RaiseStmt:
		if stmt.X != nil {
			r.expr(stmt.X)
		}
		if stmt.Cause != nil {
			r.expr(stmt.Cause)
		}

	case *syntax.ReturnStmt:
		if stmt.Result != nil {
			r.expr(stmt.Result)
		}

	case *syntax.MatchStmt:
		r.expr(stmt.Subject)
		for _, c := range stmt.Cases {
			r.pattern(c.Pattern)
			if c.Guard != nil {
				r.expr(c.Guard)
			}
			r.stmts(c.Body)
		}

	case *syntax.TypeAliasStmt:
		r.bind(stmt.Name)
		// Bounds, defaults and value are evaluated lazily,
		// in a scope of their own that binds the type parameters.
		var lazy []syntax.Expr
		for _, param := range stmt.Params {
			if param.Annotation != nil {
				lazy = append(lazy, param.Annotation)
			}
			if param.Default != nil {
				lazy = append(lazy, param.Default)
			}
		}
		lazy = append(lazy, stmt.Value)
		r.function(stmt.Params, nil, &syntax.TupleExpr{List: lazy})

	default:
		r.fallback(stmt)
	}
}

func (r *resolver) importName(name *syntax.ImportName) {
	id := name.Binding()
	r.bind(id)
	r.imports[id.Name] = true
}

// fromModule returns the module name of a from-import, with its
// leading dots.
func fromModule(stmt *syntax.FromImportStmt) string {
	var buf strings.Builder
	buf.WriteString(strings.Repeat(".", stmt.Dots))
	for i, id := range stmt.Module {
		if i > 0 {
			buf.WriteByte('.')
		}
		buf.WriteString(id.Name)
	}
	return buf.String()
}

func (r *resolver) decorators(decorators []*syntax.Decorator) {
	for _, d := range decorators {
		r.expr(d.X)
	}
}

// params resolves the defaults and annotations of a parameter list,
// which are evaluated in the enclosing scope.
func (r *resolver) params(params []*syntax.Param) {
	for _, param := range params {
		if param.Annotation != nil {
			r.expr(param.Annotation)
		}
		if param.Default != nil {
			r.expr(param.Default)
		}
	}
}

func (r *resolver) exprs(exprs []syntax.Expr) {
	for _, x := range exprs {
		r.expr(x)
	}
}

func (r *resolver) expr(e syntax.Expr) {
	switch e := e.(type) {
	case *syntax.Ident:
		r.use(e)

	case *syntax.Literal:
		// no-op

	case *syntax.FStringExpr:
		r.exprs(e.Parts)

	case *syntax.ListExpr:
		r.exprs(e.List)

	case *syntax.TupleExpr:
		r.exprs(e.List)

	case *syntax.SetExpr:
		r.exprs(e.List)

	case *syntax.DictExpr:
		r.exprs(e.List)

	case *syntax.DictEntry:
		r.expr(e.Key)
		r.expr(e.Value)

	case *syntax.ParenExpr:
		r.expr(e.X)

	case *syntax.CondExpr:
		r.expr(e.Cond)
		r.expr(e.True)
		r.expr(e.False)

	case *syntax.IndexExpr:
		r.expr(e.X)
		r.expr(e.Y)

	case *syntax.Slice:
		if e.Lo != nil {
			r.expr(e.Lo)
		}
		if e.Hi != nil {
			r.expr(e.Hi)
		}
		if e.Step != nil {
			r.expr(e.Step)
		}

	case *syntax.DotExpr:
		r.expr(e.X)

	case *syntax.CallExpr:
		r.expr(e.Fn)
		r.exprs(e.Args)

	case *syntax.UnaryExpr:
		r.expr(e.X)

	case *syntax.BinaryExpr:
		if e.Op == syntax.EQ {
			// keyword argument k=v
			r.expr(e.Y)
			break
		}
		r.expr(e.X)
		r.expr(e.Y)

	case *syntax.NamedExpr:
		r.expr(e.Y)
		r.stack.bindIn(r.stack.nearest(), e.Name.Name)

	case *syntax.YieldExpr:
		if e.X != nil {
			r.expr(e.X)
		}

	case *syntax.LambdaExpr:
		r.params(e.Params)
		r.function(e.Params, nil, e.Body)

	case *syntax.Comprehension:
		r.comprehension(e)

	default:
		r.fallback(e)
	}
}

// pattern resolves a pattern of a match statement.
func (r *resolver) pattern(x syntax.Expr) {
	switch x := x.(type) {
	case *syntax.Ident:
		// The wildcard _ matches without binding.
		if x.Name != "_" {
			r.bind(x)
		}
	case *syntax.AsPattern:
		r.pattern(x.X)
		r.bind(x.Name)
	case *syntax.ParenExpr:
		r.pattern(x.X)
	case *syntax.TupleExpr:
		for _, elem := range x.List {
			r.pattern(elem)
		}
	case *syntax.ListExpr:
		for _, elem := range x.List {
			r.pattern(elem)
		}
	case *syntax.DictExpr:
		for _, elem := range x.List {
			if entry, ok := elem.(*syntax.DictEntry); ok {
				r.expr(entry.Key)
				r.pattern(entry.Value)
			} else {
				r.pattern(elem)
			}
		}
	case *syntax.CallExpr:
		// Class pattern: the class is a use.
		r.expr(x.Fn)
		for _, arg := range x.Args {
			r.pattern(arg)
		}
	case *syntax.UnaryExpr:
		if x.Op == syntax.STAR || x.Op == syntax.STARSTAR {
			r.pattern(x.X)
		} else {
			r.expr(x)
		}
	case *syntax.BinaryExpr:
		switch x.Op {
		case syntax.PIPE:
			r.pattern(x.X)
			r.pattern(x.Y)
		case syntax.EQ:
			// keyword pattern attr=P
			r.pattern(x.Y)
		default:
			r.expr(x)
		}
	default:
		// Literals and dotted value patterns.
		r.expr(x)
	}
}

func (r *resolver) comprehension(c *syntax.Comprehension) {
	// The first iterable is evaluated in the enclosing scope.
	first := c.Clauses[0].(*syntax.ForClause)
	r.expr(first.X)

	r.stack.push(ComprehensionFrame)
	r.bindTargets(first.Vars)
	for _, clause := range c.Clauses[1:] {
		switch clause := clause.(type) {
		case *syntax.IfClause:
			r.expr(clause.Cond)
		case *syntax.ForClause:
			r.expr(clause.X)
			r.bindTargets(clause.Vars)
		default:
			r.fallback(clause)
		}
	}
	r.expr(c.Body)
	r.stack.pop()
}

// fallback resolves a node of a type unknown to the resolver.
// It introduces no bindings; every identifier beneath it is a use.
func (r *resolver) fallback(n syntax.Node) {
	r.fallbacks++
	defer func() {
		// Walk panics with the node when it too does not know its type.
		if x := recover(); x != nil {
			if _, ok := x.(syntax.Node); !ok {
				panic(x)
			}
		}
	}()
	syntax.Walk(n, func(n syntax.Node) bool {
		if id, ok := n.(*syntax.Ident); ok {
			r.use(id)
		}
		return true
	})
}
