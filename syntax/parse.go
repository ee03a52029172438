// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syntax

// This file defines a recursive-descent parser for Python.
// The LL(1) grammar of Python and the names of many productions follow
// the reference grammar; the parser is written by hand and has no
// backtracking.

import (
	"log"
)

// Enable this flag to print the token stream and log.Fatal on the first error.
const debug = false

// Parse parses the input data and returns the corresponding parse tree.
//
// If src != nil, Parse parses the source from src and the filename
// is only used when recording position information.
// The type of the argument for the src parameter must be string,
// []byte, or io.Reader.
// If src == nil, Parse parses the file specified by filename.
func Parse(filename string, src interface{}) (f *File, err error) {
	in, err := newScanner(filename, src)
	if err != nil {
		return nil, err
	}
	p := parser{in: in}
	defer p.in.recover(&err)

	p.nextToken() // read first lookahead token
	f = p.parseFile()
	if f != nil {
		f.Path = filename
	}
	return f, nil
}

// ParseCompoundStmt parses a single compound statement:
// a blank line, a def, class, if, for, while, with, try or match statement,
// or a semicolon-separated list of simple statements followed
// by a newline. These are the units on which the REPL operates.
// ParseCompoundStmt does not consume any following input.
// The parser calls the readline function each
// time it needs a new line of input.
func ParseCompoundStmt(filename string, readline func() ([]byte, error)) (f *File, err error) {
	in, err := newScanner(filename, readline)
	if err != nil {
		return nil, err
	}

	p := parser{in: in}
	defer p.in.recover(&err)

	p.nextToken() // read first lookahead token

	var stmts []Stmt
	switch p.tok {
	case DEF, CLASS, IF, FOR, WHILE, WITH, TRY, AT, ASYNC:
		stmts = p.parseStmt(stmts)
	case NEWLINE:
		// blank line
	default:
		stmts = p.parseMatchOrSimpleStmt(stmts, false)
		if _, ok := stmts[len(stmts)-1].(*MatchStmt); ok {
			break
		}
		// Require but don't consume newline, to avoid blocking again.
		if p.tok != NEWLINE {
			p.in.errorf(p.in.pos, "invalid syntax")
		}
	}

	return &File{Path: filename, Stmts: stmts}, nil
}

// ParseExpr parses a Python expression.
// A comma-separated list of expressions is parsed as a tuple.
// See Parse for explanation of parameters.
func ParseExpr(filename string, src interface{}) (expr Expr, err error) {
	in, err := newScanner(filename, src)
	if err != nil {
		return nil, err
	}
	p := parser{in: in}
	defer p.in.recover(&err)

	p.nextToken() // read first lookahead token

	// Use parseExprList to allow comma-separated expressions
	// (and lambdas) at top level.
	expr = p.parseExprList()

	// A following newline (e.g. "f()\n") appears outside any brackets,
	// on a non-blank line, and thus results in a NEWLINE token.
	if p.tok == NEWLINE {
		p.nextToken()
	}

	if p.tok != EOF {
		p.in.errorf(p.in.pos, "got %#v after expression, want EOF", p.tok)
	}
	return expr, nil
}

type parser struct {
	in     *scanner
	tok    Token
	tokval tokenValue

	// The token after tok, once peek has read it; ILLEGAL otherwise.
	ahead    Token
	aheadval tokenValue
}

// nextToken advances the scanner and returns the position of the
// previous token.
func (p *parser) nextToken() Position {
	oldpos := p.tokval.pos
	if p.ahead != ILLEGAL {
		p.tok, p.tokval = p.ahead, p.aheadval
		p.ahead = ILLEGAL
	} else {
		p.tok = p.in.nextToken(&p.tokval)
	}
	// enable to see the token stream
	if debug {
		log.Printf("nextToken: %-20s%+v\n", p.tok, p.tokval.pos)
	}
	return oldpos
}

// peek returns the token after the current one without consuming it.
func (p *parser) peek() Token {
	if p.ahead == ILLEGAL {
		p.ahead = p.in.nextToken(&p.aheadval)
	}
	return p.ahead
}

// file_input = (NEWLINE | stmt)* EOF
func (p *parser) parseFile() *File {
	var stmts []Stmt
	for p.tok != EOF {
		if p.tok == NEWLINE {
			p.nextToken()
			continue
		}
		stmts = p.parseStmt(stmts)
	}
	return &File{Stmts: stmts}
}

func (p *parser) parseStmt(stmts []Stmt) []Stmt {
	switch p.tok {
	case AT:
		return append(stmts, p.parseDecorated())
	case DEF:
		return append(stmts, p.parseDefStmt(nil, Position{}))
	case CLASS:
		return append(stmts, p.parseClassStmt(nil))
	case ASYNC:
		async := p.nextToken() // consume ASYNC
		switch p.tok {
		case DEF:
			return append(stmts, p.parseDefStmt(nil, async))
		case FOR:
			return append(stmts, p.parseForStmt(async))
		case WITH:
			return append(stmts, p.parseWithStmt(async))
		}
		p.in.errorf(p.in.pos, "got %#v after async, want def, for, or with", p.tok)
	case IF:
		return append(stmts, p.parseIfStmt())
	case FOR:
		return append(stmts, p.parseForStmt(Position{}))
	case WHILE:
		return append(stmts, p.parseWhileStmt())
	case WITH:
		return append(stmts, p.parseWithStmt(Position{}))
	case TRY:
		return append(stmts, p.parseTryStmt())
	case IDENT:
		return p.parseMatchOrSimpleStmt(stmts, true)
	}
	return p.parseSimpleStmt(stmts, true)
}

// decorated = decorator+ (classdef | funcdef | async_funcdef)
// decorator = '@' namedexpr_test NEWLINE
func (p *parser) parseDecorated() Stmt {
	var decorators []*Decorator
	for p.tok == AT {
		at := p.nextToken() // consume AT
		x := p.parseNamedTest()
		p.consume(NEWLINE)
		decorators = append(decorators, &Decorator{At: at, X: x})
	}
	switch p.tok {
	case DEF:
		return p.parseDefStmt(decorators, Position{})
	case CLASS:
		return p.parseClassStmt(decorators)
	case ASYNC:
		async := p.nextToken() // consume ASYNC
		if p.tok == DEF {
			return p.parseDefStmt(decorators, async)
		}
	}
	p.in.errorf(p.in.pos, "got %#v after decorator, want def or class", p.tok)
	panic("unreachable")
}

// funcdef = 'def' NAME '(' parameters ')' ['->' test] ':' suite
func (p *parser) parseDefStmt(decorators []*Decorator, async Position) Stmt {
	defpos := p.nextToken() // consume DEF
	id := p.parseIdent()
	p.consume(LPAREN)
	params := p.parseParams(RPAREN, true)
	p.consume(RPAREN)

	var returns Expr
	if p.tok == ARROW {
		p.nextToken()
		returns = p.parseTest()
	}
	p.consume(COLON)
	body := p.parseSuite()
	return &DefStmt{
		Decorators: decorators,
		Async:      async,
		Def:        defpos,
		Name:       id,
		Params:     params,
		Returns:    returns,
		Body:       body,
	}
}

// parameters = (param ',')* [param]
// param      = IDENT [':' test] ['=' test]
//            | '*' [IDENT [':' test]]
//            | '**' IDENT [':' test]
//            | '/'
//
// Lambda parameters (annotations=false) have no annotations.
func (p *parser) parseParams(close Token, annotations bool) []*Param {
	var params []*Param
	for p.tok != close && p.tok != EOF {
		if len(params) > 0 {
			p.consume(COMMA)
		}
		if p.tok == close {
			// list can end with a COMMA if there is neither * nor **
			break
		}

		param := new(Param)
		switch p.tok {
		case SLASH:
			param.Star = SLASH
			param.StarPos = p.nextToken()
			params = append(params, param)
			continue
		case STAR:
			param.Star = STAR
			param.StarPos = p.nextToken()
			if p.tok == IDENT {
				param.Name = p.parseIdent()
			}
		case STARSTAR:
			param.Star = STARSTAR
			param.StarPos = p.nextToken()
			param.Name = p.parseIdent()
		default:
			param.Name = p.parseIdent()
		}
		if annotations && param.Name != nil && p.tok == COLON {
			p.nextToken()
			param.Annotation = p.parseTest()
		}
		if param.Star == 0 && p.tok == EQ {
			p.nextToken()
			param.Default = p.parseTest()
		}
		params = append(params, param)
	}
	return params
}

// classdef = 'class' NAME ['(' [arglist] ')'] ':' suite
func (p *parser) parseClassStmt(decorators []*Decorator) Stmt {
	classpos := p.nextToken() // consume CLASS
	stmt := &ClassStmt{Decorators: decorators, Class: classpos}
	stmt.Name = p.parseIdent()
	if p.tok == LPAREN {
		stmt.Lparen = p.nextToken()
		stmt.Bases = p.parseArgs()
		stmt.Rparen = p.consume(RPAREN)
	}
	p.consume(COLON)
	stmt.Body = p.parseSuite()
	return stmt
}

// if_stmt = 'if' namedexpr_test ':' suite ('elif' namedexpr_test ':' suite)* ['else' ':' suite]
func (p *parser) parseIfStmt() Stmt {
	ifpos := p.nextToken() // consume IF
	cond := p.parseNamedTest()
	p.consume(COLON)
	body := p.parseSuite()
	ifStmt := &IfStmt{
		If:   ifpos,
		Cond: cond,
		True: body,
	}
	tail := ifStmt
	for p.tok == ELIF {
		elifpos := p.nextToken() // consume ELIF
		cond := p.parseNamedTest()
		p.consume(COLON)
		body := p.parseSuite()
		elif := &IfStmt{
			If:   elifpos,
			Cond: cond,
			True: body,
		}
		tail.ElsePos = elifpos
		tail.False = []Stmt{elif}
		tail = elif
	}
	if p.tok == ELSE {
		tail.ElsePos = p.nextToken() // consume ELSE
		p.consume(COLON)
		tail.False = p.parseSuite()
	}
	return ifStmt
}

// for_stmt = 'for' exprlist 'in' testlist ':' suite ['else' ':' suite]
func (p *parser) parseForStmt(async Position) Stmt {
	forpos := p.nextToken() // consume FOR
	vars := p.parseForLoopVariables()
	p.consume(IN)
	x := p.parseExprList()
	p.consume(COLON)
	body := p.parseSuite()
	stmt := &ForStmt{
		Async: async,
		For:   forpos,
		Vars:  vars,
		X:     x,
		Body:  body,
	}
	if p.tok == ELSE {
		p.nextToken()
		p.consume(COLON)
		stmt.Else = p.parseSuite()
	}
	return stmt
}

// Equivalent to 'exprlist' production in Python grammar.
//
// loop_variables = (expr|star_expr) (COMMA (expr|star_expr))* COMMA?
func (p *parser) parseForLoopVariables() Expr {
	// Avoid parseExprList as it would consume the IN token.
	x := p.parseTarget()
	if p.tok != COMMA {
		return x
	}

	list := []Expr{x}
	for p.tok == COMMA {
		p.nextToken()
		if p.tok == IN {
			break
		}
		list = append(list, p.parseTarget())
	}
	return &TupleExpr{List: list}
}

// parseTarget parses one loop variable, which binds more tightly
// than any comparison so that IN is left for the caller.
func (p *parser) parseTarget() Expr {
	if p.tok == STAR {
		pos := p.nextToken()
		return &UnaryExpr{OpPos: pos, Op: STAR, X: p.parseTestPrec(int(precedence[PIPE]))}
	}
	return p.parseTestPrec(int(precedence[PIPE]))
}

// while_stmt = 'while' namedexpr_test ':' suite ['else' ':' suite]
func (p *parser) parseWhileStmt() Stmt {
	whilepos := p.nextToken() // consume WHILE
	cond := p.parseNamedTest()
	p.consume(COLON)
	body := p.parseSuite()
	stmt := &WhileStmt{
		While: whilepos,
		Cond:  cond,
		Body:  body,
	}
	if p.tok == ELSE {
		p.nextToken()
		p.consume(COLON)
		stmt.Else = p.parseSuite()
	}
	return stmt
}

// with_stmt = 'with' with_item (',' with_item)* ':' suite
//           | 'with' '(' with_item (',' with_item)* [','] ')' ':' suite
// with_item = test ['as' target]
func (p *parser) parseWithStmt(async Position) Stmt {
	withpos := p.nextToken() // consume WITH
	stmt := &WithStmt{Async: async, With: withpos}

	if p.tok == LPAREN {
		// Parenthesized context managers (or a parenthesized
		// expression used as the sole context manager).
		lparen := p.nextToken()
		var items []*WithItem
		for p.tok != RPAREN {
			if len(items) > 0 {
				p.consume(COMMA)
				if p.tok == RPAREN {
					break
				}
			}
			items = append(items, p.parseWithItem())
		}
		rparen := p.consume(RPAREN)
		switch {
		case p.tok == COLON:
			stmt.Items = items
		case p.tok == AS && len(items) > 0 && items[len(items)-1].As == nil:
			// with (a, b) as c:
			var x Expr
			if len(items) == 1 {
				x = &ParenExpr{Lparen: lparen, X: items[0].X, Rparen: rparen}
			} else {
				list := make([]Expr, len(items))
				for i, item := range items {
					if item.As != nil {
						p.in.errorf(p.in.pos, "invalid syntax")
					}
					list[i] = item.X
				}
				x = &TupleExpr{Lparen: lparen, List: list, Rparen: rparen}
			}
			p.nextToken() // consume AS
			stmt.Items = []*WithItem{{X: x, As: p.parseTarget()}}
			for p.tok == COMMA {
				p.nextToken()
				stmt.Items = append(stmt.Items, p.parseWithItem())
			}
		default:
			p.in.errorf(p.in.pos, "got %#v after parenthesized with items, want ':'", p.tok)
		}
	} else {
		for {
			stmt.Items = append(stmt.Items, p.parseWithItem())
			if p.tok != COMMA {
				break
			}
			p.nextToken()
		}
	}
	p.consume(COLON)
	stmt.Body = p.parseSuite()
	return stmt
}

func (p *parser) parseWithItem() *WithItem {
	item := &WithItem{X: p.parseTest()}
	if p.tok == AS {
		p.nextToken()
		item.As = p.parseTarget()
	}
	return item
}

// try_stmt = 'try' ':' suite
//            ((except_clause ':' suite)+ ['else' ':' suite] ['finally' ':' suite]
//            | 'finally' ':' suite)
// except_clause = 'except' ['*'] [test ['as' NAME]]
func (p *parser) parseTryStmt() Stmt {
	trypos := p.nextToken() // consume TRY
	p.consume(COLON)
	stmt := &TryStmt{Try: trypos, Body: p.parseSuite()}
	for p.tok == EXCEPT {
		clause := &ExceptClause{Except: p.nextToken()}
		if p.tok == STAR {
			p.nextToken() // except* (exception groups)
		}
		if p.tok != COLON {
			clause.Type = p.parseTest()
			if p.tok == AS {
				p.nextToken()
				clause.Name = p.parseIdent()
			}
		}
		p.consume(COLON)
		clause.Body = p.parseSuite()
		stmt.Handlers = append(stmt.Handlers, clause)
	}
	if p.tok == ELSE {
		if len(stmt.Handlers) == 0 {
			p.in.errorf(p.in.pos, "else clause requires an except clause")
		}
		p.nextToken()
		p.consume(COLON)
		stmt.Else = p.parseSuite()
	}
	if p.tok == FINALLY {
		p.nextToken()
		p.consume(COLON)
		stmt.Finally = p.parseSuite()
	}
	if len(stmt.Handlers) == 0 && stmt.Finally == nil {
		p.in.errorf(p.in.pos, "expected 'except' or 'finally' block")
	}
	return stmt
}

// simple_stmt = small_stmt (SEMI small_stmt)* SEMI? NEWLINE
// In REPL mode, it does not consume the NEWLINE.
func (p *parser) parseSimpleStmt(stmts []Stmt, consumeNL bool) []Stmt {
	return p.finishSimpleStmt(append(stmts, p.parseSmallStmt()), consumeNL)
}

// finishSimpleStmt parses the rest of a simple statement whose first
// small statement is the last element of stmts.
func (p *parser) finishSimpleStmt(stmts []Stmt, consumeNL bool) []Stmt {
	for p.tok == SEMI {
		p.nextToken() // consume SEMI
		if p.tok == NEWLINE || p.tok == EOF {
			break
		}
		stmts = append(stmts, p.parseSmallStmt())
	}
	// EOF without NEWLINE occurs in `if x: pass`, for example.
	if p.tok != EOF && consumeNL {
		p.consume(NEWLINE)
	}

	return stmts
}

// small_stmt = RETURN expr?
//            | PASS | BREAK | CONTINUE
//            | RAISE [test ['from' test]]
//            | GLOBAL NAME (',' NAME)*
//            | NONLOCAL NAME (',' NAME)*
//            | DEL exprlist
//            | ASSERT test [',' test]
//            | import_stmt
//            | 'type' NAME [type_params] '=' test
//            | expr ('=' | '+=' | '-=' | '*=' | '/=' | '//=' | '%=' | ...) expr   // assign
//            | expr ':' test ['=' expr]                                          // annotated assign
//            | expr
func (p *parser) parseSmallStmt() Stmt {
	switch p.tok {
	case RETURN:
		pos := p.nextToken() // consume RETURN
		var result Expr
		if p.tok != EOF && p.tok != NEWLINE && p.tok != SEMI {
			result = p.parseStarExprList()
		}
		return &ReturnStmt{Return: pos, Result: result}

	case BREAK, CONTINUE, PASS:
		tok := p.tok
		pos := p.nextToken() // consume it
		return &BranchStmt{Token: tok, TokenPos: pos}

	case RAISE:
		stmt := &RaiseStmt{Raise: p.nextToken()}
		if p.tok != EOF && p.tok != NEWLINE && p.tok != SEMI {
			stmt.X = p.parseTest()
			if p.tok == FROM {
				p.nextToken()
				stmt.Cause = p.parseTest()
			}
		}
		return stmt

	case GLOBAL:
		pos := p.nextToken()
		return &GlobalStmt{Global: pos, Names: p.parseIdentList()}

	case NONLOCAL:
		pos := p.nextToken()
		return &NonlocalStmt{Nonlocal: pos, Names: p.parseIdentList()}

	case DEL:
		pos := p.nextToken()
		stmt := &DelStmt{Del: pos}
		for {
			stmt.Targets = append(stmt.Targets, p.parseTarget())
			if p.tok != COMMA {
				break
			}
			p.nextToken()
			if p.tok == NEWLINE || p.tok == SEMI || p.tok == EOF {
				break
			}
		}
		return stmt

	case ASSERT:
		stmt := &AssertStmt{Assert: p.nextToken()}
		stmt.Cond = p.parseTest()
		if p.tok == COMMA {
			p.nextToken()
			stmt.Msg = p.parseTest()
		}
		return stmt

	case IMPORT:
		return p.parseImportStmt()

	case FROM:
		return p.parseFromImportStmt()

	case IDENT:
		// "type" is a keyword only when a name follows it.
		if p.tokval.raw == "type" && p.peek() == IDENT {
			return p.parseTypeAliasStmt()
		}
	}

	return p.parseExprStmt(p.parseStarExprList())
}

// parseExprStmt parses the rest of an assignment or expression
// statement whose first expression list is x.
func (p *parser) parseExprStmt(x Expr) Stmt {
	switch p.tok {
	case COLON:
		// annotated assignment
		pos := p.nextToken()
		stmt := &AssignStmt{OpPos: pos, Op: EQ, LHS: x, Annotation: p.parseTest()}
		if p.tok == EQ {
			p.nextToken()
			stmt.RHS = p.parseStarExprList()
		}
		return stmt

	case EQ:
		// chained assignment: x = y = z
		pos := p.nextToken() // consume EQ
		targets := []Expr{x, p.parseStarExprList()}
		for p.tok == EQ {
			p.nextToken()
			targets = append(targets, p.parseStarExprList())
		}
		n := len(targets)
		return &AssignStmt{
			OpPos: pos,
			Op:    EQ,
			LHS:   targets[0],
			Extra: targets[1 : n-1 : n-1],
			RHS:   targets[n-1],
		}

	case PLUS_EQ, MINUS_EQ, STAR_EQ, SLASH_EQ, SLASHSLASH_EQ, PERCENT_EQ, AT_EQ,
		AMPERSAND_EQ, PIPE_EQ, CIRCUMFLEX_EQ, LTLT_EQ, GTGT_EQ, STARSTAR_EQ:
		// augmented assignment
		op := p.tok
		pos := p.nextToken() // consume op
		rhs := p.parseStarExprList()
		return &AssignStmt{OpPos: pos, Op: op, LHS: x, RHS: rhs}
	}

	// Expression statement (e.g. function call, doc string).
	return &ExprStmt{X: x}
}

// type_alias  = 'type' NAME [type_params] '=' test
// type_params = '[' type_param (',' type_param)* [','] ']'
// type_param  = NAME [':' test] ['=' test] | '*' NAME | '**' NAME
func (p *parser) parseTypeAliasStmt() Stmt {
	stmt := &TypeAliasStmt{Type: p.nextToken()} // consume "type"
	stmt.Name = p.parseIdent()
	if p.tok == LBRACK {
		p.nextToken()
		stmt.Params = p.parseParams(RBRACK, true)
		p.consume(RBRACK)
	}
	p.consume(EQ)
	stmt.Value = p.parseTest()
	return stmt
}

// import_name = 'import' dotted_as_name (',' dotted_as_name)*
func (p *parser) parseImportStmt() Stmt {
	stmt := &ImportStmt{Import: p.nextToken()} // consume IMPORT
	for {
		name := &ImportName{Path: p.parseDottedName()}
		if p.tok == AS {
			p.nextToken()
			name.As = p.parseIdent()
		}
		stmt.Names = append(stmt.Names, name)
		if p.tok != COMMA {
			break
		}
		p.nextToken()
	}
	return stmt
}

// import_from = 'from' (('.' | '...')* dotted_name | ('.' | '...')+)
//               'import' ('*' | '(' import_as_names ')' | import_as_names)
func (p *parser) parseFromImportStmt() Stmt {
	stmt := &FromImportStmt{From: p.nextToken()} // consume FROM
	for p.tok == DOT || p.tok == ELLIPSIS {
		if p.tok == DOT {
			stmt.Dots++
		} else {
			stmt.Dots += 3
		}
		p.nextToken()
	}
	if p.tok != IMPORT {
		stmt.Module = p.parseDottedName()
	} else if stmt.Dots == 0 {
		p.in.errorf(p.in.pos, "got %#v, want module name", p.tok)
	}
	stmt.Import = p.consume(IMPORT)

	switch p.tok {
	case STAR:
		stmt.Star = p.nextToken()
	case LPAREN:
		p.nextToken()
		for p.tok != RPAREN {
			if len(stmt.Names) > 0 {
				p.consume(COMMA)
				if p.tok == RPAREN {
					break
				}
			}
			stmt.Names = append(stmt.Names, p.parseImportAsName())
		}
		stmt.Rparen = p.consume(RPAREN)
		if len(stmt.Names) == 0 {
			p.in.errorf(stmt.Rparen, "empty import list")
		}
	default:
		for {
			stmt.Names = append(stmt.Names, p.parseImportAsName())
			if p.tok != COMMA {
				break
			}
			p.nextToken()
		}
	}
	return stmt
}

// import_as_name = NAME ['as' NAME]
func (p *parser) parseImportAsName() *ImportName {
	name := &ImportName{Path: []*Ident{p.parseIdent()}}
	if p.tok == AS {
		p.nextToken()
		name.As = p.parseIdent()
	}
	return name
}

// dotted_name = NAME ('.' NAME)*
func (p *parser) parseDottedName() []*Ident {
	path := []*Ident{p.parseIdent()}
	for p.tok == DOT {
		p.nextToken()
		path = append(path, p.parseIdent())
	}
	return path
}

// ident_list = NAME (',' NAME)*
func (p *parser) parseIdentList() []*Ident {
	ids := []*Ident{p.parseIdent()}
	for p.tok == COMMA {
		p.nextToken()
		ids = append(ids, p.parseIdent())
	}
	return ids
}

// suite is typically what follows a COLON (e.g. after DEF or FOR).
// suite = simple_stmt | NEWLINE INDENT stmt+ OUTDENT
func (p *parser) parseSuite() []Stmt {
	if p.tok == NEWLINE {
		p.nextToken() // consume NEWLINE
		p.consume(INDENT)
		var stmts []Stmt
		for p.tok != OUTDENT && p.tok != EOF {
			stmts = p.parseStmt(stmts)
		}
		p.consume(OUTDENT)
		return stmts
	}

	return p.parseSimpleStmt(nil, true)
}

func (p *parser) parseIdent() *Ident {
	if p.tok != IDENT {
		p.in.error(p.in.pos, "not an identifier")
	}
	id := &Ident{
		NamePos: p.tokval.pos,
		Name:    p.tokval.raw,
	}
	p.nextToken()
	return id
}

func (p *parser) consume(t Token) Position {
	if p.tok != t {
		p.in.errorf(p.in.pos, "got %#v, want %#v", p.tok, t)
	}
	return p.nextToken()
}

// parseStarExprList parses a comma-separated list of expressions,
// any of which may be a starred expression, or a yield expression.
//
// testlist_star_expr = (test|star_expr) (',' (test|star_expr))* [',']
func (p *parser) parseStarExprList() Expr {
	if p.tok == YIELD {
		return p.parseYield()
	}
	x := p.parseStarOrNamedTest()
	if p.tok != COMMA {
		return x
	}

	// tuple
	exprs := []Expr{x}
	for p.tok == COMMA {
		p.nextToken()
		if terminatesExprList(p.tok) {
			break
		}
		exprs = append(exprs, p.parseStarOrNamedTest())
	}
	return &TupleExpr{List: exprs}
}

// parseExprList parses a comma-separated list of expressions.
// If the list has more than one element, it is returned as a TupleExpr.
//
// exprlist = test (',' test)* [',']
func (p *parser) parseExprList() Expr {
	x := p.parseStarOrTest()
	if p.tok != COMMA {
		return x
	}

	// tuple
	exprs := []Expr{x}
	for p.tok == COMMA {
		p.nextToken()
		if terminatesExprList(p.tok) {
			break
		}
		exprs = append(exprs, p.parseStarOrTest())
	}
	return &TupleExpr{List: exprs}
}

// terminatesExprList reports whether tok terminates an expression list.
func terminatesExprList(tok Token) bool {
	switch tok {
	case EOF, NEWLINE, EQ, RBRACE, RBRACK, RPAREN, SEMI, COLON, IN,
		PLUS_EQ, MINUS_EQ, STAR_EQ, SLASH_EQ, SLASHSLASH_EQ, PERCENT_EQ, AT_EQ,
		AMPERSAND_EQ, PIPE_EQ, CIRCUMFLEX_EQ, LTLT_EQ, GTGT_EQ, STARSTAR_EQ:
		return true
	}
	return false
}

// star_expr = '*' expr
func (p *parser) parseStarOrTest() Expr {
	if p.tok == STAR {
		pos := p.nextToken()
		return &UnaryExpr{OpPos: pos, Op: STAR, X: p.parseTestPrec(int(precedence[PIPE]))}
	}
	return p.parseTest()
}

func (p *parser) parseStarOrNamedTest() Expr {
	if p.tok == STAR {
		return p.parseStarOrTest()
	}
	return p.parseNamedTest()
}

// namedexpr_test = test [':=' test]
func (p *parser) parseNamedTest() Expr {
	x := p.parseTest()
	if p.tok == WALRUS {
		id, ok := x.(*Ident)
		if !ok {
			p.in.errorf(p.in.pos, "cannot use assignment expression with %s", describe(x))
		}
		pos := p.nextToken() // consume WALRUS
		return &NamedExpr{Name: id, OpPos: pos, Y: p.parseTest()}
	}
	return x
}

// describe returns a short description of an expression for use
// in error messages.
func describe(x Expr) string {
	switch x.(type) {
	case *Literal:
		return "literal"
	case *CallExpr:
		return "function call"
	case *DotExpr:
		return "attribute"
	case *IndexExpr:
		return "subscript"
	case *TupleExpr:
		return "tuple"
	}
	return "expression"
}

// yield_expr = 'yield' ['from' test | testlist_star_expr]
func (p *parser) parseYield() Expr {
	pos := p.nextToken() // consume YIELD
	y := &YieldExpr{Yield: pos}
	if p.tok == FROM {
		p.nextToken()
		y.From = true
		y.X = p.parseTest()
		return y
	}
	switch p.tok {
	case EOF, NEWLINE, SEMI, RPAREN, RBRACK, RBRACE, EQ:
		return y
	}
	x := p.parseStarOrTest()
	if p.tok == COMMA {
		list := []Expr{x}
		for p.tok == COMMA {
			p.nextToken()
			if terminatesExprList(p.tok) {
				break
			}
			list = append(list, p.parseStarOrTest())
		}
		x = &TupleExpr{List: list}
	}
	y.X = x
	return y
}

// parseTest parses a 'test', a single-component expression.
//
// test = or_test ['if' or_test 'else' test] | lambdef
func (p *parser) parseTest() Expr {
	if p.tok == LAMBDA {
		return p.parseLambda(true)
	}

	x := p.parseTestPrec(0)

	// conditional expression (t IF cond ELSE f)
	if p.tok == IF {
		ifpos := p.nextToken()
		cond := p.parseTestPrec(0)
		if p.tok != ELSE {
			p.in.error(ifpos, "conditional expression without else clause")
		}
		elsepos := p.nextToken()
		else_ := p.parseTest()
		return &CondExpr{If: ifpos, Cond: cond, True: x, ElsePos: elsepos, False: else_}
	}

	return x
}

// parseTestNoCond parses a single-component expression without
// consuming a trailing conditional expression.
func (p *parser) parseTestNoCond() Expr {
	if p.tok == LAMBDA {
		return p.parseLambda(false)
	}
	return p.parseTestPrec(0)
}

// lambdef = 'lambda' [varargslist] ':' test
func (p *parser) parseLambda(allowCond bool) Expr {
	lambda := p.nextToken()
	var params []*Param
	if p.tok != COLON {
		params = p.parseParams(COLON, false)
	}
	p.consume(COLON)

	var body Expr
	if allowCond {
		body = p.parseTest()
	} else {
		body = p.parseTestNoCond()
	}

	return &LambdaExpr{
		Lambda: lambda,
		Params: params,
		Body:   body,
	}
}

func (p *parser) parseTestPrec(prec int) Expr {
	if prec >= len(preclevels) {
		return p.parseFactor()
	}

	// expr = NOT expr
	if p.tok == NOT && prec == int(precedence[NOT]) {
		pos := p.nextToken()
		x := p.parseTestPrec(prec)
		return &UnaryExpr{
			OpPos: pos,
			Op:    NOT,
			X:     x,
		}
	}

	return p.parseBinopExpr(prec)
}

// expr = test (OP test)*
// Uses precedence climbing; see http://www.engr.mun.ca/~theo/Misc/exp_parsing.htm#climbing.
func (p *parser) parseBinopExpr(prec int) Expr {
	x := p.parseTestPrec(prec + 1)
	for {
		if p.tok == NOT {
			p.nextToken() // consume NOT
			// In this context, NOT must be followed by IN.
			// Replace NOT IN by a single NOT_IN token.
			if p.tok != IN {
				p.in.errorf(p.in.pos, "got %#v, want in", p.tok)
			}
			p.tok = NOT_IN
		}

		// Binary operator of specified precedence?
		opprec := int(precedence[p.tok])
		if opprec < prec {
			return x
		}

		op := p.tok
		pos := p.nextToken()
		if op == IS && p.tok == NOT {
			// Replace IS NOT by a single IS_NOT token.
			op = IS_NOT
			p.nextToken()
		}
		// Comparisons chain (a < b < c); they are represented
		// as left-associative binary expressions.
		y := p.parseTestPrec(opprec + 1)
		x = &BinaryExpr{OpPos: pos, Op: op, X: x, Y: y}
	}
}

// precedence maps each operator to its precedence (0-9), or -1 for other tokens.
var precedence [maxToken]int8

// preclevels groups operators of equal precedence.
// Comparisons are nonassociative; other binary operators associate to the left.
// Unary MINUS, unary PLUS, and TILDE have higher precedence so are handled in parseFactor.
// See https://docs.python.org/3/reference/expressions.html#operator-precedence
var preclevels = [...][]Token{
	{OR},  // or
	{AND}, // and
	{NOT}, // not (unary)
	{EQL, NEQ, LT, GT, LE, GE, IN, NOT_IN, IS}, // == != < > <= >= in not in is [not]
	{PIPE},                                     // |
	{CIRCUMFLEX},                               // ^
	{AMPERSAND},                                // &
	{LTLT, GTGT},                               // << >>
	{MINUS, PLUS},                              // -
	{STAR, PERCENT, SLASH, SLASHSLASH, AT},     // * % / // @
}

func init() {
	// populate precedence table
	for i := range precedence {
		precedence[i] = -1
	}
	for level, tokens := range preclevels {
		for _, tok := range tokens {
			precedence[tok] = int8(level)
		}
	}
}

// factor = ('+'|'-'|'~') factor | power
func (p *parser) parseFactor() Expr {
	switch p.tok {
	case PLUS, MINUS, TILDE:
		op := p.tok
		pos := p.nextToken()
		x := p.parseFactor()
		return &UnaryExpr{OpPos: pos, Op: op, X: x}
	}
	return p.parsePower()
}

// power = ['await'] primary ['**' factor]
func (p *parser) parsePower() Expr {
	var x Expr
	if p.tok == AWAIT {
		pos := p.nextToken()
		x = &UnaryExpr{OpPos: pos, Op: AWAIT, X: p.parsePrimaryWithSuffix()}
	} else {
		x = p.parsePrimaryWithSuffix()
	}
	if p.tok == STARSTAR {
		pos := p.nextToken()
		y := p.parseFactor()
		x = &BinaryExpr{OpPos: pos, Op: STARSTAR, X: x, Y: y}
	}
	return x
}

// primary_with_suffix = primary
//                     | primary '.' IDENT
//                     | primary slice_suffix
//                     | primary call_suffix
func (p *parser) parsePrimaryWithSuffix() Expr {
	x := p.parsePrimary()
	for {
		switch p.tok {
		case DOT:
			dot := p.nextToken()
			id := p.parseIdent()
			x = &DotExpr{Dot: dot, X: x, Name: id, NamePos: id.NamePos}
		case LBRACK:
			x = p.parseSliceSuffix(x)
		case LPAREN:
			x = p.parseCallSuffix(x)
		default:
			return x
		}
	}
}

// slice_suffix = '[' subscript (',' subscript)* [','] ']'
func (p *parser) parseSliceSuffix(x Expr) Expr {
	lbrack := p.nextToken()
	y := p.parseSubscript()
	if p.tok == COMMA {
		list := []Expr{y}
		for p.tok == COMMA {
			p.nextToken()
			if p.tok == RBRACK {
				break
			}
			list = append(list, p.parseSubscript())
		}
		y = &TupleExpr{List: list}
	}
	rbrack := p.consume(RBRACK)
	return &IndexExpr{X: x, Lbrack: lbrack, Y: y, Rbrack: rbrack}
}

// subscript = namedexpr_test | star_expr | [test] ':' [test] [':' [test]]
func (p *parser) parseSubscript() Expr {
	if p.tok == STAR {
		return p.parseStarOrTest()
	}
	var lo Expr
	if p.tok != COLON {
		lo = p.parseNamedTest()
		if p.tok != COLON {
			return lo
		}
	}
	s := &Slice{Lo: lo, Colon: p.nextToken()} // consume COLON
	if p.tok != COLON && p.tok != COMMA && p.tok != RBRACK {
		s.Hi = p.parseTest()
	}
	if p.tok == COLON {
		p.nextToken()
		if p.tok != COMMA && p.tok != RBRACK {
			s.Step = p.parseTest()
		}
	}
	return s
}

// call_suffix = '(' arg_list? ')'
func (p *parser) parseCallSuffix(fn Expr) Expr {
	lparen := p.consume(LPAREN)
	var rparen Position
	var args []Expr
	if p.tok == RPAREN {
		rparen = p.nextToken()
	} else {
		args = p.parseArgs()
		// A sole generator argument shares the call's parentheses.
		if len(args) == 1 {
			if comp, ok := args[0].(*Comprehension); ok && comp.Kind == Generator && !comp.Lbrack.IsValid() {
				comp.Lbrack = lparen
				comp.Rbrack = p.tokval.pos
			}
		}
		rparen = p.consume(RPAREN)
	}
	return &CallExpr{Fn: fn, Lparen: lparen, Args: args, Rparen: rparen}
}

// parseArgs parses a list of actual parameter values (arguments).
// It mirrors the structure of parseParams.
//
// arg_list = ((arg COMMA)* arg COMMA?)?
// argument = test [comp_for] | test ':=' test | test '=' test | '**' test | '*' test
func (p *parser) parseArgs() []Expr {
	var args []Expr
	for p.tok != RPAREN && p.tok != EOF {
		if len(args) > 0 {
			p.consume(COMMA)
		}
		if p.tok == RPAREN {
			break
		}

		// *args or **kwargs
		if p.tok == STAR || p.tok == STARSTAR {
			op := p.tok
			pos := p.nextToken()
			x := p.parseTest()
			args = append(args, &UnaryExpr{
				OpPos: pos,
				Op:    op,
				X:     x,
			})
			continue
		}

		// To stay within LL(1), instead of looking ahead two tokens
		// (IDENT, EQ) we parse
		// 'test = test' then check that the first was an IDENT.
		x := p.parseNamedTest()

		if p.tok == EQ {
			// name = value
			if _, ok := x.(*Ident); !ok {
				p.in.errorf(p.in.pos, "keyword argument must have form name=expr")
			}
			eq := p.nextToken()
			y := p.parseTest()
			x = &BinaryExpr{
				X:     x,
				OpPos: eq,
				Op:    EQ,
				Y:     y,
			}
		} else if p.tok == FOR || p.tok == ASYNC {
			// generator argument; positions are set by the caller
			// if it is the sole argument.
			start, _ := x.Span()
			comp := p.parseComprehensionSuffix(Position{}, x, RPAREN)
			comp.Kind = Generator
			if len(args) > 0 || p.tok != RPAREN {
				// Otherwise, Python requires parentheses; be lenient
				// but keep a sensible span.
				comp.Lbrack = start
				comp.Rbrack = End(comp.Clauses[len(comp.Clauses)-1])
			}
			x = comp
		}
		args = append(args, x)
	}
	return args
}

//  primary = IDENT
//          | INT | FLOAT | IMAG | STRING+ | BYTES+
//          | True | False | None | '...'
//          | '[' ...                    // list literal or comprehension
//          | '{' ...                    // dict or set literal or comprehension
//          | '(' ...                    // tuple, parenthesized expression, or generator
func (p *parser) parsePrimary() Expr {
	switch p.tok {
	case IDENT:
		return p.parseIdent()

	case INT, FLOAT, IMAG:
		var val interface{}
		tok := p.tok
		switch tok {
		case INT:
			if p.tokval.bigInt != nil {
				val = p.tokval.bigInt
			} else {
				val = p.tokval.int
			}
		case FLOAT, IMAG:
			val = p.tokval.float
		}
		raw := p.tokval.raw
		pos := p.nextToken()
		return &Literal{
			Token:    tok,
			TokenPos: pos,
			Raw:      raw,
			Value:    val,
		}

	case STRING, BYTES:
		return p.parseStrings()

	case TRUE, FALSE, NONE, ELLIPSIS:
		tok := p.tok
		raw := p.tokval.raw
		pos := p.nextToken()
		var val interface{}
		switch tok {
		case TRUE:
			val = true
		case FALSE:
			val = false
		}
		return &Literal{Token: tok, TokenPos: pos, Raw: raw, Value: val}

	case LBRACK:
		return p.parseList()

	case LBRACE:
		return p.parseDict()

	case LPAREN:
		lparen := p.nextToken()
		if p.tok == RPAREN {
			// empty tuple
			rparen := p.nextToken()
			return &TupleExpr{Lparen: lparen, Rparen: rparen}
		}
		if p.tok == YIELD {
			x := p.parseYield()
			rparen := p.consume(RPAREN)
			return &ParenExpr{Lparen: lparen, X: x, Rparen: rparen}
		}
		x := p.parseStarOrNamedTest()
		if p.tok == FOR || p.tok == ASYNC {
			// generator expression
			comp := p.parseComprehensionSuffix(lparen, x, RPAREN)
			comp.Kind = Generator
			return comp
		}
		if p.tok == COMMA {
			// tuple
			exprs := []Expr{x}
			for p.tok == COMMA {
				p.nextToken()
				if p.tok == RPAREN {
					break
				}
				exprs = append(exprs, p.parseStarOrNamedTest())
			}
			x = &TupleExpr{List: exprs}
		}
		rparen := p.consume(RPAREN)
		return &ParenExpr{Lparen: lparen, X: x, Rparen: rparen}
	}
	p.in.errorf(p.in.pos, "got %#v, want primary expression", p.tok)
	panic("unreachable")
}

// parseStrings parses one or more adjacent string literals,
// which Python concatenates.
func (p *parser) parseStrings() Expr {
	tok := p.tok
	pos := p.tokval.pos
	raw := p.tokval.raw
	val := p.tokval.string
	fstring := p.tokval.fstring
	parts := p.parseFields(nil)
	p.nextToken()
	for p.tok == STRING || p.tok == BYTES {
		if p.tok != tok {
			p.in.error(p.tokval.pos, "cannot mix bytes and nonbytes literals")
		}
		raw += " " + p.tokval.raw
		val += p.tokval.string
		fstring = fstring || p.tokval.fstring
		parts = p.parseFields(parts)
		p.nextToken()
	}
	if fstring {
		return &FStringExpr{TokenPos: pos, Raw: raw, Parts: parts}
	}
	return &Literal{Token: tok, TokenPos: pos, Raw: raw, Value: val}
}

// parseFields parses the replacement fields of the current string
// token and appends their expressions to parts.
func (p *parser) parseFields(parts []Expr) []Expr {
	for _, field := range p.tokval.fields {
		parts = append(parts, parseField(field))
	}
	return parts
}

// parseField parses the expression of an f-string replacement field.
// Errors are reported at their positions within the enclosing file.
func parseField(field fstringField) Expr {
	in := &scanner{
		rest:      []byte(field.src),
		pos:       field.pos,
		depth:     1, // newlines within a field are insignificant
		indentstk: make([]int, 1),
	}
	p := parser{in: in}
	p.nextToken()
	x := p.parseStarExprList()
	if p.tok != EOF {
		in.errorf(p.tokval.pos, "f-string: got %#v, want '}'", p.tok)
	}
	return x
}

// parseMatchOrSimpleStmt parses a statement that begins with an
// identifier, which may be the soft keyword of a match statement.
//
// After "match", a token that cannot follow a name in an expression
// begins a subject. After '(', '[', '-', '+' or '*' the statement is
// ambiguous: it is parsed as an expression beginning with the name
// match, and becomes a match statement only if ':' and a newline
// follow, as no simple statement can end that way.
func (p *parser) parseMatchOrSimpleStmt(stmts []Stmt, consumeNL bool) []Stmt {
	if p.tok != IDENT || p.tokval.raw != "match" {
		return p.parseSimpleStmt(stmts, consumeNL)
	}
	switch p.peek() {
	case IDENT, INT, FLOAT, IMAG, STRING, BYTES, LBRACE, TILDE,
		TRUE, FALSE, NONE, ELLIPSIS, AWAIT, LAMBDA:
		stmt := &MatchStmt{Match: p.nextToken()} // consume "match"
		stmt.Subject = p.parseStarExprList()
		p.consume(COLON)
		return append(stmts, p.parseCases(stmt))

	case LPAREN, LBRACK, MINUS, PLUS, STAR:
		pos := p.tokval.pos
		x := p.parseStarExprList()
		if p.tok == COLON && p.peek() == NEWLINE {
			p.nextToken() // consume COLON
			return append(stmts, p.parseCases(&MatchStmt{Match: pos, Subject: matchSubject(x)}))
		}
		return p.finishSimpleStmt(append(stmts, p.parseExprStmt(x)), consumeNL)
	}
	return p.parseSimpleStmt(stmts, consumeNL)
}

// matchSubject returns the subject of a match statement that was
// parsed as an expression x beginning with the name match:
// match(a, b) becomes (a, b), match[a] becomes [a], and
// match - a becomes -a.
func matchSubject(x Expr) Expr {
	isMatch := func(x Expr) bool {
		id, ok := x.(*Ident)
		return ok && id.Name == "match"
	}
	switch x := x.(type) {
	case *CallExpr:
		if !isMatch(x.Fn) {
			x.Fn = matchSubject(x.Fn)
			break
		}
		if len(x.Args) == 1 {
			return &ParenExpr{Lparen: x.Lparen, X: x.Args[0], Rparen: x.Rparen}
		}
		return &TupleExpr{Lparen: x.Lparen, List: x.Args, Rparen: x.Rparen}
	case *IndexExpr:
		if !isMatch(x.X) {
			x.X = matchSubject(x.X)
			break
		}
		list := []Expr{x.Y}
		if tuple, ok := x.Y.(*TupleExpr); ok {
			list = tuple.List
		}
		return &ListExpr{Lbrack: x.Lbrack, List: list, Rbrack: x.Rbrack}
	case *BinaryExpr:
		if !isMatch(x.X) {
			x.X = matchSubject(x.X)
			break
		}
		return &UnaryExpr{OpPos: x.OpPos, Op: x.Op, X: x.Y}
	case *DotExpr:
		x.X = matchSubject(x.X)
	case *TupleExpr:
		x.List[0] = matchSubject(x.List[0])
	case *CondExpr:
		x.True = matchSubject(x.True)
	}
	return x
}

// parseCases parses the case blocks of a match statement, after the
// colon that follows its subject.
//
// match_body = NEWLINE INDENT case_block+ OUTDENT
// case_block = "case" patterns ['if' namedexpr_test] ':' suite
func (p *parser) parseCases(stmt *MatchStmt) *MatchStmt {
	p.consume(NEWLINE)
	p.consume(INDENT)
	for p.tok != OUTDENT && p.tok != EOF {
		if p.tok != IDENT || p.tokval.raw != "case" {
			p.in.errorf(p.in.pos, "got %#v, want case", p.tok)
		}
		clause := &CaseClause{Case: p.nextToken()}
		clause.Pattern = p.parsePatterns()
		if p.tok == IF {
			p.nextToken()
			clause.Guard = p.parseNamedTest()
		}
		p.consume(COLON)
		clause.Body = p.parseSuite()
		stmt.Cases = append(stmt.Cases, clause)
	}
	p.consume(OUTDENT)
	if len(stmt.Cases) == 0 {
		p.in.errorf(stmt.Match, "match statement has no case blocks")
	}
	return stmt
}

// patterns = pattern (',' pattern)* [',']
func (p *parser) parsePatterns() Expr {
	x := p.parsePattern()
	if p.tok != COMMA {
		return x
	}
	list := []Expr{x}
	for p.tok == COMMA {
		p.nextToken()
		if p.tok == COLON || p.tok == IF || p.tok == RPAREN {
			break
		}
		list = append(list, p.parsePattern())
	}
	return &TupleExpr{List: list}
}

// pattern = '*' NAME | or_pattern ['as' NAME]
func (p *parser) parsePattern() Expr {
	if p.tok == STAR {
		pos := p.nextToken()
		return &UnaryExpr{OpPos: pos, Op: STAR, X: p.parseIdent()}
	}
	x := p.parseClosedPattern()
	for p.tok == PIPE {
		pos := p.nextToken()
		x = &BinaryExpr{X: x, OpPos: pos, Op: PIPE, Y: p.parseClosedPattern()}
	}
	if p.tok == AS {
		as := p.nextToken()
		x = &AsPattern{X: x, As: as, Name: p.parseIdent()}
	}
	return x
}

// closed_pattern = NAME ('.' NAME)* ['(' [pattern_args] ')']
//                | literal
//                | '(' [patterns] ')'
//                | '[' [patterns] ']'
//                | '{' [mapping_items] '}'
func (p *parser) parseClosedPattern() Expr {
	switch p.tok {
	case IDENT:
		var x Expr = p.parseIdent()
		for p.tok == DOT {
			dot := p.nextToken()
			id := p.parseIdent()
			x = &DotExpr{X: x, Dot: dot, NamePos: id.NamePos, Name: id}
		}
		if p.tok != LPAREN {
			return x
		}
		call := &CallExpr{Fn: x, Lparen: p.nextToken()}
		for p.tok != RPAREN {
			if len(call.Args) > 0 {
				p.consume(COMMA)
				if p.tok == RPAREN {
					break
				}
			}
			arg := p.parsePattern()
			if id, ok := arg.(*Ident); ok && p.tok == EQ {
				eq := p.nextToken()
				arg = &BinaryExpr{X: id, OpPos: eq, Op: EQ, Y: p.parsePattern()}
			}
			call.Args = append(call.Args, arg)
		}
		call.Rparen = p.consume(RPAREN)
		return call

	case MINUS, INT, FLOAT, IMAG, STRING, BYTES, TRUE, FALSE, NONE:
		// Signed and complex numbers: -1, 1 + 2j.
		return p.parseTestPrec(int(precedence[PLUS]))

	case LPAREN:
		lparen := p.nextToken()
		if p.tok == RPAREN {
			return &TupleExpr{Lparen: lparen, Rparen: p.nextToken()}
		}
		x := p.parsePatterns()
		rparen := p.consume(RPAREN)
		if tuple, ok := x.(*TupleExpr); ok {
			tuple.Lparen, tuple.Rparen = lparen, rparen
			return tuple
		}
		return &ParenExpr{Lparen: lparen, X: x, Rparen: rparen}

	case LBRACK:
		list := &ListExpr{Lbrack: p.nextToken()}
		for p.tok != RBRACK {
			if len(list.List) > 0 {
				p.consume(COMMA)
				if p.tok == RBRACK {
					break
				}
			}
			list.List = append(list.List, p.parsePattern())
		}
		list.Rbrack = p.consume(RBRACK)
		return list

	case LBRACE:
		dict := &DictExpr{Lbrace: p.nextToken()}
		for p.tok != RBRACE {
			if len(dict.List) > 0 {
				p.consume(COMMA)
				if p.tok == RBRACE {
					break
				}
			}
			if p.tok == STARSTAR {
				pos := p.nextToken()
				dict.List = append(dict.List, &UnaryExpr{OpPos: pos, Op: STARSTAR, X: p.parseIdent()})
				continue
			}
			key := p.parseClosedPattern()
			colon := p.consume(COLON)
			dict.List = append(dict.List, &DictEntry{Key: key, Colon: colon, Value: p.parsePattern()})
		}
		dict.Rbrace = p.consume(RBRACE)
		return dict
	}
	p.in.errorf(p.in.pos, "got %#v, want pattern", p.tok)
	panic("unreachable")
}

// list = '[' ']'
//      | '[' expr ']'
//      | '[' expr expr_list ']'
//      | '[' expr (FOR loop_variables IN expr)+ ']'
func (p *parser) parseList() Expr {
	lbrack := p.nextToken()
	if p.tok == RBRACK {
		// empty List
		rbrack := p.nextToken()
		return &ListExpr{Lbrack: lbrack, Rbrack: rbrack}
	}

	x := p.parseStarOrNamedTest()

	if p.tok == FOR || p.tok == ASYNC {
		// list comprehension
		comp := p.parseComprehensionSuffix(lbrack, x, RBRACK)
		comp.Kind = ListComp
		return comp
	}

	exprs := []Expr{x}
	if p.tok == COMMA {
		// multi-item list literal
		for p.tok == COMMA {
			p.nextToken() // consume COMMA
			if p.tok == RBRACK {
				break
			}
			exprs = append(exprs, p.parseStarOrNamedTest())
		}
	}

	rbrack := p.consume(RBRACK)
	return &ListExpr{Lbrack: lbrack, List: exprs, Rbrack: rbrack}
}

// dict = '{' '}'
//      | '{' dict_entry_list '}'
//      | '{' dict_entry FOR loop_variables IN expr '}'
//      | '{' expr_list '}'                      // set
//      | '{' expr FOR loop_variables IN expr '}' // set comprehension
func (p *parser) parseDict() Expr {
	lbrace := p.nextToken()
	if p.tok == RBRACE {
		// empty dict
		rbrace := p.nextToken()
		return &DictExpr{Lbrace: lbrace, Rbrace: rbrace}
	}

	if p.tok == STARSTAR {
		return p.parseDictElems(lbrace, p.parseDictElem())
	}

	x := p.parseStarOrNamedTest()
	if p.tok == COLON {
		colon := p.nextToken()
		value := p.parseTest()
		entry := &DictEntry{Key: x, Colon: colon, Value: value}
		if p.tok == FOR || p.tok == ASYNC {
			// dict comprehension
			comp := p.parseComprehensionSuffix(lbrace, entry, RBRACE)
			comp.Kind = DictComp
			return comp
		}
		return p.parseDictElems(lbrace, entry)
	}

	if p.tok == FOR || p.tok == ASYNC {
		// set comprehension
		comp := p.parseComprehensionSuffix(lbrace, x, RBRACE)
		comp.Kind = SetComp
		return comp
	}

	// set literal
	elems := []Expr{x}
	for p.tok == COMMA {
		p.nextToken()
		if p.tok == RBRACE {
			break
		}
		elems = append(elems, p.parseStarOrNamedTest())
	}
	rbrace := p.consume(RBRACE)
	return &SetExpr{Lbrace: lbrace, List: elems, Rbrace: rbrace}
}

func (p *parser) parseDictElems(lbrace Position, first Expr) Expr {
	entries := []Expr{first}
	for p.tok == COMMA {
		p.nextToken()
		if p.tok == RBRACE {
			break
		}
		entries = append(entries, p.parseDictElem())
	}
	rbrace := p.consume(RBRACE)
	return &DictExpr{Lbrace: lbrace, List: entries, Rbrace: rbrace}
}

// dict_elem = test ':' test | '**' expr
func (p *parser) parseDictElem() Expr {
	if p.tok == STARSTAR {
		pos := p.nextToken()
		return &UnaryExpr{OpPos: pos, Op: STARSTAR, X: p.parseTestPrec(int(precedence[PIPE]))}
	}
	k := p.parseTest()
	colon := p.consume(COLON)
	v := p.parseTest()
	return &DictEntry{Key: k, Colon: colon, Value: v}
}

// comp_suffix = FOR loopvars IN expr comp_suffix
//             | IF expr comp_suffix
//             | ']'  or  ')'  or  '}'
//
// The closing bracket is not consumed.
func (p *parser) parseComprehensionSuffix(lbrace Position, body Expr, endBrace Token) *Comprehension {
	var clauses []Node
	for p.tok != endBrace {
		switch p.tok {
		case FOR, ASYNC:
			var async Position
			if p.tok == ASYNC {
				async = p.nextToken()
				if p.tok != FOR {
					p.in.errorf(p.in.pos, "got %#v after async, want for", p.tok)
				}
			}
			pos := p.nextToken()
			vars := p.parseForLoopVariables()
			in := p.consume(IN)
			// Following Python 3, the operand of IN cannot be:
			// - a conditional expression ('x if y else z'),
			//   due to conflicts in Python grammar
			//  ('if' is used by the comprehension);
			// - a lambda expression
			// - an unparenthesized tuple.
			x := p.parseTestPrec(0)
			clauses = append(clauses, &ForClause{Async: async, For: pos, Vars: vars, In: in, X: x})
		case IF:
			pos := p.nextToken()
			cond := p.parseTestNoCond()
			if p.tok == WALRUS {
				id, ok := cond.(*Ident)
				if !ok {
					p.in.errorf(p.in.pos, "cannot use assignment expression with %s", describe(cond))
				}
				walrus := p.nextToken()
				cond = &NamedExpr{Name: id, OpPos: walrus, Y: p.parseTestNoCond()}
			}
			clauses = append(clauses, &IfClause{If: pos, Cond: cond})
		default:
			p.in.errorf(p.in.pos, "got %#v, want '%s', for, or if", p.tok, endBrace)
		}
	}

	comp := &Comprehension{
		Lbrack:  lbrace,
		Body:    body,
		Clauses: clauses,
	}
	if lbrace.IsValid() {
		comp.Rbrack = p.consume(endBrace)
	}
	return comp
}
