// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package compiler

import (
	"github.com/colobot/colobot-sub025/cbot/ast"
	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/token"
	"github.com/colobot/colobot-sub025/cbot/types"
)

// block compiles { statements } in a scope of its own.
func (c *Compiler) block() *ast.Block {
	open := c.expect(token.LBRACE, diag.ErrOpenBlock)
	c.fs.push()
	defer c.fs.pop()
	var stmts []ast.Node
	for !c.is(token.RBRACE) {
		if c.is(token.EOF) {
			c.failTok(open, diag.ErrCloseBlock)
		}
		stmts = c.statement(stmts)
	}
	c.next()
	return reg(c, &ast.Block{Stmts: stmts}, c.spanFrom(open))
}

// statement compiles one statement and appends its nodes to out. A
// declaration list yields one node per variable; an empty statement none.
func (c *Compiler) statement(out []ast.Node) []ast.Node {
	t := c.cur()
	switch t.Type {
	case token.LBRACE:
		return append(out, c.block())
	case token.SEMICOLON:
		c.next()
		return out
	case token.IF:
		return append(out, c.ifStmt())
	case token.WHILE, token.DO, token.FOR, token.REPEAT, token.SWITCH:
		return append(out, c.loop(""))
	case token.BREAK, token.CONTINUE:
		return append(out, c.jump())
	case token.RETURN:
		return append(out, c.returnStmt())
	case token.THROW:
		return append(out, c.throwStmt())
	case token.TRY:
		return append(out, c.tryStmt())
	case token.CASE, token.DEFAULT:
		c.failTok(t, diag.ErrCaseOutside)
	case token.ELSE:
		c.failTok(t, diag.ErrElseWithoutIf)
	case token.IDENT:
		if c.peek(1).Type == token.COLON {
			label := c.next()
			c.next()
			return append(out, c.loop(label.Literal))
		}
	}
	if c.isTypeStart() {
		return c.declaration(out)
	}
	e := c.expression()
	c.expect(token.SEMICOLON, diag.ErrNoTerminator)
	return append(out, e)
}

// sub compiles the body of a control statement as a single node.
func (c *Compiler) sub() ast.Node {
	start := c.cur()
	c.fs.push()
	defer c.fs.pop()
	nodes := c.statement(nil)
	switch len(nodes) {
	case 0:
		return reg(c, &ast.Block{}, tokSpan(start))
	case 1:
		return nodes[0]
	}
	return reg(c, &ast.Block{Stmts: nodes}, c.spanFrom(start))
}

// loopBody compiles sub while label names the enclosing statement.
func (c *Compiler) loopBody(label string, loop bool) ast.Node {
	c.fs.targets = append(c.fs.targets, target{label: label, loop: loop})
	body := c.sub()
	c.fs.targets = c.fs.targets[:len(c.fs.targets)-1]
	return body
}

// condition compiles ( bool-expression ).
func (c *Compiler) condition() ast.Expr {
	c.expect(token.LPAREN, diag.ErrOpenPar)
	e := c.expression()
	c.expect(token.RPAREN, diag.ErrClosePar)
	c.wantBool(e)
	return e
}

func (c *Compiler) wantBool(e ast.Expr) {
	if e.Type().Kind() != types.KindBool {
		c.fail(e.Span(), diag.ErrNotBoolean)
	}
}

func (c *Compiler) ifStmt() ast.Node {
	start := c.next()
	n := &ast.If{Cond: c.condition()}
	n.Then = c.sub()
	if c.accept(token.ELSE) {
		n.Else = c.sub()
	}
	return reg(c, n, c.spanFrom(start))
}

// loop compiles a statement that break (and continue, for loops) may
// target. label is empty for an unlabelled statement.
func (c *Compiler) loop(label string) ast.Node {
	start := c.cur()
	switch start.Type {
	case token.WHILE:
		c.next()
		n := &ast.While{Label: label, Cond: c.condition()}
		n.Body = c.loopBody(label, true)
		return reg(c, n, c.spanFrom(start))
	case token.DO:
		c.next()
		n := &ast.DoWhile{Label: label, Body: c.loopBody(label, true)}
		c.expect(token.WHILE, diag.ErrNoTerminator)
		n.Cond = c.condition()
		c.expect(token.SEMICOLON, diag.ErrNoTerminator)
		return reg(c, n, c.spanFrom(start))
	case token.FOR:
		return c.forStmt(label)
	case token.REPEAT:
		c.next()
		c.expect(token.LPAREN, diag.ErrOpenPar)
		count := c.expression()
		c.expect(token.RPAREN, diag.ErrClosePar)
		if !count.Type().Kind().IsIntegral() {
			c.fail(count.Span(), diag.ErrBadType)
		}
		n := &ast.Repeat{Label: label, N: count, Body: c.loopBody(label, true)}
		return reg(c, n, c.spanFrom(start))
	case token.SWITCH:
		return c.switchStmt(label)
	}
	c.failTok(start, diag.ErrBadLabel)
	return nil
}

func (c *Compiler) forStmt(label string) ast.Node {
	start := c.next()
	c.expect(token.LPAREN, diag.ErrOpenPar)
	c.fs.push()
	defer c.fs.pop()

	n := &ast.For{Label: label}
	switch {
	case c.accept(token.SEMICOLON):
	case c.isTypeStart():
		n.Init = c.declaration(nil)
	default:
		n.Init = c.exprList()
		c.expect(token.SEMICOLON, diag.ErrNoTerminator)
	}
	if !c.is(token.SEMICOLON) {
		n.Cond = c.expression()
		c.wantBool(n.Cond)
	}
	c.expect(token.SEMICOLON, diag.ErrNoTerminator)
	if !c.is(token.RPAREN) {
		n.Post = c.exprList()
	}
	c.expect(token.RPAREN, diag.ErrClosePar)
	n.Body = c.loopBody(label, true)
	return reg(c, n, c.spanFrom(start))
}

func (c *Compiler) exprList() []ast.Node {
	var out []ast.Node
	for {
		out = append(out, c.expression())
		if !c.accept(token.COMMA) {
			return out
		}
	}
}

func (c *Compiler) switchStmt(label string) ast.Node {
	start := c.next()
	c.expect(token.LPAREN, diag.ErrOpenPar)
	x := c.expression()
	c.expect(token.RPAREN, diag.ErrClosePar)
	if !x.Type().Kind().IsIntegral() {
		c.fail(x.Span(), diag.ErrBadType)
	}
	open := c.expect(token.LBRACE, diag.ErrOpenBlock)

	n := &ast.Switch{Label: label, X: x, Default: -1}
	seen := make(map[int64]bool)
	c.fs.push()
	c.fs.targets = append(c.fs.targets, target{label: label})
	for !c.accept(token.RBRACE) {
		switch t := c.cur(); t.Type {
		case token.EOF:
			c.failTok(open, diag.ErrCloseBlock)
		case token.CASE:
			c.next()
			e := c.expression()
			lit, ok := e.(*ast.Literal)
			if !ok || !lit.Type().Kind().IsIntegral() {
				c.fail(e.Span(), diag.ErrBadType)
			}
			v := lit.Value.Int()
			if seen[v] {
				c.fail(e.Span(), diag.ErrDuplicateCase)
			}
			seen[v] = true
			c.expect(token.COLON, diag.ErrNoTerminator)
			n.Values = append(n.Values, v)
			n.Targets = append(n.Targets, len(n.Stmts))
		case token.DEFAULT:
			c.next()
			if n.Default >= 0 {
				c.failTok(t, diag.ErrDuplicateCase)
			}
			c.expect(token.COLON, diag.ErrNoTerminator)
			n.Default = len(n.Stmts)
		default:
			if len(n.Values) == 0 && n.Default < 0 {
				c.failTok(t, diag.ErrCaseOutside)
			}
			n.Stmts = c.statement(n.Stmts)
		}
	}
	c.fs.targets = c.fs.targets[:len(c.fs.targets)-1]
	c.fs.pop()
	return reg(c, n, c.spanFrom(start))
}

func (c *Compiler) jump() ast.Node {
	kw := c.next()
	var label token.Token
	if c.is(token.IDENT) {
		label = c.next()
	}
	c.expect(token.SEMICOLON, diag.ErrNoTerminator)
	cont := kw.Type == token.CONTINUE
	c.jumpTarget(kw, label, cont)
	return reg(c, &ast.Jump{Continue: cont, Label: label.Literal}, c.spanFrom(kw))
}

func (c *Compiler) returnStmt() ast.Node {
	kw := c.next()
	ret := c.fs.fn.Return
	n := &ast.Return{}
	if !c.is(token.SEMICOLON) {
		n.X = c.expression()
	}
	c.expect(token.SEMICOLON, diag.ErrNoTerminator)
	void := ret.Kind() == types.KindVoid
	switch {
	case void && n.X != nil:
		c.fail(n.X.Span(), diag.ErrBadReturn)
	case !void && n.X == nil:
		c.failTok(kw, diag.ErrNoReturn)
	case n.X != nil && !types.Assignable(ret, n.X.Type()):
		c.failf(n.X.Span(), diag.ErrBadReturn, "cannot return %s as %s", n.X.Type(), ret)
	}
	return reg(c, n, c.spanFrom(kw))
}

func (c *Compiler) throwStmt() ast.Node {
	kw := c.next()
	x := c.expression()
	if !x.Type().Kind().IsIntegral() {
		c.fail(x.Span(), diag.ErrBadType)
	}
	c.expect(token.SEMICOLON, diag.ErrNoTerminator)
	return reg(c, &ast.Throw{X: x}, c.spanFrom(kw))
}

func (c *Compiler) tryStmt() ast.Node {
	kw := c.next()
	n := &ast.Try{Body: c.block()}
	for c.accept(token.CATCH) {
		c.expect(token.LPAREN, diag.ErrOpenPar)
		cond := c.expression()
		c.expect(token.RPAREN, diag.ErrClosePar)
		if k := cond.Type().Kind(); k != types.KindBool && !k.IsIntegral() {
			c.fail(cond.Span(), diag.ErrBadType)
		}
		n.Catches = append(n.Catches, ast.Catch{Cond: cond, Body: c.block()})
	}
	if c.accept(token.FINALLY) {
		n.Finally = c.block()
	}
	if len(n.Catches) == 0 && n.Finally == nil {
		c.failTok(c.cur(), diag.ErrUnexpected)
	}
	return reg(c, n, c.spanFrom(kw))
}

// declaration compiles "type a [= init], b(args), c[4];". A class variable
// without initializer holds a new instance; "= null" leaves it empty.
func (c *Compiler) declaration(out []ast.Node) []ast.Node {
	start := c.cur()
	base := c.parseType()
	if base.Kind() == types.KindVoid {
		c.failTok(start, diag.ErrBadType)
	}
	for {
		name := c.ident()
		t := c.dims(base)
		var init ast.Expr
		switch {
		case c.accept(token.ASSIGN):
			init = c.initializer(t)
		case t.Kind() == types.KindPointer:
			var args []ast.Expr
			if c.is(token.LPAREN) {
				args = c.arguments()
			}
			init = c.newObject(c.spanFrom(name), types.ClassOf(t), args)
		}
		slot := c.declareLocal(name, t)
		out = append(out, reg(c, &ast.Decl{Name: name.Literal, Slot: slot, Typ: t, Init: init}, c.spanFrom(name)))
		if !c.accept(token.COMMA) {
			break
		}
	}
	c.expect(token.SEMICOLON, diag.ErrNoTerminator)
	return out
}

// initializer compiles the right-hand side of a declaration of type t.
func (c *Compiler) initializer(t types.Type) ast.Expr {
	if c.is(token.LBRACE) {
		return c.initList(t)
	}
	e := c.expression()
	c.wantAssignable(e, t)
	return e
}

func (c *Compiler) wantAssignable(e ast.Expr, t types.Type) {
	if !types.Assignable(t, e.Type()) {
		c.failf(e.Span(), diag.ErrBadType, "cannot use %s as %s", e.Type(), t)
	}
}

// initList compiles {a, b, ...} for an array of type t; lists nest for
// arrays of arrays.
func (c *Compiler) initList(t types.Type) ast.Expr {
	open := c.cur()
	at, ok := t.(*types.ArrayType)
	if !ok {
		c.failTok(open, diag.ErrBadType)
	}
	c.next()
	var elems []ast.Expr
	if !c.accept(token.RBRACE) {
		for {
			elems = append(elems, c.initializer(at.Elem))
			if c.accept(token.RBRACE) {
				break
			}
			c.expect(token.COMMA, diag.ErrCloseBlock)
		}
	}
	sp := c.spanFrom(open)
	if at.Sized() && len(elems) > at.Len {
		c.failf(sp, diag.ErrBadIndex, "%d elements for %s", len(elems), at)
	}
	return reg(c, &ast.InitList{Typ: at, Elems: elems}, sp)
}
