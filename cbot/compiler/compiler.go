// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package compiler turns a CBot token stream into an executable ast.Unit.
//
// Design overview:
//
//   - Compilation makes two passes over the tokens. The first pass declares
//     every class and every function signature, so bodies may refer to
//     names declared further down the unit.
//   - The second pass compiles bodies: recursive descent for statements and
//     a Pratt table for expressions. Type checking happens while nodes are
//     built; every node leaves the compiler with its static type fixed.
//   - The first error aborts the unit. Classes the unit had declared are
//     withdrawn from their registries, so a failed compilation leaves no
//     trace in the group.
package compiler

import (
	"github.com/colobot/colobot-sub025/cbot/ast"
	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/native"
	"github.com/colobot/colobot-sub025/cbot/token"
	"github.com/colobot/colobot-sub025/cbot/types"
)

// Resolver finds the public functions exported by other programs.
type Resolver interface {
	Public(name string) []*ast.Function
}

// Options configures one compilation.
type Options struct {
	// Name of the unit. Saved states record it in every function frame.
	Name string

	// Classes receives the private classes of the unit and is used for all
	// class lookups. It normally falls back to Shared.
	Classes *types.Registry

	// Shared receives the public classes. Classes is used when nil.
	Shared *types.Registry

	Natives *native.Registry
	Publics Resolver

	// User is handed to the check callbacks of native functions.
	User interface{}
}

// bailout carries the first diagnostic up to Compile.
type bailout struct{ err *diag.Error }

// Compiler holds the state of a single compilation.
type Compiler struct {
	opts Options
	toks []token.Token
	pos  int
	unit *ast.Unit

	classes []*classDecl
	byName  map[string]*classDecl
	funcs   []*funcDecl
	keys    map[string]bool // signature keys of top-level functions

	fs *funcState
}

// Compile compiles a token stream ending in EOF. On failure the returned
// error is a *diag.Error locating the first problem.
func Compile(toks []token.Token, opts Options) (unit *ast.Unit, err error) {
	if opts.Classes == nil {
		opts.Classes = types.NewRegistry(opts.Shared)
	}
	if opts.Shared == nil {
		opts.Shared = opts.Classes
	}
	if opts.Natives == nil {
		opts.Natives = native.NewRegistry(nil)
	}
	if len(toks) == 0 || toks[len(toks)-1].Type != token.EOF {
		toks = append(toks, token.Token{Type: token.EOF})
	}
	c := &Compiler{
		opts:   opts,
		toks:   toks,
		unit:   ast.NewUnit(opts.Name),
		byName: make(map[string]*classDecl),
		keys:   make(map[string]bool),
	}
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			c.rollback()
			unit, err = nil, b.err
		}
	}()
	c.checkTokens()
	c.declare()
	c.define()
	c.unit.Finish()
	return c.unit, nil
}

// rollback withdraws the classes declared by a failed unit.
func (c *Compiler) rollback() {
	for _, cd := range c.classes {
		if !cd.registered {
			continue
		}
		if cd.public {
			c.opts.Shared.Remove(cd.class.Name)
		} else {
			c.opts.Classes.Remove(cd.class.Name)
		}
	}
}

// checkTokens reports the first lexical error.
func (c *Compiler) checkTokens() {
	for _, t := range c.toks {
		if t.Type == token.ILLEGAL {
			code := diag.Code(t.Err)
			if code == 0 {
				code = diag.ErrUnexpected
			}
			c.failTok(t, code)
		}
	}
}

// ---- Token navigation ------------------------------------------------------

func (c *Compiler) cur() token.Token { return c.at(c.pos) }

func (c *Compiler) peek(n int) token.Token { return c.at(c.pos + n) }

func (c *Compiler) at(i int) token.Token {
	if i >= len(c.toks) {
		return c.toks[len(c.toks)-1]
	}
	return c.toks[i]
}

func (c *Compiler) is(t token.Type) bool { return c.cur().Type == t }

// next consumes the current token and returns it. EOF is never consumed.
func (c *Compiler) next() token.Token {
	t := c.cur()
	if t.Type != token.EOF {
		c.pos++
	}
	return t
}

// accept consumes the current token if it has type t.
func (c *Compiler) accept(t token.Type) bool {
	if c.is(t) {
		c.next()
		return true
	}
	return false
}

// expect consumes a token of type t or fails with code.
func (c *Compiler) expect(t token.Type, code diag.Code) token.Token {
	if !c.is(t) {
		c.failTok(c.cur(), code)
	}
	return c.next()
}

func (c *Compiler) ident() token.Token {
	return c.expect(token.IDENT, diag.ErrNoVar)
}

// prev returns the last consumed token.
func (c *Compiler) prev() token.Token {
	if c.pos == 0 {
		return c.toks[0]
	}
	return c.toks[c.pos-1]
}

// skipBalanced skips from an opening bracket to just past its match.
func (c *Compiler) skipBalanced() {
	open := c.next()
	closer := map[token.Type]token.Type{
		token.LBRACE:   token.RBRACE,
		token.LPAREN:   token.RPAREN,
		token.LBRACKET: token.RBRACKET,
	}[open.Type]
	depth := 1
	for depth > 0 {
		t := c.cur()
		switch t.Type {
		case token.EOF:
			if closer == token.RBRACE {
				c.failTok(open, diag.ErrCloseBlock)
			}
			c.failTok(open, diag.ErrClosePar)
		case open.Type:
			depth++
		case closer:
			depth--
		}
		c.next()
	}
}

// skipExpr skips an initializer up to a top-level ',' or ';'.
func (c *Compiler) skipExpr() {
	for {
		switch c.cur().Type {
		case token.COMMA, token.SEMICOLON:
			return
		case token.EOF, token.RBRACE:
			c.failTok(c.cur(), diag.ErrNoTerminator)
		case token.LPAREN, token.LBRACKET, token.LBRACE:
			c.skipBalanced()
		default:
			c.next()
		}
	}
}

// ---- Diagnostics -----------------------------------------------------------

func tokSpan(t token.Token) ast.Span {
	return ast.Span{Start: t.Pos.Offset, End: t.End.Offset, Line: t.Pos.Line, Column: t.Pos.Column}
}

// spanFrom covers the tokens from start through the last consumed one.
func (c *Compiler) spanFrom(start token.Token) ast.Span {
	return tokSpan(start).To(tokSpan(c.prev()))
}

func (c *Compiler) fail(sp ast.Span, code diag.Code) {
	panic(bailout{sp.Err(code)})
}

func (c *Compiler) failf(sp ast.Span, code diag.Code, format string, args ...interface{}) {
	panic(bailout{sp.Err(code).Withf(format, args...)})
}

func (c *Compiler) failTok(t token.Token, code diag.Code) {
	c.fail(tokSpan(t), code)
}

// reg registers a freshly built node with the unit.
func reg[T ast.Node](c *Compiler, n T, sp ast.Span) T {
	c.unit.Register(n, sp)
	return n
}
