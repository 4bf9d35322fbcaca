// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package compiler

import (
	"strings"

	"github.com/colobot/colobot-sub025/cbot/ast"
	"github.com/colobot/colobot-sub025/cbot/diag"
	"github.com/colobot/colobot-sub025/cbot/token"
	"github.com/colobot/colobot-sub025/cbot/types"
)

// arguments compiles ( expr, ... ).
func (c *Compiler) arguments() []ast.Expr {
	c.expect(token.LPAREN, diag.ErrOpenPar)
	var args []ast.Expr
	if c.accept(token.RPAREN) {
		return args
	}
	for {
		args = append(args, c.expression())
		if c.accept(token.RPAREN) {
			return args
		}
		c.expect(token.COMMA, diag.ErrClosePar)
	}
}

func argTypes(args []ast.Expr) []types.Type {
	out := make([]types.Type, len(args))
	for i, a := range args {
		out[i] = a.Type()
	}
	return out
}

// pick resolves an overload: every candidate accepting the arguments is
// ranked by its total conversion cost and the cheapest wins. Two
// candidates sharing the lowest cost make the call ambiguous.
func (c *Compiler) pick(sp ast.Span, name string, cands [][]types.Type, args []ast.Expr) int {
	best, bestCost, tie := -1, 0, false
	for i, params := range cands {
		if len(params) != len(args) {
			continue
		}
		cost := 0
		for j, p := range params {
			d := types.Cost(p, args[j].Type())
			if d < 0 {
				cost = -1
				break
			}
			cost += d
		}
		switch {
		case cost < 0:
		case best < 0 || cost < bestCost:
			best, bestCost, tie = i, cost, false
		case cost == bestCost:
			tie = true
		}
	}
	sig := types.FormatSignature(name, argTypes(args), nil)
	sig = strings.TrimPrefix(sig, "void ")
	if best < 0 {
		c.failf(sp, diag.ErrBadParam, "no %s", sig)
	}
	if tie {
		c.failf(sp, diag.ErrAmbiguousCall, "%s", sig)
	}
	return best
}

func paramLists(fns []*ast.Function) [][]types.Type {
	out := make([][]types.Type, len(fns))
	for i, fn := range fns {
		out[i] = fn.ParamTypes()
	}
	return out
}

// call compiles name(args). Methods of this come first, then functions of
// the unit together with the public functions of the group, then host
// functions.
func (c *Compiler) call(name token.Token) ast.Expr {
	if cls := c.fs.class; cls != nil && len(cls.Candidates(name.Literal)) > 0 {
		return c.methodCall(nil, name, false)
	}
	args := c.arguments()
	sp := c.spanFrom(name)

	cands := c.unit.Lookup(name.Literal)
	if c.opts.Publics != nil {
		for _, fn := range c.opts.Publics.Public(name.Literal) {
			if fn.Unit.Name != c.unit.Name {
				cands = append(cands, fn)
			}
		}
	}
	if len(cands) > 0 {
		fn := cands[c.pick(sp, name.Literal, paramLists(cands), args)]
		return reg(c, &ast.Call{Fn: fn, Args: args}, sp)
	}
	if nf := c.opts.Natives.Lookup(name.Literal); nf != nil {
		ret, err := nf.Compile(argTypes(args), c.opts.User)
		if err != nil {
			if err.Start < 0 {
				located := sp.Err(err.Code)
				located.Detail = err.Detail
				err = located
			}
			panic(bailout{err})
		}
		if ret == nil {
			ret = types.Void
		}
		return reg(c, &ast.NativeCall{Func: nf, Args: args, Typ: ret}, sp)
	}
	c.failTok(name, diag.ErrUndefFunc)
	return nil
}

// methodCall compiles recv.name(args); recv nil calls on this. super calls
// bind to the parent implementation instead of dispatching dynamically.
func (c *Compiler) methodCall(recv ast.Expr, name token.Token, super bool) ast.Expr {
	var cls *types.Class
	switch {
	case recv != nil:
		if cls = types.ClassOf(recv.Type()); cls == nil {
			c.fail(recv.Span(), diag.ErrNotClass)
		}
	case c.fs.class == nil || c.fs.fn == nil:
		c.failTok(name, diag.ErrThisOutside)
	case super:
		if cls = c.fs.class.Parent; cls == nil {
			c.failTok(name, diag.ErrUndefFunc)
		}
	default:
		cls = c.fs.class
	}
	args := c.arguments()
	start := tokSpan(name)
	if recv != nil {
		start = recv.Span()
	}
	sp := start.To(tokSpan(c.prev()))

	cands := cls.Candidates(name.Literal)
	if len(cands) == 0 {
		c.failf(tokSpan(name), diag.ErrUndefFunc, "%s has no method %s", cls.Name, name.Literal)
	}
	lists := make([][]types.Type, len(cands))
	for i, m := range cands {
		lists[i] = m.Params
	}
	m := cands[c.pick(sp, name.Literal, lists, args)]
	c.access(name, m.Class, m.Access)
	if _, ok := m.Impl.(*ast.Function); !ok {
		c.failTok(name, diag.ErrUndefFunc)
	}
	n := &ast.MethodCall{Recv: recv, Key: m.Key(), Method: m, Virtual: !super, Args: args}
	return reg(c, n, sp)
}

// newObject compiles the creation of a cls instance with the constructor
// matching args. Classes without constructors take no arguments.
func (c *Compiler) newObject(sp ast.Span, cls *types.Class, args []ast.Expr) ast.Expr {
	var ctors []*ast.Function
	if info, ok := cls.Impl.(*ast.ClassInfo); ok {
		ctors = info.Ctors
	}
	n := &ast.New{Class: cls, Args: args}
	if len(ctors) > 0 {
		n.Ctor = ctors[c.pick(sp, cls.Name, paramLists(ctors), args)]
	} else if len(args) > 0 {
		c.failf(sp, diag.ErrBadParam, "%s has no constructor", cls.Name)
	}
	return reg(c, n, sp)
}
