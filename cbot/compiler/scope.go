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

type local struct {
	slot int
	typ  types.Type
}

// target is an enclosing statement a break or continue may leave.
type target struct {
	label string
	loop  bool // false for switch, which takes break only
}

// funcState tracks the function whose body is being compiled. Slots are
// never reused, so each slot keeps one declared type.
type funcState struct {
	fn      *ast.Function // nil while compiling field initializers
	class   *types.Class  // class of this, nil outside methods
	scopes  []map[string]local
	slots   []types.Type
	targets []target
}

func newFuncState(fn *ast.Function, class *types.Class) *funcState {
	return &funcState{fn: fn, class: class, scopes: []map[string]local{{}}}
}

func (fs *funcState) push() { fs.scopes = append(fs.scopes, map[string]local{}) }
func (fs *funcState) pop()  { fs.scopes = fs.scopes[:len(fs.scopes)-1] }

func (fs *funcState) lookup(name string) (local, bool) {
	for i := len(fs.scopes) - 1; i >= 0; i-- {
		if l, ok := fs.scopes[i][name]; ok {
			return l, true
		}
	}
	return local{}, false
}

// bind allocates the next slot for name in the innermost scope.
func (fs *funcState) bind(name string, t types.Type) int {
	slot := len(fs.slots)
	fs.slots = append(fs.slots, t)
	fs.scopes[len(fs.scopes)-1][name] = local{slot: slot, typ: t}
	return slot
}

// declareLocal binds a new local variable. Names may not hide a local of an
// enclosing scope.
func (c *Compiler) declareLocal(name token.Token, t types.Type) int {
	if c.fs.fn == nil {
		c.failTok(name, diag.ErrUnexpected)
	}
	if _, ok := c.fs.lookup(name.Literal); ok {
		c.failTok(name, diag.ErrRedefVar)
	}
	return c.fs.bind(name.Literal, t)
}

// jumpTarget validates break/continue [label] against the enclosing
// statements.
func (c *Compiler) jumpTarget(kw token.Token, label token.Token, cont bool) {
	ts := c.fs.targets
	for i := len(ts) - 1; i >= 0; i-- {
		t := ts[i]
		if label.Type == token.IDENT {
			if t.label != label.Literal {
				continue
			}
			if cont && !t.loop {
				c.failTok(label, diag.ErrBadLabel)
			}
			return
		}
		if cont && !t.loop {
			continue
		}
		return
	}
	switch {
	case label.Type == token.IDENT:
		c.failTok(label, diag.ErrBadLabel)
	case cont:
		c.failTok(kw, diag.ErrContinueOutside)
	default:
		c.failTok(kw, diag.ErrBreakOutside)
	}
}
